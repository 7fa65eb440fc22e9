package faults_test

import (
	"errors"
	"strings"
	"testing"

	"packrat/internal/faults"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := faults.Wrap(faults.ErrDownload, "store", "fetch", "status 503", base)
	if !errors.Is(err, faults.ErrDownload) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"store", "fetch", "status 503", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarkerAndDetail(t *testing.T) {
	err := faults.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, faults.ErrNavigation) {
		t.Fatalf("expected navigation marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "pipeline failure") {
		t.Fatalf("expected fallback detail, got %q", err)
	}
}

func TestOutcomeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, faults.OutcomeDownloaded},
		{faults.Wrap(faults.ErrTimeout, "resolve", "navigate", "", nil), faults.OutcomeTimedOut},
		{faults.Wrap(faults.ErrNoMatch, "resolve", "await", "", nil), faults.OutcomeNoMatch},
		{faults.Wrap(faults.ErrDownload, "store", "fetch", "", nil), faults.OutcomeDownload},
		{faults.Wrap(faults.ErrNavigation, "pipeline", "open pack", "", nil), faults.OutcomeNavigation},
		{errors.New("other"), faults.OutcomeFailed},
	}
	for _, tc := range cases {
		if got := faults.Outcome(tc.err); got != tc.want {
			t.Fatalf("Outcome(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestFatal(t *testing.T) {
	if !faults.Fatal(faults.Wrap(faults.ErrSession, "session", "load", "", nil)) {
		t.Fatal("session errors are fatal")
	}
	if faults.Fatal(faults.Wrap(faults.ErrNoMatch, "resolve", "", "", nil)) {
		t.Fatal("no-match errors are item-scoped")
	}
}
