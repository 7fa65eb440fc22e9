package resolver

import (
	"errors"
	"fmt"

	"packrat/internal/faults"
)

// State names a step of a single resolution.
type State string

const (
	StateIdle       State = "idle"
	StateNavigating State = "navigating"
	StateAwaiting   State = "awaiting_resolution_event"
	StateResolved   State = "resolved"
	StateTimedOut   State = "timed_out"
	StateNoMatch    State = "no_match"
)

// Source records which signal produced a result.
type Source string

const (
	SourceListener Source = "listener"
	SourceRedirect Source = "redirect"
	SourceDocument Source = "document"
)

// Result is a successful resolution. It is never persisted.
type Result struct {
	Identifier  string `json:"identifier"`
	SignedURL   string `json:"signed_url"`
	ContentType string `json:"content_type"`
	Source      Source `json:"source"`
}

// Failure is a terminal, non-fatal resolution outcome.
type Failure struct {
	Slug  string
	State State
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("resolve %s: %s: %v", f.Slug, f.State, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func timedOut(slug, op string, err error) *Failure {
	return &Failure{Slug: slug, State: StateTimedOut, Err: faults.Wrap(faults.ErrTimeout, "resolve", op, slug, err)}
}

func noMatch(slug, msg string) *Failure {
	return &Failure{Slug: slug, State: StateNoMatch, Err: faults.Wrap(faults.ErrNoMatch, "resolve", "await", msg, nil)}
}
