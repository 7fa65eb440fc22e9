package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"packrat/internal/browser"
	"packrat/internal/runlock"
	"packrat/internal/session"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckChromeConfiguredPath(t *testing.T) {
	stub := filepath.Join(t.TempDir(), "chrome")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if result := CheckChrome(stub); !result.Passed {
		t.Fatalf("expected pass for stub, got %s", result.Detail)
	}
	if result := CheckChrome(filepath.Join(t.TempDir(), "missing")); result.Passed {
		t.Fatal("expected failure for missing executable")
	}
}

func TestCheckChromeSearchesPath(t *testing.T) {
	binDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(binDir, "chromium"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", binDir)
	result := CheckChrome("")
	if !result.Passed || !strings.HasSuffix(result.Detail, "chromium") {
		t.Fatalf("expected chromium on PATH, got %+v", result)
	}
}

func TestCheckCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if result := CheckCredentials(path); result.Passed {
		t.Fatal("expected failure without bundle")
	}

	future := float64(time.Now().Add(24 * time.Hour).Unix())
	past := float64(time.Now().Add(-24 * time.Hour).Unix())
	if err := session.SaveBundle(path, []browser.Cookie{{Name: "sid", Value: "x", Expires: future}, {Name: "old", Value: "y", Expires: past}}); err != nil {
		t.Fatal(err)
	}
	result := CheckCredentials(path)
	if !result.Passed || !strings.Contains(result.Detail, "1 expired") {
		t.Fatalf("unexpected result %+v", result)
	}

	if err := session.SaveBundle(path, []browser.Cookie{{Name: "old", Value: "y", Expires: past}}); err != nil {
		t.Fatal(err)
	}
	if result := CheckCredentials(path); result.Passed {
		t.Fatal("expected failure when every cookie expired")
	}
}

func TestCheckRunLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packrat.lock")
	if result := CheckRunLock(path); !result.Passed {
		t.Fatalf("expected free lock, got %s", result.Detail)
	}
	lock, err := runlock.Acquire(path)
	if err != nil {
		t.Fatal(err)
	}
	defer lock.Release()
	if result := CheckRunLock(path); result.Passed {
		t.Fatal("expected held lock to fail")
	}
}

func TestCheckSite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	if result := CheckSite(context.Background(), srv.URL); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()
	if result := CheckSite(context.Background(), failing.URL); result.Passed {
		t.Fatal("expected failure for 502")
	}
}

func TestBlockingIgnoresOptional(t *testing.T) {
	results := []Result{
		{Name: "a", Passed: true},
		{Name: "b", Passed: false},
		{Name: "c", Passed: false, Optional: true},
	}
	blocking := Blocking(results)
	if len(blocking) != 1 || blocking[0].Name != "b" {
		t.Fatalf("unexpected blocking set %+v", blocking)
	}
}
