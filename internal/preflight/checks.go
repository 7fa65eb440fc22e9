package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"packrat/internal/runlock"
	"packrat/internal/session"
)

// chromeCandidates are looked up on PATH when no executable is configured.
var chromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckChrome verifies that a Chrome executable is available.
func CheckChrome(execPath string) Result {
	const name = "Chrome"

	execPath = strings.TrimSpace(execPath)
	if execPath != "" {
		resolved, err := exec.LookPath(execPath)
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: not executable)", execPath)}
		}
		return Result{Name: name, Passed: true, Detail: resolved}
	}
	for _, candidate := range chromeCandidates {
		if resolved, err := exec.LookPath(candidate); err == nil {
			return Result{Name: name, Passed: true, Detail: resolved}
		}
	}
	return Result{Name: name, Detail: "no Chrome or Chromium found on PATH (set browser.exec_path)"}
}

// CheckCredentials verifies that the credential bundle loads and reports how
// many cookies it holds.
func CheckCredentials(path string) Result {
	const name = "Credential bundle"

	cookies, err := session.LoadBundle(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%v (run 'packrat login')", err)}
	}
	now := float64(time.Now().Unix())
	expired := 0
	for _, c := range cookies {
		if c.Expires > 0 && c.Expires < now {
			expired++
		}
	}
	if expired == len(cookies) {
		return Result{Name: name, Detail: fmt.Sprintf("%s (all %d cookies expired; run 'packrat login')", path, len(cookies))}
	}
	detail := fmt.Sprintf("%s (%d cookies", path, len(cookies))
	if expired > 0 {
		detail += fmt.Sprintf(", %d expired", expired)
	}
	return Result{Name: name, Passed: true, Detail: detail + ")"}
}

// CheckRunLock reports whether another run currently holds the lock.
func CheckRunLock(path string) Result {
	const name = "Run lock"

	held, err := runlock.Held(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if held {
		return Result{Name: name, Detail: "another packrat run is in progress"}
	}
	return Result{Name: name, Passed: true, Detail: "free"}
}

// CheckSite verifies the catalog responds over HTTP.
func CheckSite(ctx context.Context, siteURL string) Result {
	const name = "Catalog site"

	if strings.TrimSpace(siteURL) == "" || siteURL == "/" {
		return Result{Name: name, Detail: "missing site.base_url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, siteURL, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (%d)", resp.StatusCode)}
}
