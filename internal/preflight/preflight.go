package preflight

import (
	"context"

	"packrat/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Detail   string `json:"detail"`
	Optional bool   `json:"optional,omitempty"`
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckChrome(cfg.Browser.ExecPath),
		CheckCredentials(cfg.Paths.CredentialsFile),
		CheckRunLock(cfg.LockPath()),
	}
	site := CheckSite(ctx, cfg.SiteURL("/"))
	site.Optional = true
	return append(results, site)
}

// Blocking returns the failed results that are not optional.
func Blocking(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}
