package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"packrat/internal/browser"
	"packrat/internal/config"
	"packrat/internal/mapping"
	"packrat/internal/runlock"
	"packrat/internal/session"
	"packrat/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	page       *testsupport.FakePage
	srv        *httptest.Server
	launches   int
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Logging.Level = "error"
	configPath := filepath.Join(t.TempDir(), "config.toml")
	writeTestConfig(t, configPath, cfg)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("glTF" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)

	page := testsupport.NewFakePage()
	page.AddDocument(cfg.SiteURL("/"), &testsupport.FakeDocument{HTML: "<html><body>home</body></html>"})

	return &cliTestEnv{cfg: cfg, configPath: configPath, page: page, srv: srv}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (env *cliTestEnv) saveBundle(t *testing.T) {
	t.Helper()
	cookies := []browser.Cookie{{Name: "sid", Value: "abc", Domain: "catalog.test", Path: "/"}}
	if err := session.SaveBundle(env.cfg.Paths.CredentialsFile, cookies); err != nil {
		t.Fatalf("save bundle: %v", err)
	}
}

func (env *cliTestEnv) launch(context.Context, browser.Options, *slog.Logger) (browser.Page, error) {
	env.launches++
	return env.page, nil
}

func (env *cliTestEnv) addCatalog(t *testing.T, pack string, items map[string]string) {
	t.Helper()
	env.page.AddDocument(env.cfg.SiteURL(env.cfg.Site.CatalogPath), &testsupport.FakeDocument{
		HTML: fmt.Sprintf(`<html><body><a href="/pack/%s">%s</a></body></html>`, pack, pack),
	})
	var b strings.Builder
	b.WriteString("<html><body>")
	for slug := range items {
		fmt.Fprintf(&b, `<a href="/item/%s">%s</a>`, slug, slug)
	}
	b.WriteString("</body></html>")
	env.page.AddDocument(env.cfg.SiteURL("/pack/"+pack), &testsupport.FakeDocument{HTML: b.String()})

	for slug, id := range items {
		trigger := env.cfg.SiteURL("/design/create?slug=" + slug)
		loadProject := env.cfg.SiteURL("/api/v1/assetmanager/presigned/loadProject/" + id + "?lang=" + env.cfg.Site.Lang)
		env.page.AddDocument(trigger, &testsupport.FakeDocument{
			RedirectTo: env.cfg.SiteURL("/design/" + id),
			Responses: []browser.Response{{
				URL:    loadProject,
				Status: 200,
				Body:   []byte(fmt.Sprintf(`{"presignedUrl":%q}`, env.srv.URL+"/"+slug)),
			}},
		})
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	interactive := false
	ctx := newCommandContext()
	ctx.launch = env.launch
	ctx.interactive = &interactive
	ctx.stdin = strings.NewReader("")

	cmd := buildRootCommand(ctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestRunDownloadsAndRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	env.saveBundle(t)
	env.addCatalog(t, "animals", map[string]string{"foo": "abc123"})

	out, _, err := runCLI(t, env, "run", "--json")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var summary struct {
		RunID      string `json:"run_id"`
		Downloaded int    `json:"downloaded"`
		Failed     int    `json:"failed"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary %q: %v", out, err)
	}
	if summary.Downloaded != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !env.page.Closed() {
		t.Fatal("expected browsing session to be closed")
	}

	asset := filepath.Join(env.cfg.Paths.OutputDir, "animals", "foo__abc123.glb")
	if _, err := os.Stat(asset); err != nil {
		t.Fatalf("expected asset at %s: %v", asset, err)
	}

	out, _, err = runCLI(t, env, "mapping", "list")
	if err != nil {
		t.Fatalf("mapping list: %v", err)
	}
	requireContains(t, out, "abc123")

	out, _, err = runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, summary.RunID)
	requireContains(t, out, "completed")
}

func TestRunSecondPassSkipsExisting(t *testing.T) {
	env := setupCLITestEnv(t)
	env.saveBundle(t)
	env.addCatalog(t, "animals", map[string]string{"foo": "abc123"})

	if _, _, err := runCLI(t, env, "run"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	out, _, err := runCLI(t, env, "run")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	requireContains(t, out, "Skipped")
	if got := len(env.page.CallsWithPrefix("navigate " + env.cfg.SiteURL("/design/create"))); got != 1 {
		t.Fatalf("expected one resolution across both runs, got %d", got)
	}
}

func TestRunRefusesWhileLocked(t *testing.T) {
	env := setupCLITestEnv(t)
	env.saveBundle(t)

	lock, err := runlock.Acquire(env.cfg.LockPath())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer lock.Release()

	_, _, err = runCLI(t, env, "run")
	if err == nil {
		t.Fatal("expected run to fail while the lock is held")
	}
	requireContains(t, err.Error(), "already")
	if env.launches != 0 {
		t.Fatalf("expected no browser launch, got %d", env.launches)
	}
}

func TestRunWithoutBundleNeedsLogin(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "run")
	if err == nil {
		t.Fatal("expected missing bundle to fail")
	}
	requireContains(t, err.Error(), "packrat login")
}

func TestItemsCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	env.saveBundle(t)
	env.addCatalog(t, "animals", map[string]string{"foo": "abc123"})

	out, _, err := runCLI(t, env, "items", "animals", "--json")
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	var items []struct {
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode items %q: %v", out, err)
	}
	if len(items) != 1 || items[0].Slug != "foo" {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestResolveCommandPrintsResult(t *testing.T) {
	env := setupCLITestEnv(t)
	env.saveBundle(t)
	env.addCatalog(t, "animals", map[string]string{"foo": "abc123"})

	out, _, err := runCLI(t, env, "resolve", "foo")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	requireContains(t, out, `"identifier": "abc123"`)

	index := mapping.Open(env.cfg.MappingPath(), nil)
	if index.Count() != 0 {
		t.Fatalf("resolve without --download must not touch the mapping")
	}
}

func TestResolveCommandReportsChangedIdentifier(t *testing.T) {
	env := setupCLITestEnv(t)
	env.saveBundle(t)
	env.addCatalog(t, "animals", map[string]string{"foo": "abc123"})
	if err := mapping.Open(env.cfg.MappingPath(), nil).Set("foo", "old999"); err != nil {
		t.Fatalf("seed mapping: %v", err)
	}

	out, errOut, err := runCLI(t, env, "resolve", "foo")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	requireContains(t, out, `"identifier": "abc123"`)
	requireContains(t, errOut, "Mapping records foo as old999; resolved abc123")
}

func TestMappingListTextFooterCountsEntries(t *testing.T) {
	env := setupCLITestEnv(t)
	index := mapping.Open(env.cfg.MappingPath(), nil)
	for slug, id := range map[string]string{"foo": "abc123", "bar": "def456"} {
		if err := index.Set(slug, id); err != nil {
			t.Fatalf("seed mapping: %v", err)
		}
	}

	out, _, err := runCLI(t, env, "mapping", "list")
	if err != nil {
		t.Fatalf("mapping list: %v", err)
	}
	requireContains(t, out, "abc123")
	requireContains(t, out, "2 mappings")
}

func TestMappingListJSONEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "mapping", "list", "--json")
	if err != nil {
		t.Fatalf("mapping list: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("expected empty JSON array, got %q", out)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
}

func TestLogsCommandFilters(t *testing.T) {
	env := setupCLITestEnv(t)
	logPath := filepath.Join(env.cfg.Paths.LogDir, "packrat.log")
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "INFO [pipeline] animals/foo – item downloaded\nWARN [pipeline] plants/fern – item not downloaded\n"
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, env, "logs", "--grep", "plants/")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "plants/fern")
	if strings.Contains(out, "animals/foo") {
		t.Fatalf("filter leaked unrelated line: %q", out)
	}
}
