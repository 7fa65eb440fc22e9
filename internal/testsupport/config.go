package testsupport

import (
	"path/filepath"
	"testing"

	"packrat/internal/config"
)

// TestBaseURL is the site root used by NewConfig.
const TestBaseURL = "https://catalog.test"

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Timeouts are shortened so failure paths finish quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "assets")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CredentialsFile = filepath.Join(base, "credentials.json")
	cfgVal.Journal.Path = filepath.Join(base, "state", "journal.db")
	cfgVal.Site.BaseURL = TestBaseURL
	cfgVal.Timeouts.Navigation = 2
	cfgVal.Timeouts.Resolution = 1
	cfgVal.Timeouts.Download = 5
	cfgVal.Timeouts.SettleMS = 0
	cfgVal.Timeouts.PollMS = 10

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithExtractionMode selects the item extraction mode.
func WithExtractionMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Crawl.ExtractionMode = mode
	}
}

// WithPacks sets the explicit pack list.
func WithPacks(slugs ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Site.Packs = append([]string(nil), slugs...)
	}
}

// WithMaxPages overrides the pagination ceiling.
func WithMaxPages(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Crawl.MaxPages = n
	}
}

// WithSnapshotDir enables empty-page snapshots under the test temp dir.
func WithSnapshotDir() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Debug.SnapshotDir = filepath.Join(b.baseDir, "snapshots")
	}
}

// WithJournalDisabled turns off the sqlite journal.
func WithJournalDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = false
	}
}
