package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	OutputDir       string `toml:"output_dir"`
	StateDir        string `toml:"state_dir"`
	LogDir          string `toml:"log_dir"`
	CredentialsFile string `toml:"credentials_file"`
	MappingFile     string `toml:"mapping_file"`
}

// Site describes the catalog being harvested.
type Site struct {
	BaseURL     string   `toml:"base_url"`
	CatalogPath string   `toml:"catalog_path"`
	LoginPath   string   `toml:"login_path"`
	Lang        string   `toml:"lang"`
	Packs       []string `toml:"packs"`
}

// Browser contains Chrome launch options.
type Browser struct {
	ExecPath     string `toml:"exec_path"`
	Headless     bool   `toml:"headless"`
	UserAgent    string `toml:"user_agent"`
	WindowWidth  int    `toml:"window_width"`
	WindowHeight int    `toml:"window_height"`
}

// Timeouts bounds every blocking step of the pipeline. Values are seconds
// unless the key says otherwise.
type Timeouts struct {
	Navigation int `toml:"navigation"`
	Resolution int `toml:"resolution"`
	Download   int `toml:"download"`
	SettleMS   int `toml:"settle_ms"`
	PollMS     int `toml:"poll_ms"`
}

// Crawl contains catalog traversal settings.
type Crawl struct {
	MaxPages       int    `toml:"max_pages"`
	ExtractionMode string `toml:"extraction_mode"`
}

// Download contains asset persistence settings.
type Download struct {
	Extension string `toml:"extension"`
}

// Journal contains configuration for the run outcome journal.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Debug contains diagnostic toggles.
type Debug struct {
	SnapshotDir string `toml:"snapshot_dir"`
}

// Config encapsulates all configuration values for packrat.
//
// Configuration sections by subsystem:
//   - Paths: output tree, state directory, credential bundle, mapping file
//   - Site: base URL, catalog entry point, explicit pack list
//   - Browser: Chrome executable and window options
//   - Timeouts: navigation, resolution, download, settle and poll intervals
//   - Crawl: pagination ceiling and extraction mode
//   - Download: asset file extension
//   - Journal: sqlite run journal
//   - Logging: log format and level
//   - Debug: empty-page HTML snapshots
type Config struct {
	Paths    Paths    `toml:"paths"`
	Site     Site     `toml:"site"`
	Browser  Browser  `toml:"browser"`
	Timeouts Timeouts `toml:"timeouts"`
	Crawl    Crawl    `toml:"crawl"`
	Download Download `toml:"download"`
	Journal  Journal  `toml:"journal"`
	Logging  Logging  `toml:"logging"`
	Debug    Debug    `toml:"debug"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("packrat.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, state, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Debug.SnapshotDir) != "" {
		if err := os.MkdirAll(c.Debug.SnapshotDir, 0o755); err != nil {
			return fmt.Errorf("create snapshot directory %q: %w", c.Debug.SnapshotDir, err)
		}
	}
	return nil
}

// MappingPath returns the absolute location of the slug to identifier mapping file.
func (c *Config) MappingPath() string {
	name := strings.TrimSuffix(c.Paths.MappingFile, ".json")
	return filepath.Join(c.Paths.OutputDir, name+".json")
}

// LockPath returns the location of the single-run lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "packrat.lock")
}

// NavigationTimeout returns the page navigation bound.
func (c *Config) NavigationTimeout() time.Duration {
	return time.Duration(c.Timeouts.Navigation) * time.Second
}

// ResolutionTimeout returns the bound on waiting for a resolution event.
func (c *Config) ResolutionTimeout() time.Duration {
	return time.Duration(c.Timeouts.Resolution) * time.Second
}

// DownloadTimeout returns the bound on a binary fetch.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Download) * time.Second
}

// SettleDelay returns the pause applied after a pagination click settles.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Timeouts.SettleMS) * time.Millisecond
}

// PollInterval returns the interval used while waiting for a redirect.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Timeouts.PollMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// SiteURL joins a site-relative path onto the configured base URL.
func (c *Config) SiteURL(path string) string {
	base := strings.TrimRight(c.Site.BaseURL, "/")
	if path == "" {
		return base
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
