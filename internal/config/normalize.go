package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSite()
	c.normalizeBrowser()
	c.normalizeCrawl()
	c.normalizeDownload()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CredentialsFile) == "" {
		c.Paths.CredentialsFile = defaultCredentialsFile
	}
	if c.Paths.CredentialsFile, err = expandPath(c.Paths.CredentialsFile); err != nil {
		return fmt.Errorf("paths.credentials_file: %w", err)
	}
	c.Paths.MappingFile = strings.TrimSpace(c.Paths.MappingFile)
	if c.Paths.MappingFile == "" {
		c.Paths.MappingFile = defaultMappingFile
	}
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = filepath.Join(c.Paths.StateDir, "journal.db")
	}
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	if c.Debug.SnapshotDir, err = expandPath(strings.TrimSpace(c.Debug.SnapshotDir)); err != nil {
		return fmt.Errorf("debug.snapshot_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSite() {
	if value, ok := os.LookupEnv("PACKRAT_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Site.BaseURL = value
	}
	c.Site.BaseURL = strings.TrimRight(strings.TrimSpace(c.Site.BaseURL), "/")
	c.Site.CatalogPath = ensureLeadingSlash(c.Site.CatalogPath, defaultCatalogPath)
	c.Site.LoginPath = ensureLeadingSlash(c.Site.LoginPath, defaultLoginPath)
	c.Site.Lang = strings.TrimSpace(c.Site.Lang)
	if c.Site.Lang == "" {
		c.Site.Lang = defaultLang
	}
	if len(c.Site.Packs) > 0 {
		packs := make([]string, 0, len(c.Site.Packs))
		seen := make(map[string]struct{}, len(c.Site.Packs))
		for _, pack := range c.Site.Packs {
			pack = strings.Trim(strings.TrimSpace(pack), "/")
			pack = strings.TrimPrefix(pack, "pack/")
			if pack == "" {
				continue
			}
			if _, ok := seen[pack]; ok {
				continue
			}
			seen[pack] = struct{}{}
			packs = append(packs, pack)
		}
		c.Site.Packs = packs
	}
}

func (c *Config) normalizeBrowser() {
	if c.Browser.ExecPath == "" {
		if value, ok := os.LookupEnv("PACKRAT_CHROME_PATH"); ok {
			c.Browser.ExecPath = value
		}
	}
	c.Browser.ExecPath = strings.TrimSpace(c.Browser.ExecPath)
	c.Browser.UserAgent = strings.TrimSpace(c.Browser.UserAgent)
	if c.Browser.WindowWidth <= 0 {
		c.Browser.WindowWidth = defaultWindowWidth
	}
	if c.Browser.WindowHeight <= 0 {
		c.Browser.WindowHeight = defaultWindowHeight
	}
}

func (c *Config) normalizeCrawl() {
	c.Crawl.ExtractionMode = strings.ToLower(strings.TrimSpace(c.Crawl.ExtractionMode))
	if c.Crawl.ExtractionMode == "" {
		c.Crawl.ExtractionMode = defaultExtractionMode
	}
}

func (c *Config) normalizeDownload() {
	c.Download.Extension = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Download.Extension)), ".")
	if c.Download.Extension == "" {
		c.Download.Extension = defaultExtension
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func ensureLeadingSlash(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if !strings.HasPrefix(value, "/") {
		value = "/" + value
	}
	return value
}
