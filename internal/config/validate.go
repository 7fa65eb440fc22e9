package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSite(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateCrawl(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSite() error {
	if c.Site.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("site.base_url is required. Set PACKRAT_BASE_URL env var or edit %s (create with 'packrat config init')", defaultPath)
	}
	parsed, err := url.Parse(c.Site.BaseURL)
	if err != nil {
		return fmt.Errorf("site.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("site.base_url must use http or https, got %q", c.Site.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("site.base_url must include a host, got %q", c.Site.BaseURL)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if strings.ContainsAny(c.Paths.MappingFile, `/\`) {
		return fmt.Errorf("paths.mapping_file must be a bare file name, got %q", c.Paths.MappingFile)
	}
	if strings.ContainsAny(c.Download.Extension, `/\.`) {
		return fmt.Errorf("download.extension must be a bare extension, got %q", c.Download.Extension)
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	if c.Timeouts.Navigation <= 0 {
		return errors.New("timeouts.navigation must be positive")
	}
	if c.Timeouts.Resolution <= 0 {
		return errors.New("timeouts.resolution must be positive")
	}
	if c.Timeouts.Download <= 0 {
		return errors.New("timeouts.download must be positive")
	}
	if c.Timeouts.SettleMS < 0 {
		return errors.New("timeouts.settle_ms must be zero or positive")
	}
	if c.Timeouts.PollMS <= 0 {
		return errors.New("timeouts.poll_ms must be positive")
	}
	return nil
}

func (c *Config) validateCrawl() error {
	if c.Crawl.MaxPages <= 0 {
		return errors.New("crawl.max_pages must be positive")
	}
	switch c.Crawl.ExtractionMode {
	case ExtractionLinks, ExtractionSlugs:
	default:
		return fmt.Errorf("crawl.extraction_mode must be %q or %q, got %q", ExtractionLinks, ExtractionSlugs, c.Crawl.ExtractionMode)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
