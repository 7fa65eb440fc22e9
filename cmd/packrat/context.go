package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"packrat/internal/assetstore"
	"packrat/internal/browser"
	"packrat/internal/config"
	"packrat/internal/journal"
	"packrat/internal/logging"
	"packrat/internal/mapping"
	"packrat/internal/runlock"
	"packrat/internal/session"
)

type commandContext struct {
	configPath string

	// launch and terminal overrides; nil means Chrome and the process tty
	launch      session.Launcher
	stdin       io.Reader
	interactive *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configPath))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// env bundles the configuration and logger every command needs.
func (c *commandContext) env() (*config.Config, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func (c *commandContext) provider(cmd *cobra.Command) (*session.Provider, error) {
	cfg, logger, err := c.env()
	if err != nil {
		return nil, err
	}
	var opts []session.Option
	if c.launch != nil {
		opts = append(opts, session.WithLauncher(c.launch))
	}
	if c.interactive != nil {
		in := c.stdin
		if in == nil {
			in = cmd.InOrStdin()
		}
		opts = append(opts, session.WithTerminal(in, cmd.ErrOrStderr(), *c.interactive))
	}
	return session.NewProvider(cfg, logger, opts...), nil
}

// withSession opens an authenticated page, runs fn and always closes the page.
func (c *commandContext) withSession(cmd *cobra.Command, fn func(ctx context.Context, page browser.Page) error) error {
	provider, err := c.provider(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	page, err := provider.Open(ctx)
	if err != nil {
		return err
	}
	defer page.Close()
	return fn(ctx, page)
}

func (c *commandContext) assetStore() (*assetstore.Store, error) {
	cfg, logger, err := c.env()
	if err != nil {
		return nil, err
	}
	index := mapping.Open(cfg.MappingPath(), logger)
	return assetstore.New(cfg, index, logger), nil
}

// openJournal returns nil without error when the journal is disabled.
func (c *commandContext) openJournal() (*journal.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	return journal.Open(cfg)
}

func (c *commandContext) acquireLock() (*runlock.Lock, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	lock, err := runlock.Acquire(cfg.LockPath())
	if errors.Is(err, runlock.ErrHeld) {
		return nil, fmt.Errorf("another packrat run is already writing to %s (lock %s)", cfg.Paths.OutputDir, cfg.LockPath())
	}
	return lock, err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
