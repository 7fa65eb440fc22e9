package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"packrat/internal/browser"
	"packrat/internal/config"
	"packrat/internal/faults"
	"packrat/internal/logging"
)

// Launcher opens a browser page with the given options.
type Launcher func(ctx context.Context, opts browser.Options, logger *slog.Logger) (browser.Page, error)

// ChromeLauncher launches Chrome through chromedp.
func ChromeLauncher(ctx context.Context, opts browser.Options, logger *slog.Logger) (browser.Page, error) {
	page, err := browser.Launch(ctx, opts, logger)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// Provider hands out ready browsing sessions.
type Provider struct {
	cfg         *config.Config
	logger      *slog.Logger
	launch      Launcher
	in          io.Reader
	out         io.Writer
	interactive func() bool
}

// Option customizes a Provider.
type Option func(*Provider)

// WithLauncher replaces the Chrome launcher.
func WithLauncher(launch Launcher) Option {
	return func(p *Provider) { p.launch = launch }
}

// WithTerminal overrides the operator streams and terminal detection.
func WithTerminal(in io.Reader, out io.Writer, interactive bool) Option {
	return func(p *Provider) {
		p.in = in
		p.out = out
		p.interactive = func() bool { return interactive }
	}
}

// NewProvider builds a Provider for cfg.
func NewProvider(cfg *config.Config, logger *slog.Logger, opts ...Option) *Provider {
	p := &Provider{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "session"),
		launch: ChromeLauncher,
		in:     os.Stdin,
		out:    os.Stderr,
		interactive: func() bool {
			fd := os.Stdin.Fd()
			return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open returns an authenticated page. The caller owns the page and must
// Close it.
func (p *Provider) Open(ctx context.Context) (browser.Page, error) {
	cookies, err := LoadBundle(p.cfg.Paths.CredentialsFile)
	if errors.Is(err, ErrNoBundle) {
		if !p.interactive() {
			return nil, faults.Wrap(faults.ErrSession, "session", "load bundle",
				"no credential bundle and stdin is not a terminal; run 'packrat login'", err)
		}
		p.logger.Info("no credential bundle; starting interactive login", logging.String("path", p.cfg.Paths.CredentialsFile))
		cookies, err = p.Login(ctx)
	}
	if err != nil {
		return nil, faults.Wrap(faults.ErrSession, "session", "load bundle", "", err)
	}

	page, err := p.launch(ctx, browser.OptionsFromConfig(p.cfg), p.logger)
	if err != nil {
		return nil, faults.Wrap(faults.ErrSession, "session", "launch browser", "", err)
	}
	if err := p.restore(ctx, page, cookies); err != nil {
		_ = page.Close()
		return nil, err
	}
	p.logger.Debug("session restored", logging.Int("cookies", len(cookies)))
	return page, nil
}

func (p *Provider) restore(ctx context.Context, page browser.Page, cookies []browser.Cookie) error {
	navCtx, cancel := context.WithTimeout(ctx, p.cfg.NavigationTimeout())
	defer cancel()
	if err := page.SetCookies(navCtx, cookies); err != nil {
		return faults.Wrap(faults.ErrSession, "session", "set cookies", "", err)
	}
	if err := page.Navigate(navCtx, p.cfg.SiteURL("/")); err != nil {
		return faults.Wrap(faults.ErrSession, "session", "open site", p.cfg.Site.BaseURL, err)
	}
	return nil
}

// Login opens a visible browser on the login page, waits for the operator to
// confirm, and saves the resulting cookies as the credential bundle.
func (p *Provider) Login(ctx context.Context) ([]browser.Cookie, error) {
	opts := browser.OptionsFromConfig(p.cfg)
	opts.Headless = false
	page, err := p.launch(ctx, opts, p.logger)
	if err != nil {
		return nil, fmt.Errorf("launch login browser: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, p.cfg.NavigationTimeout())
	err = page.Navigate(navCtx, p.cfg.SiteURL(p.cfg.Site.LoginPath))
	cancel()
	if err != nil {
		return nil, fmt.Errorf("open login page: %w", err)
	}

	fmt.Fprintln(p.out, "Log in using the browser window, then press Enter here to save the session.")
	if _, err := bufio.NewReader(p.in).ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read confirmation: %w", err)
	}

	readCtx, cancel := context.WithTimeout(ctx, p.cfg.NavigationTimeout())
	defer cancel()
	cookies, err := page.Cookies(readCtx)
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	if len(cookies) == 0 {
		return nil, errors.New("browser returned no cookies; login may not have completed")
	}
	if err := SaveBundle(p.cfg.Paths.CredentialsFile, cookies); err != nil {
		return nil, err
	}
	p.logger.Info("credential bundle saved",
		logging.String("path", p.cfg.Paths.CredentialsFile),
		logging.Int("cookies", len(cookies)),
	)
	return cookies, nil
}
