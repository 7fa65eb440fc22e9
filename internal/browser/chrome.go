package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"packrat/internal/config"
	"packrat/internal/logging"
)

// Options controls how Chrome is launched.
type Options struct {
	ExecPath  string
	Headless  bool
	UserAgent string
	Width     int
	Height    int
	Settle    time.Duration
}

// OptionsFromConfig maps the [browser] and [timeouts] sections onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ExecPath:  cfg.Browser.ExecPath,
		Headless:  cfg.Browser.Headless,
		UserAgent: cfg.Browser.UserAgent,
		Width:     cfg.Browser.WindowWidth,
		Height:    cfg.Browser.WindowHeight,
		Settle:    cfg.SettleDelay(),
	}
}

// Chrome is a Page backed by a chromedp-controlled browser tab.
type Chrome struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	settle      time.Duration
	logger      *slog.Logger
	closeOnce   sync.Once
}

var _ Page = (*Chrome)(nil)

// Launch starts Chrome and opens a tab with network events enabled.
func Launch(ctx context.Context, opts Options, logger *slog.Logger) (*Chrome, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", opts.Headless))
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.Width > 0 && opts.Height > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.Width, opts.Height))
	}

	logger = logging.NewComponentLogger(logger, "browser")
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))

	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	logger.Debug("chrome launched", logging.Bool("headless", opts.Headless))

	return &Chrome{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		settle:      opts.Settle,
		logger:      logger,
	}, nil
}

// run executes actions on the tab bounded by the caller's deadline and cancellation.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	var runCtx context.Context
	var cancel context.CancelFunc
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(c.tabCtx, deadline)
	} else {
		runCtx, cancel = context.WithCancel(c.tabCtx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, chromedp.Navigate(url))
}

func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	var location string
	if err := c.run(ctx, chromedp.Location(&location)); err != nil {
		return "", err
	}
	return location, nil
}

func (c *Chrome) HTML(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (c *Chrome) Click(ctx context.Context, selector string) error {
	return c.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

// WaitSettled waits for the document to report complete and then pauses for
// the configured settle delay so client-side rendering can finish.
func (c *Chrome) WaitSettled(ctx context.Context) error {
	var ready bool
	actions := []chromedp.Action{
		chromedp.Poll(`document.readyState === "complete"`, &ready, chromedp.WithPollingInterval(100*time.Millisecond)),
	}
	if c.settle > 0 {
		actions = append(actions, chromedp.Sleep(c.settle))
	}
	return c.run(ctx, actions...)
}

// Listen observes completed responses on the tab. Bodies are fetched once
// loading finishes because they are not available on the response event.
func (c *Chrome) Listen(match func(url string) bool, fn func(Response)) func() {
	listenCtx, cancel := context.WithCancel(c.tabCtx)

	var mu sync.Mutex
	pending := make(map[network.RequestID]*network.Response)

	chromedp.ListenTarget(listenCtx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if e.Response == nil || !match(e.Response.URL) {
				return
			}
			mu.Lock()
			pending[e.RequestID] = e.Response
			mu.Unlock()
		case *network.EventLoadingFinished:
			mu.Lock()
			resp, ok := pending[e.RequestID]
			delete(pending, e.RequestID)
			mu.Unlock()
			if !ok {
				return
			}
			go c.deliver(listenCtx, e.RequestID, resp, fn)
		}
	})
	return cancel
}

func (c *Chrome) deliver(ctx context.Context, id network.RequestID, resp *network.Response, fn func(Response)) {
	var body []byte
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(id).Do(ctx)
		return err
	}))
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		c.logger.Debug("response body unavailable", logging.String("url", resp.URL), logging.Error(err))
		return
	}
	fn(Response{
		URL:         resp.URL,
		Status:      int(resp.Status),
		ContentType: resp.MimeType,
		Body:        body,
	})
}

type fetchResult struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        string `json:"body"`
}

// Fetch issues a same-origin request from inside the page so the session
// cookies and origin headers match what the site's own scripts send.
func (c *Chrome) Fetch(ctx context.Context, url string) (Response, error) {
	target, err := json.Marshal(url)
	if err != nil {
		return Response{}, err
	}
	script := fmt.Sprintf(`(async () => {
	const r = await fetch(%s, {credentials: "include"});
	return {status: r.status, contentType: r.headers.get("content-type") || "", body: await r.text()};
})()`, target)

	var out fetchResult
	err = c.run(ctx, chromedp.Evaluate(script, &out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	if err != nil {
		return Response{}, fmt.Errorf("in-page fetch %s: %w", url, err)
	}
	return Response{URL: url, Status: out.Status, ContentType: out.ContentType, Body: []byte(out.Body)}, nil
}

func (c *Chrome) SetCookies(ctx context.Context, cookies []Cookie) error {
	return c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, ck := range cookies {
			params := network.SetCookie(ck.Name, ck.Value).
				WithDomain(ck.Domain).
				WithPath(ck.Path).
				WithHTTPOnly(ck.HTTPOnly).
				WithSecure(ck.Secure)
			if ck.Expires > 0 {
				expires := cdp.TimeSinceEpoch(time.Unix(int64(ck.Expires), 0))
				params = params.WithExpires(&expires)
			}
			if err := params.Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s: %w", ck.Name, err)
			}
		}
		return nil
	}))
}

func (c *Chrome) Cookies(ctx context.Context) ([]Cookie, error) {
	var raw []*network.Cookie
	err := c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	cookies := make([]Cookie, 0, len(raw))
	for _, ck := range raw {
		cookies = append(cookies, Cookie{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			Expires:  ck.Expires,
			HTTPOnly: ck.HTTPOnly,
			Secure:   ck.Secure,
		})
	}
	return cookies, nil
}

// Close shuts the tab and the browser process.
func (c *Chrome) Close() error {
	c.closeOnce.Do(func() {
		c.tabCancel()
		c.allocCancel()
	})
	return nil
}
