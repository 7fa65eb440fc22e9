package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"packrat/internal/browser"
	"packrat/internal/config"
	"packrat/internal/faults"
	"packrat/internal/logging"
)

const (
	loadProjectPath = "/api/v1/assetmanager/presigned/loadProject/"
	createPath      = "/design/create"
)

// Resolver drives one resolution at a time against a browser.Page.
type Resolver struct {
	baseURL     string
	lang        string
	navTimeout  time.Duration
	waitTimeout time.Duration
	poll        time.Duration
	logger      *slog.Logger
}

// New builds a Resolver from the [site] and [timeouts] settings.
func New(cfg *config.Config, logger *slog.Logger) *Resolver {
	poll := cfg.PollInterval()
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	return &Resolver{
		baseURL:     strings.TrimRight(cfg.Site.BaseURL, "/"),
		lang:        cfg.Site.Lang,
		navTimeout:  cfg.NavigationTimeout(),
		waitTimeout: cfg.ResolutionTimeout(),
		poll:        poll,
		logger:      logging.NewComponentLogger(logger, "resolver"),
	}
}

// TriggerURL returns the page whose load makes the site resolve slug.
func (r *Resolver) TriggerURL(slug string) string {
	return r.baseURL + createPath + "?slug=" + url.QueryEscape(slug)
}

// LoadProjectURL returns the resolution API endpoint for identifier.
func (r *Resolver) LoadProjectURL(identifier string) string {
	return r.baseURL + loadProjectPath + url.PathEscape(identifier) + "?lang=" + url.QueryEscape(r.lang)
}

// listener collects loadProject responses seen while one resolution is live.
// Only the first response carrying a signed URL is accepted.
type listener struct {
	captured chan Result
	mu       sync.Mutex
	seen     []string
}

func newListener() *listener {
	return &listener{captured: make(chan Result, 1)}
}

func (l *listener) handle(resp browser.Response) {
	id := ProjectID(resp.URL)
	if id == "" {
		return
	}
	signed, contentType, ok := ParseSignedURL(resp.Body)
	if !ok || resp.Status >= 300 {
		l.mu.Lock()
		l.seen = appendUnique(l.seen, id)
		l.mu.Unlock()
		return
	}
	select {
	case l.captured <- Result{Identifier: id, SignedURL: signed, ContentType: contentType, Source: SourceListener}:
	default:
	}
}

func (l *listener) poll() (Result, bool) {
	select {
	case res := <-l.captured:
		return res, true
	default:
		return Result{}, false
	}
}

func (l *listener) seenIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.seen...)
}

// Resolve registers the response listener, navigates to the trigger page and
// waits for a signed URL. The listener is always registered before
// navigation starts and removed before Resolve returns. Terminal outcomes
// other than success are returned as *Failure.
func (r *Resolver) Resolve(ctx context.Context, page browser.Page, slug string) (Result, error) {
	logger := logging.WithContext(logging.WithSlug(ctx, slug), r.logger)

	l := newListener()
	stop := page.Listen(IsLoadProject, l.handle)
	defer stop()

	logger.Debug("resolution state", logging.String("state", string(StateNavigating)))
	navCtx, cancel := context.WithTimeout(ctx, r.navTimeout)
	err := page.Navigate(navCtx, r.TriggerURL(slug))
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{}, timedOut(slug, "navigate", err)
		}
		return Result{}, faults.Wrap(faults.ErrNavigation, "resolve", "navigate", slug, err)
	}

	logger.Debug("resolution state", logging.String("state", string(StateAwaiting)))
	res, redirectID, ok := r.await(ctx, page, l)
	if ok {
		logger.Debug("resolution state", logging.String("state", string(StateResolved)), logging.String("source", string(res.Source)))
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, timedOut(slug, "await", err)
	}

	var tried []string
	if redirectID != "" {
		tried = append(tried, redirectID)
		if res, ok := r.tryCandidates(ctx, page, l, tried, SourceRedirect, logger); ok {
			return res, nil
		}
	}

	seen := unseen(l.seenIDs(), tried)
	if res, ok := r.tryCandidates(ctx, page, l, seen, SourceListener, logger); ok {
		return res, nil
	}
	tried = append(tried, seen...)

	fresh := unseen(r.documentCandidates(ctx, page, logger), tried)
	if res, ok := r.tryCandidates(ctx, page, l, fresh, SourceDocument, logger); ok {
		return res, nil
	}
	tried = append(tried, fresh...)

	logger.Debug("resolution state", logging.String("state", string(StateNoMatch)),
		logging.Int("candidates", len(tried)))
	if len(tried) == 0 {
		return Result{}, noMatch(slug, "no design identifier observed")
	}
	return Result{}, noMatch(slug, "no signed url for any identifier")
}

// await blocks until the listener captures a result, the page lands on a
// design URL, or the resolution timeout elapses.
func (r *Resolver) await(ctx context.Context, page browser.Page, l *listener) (Result, string, bool) {
	if res, ok := l.poll(); ok {
		return res, "", true
	}
	if id := r.redirectID(ctx, page); id != "" {
		if res, ok := l.poll(); ok {
			return res, "", true
		}
		return Result{}, id, false
	}

	timer := time.NewTimer(r.waitTimeout)
	defer timer.Stop()
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		select {
		case res := <-l.captured:
			return res, "", true
		case <-ticker.C:
			if id := r.redirectID(ctx, page); id != "" {
				if res, ok := l.poll(); ok {
					return res, "", true
				}
				return Result{}, id, false
			}
		case <-timer.C:
			if res, ok := l.poll(); ok {
				return res, "", true
			}
			return Result{}, "", false
		case <-ctx.Done():
			return Result{}, "", false
		}
	}
}

func (r *Resolver) redirectID(ctx context.Context, page browser.Page) string {
	readCtx, cancel := context.WithTimeout(ctx, r.navTimeout)
	defer cancel()
	current, err := page.CurrentURL(readCtx)
	if err != nil {
		return ""
	}
	return DesignID(current)
}

func (r *Resolver) tryCandidates(ctx context.Context, page browser.Page, l *listener, ids []string, source Source, logger *slog.Logger) (Result, bool) {
	for _, id := range ids {
		if res, ok := l.poll(); ok {
			return res, true
		}
		res, err := r.fetchSigned(ctx, page, id)
		if err != nil {
			logger.Debug("signed url lookup failed", logging.String("identifier", id), logging.Error(err))
			continue
		}
		res.Source = source
		return res, true
	}
	return Result{}, false
}

func (r *Resolver) fetchSigned(ctx context.Context, page browser.Page, id string) (Result, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.navTimeout)
	defer cancel()
	resp, err := page.Fetch(fetchCtx, r.LoadProjectURL(id))
	if err != nil {
		return Result{}, err
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return Result{}, fmt.Errorf("loadProject returned status %d", resp.Status)
	}
	signed, contentType, ok := ParseSignedURL(resp.Body)
	if !ok {
		return Result{}, errors.New("loadProject response has no presignedUrl")
	}
	return Result{Identifier: id, SignedURL: signed, ContentType: contentType}, nil
}

func (r *Resolver) documentCandidates(ctx context.Context, page browser.Page, logger *slog.Logger) []string {
	readCtx, cancel := context.WithTimeout(ctx, r.navTimeout)
	defer cancel()
	html, err := page.HTML(readCtx)
	if err != nil {
		logger.Debug("document unavailable for identifier scan", logging.Error(err))
		return nil
	}
	return DocumentIDs(html)
}

func appendUnique(list []string, value string) []string {
	if contains(list, value) {
		return list
	}
	return append(list, value)
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

// unseen returns the ids not already in tried, in order.
func unseen(ids, tried []string) []string {
	var out []string
	for _, id := range ids {
		if !contains(tried, id) {
			out = appendUnique(out, id)
		}
	}
	return out
}
