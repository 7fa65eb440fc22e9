package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"packrat/internal/browser"
	"packrat/internal/config"
	"packrat/internal/faults"
	"packrat/internal/logging"
)

// nextSelectors are tried in order when looking for the pagination control.
var nextSelectors = []string{
	`a[rel="next"]`,
	`[data-testid="pagination-next"]`,
	`button[aria-label*="Next"]`,
	`a[aria-label*="Next"]`,
	`.pagination .next`,
	`.pagination-next`,
}

// Crawler walks the paginated pack listing.
type Crawler struct {
	maxPages   int
	navTimeout time.Duration
	logger     *slog.Logger
}

// NewCrawler builds a crawler using the [crawl] and [timeouts] settings.
func NewCrawler(cfg *config.Config, logger *slog.Logger) *Crawler {
	maxPages := cfg.Crawl.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	return &Crawler{
		maxPages:   maxPages,
		navTimeout: cfg.NavigationTimeout(),
		logger:     logging.NewComponentLogger(logger, "crawler"),
	}
}

// Crawl loads startURL and follows "next" controls, returning every pack
// discovered, unique by path and in discovery order. Pagination problems end
// the walk but keep what was found; only a failure to load the first page is
// returned as an error.
func (c *Crawler) Crawl(ctx context.Context, page browser.Page, startURL string) ([]CollectionRef, error) {
	navCtx, cancel := context.WithTimeout(ctx, c.navTimeout)
	err := page.Navigate(navCtx, startURL)
	cancel()
	if err != nil {
		return nil, faults.Wrap(faults.ErrNavigation, "crawl", "load catalog", startURL, err)
	}

	var refs []CollectionRef
	seen := make(map[string]struct{})
	prevSignature := ""

	for pageNum := 1; ; pageNum++ {
		doc, pageURL, err := Snapshot(ctx, page, c.navTimeout)
		if err != nil {
			logging.WarnWithContext(c.logger, "catalog page unreadable", "crawl_page_unreadable",
				logging.Int("page", pageNum),
				logging.Error(err),
				logging.String(logging.FieldImpact, "pagination stopped; earlier packs kept"),
			)
			break
		}

		found := PacksFromDocument(doc, pageURL)
		signature := signatureOf(found)
		if pageNum > 1 && signature == prevSignature {
			c.logger.Info("catalog page unchanged after next; stopping", logging.Int("page", pageNum))
			break
		}
		prevSignature = signature

		added := 0
		for _, ref := range found {
			if _, ok := seen[ref.Path]; ok {
				continue
			}
			seen[ref.Path] = struct{}{}
			refs = append(refs, ref)
			added++
		}
		c.logger.Debug("catalog page scanned",
			logging.Int("page", pageNum),
			logging.Int("found", len(found)),
			logging.Int("new", added),
		)

		if pageNum >= c.maxPages {
			c.logger.Info("catalog page limit reached", logging.Int("max_pages", c.maxPages))
			break
		}
		selector, ok := NextControl(doc)
		if !ok {
			break
		}
		if err := c.advance(ctx, page, selector); err != nil {
			logging.WarnWithContext(c.logger, "catalog pagination failed", "crawl_next_failed",
				logging.Int("page", pageNum),
				logging.String("selector", selector),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "raise timeouts.navigation or check the listing markup"),
				logging.String(logging.FieldImpact, "pagination stopped; earlier packs kept"),
			)
			break
		}
	}

	c.logger.Info("catalog crawl complete", logging.Int("packs", len(refs)))
	return refs, nil
}

func (c *Crawler) advance(ctx context.Context, page browser.Page, selector string) error {
	stepCtx, cancel := context.WithTimeout(ctx, c.navTimeout)
	defer cancel()
	if err := page.Click(stepCtx, selector); err != nil {
		return fmt.Errorf("click next: %w", err)
	}
	if err := page.WaitSettled(stepCtx); err != nil {
		return fmt.Errorf("wait for next page: %w", err)
	}
	return nil
}

// Snapshot reads the rendered page and parses it for extraction.
func Snapshot(ctx context.Context, page browser.Page, timeout time.Duration) (*goquery.Document, *url.URL, error) {
	readCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	current, err := page.CurrentURL(readCtx)
	if err != nil {
		return nil, nil, fmt.Errorf("read location: %w", err)
	}
	html, err := page.HTML(readCtx)
	if err != nil {
		return nil, nil, fmt.Errorf("read document: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("parse document: %w", err)
	}
	pageURL, err := url.Parse(current)
	if err != nil {
		pageURL = nil
	}
	return doc, pageURL, nil
}

// PacksFromDocument returns the pack references linked from doc, unique by
// path in document order.
func PacksFromDocument(doc *goquery.Document, base *url.URL) []CollectionRef {
	var refs []CollectionRef
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		p, ok := NormalizePath(base, href)
		if !ok {
			return
		}
		slug, ok := PackSlug(p)
		if !ok {
			return
		}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		name := strings.TrimSpace(a.AttrOr("title", ""))
		if name == "" {
			name = strings.Join(strings.Fields(a.Text()), " ")
		}
		refs = append(refs, NewCollection(slug, name))
	})
	return refs
}

// NextControl returns the selector of the first enabled pagination control.
func NextControl(doc *goquery.Document) (string, bool) {
	for _, selector := range nextSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if controlDisabled(sel) {
			continue
		}
		return selector, true
	}
	return "", false
}

func controlDisabled(sel *goquery.Selection) bool {
	if _, ok := sel.Attr("disabled"); ok {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(sel.AttrOr("aria-disabled", "")), "true") {
		return true
	}
	for _, class := range strings.Fields(sel.AttrOr("class", "")) {
		if strings.EqualFold(class, "disabled") || strings.HasSuffix(strings.ToLower(class), "--disabled") {
			return true
		}
	}
	return false
}

func signatureOf(refs []CollectionRef) string {
	paths := make([]string, len(refs))
	for i, ref := range refs {
		paths[i] = ref.Path
	}
	return strings.Join(paths, "\n")
}

// MergePacks appends explicit pack slugs to refs, skipping any already present.
func MergePacks(refs []CollectionRef, slugs []string) []CollectionRef {
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		seen[ref.Path] = struct{}{}
	}
	for _, slug := range slugs {
		ref := NewCollection(slug, "")
		if _, ok := seen[ref.Path]; ok {
			continue
		}
		seen[ref.Path] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}
