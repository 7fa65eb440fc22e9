package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"packrat/internal/assetstore"
	"packrat/internal/browser"
	"packrat/internal/catalog"
	"packrat/internal/config"
	"packrat/internal/extract"
	"packrat/internal/faults"
	"packrat/internal/fileutil"
	"packrat/internal/journal"
	"packrat/internal/logging"
	"packrat/internal/resolver"
)

// Crawler discovers packs.
type Crawler interface {
	Crawl(ctx context.Context, page browser.Page, startURL string) ([]catalog.CollectionRef, error)
}

// Resolver turns a slug into a signed URL.
type Resolver interface {
	Resolve(ctx context.Context, page browser.Page, slug string) (resolver.Result, error)
}

// AssetStore persists downloaded assets.
type AssetStore interface {
	AlreadyHas(collection catalog.CollectionRef, slug string) (bool, error)
	Store(ctx context.Context, item catalog.ItemRef, res resolver.Result) (assetstore.AssetFile, error)
}

// Journal records run history.
type Journal interface {
	StartRun(ctx context.Context, id string, started time.Time) error
	FinishRun(ctx context.Context, id string, finished time.Time, counts journal.Counts, runErr error) error
	RecordOutcome(ctx context.Context, o journal.Outcome) error
}

// Options narrows a single run.
type Options struct {
	// Packs, when set, replaces the crawl with these pack slugs.
	Packs []string
	// Limit caps how many items are processed; zero means no cap.
	Limit int
	// DryRun extracts items without resolving or downloading them.
	DryRun bool
}

// ItemFailure describes one item that did not download.
type ItemFailure struct {
	Collection string `json:"collection"`
	Slug       string `json:"slug"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error"`
}

// Summary reports what a run did.
type Summary struct {
	RunID string `json:"run_id"`
	journal.Counts
	Planned  []catalog.ItemRef `json:"planned,omitempty"`
	Failures []ItemFailure     `json:"failures,omitempty"`
	Duration time.Duration     `json:"duration"`
}

// Runner wires the pipeline stages together.
type Runner struct {
	cfg      *config.Config
	crawler  Crawler
	resolver Resolver
	store    AssetStore
	journal  Journal
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// Option customizes a Runner.
type Option func(*Runner)

// WithJournal records the run in j.
func WithJournal(j Journal) Option {
	return func(r *Runner) { r.journal = j }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New builds a Runner.
func New(cfg *config.Config, crawler Crawler, res Resolver, store AssetStore, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		crawler:  crawler,
		resolver: res,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run tracks the state of one invocation.
type run struct {
	summary   Summary
	limit     int
	processed int
	fatal     error
}

// done reports whether the loop must stop before the next item.
func (st *run) done(ctx context.Context) bool {
	if ctx.Err() != nil || st.fatal != nil {
		return true
	}
	return st.limit > 0 && st.processed >= st.limit
}

// Run executes the pipeline against page.
func (r *Runner) Run(ctx context.Context, page browser.Page, opts Options) (Summary, error) {
	started := r.now()
	st := &run{summary: Summary{RunID: r.newID()}, limit: opts.Limit}
	ctx = logging.WithRunID(ctx, st.summary.RunID)
	logger := logging.WithContext(ctx, r.logger)

	if r.journal != nil {
		if err := r.journal.StartRun(ctx, st.summary.RunID, started); err != nil {
			logger.Warn("journal unavailable for this run", logging.Error(err), logging.String(logging.FieldEventType, "journal_start_failed"))
			r.journal = nil
		}
	}
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Bool("dry_run", opts.DryRun),
		logging.Int("limit", opts.Limit),
	)

	collections, err := r.collections(ctx, page, opts)
	if err == nil {
		st.summary.Collections = len(collections)
		for _, collection := range collections {
			if st.done(ctx) {
				break
			}
			r.processCollection(ctx, page, collection, opts, st)
		}
		err = st.fatal
		if err == nil {
			err = ctx.Err()
		}
	}

	st.summary.Duration = r.now().Sub(started)
	if r.journal != nil {
		// the run context may already be cancelled; the final row still needs writing
		if jerr := r.journal.FinishRun(context.WithoutCancel(ctx), st.summary.RunID, r.now(), st.summary.Counts, err); jerr != nil {
			logger.Warn("failed to finalize journal run", logging.Error(jerr), logging.String(logging.FieldEventType, "journal_finish_failed"))
		}
	}

	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("collections", st.summary.Collections),
		logging.Int("items", st.summary.Items),
		logging.Int("downloaded", st.summary.Downloaded),
		logging.Int("skipped", st.summary.Skipped),
		logging.Int("failed", st.summary.Failed),
		logging.Duration("duration", st.summary.Duration),
	)
	return st.summary, err
}

func (r *Runner) collections(ctx context.Context, page browser.Page, opts Options) ([]catalog.CollectionRef, error) {
	if len(opts.Packs) > 0 {
		return catalog.MergePacks(nil, opts.Packs), nil
	}
	refs, err := r.crawler.Crawl(ctx, page, r.cfg.SiteURL(r.cfg.Site.CatalogPath))
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, r.logger), "catalog crawl failed", "crawl_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check site.base_url, site.catalog_path and the session"),
		)
		if len(r.cfg.Site.Packs) == 0 {
			return nil, err
		}
	}
	return catalog.MergePacks(refs, r.cfg.Site.Packs), nil
}

func (r *Runner) processCollection(ctx context.Context, page browser.Page, collection catalog.CollectionRef, opts Options, st *run) {
	ctx = logging.WithCollection(ctx, collection.Path)
	logger := logging.WithContext(ctx, r.logger)
	defer func() {
		if rec := recover(); rec != nil {
			logging.ErrorWithContext(logger, "pack processing panicked", "collection_panic",
				logging.String("panic", fmt.Sprint(rec)),
				logging.String(logging.FieldImpact, "remaining items of this pack skipped"),
			)
		}
	}()

	items, err := r.Items(ctx, page, collection)
	if err != nil {
		logging.WarnWithContext(logger, "pack page unavailable", "collection_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "raise timeouts.navigation or check the pack path"),
			logging.String(logging.FieldImpact, "pack skipped for this run"),
		)
		return
	}
	logger.Info("pack items extracted", logging.Int("items", len(items)))

	for _, item := range items {
		if st.done(ctx) {
			return
		}
		st.processed++
		st.summary.Items++
		r.processItem(ctx, page, item, opts, st)
	}
}

// Items opens the pack page and extracts its items with the configured
// extraction mode. An empty page is logged and yields no items and no error.
func (r *Runner) Items(ctx context.Context, page browser.Page, collection catalog.CollectionRef) ([]catalog.ItemRef, error) {
	navCtx, cancel := context.WithTimeout(ctx, r.cfg.NavigationTimeout())
	err := page.Navigate(navCtx, r.cfg.SiteURL(collection.Path))
	if err == nil {
		err = page.WaitSettled(navCtx)
	}
	cancel()
	if err != nil {
		return nil, faults.Wrap(faults.ErrNavigation, "pipeline", "open pack", collection.Path, err)
	}

	doc, base, err := catalog.Snapshot(ctx, page, r.cfg.NavigationTimeout())
	if err != nil {
		return nil, faults.Wrap(faults.ErrNavigation, "pipeline", "read pack", collection.Path, err)
	}

	var items []catalog.ItemRef
	source := r.cfg.Crawl.ExtractionMode
	if r.cfg.Crawl.ExtractionMode == config.ExtractionSlugs {
		var slugs []string
		slugs, source = extract.Slugs(doc, base, logging.WithContext(ctx, r.logger))
		items = extract.ItemsFromSlugs(slugs, collection)
	} else {
		items = extract.Items(doc, base, collection)
	}

	if len(items) == 0 {
		logger := logging.WithContext(ctx, r.logger)
		logging.WarnWithContext(logger, "no items extracted from pack page", "extraction_empty",
			logging.Error(faults.Wrap(faults.ErrExtraction, "pipeline", "extract", collection.Path, nil)),
			logging.String("mode", r.cfg.Crawl.ExtractionMode),
			logging.String(logging.FieldErrorHint, "set debug.snapshot_dir to capture the page"),
			logging.String(logging.FieldImpact, "pack contributes no items"),
		)
		r.snapshotEmpty(ctx, page, collection, logger)
		return nil, nil
	}
	r.logger.Debug("extraction source", logging.String("source", source), logging.String(logging.FieldCollection, collection.Path))
	return items, nil
}

func (r *Runner) snapshotEmpty(ctx context.Context, page browser.Page, collection catalog.CollectionRef, logger *slog.Logger) {
	dir := strings.TrimSpace(r.cfg.Debug.SnapshotDir)
	if dir == "" {
		return
	}
	readCtx, cancel := context.WithTimeout(ctx, r.cfg.NavigationTimeout())
	defer cancel()
	html, err := page.HTML(readCtx)
	if err != nil {
		logger.Debug("snapshot skipped", logging.Error(err))
		return
	}
	name := fmt.Sprintf("%s-%s.html", collection.Dir(), r.now().UTC().Format("20060102T150405"))
	path := filepath.Join(dir, name)
	if err := fileutil.WriteFileAtomic(path, []byte(html), 0o644); err != nil {
		logger.Warn("snapshot write failed", logging.Error(err), logging.String(logging.FieldEventType, "snapshot_failed"))
		return
	}
	logger.Info("empty pack page captured", logging.String("path", path))
}

func (r *Runner) processItem(ctx context.Context, page browser.Page, item catalog.ItemRef, opts Options, st *run) {
	ctx = logging.WithSlug(ctx, item.Slug)
	logger := logging.WithContext(ctx, r.logger)
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("panic: %v", rec)
			logging.ErrorWithContext(logger, "item processing panicked", "item_panic", logging.Error(err))
			r.fail(ctx, item, err, st)
		}
	}()

	has, err := r.store.AlreadyHas(item.Collection, item.Slug)
	if err != nil {
		r.fail(ctx, item, faults.Wrap(faults.ErrPersistence, "pipeline", "check existing", item.Slug, err), st)
		return
	}
	if has {
		st.summary.Skipped++
		logger.Debug("asset already downloaded; skipping")
		r.record(ctx, item, faults.OutcomeSkipped, "", "")
		return
	}

	if opts.DryRun {
		st.summary.Planned = append(st.summary.Planned, item)
		logger.Info("dry run: would resolve item")
		return
	}

	res, err := r.resolver.Resolve(ctx, page, item.Slug)
	if err != nil {
		r.fail(ctx, item, err, st)
		return
	}

	file, err := r.store.Store(ctx, item, res)
	if err != nil {
		r.fail(ctx, item, err, st)
		return
	}
	st.summary.Downloaded++
	r.record(ctx, item, faults.OutcomeDownloaded, file.Identifier, file.Path)
}

func (r *Runner) fail(ctx context.Context, item catalog.ItemRef, err error, st *run) {
	outcome := faults.Outcome(err)
	if faults.Fatal(err) {
		st.fatal = err
	}
	st.summary.Failed++
	st.summary.Failures = append(st.summary.Failures, ItemFailure{
		Collection: item.Collection.Slug,
		Slug:       item.Slug,
		Outcome:    outcome,
		Error:      err.Error(),
	})

	hint := "check logs for details"
	switch outcome {
	case faults.OutcomeTimedOut:
		hint = "raise timeouts.navigation or check the session"
	case faults.OutcomeNoMatch:
		hint = "raise timeouts.resolution; the item may not be downloadable"
	case faults.OutcomeDownload:
		hint = "signed URL may have expired; rerun to retry"
	}
	logging.WarnWithContext(logging.WithContext(ctx, r.logger), "item not downloaded", "item_failed",
		logging.String("outcome", outcome),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hint),
	)
	r.record(ctx, item, outcome, "", err.Error())
}

func (r *Runner) record(ctx context.Context, item catalog.ItemRef, outcome, identifier, detail string) {
	if r.journal == nil {
		return
	}
	runID, _ := logging.RunIDFromContext(ctx)
	err := r.journal.RecordOutcome(context.WithoutCancel(ctx), journal.Outcome{
		RunID:      runID,
		Collection: item.Collection.Slug,
		Slug:       item.Slug,
		Outcome:    outcome,
		Identifier: identifier,
		Detail:     detail,
		RecordedAt: r.now(),
	})
	if err != nil {
		r.logger.Debug("journal outcome not recorded", logging.Error(err))
	}
}
