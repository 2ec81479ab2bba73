// Package crawl drives one full crawl pass over a source's paginated
// catalog: pagination with day-scoped resumption, bounded-concurrency item
// processing, circuit-breaker evaluation, the end-of-pass retry sweep, and
// the manual trigger / stop / resume controls.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cinefeed/cinefeed/internal/breaker"
	"github.com/cinefeed/cinefeed/internal/cache"
	"github.com/cinefeed/cinefeed/internal/catalog"
	"github.com/cinefeed/cinefeed/internal/dispatcher"
	"github.com/cinefeed/cinefeed/internal/ledger"
	"github.com/cinefeed/cinefeed/internal/merge"
	"github.com/cinefeed/cinefeed/internal/metrics"
	"github.com/cinefeed/cinefeed/internal/revalidate"
	"github.com/cinefeed/cinefeed/internal/source"
)

// Trigger rejection sentinels.
var (
	ErrAlreadyRunning = errors.New("crawl: source is already running")
	ErrSourceDisabled = errors.New("crawl: source is disabled")
	ErrCoolingDown    = errors.New("crawl: source is cooling down after auto-stop")
)

const checkpointTTL = 24 * time.Hour

// Orchestrator owns the crawl state for exactly one source. Different
// sources run as independent instances; a given source enforces that only
// one of its passes is active at a time.
type Orchestrator struct {
	adapter    source.Adapter
	engine     *merge.Engine
	cache      cache.Cache
	settings   catalog.SettingsStore
	batcher    *revalidate.Batcher
	enablement Enablement
	logger     *zap.Logger

	mu      sync.Mutex
	cfg     Config
	comp    components
	breaker *breaker.Breaker
	status  Status

	running   atomic.Bool
	stopped   atomic.Bool
	suspended atomic.Bool

	now func() time.Time
}

// New validates cfg and builds an orchestrator. A config violating the
// construction invariants is fatal: no instance is returned.
func New(
	cfg Config,
	adapter source.Adapter,
	engine *merge.Engine,
	c cache.Cache,
	settings catalog.SettingsStore,
	batcher *revalidate.Batcher,
	enablement Enablement,
	logger *zap.Logger,
) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		adapter:    adapter,
		engine:     engine,
		cache:      c,
		settings:   settings,
		batcher:    batcher,
		enablement: enablement,
		logger:     logger.With(zap.String("source", cfg.SourceName)),
		now:        time.Now,
	}
	o.applyConfig(cfg)
	o.status = Status{State: StateIdle}
	return o, nil
}

// components are the config-derived collaborators, swapped as a unit on hot
// reload. Item workers snapshot them through components() so a reload during
// a running pass is safe: in-flight items finish on the old set.
type components struct {
	gate   *dispatcher.Gate
	ledger *ledger.Ledger
}

func (o *Orchestrator) components() components {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.comp
}

// applyConfig swaps the config and rebuilds the components derived from it.
// The breaker is never replaced, only re-thresholded, so a mid-pass reload
// keeps the current run of consecutive skips. UpdateConfig holds o.mu; New
// calls before the instance is shared.
func (o *Orchestrator) applyConfig(cfg Config) {
	o.cfg = cfg
	o.comp = components{
		gate:   dispatcher.NewGate(cfg.MaxConcurrent, cfg.RateLimitDelay),
		ledger: ledger.New(o.cache, cfg.Host, cfg.MaxRetries, o.logger),
	}
	if o.breaker == nil {
		o.breaker = breaker.New(o.cache, cfg.SourceName, cfg.MaxContinuousSkips)
	} else {
		o.breaker.SetThreshold(cfg.MaxContinuousSkips)
	}
}

// Source returns the source name this orchestrator owns.
func (o *Orchestrator) Source() string {
	return o.adapter.Name()
}

// Config returns the active configuration.
func (o *Orchestrator) Config() Config {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg
}

// Status returns a snapshot of the current crawl status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := o.status
	st.ContinuousSkips = o.breaker.Skips()
	return st
}

// UpdateConfig validates, persists, and hot-swaps the source configuration.
// The next pass picks up the new dispatcher/ledger/breaker limits.
func (o *Orchestrator) UpdateConfig(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.SourceName != o.Source() {
		return fmt.Errorf("crawl: config is for source %q, orchestrator owns %q", cfg.SourceName, o.Source())
	}
	if o.settings != nil {
		if err := o.settings.UpsertConfig(ctx, cfg.Settings()); err != nil {
			return fmt.Errorf("persist crawler config: %w", err)
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.applyConfig(cfg)
	o.logger.Info("crawler config updated",
		zap.Bool("enabled", cfg.Enabled),
		zap.Int("max_concurrent", cfg.MaxConcurrent),
		zap.Duration("rate_limit_delay", cfg.RateLimitDelay),
	)
	return nil
}

// allowed runs the enablement gate chain in order: global kill-switch,
// exclusion list, per-source flag, then the adapter predicate.
func (o *Orchestrator) allowed() error {
	if o.enablement.KillSwitch {
		return fmt.Errorf("%w: global kill-switch is on", ErrSourceDisabled)
	}
	if o.enablement.Excluded(o.Source()) {
		return fmt.Errorf("%w: source is on the exclusion list", ErrSourceDisabled)
	}
	if !o.Config().Enabled {
		return fmt.Errorf("%w: disabled in config", ErrSourceDisabled)
	}
	if !o.adapter.ShouldEnable() {
		return fmt.Errorf("%w: adapter refused", ErrSourceDisabled)
	}
	return nil
}

// Trigger starts a crawl. With a slug it performs a single-item
// fetch-and-save bypassing the pagination loop; otherwise it runs a full
// pass. Re-triggering a running source is a logged no-op returning
// ErrAlreadyRunning.
func (o *Orchestrator) Trigger(ctx context.Context, slug string) error {
	if err := o.allowed(); err != nil {
		o.logger.Info("crawl trigger refused", zap.Error(err))
		return err
	}
	if remaining, cooling := o.breaker.CoolingDown(ctx); cooling {
		o.logger.Info("crawl trigger refused: cooling down",
			zap.Duration("remaining", remaining))
		return fmt.Errorf("%w: %s remaining", ErrCoolingDown, remaining.Round(time.Minute))
	}
	if !o.running.CompareAndSwap(false, true) {
		o.logger.Info("crawl trigger ignored: already running")
		return ErrAlreadyRunning
	}
	defer o.running.Store(false)

	if slug != "" {
		return o.runSingle(ctx, slug)
	}
	return o.runPass(ctx)
}

// Stop cooperatively halts the current pass: in-flight requests finish,
// but no further pages or items are started.
func (o *Orchestrator) Stop() {
	o.stopped.Store(true)
	o.mu.Lock()
	o.status.IsRunning = false
	o.mu.Unlock()
	o.logger.Info("crawl stop requested")
}

// Resume clears the auto-stop marker and cooldown state, then re-enters a
// full pass from the top of the pagination loop.
func (o *Orchestrator) Resume(ctx context.Context) error {
	if err := o.breaker.Clear(ctx); err != nil {
		o.logger.Warn("auto-stop marker clear failed", zap.Error(err))
	}
	o.suspended.Store(false)
	o.stopped.Store(false)
	o.logger.Info("crawl resumed, cooldown cleared")
	return o.Trigger(ctx, "")
}

// runSingle is the operator correction path: fetch and reconcile one title,
// then flush revalidation immediately.
func (o *Orchestrator) runSingle(ctx context.Context, slug string) error {
	o.logger.Info("single-item crawl", zap.String("slug", slug))
	if err := o.crawlMovie(ctx, slug); err != nil {
		return fmt.Errorf("single-item crawl %q: %w", slug, err)
	}
	o.batcher.Flush(ctx)
	return nil
}

func (o *Orchestrator) runPass(ctx context.Context) error {
	start := o.now()
	o.stopped.Store(false)
	o.suspended.Store(false)
	o.breaker.Reset()
	o.setStatus(func(st *Status) {
		*st = Status{State: StateRunning, IsRunning: true, StartedAt: start}
	})
	o.logger.Info("crawl pass started")
	metrics.CrawlPassesStarted(o.Source())

	firstPage, err := o.fetchPage(ctx, 1)
	if err != nil {
		// The discovery page lands in the ledger like any other listing
		// failure, and the sweep still runs before the pass closes out.
		o.components().ledger.RecordPageFailure(ctx, 1, err)
		o.retryPass(ctx)
		o.batcher.Flush(ctx)
		o.finish(StateFailed, err)
		return fmt.Errorf("discover total pages: %w", err)
	}
	totalPages := firstPage.TotalPages
	o.setStatus(func(st *Status) { st.TotalPages = totalPages })

	startPage := o.resumePage() + 1
	if startPage < 1 {
		startPage = 1
	}

	for page := startPage; page <= totalPages; page++ {
		if o.stopped.Load() || o.suspended.Load() || ctx.Err() != nil {
			break
		}
		o.setStatus(func(st *Status) { st.CurrentPage = page })

		listing := firstPage
		if page != 1 {
			listing, err = o.fetchPage(ctx, page)
			if err != nil {
				o.logger.Warn("listing page fetch failed",
					zap.Int("page", page), zap.Error(err))
				o.components().ledger.RecordPageFailure(ctx, page, err)
				continue
			}
		}

		o.processPage(ctx, listing.Items)
		o.checkpoint(ctx, page)

		if o.suspended.Load() {
			break
		}
	}

	// End of pass, normal or suspended: replay the failure ledger, then
	// flush whatever revalidation remains.
	o.retryPass(ctx)
	o.batcher.Flush(ctx)

	if o.suspended.Load() {
		o.finish(StateSuspended, nil)
	} else {
		o.finish(StateCompleted, nil)
	}
	return nil
}

// processPage reconciles the page's items with bounded fan-out. Items may
// complete out of order; the per-item freshness gate keeps that safe.
func (o *Orchestrator) processPage(ctx context.Context, items []catalog.ListItem) {
	limit := o.Config().MaxConcurrent
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, item := range items {
		item := item
		if o.stopped.Load() || o.suspended.Load() {
			break
		}
		g.Go(func() error {
			if o.stopped.Load() || o.suspended.Load() {
				return nil
			}
			if err := o.crawlMovie(gctx, item.Slug); err != nil {
				o.logger.Warn("item crawl failed",
					zap.String("slug", item.Slug), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// crawlMovie fetches one detail record and reconciles it. Failures are
// recorded in the ledger and counted; they never propagate out of the page
// loop.
func (o *Orchestrator) crawlMovie(ctx context.Context, slug string) error {
	cfg := o.Config()
	c := o.components()

	var raw *catalog.RawMovie
	err := c.gate.Do(ctx, func(ctx context.Context) error {
		var ferr error
		raw, ferr = o.adapter.MovieDetail(ctx, slug)
		return ferr
	})
	if err != nil {
		c.ledger.RecordMovieFailure(ctx, slug, err)
		o.setStatus(func(st *Status) {
			st.FailedItems++
			st.LastError = err.Error()
		})
		metrics.ItemsFailed(o.Source())
		return err
	}

	result, err := o.engine.Reconcile(ctx, raw, cfg.ForceUpdate)
	switch {
	case errors.Is(err, merge.ErrNoSlug):
		// Data-shape problem: counted as a skip, feeds the breaker.
		o.observeSkip(ctx, slug)
		return nil
	case err != nil:
		c.ledger.RecordMovieFailure(ctx, slug, err)
		o.setStatus(func(st *Status) {
			st.FailedItems++
			st.LastError = err.Error()
		})
		metrics.ItemsFailed(o.Source())
		return err
	}

	metrics.MergeOutcome(o.Source(), result.Outcome.String())
	if result.Outcome.Changed() {
		o.breaker.ObserveUpdate()
		o.setStatus(func(st *Status) { st.ProcessedItems++ })
		o.batcher.Add(ctx, result.Slug)
		return nil
	}
	o.observeSkip(ctx, slug)
	return nil
}

// observeSkip counts one no-update item and suspends the pass mid-loop
// when the continuous-skip threshold is reached.
func (o *Orchestrator) observeSkip(ctx context.Context, slug string) {
	o.setStatus(func(st *Status) { st.SkippedItems++ })
	metrics.ItemsSkipped(o.Source())
	if !o.breaker.ObserveSkip() {
		return
	}
	o.suspended.Store(true)
	metrics.CircuitTrips(o.Source())
	if err := o.breaker.Trip(ctx); err != nil {
		o.logger.Warn("auto-stop marker write failed", zap.Error(err))
	}
	o.logger.Warn("continuous-skip threshold reached, suspending source",
		zap.String("last_slug", slug),
		zap.Int("threshold", o.Config().MaxContinuousSkips),
	)
}

// retryPass replays the failure ledger for both movies and pages.
func (o *Orchestrator) retryPass(ctx context.Context) {
	o.components().ledger.Retry(ctx, ledger.RetryFuncs{
		Movie: func(ctx context.Context, slug string) error {
			metrics.LedgerRetries(o.Source())
			return o.crawlMovie(ctx, slug)
		},
		Page: func(ctx context.Context, page int) error {
			metrics.LedgerRetries(o.Source())
			listing, err := o.fetchPage(ctx, page)
			if err != nil {
				return err
			}
			o.processPage(ctx, listing.Items)
			return nil
		},
	})
}

func (o *Orchestrator) fetchPage(ctx context.Context, page int) (source.Page, error) {
	var listing source.Page
	err := o.components().gate.Do(ctx, func(ctx context.Context) error {
		var ferr error
		listing, ferr = o.adapter.ListPage(ctx, page)
		return ferr
	})
	if err != nil {
		return source.Page{}, err
	}
	metrics.PagesFetched(o.Source())
	return listing, nil
}

// checkpointKey scopes resumption to the current calendar day so each day
// starts a fresh sweep while a crash inside one day resumes where it left.
func (o *Orchestrator) checkpointKey() string {
	return "crawl:" + o.Source() + ":page:" + o.now().UTC().Format("2006-01-02")
}

func (o *Orchestrator) resumePage() int {
	val, err := o.cache.Get(context.Background(), o.checkpointKey())
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			o.logger.Warn("resume checkpoint read failed", zap.Error(err))
		}
		return 0
	}
	page, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	o.logger.Info("resuming from checkpoint", zap.Int("completed_page", page))
	return page
}

func (o *Orchestrator) checkpoint(ctx context.Context, page int) {
	if err := o.cache.Set(ctx, o.checkpointKey(), strconv.Itoa(page), checkpointTTL); err != nil {
		// Soft failure: the crawl proceeds, it just loses resumability.
		o.logger.Warn("resume checkpoint write failed",
			zap.Int("page", page), zap.Error(err))
	}
}

func (o *Orchestrator) setStatus(mutate func(*Status)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	mutate(&o.status)
}

func (o *Orchestrator) finish(state State, cause error) {
	end := o.now()
	o.setStatus(func(st *Status) {
		st.State = state
		st.IsRunning = false
		st.FinishedAt = end
		if cause != nil {
			st.LastError = cause.Error()
		}
	})
	st := o.Status()
	metrics.CrawlPassesFinished(o.Source(), string(state))
	o.logger.Info("crawl pass finished",
		zap.String("state", string(state)),
		zap.Int("total_pages", st.TotalPages),
		zap.Int("processed", st.ProcessedItems),
		zap.Int("skipped", st.SkippedItems),
		zap.Int("failed", st.FailedItems),
		zap.Duration("duration", end.Sub(st.StartedAt)),
	)
}
