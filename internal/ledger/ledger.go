// Package ledger keeps the durable per-host record of failed fetches and
// saves, and drives their backoff-scheduled retries.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cinefeed/cinefeed/internal/cache"
)

const (
	ledgerTTL = 24 * time.Hour

	baseDelay = time.Second
	maxDelay  = 60 * time.Second
	maxJitter = time.Second

	movieField = "movie:"
	pageField  = "page:"
)

// Record tracks one failed item: the latest error text, how many retries
// were attempted, and when.
type Record struct {
	Error       string    `json:"error"`
	RetryCount  int       `json:"retry_count"`
	LastAttempt time.Time `json:"last_attempt"`
}

// Backoff computes the pre-retry delay for a record that already failed
// retryCount times: min(maxDelay, baseDelay*2^retryCount) plus up to one
// second of random jitter.
func Backoff(retryCount int) time.Duration {
	delay := baseDelay << uint(retryCount)
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	return delay + time.Duration(rand.Int63n(int64(maxJitter)))
}

// Ledger records fetch/save failures for one source host in the cache and
// replays them through a retry pass. Cache errors are soft: logged, never
// propagated.
type Ledger struct {
	cache      cache.Cache
	host       string
	maxRetries int
	logger     *zap.Logger

	// sleep is swapped out by tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration)
}

// New builds a ledger for host. maxRetries bounds how often one item is
// retried before it is left to age out with the ledger TTL.
func New(c cache.Cache, host string, maxRetries int, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		cache:      c,
		host:       host,
		maxRetries: maxRetries,
		logger:     logger,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (l *Ledger) key() string {
	return "crawl:failures:" + l.host
}

// RecordMovieFailure writes or refreshes the failure record for a movie
// slug, preserving the retry counter and overwriting the error text.
func (l *Ledger) RecordMovieFailure(ctx context.Context, slug string, cause error) {
	l.record(ctx, movieField+slug, cause)
}

// RecordPageFailure writes or refreshes the failure record for a listing
// page number.
func (l *Ledger) RecordPageFailure(ctx context.Context, page int, cause error) {
	l.record(ctx, pageField+strconv.Itoa(page), cause)
}

func (l *Ledger) record(ctx context.Context, field string, cause error) {
	rec := Record{LastAttempt: time.Now().UTC()}
	if cause != nil {
		rec.Error = cause.Error()
	}
	if existing, ok := l.load(ctx, field); ok {
		rec.RetryCount = existing.RetryCount
	}
	l.store(ctx, field, rec)
}

func (l *Ledger) load(ctx context.Context, field string) (Record, bool) {
	fields, err := l.cache.HGetAll(ctx, l.key())
	if err != nil {
		l.logger.Warn("failure ledger read failed", zap.String("host", l.host), zap.Error(err))
		return Record{}, false
	}
	raw, ok := fields[field]
	if !ok {
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		l.logger.Warn("failure ledger record corrupt", zap.String("field", field), zap.Error(err))
		return Record{}, false
	}
	return rec, true
}

func (l *Ledger) store(ctx context.Context, field string, rec Record) {
	payload, err := json.Marshal(rec)
	if err != nil {
		l.logger.Warn("failure ledger encode failed", zap.String("field", field), zap.Error(err))
		return
	}
	if err := l.cache.HSet(ctx, l.key(), field, string(payload), ledgerTTL); err != nil {
		l.logger.Warn("failure ledger write failed", zap.String("host", l.host), zap.Error(err))
	}
}

func (l *Ledger) remove(ctx context.Context, field string) {
	if err := l.cache.HDel(ctx, l.key(), field); err != nil {
		l.logger.Warn("failure ledger delete failed", zap.String("field", field), zap.Error(err))
		return
	}
	n, err := l.cache.HLen(ctx, l.key())
	if err == nil && n == 0 {
		// Drop the empty ledger key instead of leaving an empty hash.
		if err := l.cache.Del(ctx, l.key()); err != nil {
			l.logger.Warn("failure ledger cleanup failed", zap.String("host", l.host), zap.Error(err))
		}
	}
}

// RetryFuncs carries the replay callbacks for one retry pass.
type RetryFuncs struct {
	Movie func(ctx context.Context, slug string) error
	Page  func(ctx context.Context, page int) error
}

// Retry iterates the ledger once: exhausted records are skipped, everything
// else is retried after its backoff delay. Success removes the record; a
// failed retry increments its counter.
func (l *Ledger) Retry(ctx context.Context, funcs RetryFuncs) {
	fields, err := l.cache.HGetAll(ctx, l.key())
	if err != nil {
		l.logger.Warn("failure ledger read failed", zap.String("host", l.host), zap.Error(err))
		return
	}
	for field, raw := range fields {
		if ctx.Err() != nil {
			return
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			l.logger.Warn("failure ledger record corrupt", zap.String("field", field), zap.Error(err))
			l.remove(ctx, field)
			continue
		}
		if rec.RetryCount >= l.maxRetries {
			l.logger.Info("failure ledger record exhausted",
				zap.String("host", l.host),
				zap.String("item", field),
				zap.Int("retries", rec.RetryCount),
			)
			continue
		}

		l.sleep(ctx, Backoff(rec.RetryCount))
		if ctx.Err() != nil {
			return
		}

		if err := l.replay(ctx, field, funcs); err != nil {
			rec.RetryCount++
			rec.Error = err.Error()
			rec.LastAttempt = time.Now().UTC()
			l.store(ctx, field, rec)
			l.logger.Warn("failure ledger retry failed",
				zap.String("host", l.host),
				zap.String("item", field),
				zap.Int("retries", rec.RetryCount),
				zap.Error(err),
			)
			continue
		}
		l.remove(ctx, field)
	}
}

func (l *Ledger) replay(ctx context.Context, field string, funcs RetryFuncs) error {
	switch {
	case strings.HasPrefix(field, movieField):
		if funcs.Movie == nil {
			return nil
		}
		return funcs.Movie(ctx, strings.TrimPrefix(field, movieField))
	case strings.HasPrefix(field, pageField):
		if funcs.Page == nil {
			return nil
		}
		page, err := strconv.Atoi(strings.TrimPrefix(field, pageField))
		if err != nil {
			return fmt.Errorf("bad page field %q: %w", field, err)
		}
		return funcs.Page(ctx, page)
	default:
		return fmt.Errorf("unknown ledger field %q", field)
	}
}
