// Package revalidate notifies the external cache-invalidation endpoint
// about changed titles, in batches.
package revalidate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultBatchSize is how many slugs accumulate before an automatic flush.
const DefaultBatchSize = 40

// Batcher accumulates updated slugs and POSTs them to the revalidation
// webhook. A failed flush is logged and keeps the batch for the next
// attempt; it never fails the crawl.
type Batcher struct {
	endpoint  string
	apiKey    string
	batchSize int
	client    *http.Client
	logger    *zap.Logger

	mu    sync.Mutex
	slugs []string
}

// New builds a Batcher. With an empty endpoint the batcher is inert:
// enqueues are dropped and flushes are no-ops.
func New(endpoint, apiKey string, logger *zap.Logger) *Batcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batcher{
		endpoint:  endpoint,
		apiKey:    apiKey,
		batchSize: DefaultBatchSize,
		client:    &http.Client{Timeout: 15 * time.Second},
		logger:    logger,
	}
}

// Add queues one slug, flushing when the batch size threshold is reached.
func (b *Batcher) Add(ctx context.Context, slug string) {
	if b.endpoint == "" || slug == "" {
		return
	}
	b.mu.Lock()
	b.slugs = append(b.slugs, slug)
	full := len(b.slugs) >= b.batchSize
	b.mu.Unlock()
	if full {
		b.Flush(ctx)
	}
}

// Pending reports how many slugs are waiting for the next flush.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slugs)
}

// Flush posts the accumulated batch. The batch is drained before the
// post so concurrent flushes never overlap; on failure it is put back in
// front of anything queued in the meantime, so slugs survive transient
// webhook failures.
func (b *Batcher) Flush(ctx context.Context) {
	if b.endpoint == "" {
		return
	}
	b.mu.Lock()
	batch := b.slugs
	b.slugs = nil
	b.mu.Unlock()
	if len(batch) == 0 {
		return
	}

	if err := b.post(ctx, batch); err != nil {
		b.logger.Warn("revalidation flush failed",
			zap.Int("slugs", len(batch)),
			zap.Error(err),
		)
		b.mu.Lock()
		b.slugs = append(batch, b.slugs...)
		b.mu.Unlock()
		return
	}

	b.logger.Info("revalidation batch flushed", zap.Int("slugs", len(batch)))
}

func (b *Batcher) post(ctx context.Context, slugs []string) error {
	payload, err := json.Marshal(map[string][]string{"slugs": slugs})
	if err != nil {
		return fmt.Errorf("encode revalidation payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build revalidation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("post revalidation batch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revalidation endpoint returned %d", resp.StatusCode)
	}
	return nil
}
