// Package breaker implements the continuous-skip circuit breaker that
// auto-suspends a source once it stops yielding new data.
package breaker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cinefeed/cinefeed/internal/cache"
)

const (
	// Cooldown is how long a tripped source stays suspended before
	// scheduled triggers are honored again.
	Cooldown = 20 * time.Hour

	markerTTL = 24 * time.Hour
)

// Marker is persisted in the cache when a source trips; its presence inside
// the cooldown window suppresses new crawl triggers.
type Marker struct {
	SourceName string    `json:"source_name"`
	StoppedAt  time.Time `json:"stopped_at"`
}

// Breaker counts consecutive no-update items for one source. Safe for
// concurrent observation by in-flight item workers.
type Breaker struct {
	cache  cache.Cache
	source string

	mu        sync.Mutex
	threshold int
	skips     int
	tripped   bool
}

// New builds a breaker for source tripping at threshold continuous skips.
func New(c cache.Cache, source string, threshold int) *Breaker {
	return &Breaker{cache: c, source: source, threshold: threshold}
}

func (b *Breaker) key() string {
	return "crawl:autostop:" + b.source
}

// Reset zeroes the skip counter at the start of a crawl pass.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.skips = 0
	b.tripped = false
}

// SetThreshold adjusts the trip threshold in place; the current run of
// consecutive skips is kept, so a config reload mid-pass does not restart
// the count.
func (b *Breaker) SetThreshold(threshold int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.threshold = threshold
}

// ObserveSkip counts one no-update item and reports whether this
// observation tripped the breaker. It trips exactly once per run of
// consecutive skips: the call that reaches the threshold returns true,
// later calls do not re-trip.
func (b *Breaker) ObserveSkip() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.threshold <= 0 {
		return false
	}
	b.skips++
	if b.tripped || b.skips < b.threshold {
		return false
	}
	b.tripped = true
	return true
}

// ObserveUpdate resets the run of consecutive skips.
func (b *Breaker) ObserveUpdate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.skips = 0
	b.tripped = false
}

// Skips returns the current consecutive-skip count.
func (b *Breaker) Skips() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.skips
}

// Trip persists the auto-stop marker for this source.
func (b *Breaker) Trip(ctx context.Context) error {
	payload, err := json.Marshal(Marker{SourceName: b.source, StoppedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode auto-stop marker: %w", err)
	}
	if err := b.cache.Set(ctx, b.key(), string(payload), markerTTL); err != nil {
		return fmt.Errorf("write auto-stop marker: %w", err)
	}
	return nil
}

// CoolingDown reports whether a live marker younger than the cooldown
// window exists, and how much cooldown remains. Cache errors read as "not
// cooling down" so a degraded cache never wedges the crawler shut.
func (b *Breaker) CoolingDown(ctx context.Context) (time.Duration, bool) {
	raw, err := b.cache.Get(ctx, b.key())
	if err != nil {
		return 0, false
	}
	var m Marker
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return 0, false
	}
	age := time.Since(m.StoppedAt)
	if age >= Cooldown {
		return 0, false
	}
	return Cooldown - age, true
}

// Clear removes the auto-stop marker and resets the counter; used by the
// manual resume path.
func (b *Breaker) Clear(ctx context.Context) error {
	b.Reset()
	if err := b.cache.Del(ctx, b.key()); err != nil {
		return fmt.Errorf("clear auto-stop marker: %w", err)
	}
	return nil
}
