// Package dispatcher bounds concurrent outbound fetches per source and
// applies a politeness delay before every request.
package dispatcher

import (
	"context"
	"fmt"
	"time"
)

// Gate is a cooperative admission-control gate: at most maxConcurrent
// callers hold a slot at once, and every admission waits the politeness
// delay first. It guarantees only the concurrency ceiling, not ordering.
type Gate struct {
	slots chan struct{}
	delay time.Duration
}

// NewGate builds a gate admitting maxConcurrent concurrent callers with the
// given inter-request delay. Non-positive maxConcurrent falls back to 1.
func NewGate(maxConcurrent int, delay time.Duration) *Gate {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Gate{
		slots: make(chan struct{}, maxConcurrent),
		delay: delay,
	}
}

// Acquire blocks until a slot is free, then waits the politeness delay. The
// returned release func must be called when the request finishes; callers
// defer it so the slot is returned even on error.
func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("dispatcher acquire: %w", ctx.Err())
	}

	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			<-g.slots
			return nil, fmt.Errorf("dispatcher delay: %w", ctx.Err())
		}
	}

	return func() { <-g.slots }, nil
}

// Do runs fn under the gate, releasing the slot when fn returns.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	release, err := g.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// InFlight reports how many slots are currently held.
func (g *Gate) InFlight() int {
	return len(g.slots)
}
