package dispatcher

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGateBoundsConcurrency(t *testing.T) {
	g := NewGate(2, 0)

	var inFlight, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.Do(context.Background(), func(context.Context) error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	require.Zero(t, g.InFlight())
}

func TestGateAppliesDelay(t *testing.T) {
	g := NewGate(1, 30*time.Millisecond)

	start := time.Now()
	release, err := g.Acquire(context.Background())
	require.NoError(t, err)
	release()
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestAcquireHonorsContextWhileQueued(t *testing.T) {
	g := NewGate(1, 0)
	release, err := g.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, g.InFlight(), "the canceled waiter must not leak a slot")
}

func TestAcquireHonorsContextDuringDelay(t *testing.T) {
	g := NewGate(1, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := g.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Zero(t, g.InFlight(), "the slot taken before the delay must be returned")
}

func TestNewGateClampsConcurrency(t *testing.T) {
	g := NewGate(0, 0)
	release, err := g.Acquire(context.Background())
	require.NoError(t, err)
	defer release()
	require.Equal(t, 1, g.InFlight())
}
