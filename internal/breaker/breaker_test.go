package breaker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cinefeed/cinefeed/internal/cache"
)

func TestObserveSkipTripsExactlyOnce(t *testing.T) {
	b := New(cache.NewMemory(), "ophim", 3)

	require.False(t, b.ObserveSkip())
	require.False(t, b.ObserveSkip())
	require.True(t, b.ObserveSkip(), "the observation reaching the threshold trips")
	require.False(t, b.ObserveSkip(), "further skips do not re-trip")
	require.Equal(t, 4, b.Skips())
}

func TestObserveUpdateResetsRun(t *testing.T) {
	b := New(cache.NewMemory(), "ophim", 3)

	require.False(t, b.ObserveSkip())
	require.False(t, b.ObserveSkip())
	b.ObserveUpdate()
	require.False(t, b.ObserveSkip())
	require.False(t, b.ObserveSkip())
	require.True(t, b.ObserveSkip())
}

func TestSetThresholdKeepsCurrentRun(t *testing.T) {
	b := New(cache.NewMemory(), "ophim", 5)

	require.False(t, b.ObserveSkip())
	require.False(t, b.ObserveSkip())
	b.SetThreshold(4)
	require.Equal(t, 2, b.Skips(), "re-thresholding must not restart the run")
	require.False(t, b.ObserveSkip())
	require.True(t, b.ObserveSkip())
}

func TestSetThresholdBelowRunTripsOnNextSkip(t *testing.T) {
	b := New(cache.NewMemory(), "ophim", 10)

	for i := 0; i < 5; i++ {
		require.False(t, b.ObserveSkip())
	}
	b.SetThreshold(3)
	require.True(t, b.ObserveSkip(), "run already past the lowered threshold trips once")
	require.False(t, b.ObserveSkip())
}

func TestZeroThresholdNeverTrips(t *testing.T) {
	b := New(cache.NewMemory(), "ophim", 0)
	for i := 0; i < 100; i++ {
		require.False(t, b.ObserveSkip())
	}
}

func TestTripAndCoolingDown(t *testing.T) {
	c := cache.NewMemory()
	b := New(c, "ophim", 3)
	ctx := context.Background()

	_, cooling := b.CoolingDown(ctx)
	require.False(t, cooling)

	require.NoError(t, b.Trip(ctx))
	remaining, cooling := b.CoolingDown(ctx)
	require.True(t, cooling)
	require.Greater(t, remaining, 19*time.Hour)
	require.LessOrEqual(t, remaining, Cooldown)
}

func TestCoolingDownExpiresWithWindow(t *testing.T) {
	c := cache.NewMemory()
	b := New(c, "ophim", 3)
	ctx := context.Background()

	stale, err := json.Marshal(Marker{
		SourceName: "ophim",
		StoppedAt:  time.Now().UTC().Add(-Cooldown - time.Minute),
	})
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "crawl:autostop:ophim", string(stale), time.Hour))

	_, cooling := b.CoolingDown(ctx)
	require.False(t, cooling, "a marker older than the cooldown window is inert")
}

func TestClearRemovesMarkerAndCounter(t *testing.T) {
	c := cache.NewMemory()
	b := New(c, "ophim", 2)
	ctx := context.Background()

	b.ObserveSkip()
	require.NoError(t, b.Trip(ctx))
	require.NoError(t, b.Clear(ctx))

	require.Zero(t, b.Skips())
	_, cooling := b.CoolingDown(ctx)
	require.False(t, cooling)
}

func TestCorruptMarkerReadsAsNotCooling(t *testing.T) {
	c := cache.NewMemory()
	b := New(c, "ophim", 3)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "crawl:autostop:ophim", "{not json", time.Hour))
	_, cooling := b.CoolingDown(ctx)
	require.False(t, cooling)
}
