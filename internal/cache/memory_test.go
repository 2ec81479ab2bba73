package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryGetSetDel(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "k", "v", 0))
	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", v)

	require.NoError(t, m.Del(ctx, "k"))
	_, err = m.Get(ctx, "k")
	require.ErrorIs(t, err, ErrMiss)
}

func TestMemoryTTLExpiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	_, err := m.Get(ctx, "k")
	require.ErrorIs(t, err, ErrMiss)
}

func TestMemoryDelPrefix(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "crawl:ophim:page:2026-08-31", "5", 0))
	require.NoError(t, m.Set(ctx, "crawl:ophim:page:2026-08-30", "9", 0))
	require.NoError(t, m.Set(ctx, "crawl:kkphim:page:2026-08-31", "3", 0))

	require.NoError(t, m.DelPrefix(ctx, "crawl:ophim:"))

	_, err := m.Get(ctx, "crawl:ophim:page:2026-08-31")
	require.ErrorIs(t, err, ErrMiss)
	v, err := m.Get(ctx, "crawl:kkphim:page:2026-08-31")
	require.NoError(t, err)
	require.Equal(t, "3", v)
}

func TestMemoryHashOps(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.HSet(ctx, "h", "a", "1", 0))
	require.NoError(t, m.HSet(ctx, "h", "b", "2", 0))

	fields, err := m.HGetAll(ctx, "h")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"a": "1", "b": "2"}, fields)

	n, err := m.HLen(ctx, "h")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	require.NoError(t, m.HDel(ctx, "h", "a"))
	n, err = m.HLen(ctx, "h")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	// Removing the last field drops the key entirely.
	require.NoError(t, m.HDel(ctx, "h", "b"))
	n, err = m.HLen(ctx, "h")
	require.NoError(t, err)
	require.Zero(t, n)

	fields, err = m.HGetAll(ctx, "h")
	require.NoError(t, err)
	require.Empty(t, fields)
}

func TestMemoryHashDoesNotAnswerGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.HSet(ctx, "h", "a", "1", 0))
	_, err := m.Get(ctx, "h")
	require.ErrorIs(t, err, ErrMiss)
}
