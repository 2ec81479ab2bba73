// Package cache abstracts the key-value store used for ephemeral crawl
// state: pagination checkpoints, failure ledgers, and auto-stop markers.
// Cache failures are soft; callers log and continue without resumability.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = errors.New("cache: miss")

// Cache is the narrow surface the crawler needs from the key-value store.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	DelPrefix(ctx context.Context, prefix string) error

	// HGetAll returns every field of a hash; an empty map when absent.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// HSet writes one field of a hash and refreshes the hash expiry.
	HSet(ctx context.Context, key, field, value string, ttl time.Duration) error
	HDel(ctx context.Context, key, field string) error
	HLen(ctx context.Context, key string) (int64, error)
}
