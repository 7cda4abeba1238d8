// Package cache provides byte-oriented caching for rendered API payloads.
//
// Backends share one small interface so the server can pick a backend from
// configuration:
//   - [NullCache]: caching disabled
//   - [FileCache]: JSON files under a directory, for single-node deployments
//   - [RedisCache]: shared cache across server instances
//
// Keys are built by a [Keyer] so every component agrees on the layout, and
// [Instrument] reports hits and misses to observability hooks.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte payloads under string keys.
//
// Get reports a miss with (nil, false, nil). Errors are reserved for backend
// failures; callers typically log them and fall through to the source.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
