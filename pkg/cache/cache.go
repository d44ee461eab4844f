// Package cache provides the byte-level cache used for registry metadata.
//
// Registry packuments are large and change slowly, so the npm client keeps
// them behind a [Cache] with a TTL. Four backends are available:
//
//   - [FileCache]: one JSON file per key under ~/.cache/stackgate (CLI default)
//   - [RedisCache]: shared cache for server deployments and CI fleets
//   - [MemoryCache]: process-local, used by tests and the HTTP server
//   - [NullCache]: caching disabled (--no-cache)
//
// Presence checks against the private mirror are never cached: a mirror
// answer is only valid for the request that asked for it.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values by key.
//
// Get reports (nil, false, nil) on a miss; expired entries are misses.
// A ttl of zero passed to Set means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
