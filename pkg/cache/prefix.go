package cache

import (
	"context"
	"time"
)

// Prefixed wraps a Cache so every key is namespaced with prefix.
// Registry clients share one backing cache without key collisions:
//
//	npmCache := cache.Prefixed(c, "npm:")
//	mirrorCache := cache.Prefixed(c, "mirror:")
//
// Closing a prefixed view does not close the inner cache.
func Prefixed(inner Cache, prefix string) Cache {
	if inner == nil {
		inner = NewNullCache()
	}
	if p, ok := inner.(*prefixed); ok {
		return &prefixed{inner: p.inner, prefix: p.prefix + prefix}
	}
	return &prefixed{inner: inner, prefix: prefix}
}

type prefixed struct {
	inner  Cache
	prefix string
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return p.inner.Set(ctx, p.prefix+key, data, ttl)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.prefix+key)
}

func (p *prefixed) Close() error { return nil }
