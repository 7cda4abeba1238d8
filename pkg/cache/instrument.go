package cache

import (
	"context"
	"time"

	"github.com/folioworks/folio/pkg/observability"
)

type instrumented struct {
	Cache
	hooks observability.CacheHooks
}

// Instrument wraps c so that lookups and writes are reported to hooks.
// A nil hooks value returns c unchanged.
func Instrument(c Cache, hooks observability.CacheHooks) Cache {
	if hooks == nil {
		return c
	}
	return &instrumented{Cache: c, hooks: hooks}
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err == nil {
		if ok {
			c.hooks.OnCacheHit(ctx, KeyType(key))
		} else {
			c.hooks.OnCacheMiss(ctx, KeyType(key))
		}
	}
	return data, ok, err
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.Cache.Set(ctx, key, data, ttl)
	if err == nil {
		c.hooks.OnCacheSet(ctx, KeyType(key), len(data))
	}
	return err
}
