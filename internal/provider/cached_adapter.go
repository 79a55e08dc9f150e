package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ SourceAdapter = (*CachedAdapter)(nil)

// CachedAdapter wraps a SourceAdapter with a short-lived Redis copy of its last non-empty
// batch, so repeated refresh cycles within ttl reuse one upstream response.
type CachedAdapter struct {
	adapter SourceAdapter
	cache   *redis.Client
	ttl     time.Duration
	log     *zap.SugaredLogger
}

// NewCachedAdapter creates a new CachedAdapter.
func NewCachedAdapter(adapter SourceAdapter, cache *redis.Client, ttl time.Duration, logger *zap.SugaredLogger) *CachedAdapter {
	return &CachedAdapter{
		adapter: adapter,
		cache:   cache,
		ttl:     ttl,
		log:     logger,
	}
}

// Name implements SourceAdapter.
func (c *CachedAdapter) Name() string { return c.adapter.Name() }

// Kind implements SourceAdapter.
func (c *CachedAdapter) Kind() Kind { return c.adapter.Kind() }

func (c *CachedAdapter) cacheKey() string {
	return "provider_cache:{" + c.adapter.Name() + "}"
}

// FetchQuotes serves the cached batch when present, otherwise calls the wrapped adapter.
// Empty batches are never cached.
func (c *CachedAdapter) FetchQuotes(ctx context.Context) Batch {
	if c.cache == nil || c.ttl <= 0 {
		return c.adapter.FetchQuotes(ctx)
	}

	key := c.cacheKey()
	if raw, err := c.cache.Get(ctx, key).Bytes(); err == nil {
		var b Batch
		if err := json.Unmarshal(raw, &b); err == nil && !b.Empty() {
			return b
		}
	}

	b := c.adapter.FetchQuotes(ctx)
	if b.Empty() {
		return b
	}

	data, err := json.Marshal(b)
	if err != nil {
		return b
	}
	if err := c.cache.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warnw("Failed to cache provider response", "key", key, "error", err)
	}
	return b
}
