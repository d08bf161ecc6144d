// Package rediscache provides the networked cache backend. If Redis is
// unreachable when Startup runs, the backend permanently substitutes the
// in-process memory cache for the rest of the process lifetime — the
// fallback is decided once, not per call, so a dead Redis never adds
// per-request latency.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chatcore-ai/chatcore/pkg/cache"
	"github.com/chatcore-ai/chatcore/pkg/cache/memory"
	"github.com/chatcore-ai/chatcore/pkg/models"
)

// Cache is a Redis-backed response cache with graceful degradation.
type Cache struct {
	client     *redis.Client
	fallback   cache.Cache // non-nil once Startup decided to degrade
	maxEntries int
	logger     *zap.Logger
}

var _ cache.Cache = (*Cache)(nil)

// New creates a Cache for the given Redis address. maxEntries bounds the
// in-process fallback, not Redis itself.
func New(addr, password string, db, maxEntries int, logger *zap.Logger) *Cache {
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		maxEntries: maxEntries,
		logger:     logger,
	}
}

// Startup pings Redis and, on failure, swaps in the memory backend.
// It never returns an error: a missing cache is a degradation, not a
// startup failure.
func (c *Cache) Startup(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.logger.Warn("redis unreachable, falling back to in-process cache",
			zap.String("addr", c.client.Options().Addr),
			zap.Error(err))
		_ = c.client.Close()
		c.fallback = memory.New(c.maxEntries)
		return nil
	}
	c.logger.Info("redis cache connected", zap.String("addr", c.client.Options().Addr))
	return nil
}

// Shutdown closes the active backend.
func (c *Cache) Shutdown(ctx context.Context) error {
	if c.fallback != nil {
		return c.fallback.Shutdown(ctx)
	}
	return c.client.Close()
}

// Get returns the cached entry for key. Backend failures are logged at
// debug level and reported as misses.
func (c *Cache) Get(ctx context.Context, key string) (*models.CacheEntry, bool) {
	if c.fallback != nil {
		return c.fallback.Get(ctx, key)
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("redis get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Debug("redis entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &entry, true
}

// Set stores entry under key with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, entry *models.CacheEntry, ttl time.Duration) error {
	if c.fallback != nil {
		return c.fallback.Set(ctx, key, entry, ttl)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}
