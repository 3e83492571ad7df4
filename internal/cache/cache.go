// Package cache is a small read-through cache over Redis for hot name
// lookups during fan-out. When no Redis URL is configured every lookup
// falls straight through to the loader.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"crewdeck.app/herald/core/config"
)

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to Redis when configured; otherwise returns a pass-through
// cache. Redis being unreachable at startup is fatal only when a URL was
// explicitly configured.
func New(cfg config.CacheConfig) (*Cache, error) {
	if !cfg.Enabled() {
		return &Cache{}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Cache{rdb: redis.NewClient(opts), ttl: cfg.TTL}, nil
}

// Lookup returns the cached value for key, calling load on a miss and
// caching its result. Redis errors degrade to a direct load.
func (c *Cache) Lookup(ctx context.Context, key string, load func(ctx context.Context) (string, error)) (string, error) {
	if c.rdb == nil {
		return load(ctx)
	}

	value, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		return value, nil
	}
	if err != redis.Nil {
		slog.DebugContext(ctx, "cache read failed", "key", key, "error", err)
	}

	value, err = load(ctx)
	if err != nil {
		return "", err
	}
	if err := c.rdb.Set(ctx, key, value, c.ttl).Err(); err != nil {
		slog.DebugContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return value, nil
}

func (c *Cache) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
