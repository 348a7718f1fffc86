package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SeenCache is a best-effort fast path in front of the link store's dedup
// check. Keys are only set after a record has landed in a partition, so a
// cache hit always implies store membership; misses and cache errors fall
// back to the store.
type SeenCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewSeenCache connects to Redis at addr with the given mark TTL.
func NewSeenCache(addr string, ttl time.Duration, logger *zap.Logger) *SeenCache {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &SeenCache{client: rdb, ttl: ttl, logger: logger}
}

func (c *SeenCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func key(url string) string {
	return fmt.Sprintf("seen:%s", url)
}

// Seen reports whether the URL was recently recorded. Errors degrade to a
// miss so the durable store stays authoritative.
func (c *SeenCache) Seen(ctx context.Context, url string) bool {
	val, err := c.client.Exists(ctx, key(url)).Result()
	if err != nil {
		c.logger.Warn("seen-cache lookup failed", zap.String("url", url), zap.Error(err))
		return false
	}
	return val == 1
}

// Mark records the URL with the cache TTL.
func (c *SeenCache) Mark(ctx context.Context, url string) {
	if err := c.client.Set(ctx, key(url), "1", c.ttl).Err(); err != nil {
		c.logger.Warn("seen-cache mark failed", zap.String("url", url), zap.Error(err))
	}
}
