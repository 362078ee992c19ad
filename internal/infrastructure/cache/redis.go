package cache

import (
	"context"
	"time"

	"archie-core-shopee-layer/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisCache is a ResponseCache backed by Redis. Best-effort: every
// backend failure is logged and reported as a miss.
type RedisCache struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisCache creates a Redis-backed response cache.
func NewRedisCache(client *redis.Client, logger zerolog.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

// Get returns the cached value if present and unexpired.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Redis cache get failed, treating as miss")
		return nil, false
	}
	return value, true
}

// Set stores value under key for ttl.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Redis cache set failed")
	}
}

// Invalidate removes the key and every key it prefixes.
func (c *RedisCache) Invalidate(ctx context.Context, prefix string) {
	iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn().Err(err).Str("prefix", prefix).Msg("Redis cache scan failed during invalidation")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Str("prefix", prefix).Msg("Redis cache delete failed during invalidation")
	}
}

var _ ports.ResponseCache = (*RedisCache)(nil)
