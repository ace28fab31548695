// cache/redis_cache.go
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logger "github.com/trackmeet/api/logging"
)

// RedisCache backs the cache layer with Redis. The client is injected so the
// layer carries no connection lifecycle of its own.
type RedisCache struct {
	client *redis.Client
}

var _ Cache = (*RedisCache)(nil)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string, dest any) bool {
	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false
	} else if err != nil {
		// Fail-open: an unreachable backend is a miss, never an error.
		logger.Warn("Cache get failed, treating as miss", zap.Error(err), zap.String("key", key))
		return false
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		logger.Warn("Cache entry unreadable, treating as miss", zap.Error(err), zap.String("key", key))
		return false
	}
	return true
}

func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn("Cache set skipped, value not marshallable", zap.Error(err), zap.String("key", key))
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Warn("Cache set failed", zap.Error(err), zap.String("key", key))
	}
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("Cache delete failed", zap.Error(err), zap.Strings("keys", keys))
	}
}

func (c *RedisCache) DeleteByPattern(ctx context.Context, pattern string) {
	prefix := strings.TrimSuffix(pattern, "*")
	iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Warn("Cache scan failed", zap.Error(err), zap.String("pattern", pattern))
		return
	}

	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("Cache pattern delete failed", zap.Error(err), zap.String("pattern", pattern))
		return
	}
	logger.Debug("Cache keys invalidated",
		zap.String("pattern", pattern),
		zap.Int("count", len(keys)))
}

func (c *RedisCache) Exists(ctx context.Context, key string) bool {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		logger.Warn("Cache exists check failed", zap.Error(err), zap.String("key", key))
		return false
	}
	return n > 0
}
