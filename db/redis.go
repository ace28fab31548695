// db/redis.go
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/trackmeet/api/logging"
)

var RedisClient *redis.Client

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

// RateLimit implements a sliding-window counter on a sorted set per key.
func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := cmds[2].(*redis.IntCmd).Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}
