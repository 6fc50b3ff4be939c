package ratelimit

import (
	"context"
	"fmt"
	"time"

	"launchpad_backend/internal/config"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	memoryIdleTTL = 10 * time.Minute
	redisPrefix   = "launchpad:rl:"
)

// New builds the limiter selected by RATE_LIMIT_BACKEND. The returned
// cleanup releases its resources.
func New(cfg *config.Config, logger *zap.Logger) (Limiter, func(), error) {
	switch cfg.RateLimitBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		limiter, err := NewRedisLimiter(client, redisPrefix, cfg.RateLimitRPS, cfg.RateLimitBurst)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		logger.Info("Rate limiter using redis", zap.String("addr", cfg.RedisAddr))
		return limiter, func() { _ = client.Close() }, nil
	default:
		limiter := NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, memoryIdleTTL)
		logger.Info("Rate limiter using process memory")
		return limiter, limiter.Stop, nil
	}
}
