package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ritz541/iamwheel/internal/logger"
)

// RateLimiter admits or denies an action for an account. Implementations
// must fail open: an unavailable counting store degrades to always-permit.
type RateLimiter interface {
	Allow(ctx context.Context, userID, action string) bool
}

// RedisRateLimiter counts actions in a fixed window per (account, action)
// key. The key expires on its own after the window, so idle accounts
// leave no state behind.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, userID, action string) bool {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		logger.Warnf("rate limiter degraded, permitting %s for user %s: %v", action, userID, err)
		return true
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			logger.Warnf("failed to set rate limit expiry for %s: %v", key, err)
		}
	} else if ttl, terr := l.client.TTL(ctx, key).Result(); terr == nil && ttl < 0 {
		// The expiry arm on the first hit failed; re-arm so the counter
		// cannot deny forever.
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			logger.Warnf("failed to set rate limit expiry for %s: %v", key, err)
		}
	}

	return count <= int64(l.limit)
}
