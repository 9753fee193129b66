package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/you/rentalsvc/domain"
)

// RedisRateLimiter implements domain.RateLimiter with a fixed-window counter
// in Redis, bounding rental starts per user to limit abusive provider churn.
type RedisRateLimiter struct {
	redisClient *redis.Client
	max         int
	window      time.Duration
}

// NewRedisRateLimiter creates a Redis-backed rate limiter.
func NewRedisRateLimiter(redisClient *redis.Client, max int, window time.Duration) domain.RateLimiter {
	return &RedisRateLimiter{
		redisClient: redisClient,
		max:         max,
		window:      window,
	}
}

// Allow implements domain.RateLimiter. The first increment in a window arms
// the window's expiry; once the counter passes the maximum the caller is
// rejected until the key expires.
func (l *RedisRateLimiter) Allow(ctx context.Context, userID uint) (bool, error) {
	if l.max <= 0 {
		return true, nil
	}

	key := fmt.Sprintf("rental:rl:%d", userID)
	count, err := l.redisClient.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate-limit counter: %w", err)
	}
	if count == 1 {
		if err := l.redisClient.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("failed to arm rate-limit window: %w", err)
		}
	}
	return count <= int64(l.max), nil
}
