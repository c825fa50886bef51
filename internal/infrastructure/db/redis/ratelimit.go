package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gutwise/diet-api/internal/core/ports"
)

// Limiter is a Redis-backed fixed-window ports.RateLimiter: INCR per key,
// EXPIRE set on the first hit of each window. Counters are shared across
// every instance pointed at the same Redis.
type Limiter struct {
	client *redis.Client
}

// NewLimiter wraps the given Redis client as a rate limiter.
func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// Check counts one request against the key's window.
func (l *Limiter) Check(ctx context.Context, key string, window time.Duration, max int) (ports.RateLimitResult, error) {
	key = "rl:" + key

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return ports.RateLimitResult{}, fmt.Errorf("ratelimit incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, window).Err(); err != nil {
			return ports.RateLimitResult{}, fmt.Errorf("ratelimit expire: %w", err)
		}
	}

	if count > int64(max) {
		retryAfter, err := l.client.TTL(ctx, key).Result()
		if err != nil || retryAfter < 0 {
			retryAfter = window
		}
		return ports.RateLimitResult{
			Allowed:    false,
			RetryAfter: retryAfter,
		}, nil
	}
	return ports.RateLimitResult{
		Allowed:   true,
		Remaining: max - int(count),
	}, nil
}
