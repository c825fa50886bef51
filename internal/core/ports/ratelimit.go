package ports

import (
	"context"
	"time"
)

// RateLimitResult is the outcome of a single counter check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter bounds request counts per key within a fixed window. The
// in-memory implementation serves a single process; the Redis-backed one
// shares counters across instances. Call sites do not care which.
type RateLimiter interface {
	Check(ctx context.Context, key string, window time.Duration, max int) (RateLimitResult, error)
}
