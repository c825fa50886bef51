package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// Config selects the Redis instance backing the shared rate limiter. Only
// the fields the limiter needs are exposed; everything else stays at the
// client's defaults.
type Config struct {
	Addr    string
	DB      int
	Timeout time.Duration // ping timeout, pingTimeout when zero
}

// Connect builds a Redis client and proves connectivity with one ping.
// The limiter backend is selected at startup, so an unreachable Redis is
// surfaced here as a fatal wiring error rather than as per-request noise.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = pingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}
