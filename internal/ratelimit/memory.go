// Package ratelimit provides the in-process fixed-window rate limiter.
// Counters live in a plain map guarded by a mutex and reset when their
// window lapses; a background sweep reclaims idle entries. State does not
// survive a restart, which is acceptable for abuse mitigation.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/gutwise/diet-api/internal/core/ports"
)

const defaultSweepInterval = 5 * time.Minute

type windowCounter struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a process-local ports.RateLimiter. Construct with New,
// call Start once, Stop on shutdown.
type MemoryLimiter struct {
	mu       sync.Mutex
	counters map[string]*windowCounter

	sweepEvery time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
	now        func() time.Time
}

func New(sweepEvery time.Duration) *MemoryLimiter {
	if sweepEvery <= 0 {
		sweepEvery = defaultSweepInterval
	}
	return &MemoryLimiter{
		counters:   make(map[string]*windowCounter),
		sweepEvery: sweepEvery,
		stop:       make(chan struct{}),
		now:        time.Now,
	}
}

// Check counts one request against the key's current window. The first
// request after a window lapses replaces the counter rather than carrying
// stale counts forward.
func (l *MemoryLimiter) Check(_ context.Context, key string, window time.Duration, max int) (ports.RateLimitResult, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counters[key]
	if !ok || !now.Before(c.resetAt) {
		c = &windowCounter{resetAt: now.Add(window)}
		l.counters[key] = c
	}
	c.count++

	if c.count > max {
		return ports.RateLimitResult{
			Allowed:    false,
			RetryAfter: c.resetAt.Sub(now),
		}, nil
	}
	return ports.RateLimitResult{
		Allowed:   true,
		Remaining: max - c.count,
	}, nil
}

// Start launches the periodic sweep. It returns immediately.
func (l *MemoryLimiter) Start() {
	go func() {
		ticker := time.NewTicker(l.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-l.stop:
				return
			case <-ticker.C:
				l.sweep()
			}
		}
	}()
}

// Stop terminates the sweep goroutine. Idempotent.
func (l *MemoryLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *MemoryLimiter) sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, c := range l.counters {
		if !now.Before(c.resetAt) {
			delete(l.counters, key)
		}
	}
}

// size is test-only visibility into the counter map.
func (l *MemoryLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}
