package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryLimiter_AllowsUpToMax(t *testing.T) {
	l := New(time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Check(ctx, "k", time.Minute, 3)
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if res.Remaining != 3-(i+1) {
			t.Fatalf("request %d: remaining=%d", i+1, res.Remaining)
		}
	}

	res, err := l.Check(ctx, "k", time.Minute, 3)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Allowed {
		t.Fatalf("request over limit was allowed")
	}
	if res.RetryAfter <= 0 || res.RetryAfter > time.Minute {
		t.Fatalf("retry-after out of range: %v", res.RetryAfter)
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l := New(time.Minute)
	ctx := context.Background()

	if res, _ := l.Check(ctx, "a", time.Minute, 1); !res.Allowed {
		t.Fatalf("first request for a rejected")
	}
	if res, _ := l.Check(ctx, "a", time.Minute, 1); res.Allowed {
		t.Fatalf("second request for a allowed")
	}
	if res, _ := l.Check(ctx, "b", time.Minute, 1); !res.Allowed {
		t.Fatalf("unrelated key b throttled")
	}
}

func TestMemoryLimiter_WindowReset(t *testing.T) {
	l := New(time.Minute)
	ctx := context.Background()

	current := time.Now()
	l.now = func() time.Time { return current }

	for i := 0; i < 2; i++ {
		_, _ = l.Check(ctx, "k", time.Minute, 2)
	}
	if res, _ := l.Check(ctx, "k", time.Minute, 2); res.Allowed {
		t.Fatalf("over-limit request allowed")
	}

	// Once the window lapses the counter starts over; nothing carries
	// forward from the previous window.
	current = current.Add(time.Minute + time.Second)
	res, _ := l.Check(ctx, "k", time.Minute, 2)
	if !res.Allowed {
		t.Fatalf("request after window reset rejected")
	}
	if res.Remaining != 1 {
		t.Fatalf("stale count carried into new window: remaining=%d", res.Remaining)
	}
}

func TestMemoryLimiter_SweepReclaimsLapsedEntries(t *testing.T) {
	l := New(time.Minute)
	ctx := context.Background()

	current := time.Now()
	l.now = func() time.Time { return current }

	_, _ = l.Check(ctx, "old", time.Minute, 5)
	_, _ = l.Check(ctx, "fresh", time.Hour, 5)
	if l.size() != 2 {
		t.Fatalf("expected 2 counters, got %d", l.size())
	}

	current = current.Add(2 * time.Minute)
	l.sweep()

	if l.size() != 1 {
		t.Fatalf("expected lapsed counter swept, got %d entries", l.size())
	}
}

func TestMemoryLimiter_StopIsIdempotent(t *testing.T) {
	l := New(time.Millisecond)
	l.Start()
	l.Stop()
	l.Stop()
}

func TestMemoryLimiter_ConcurrentChecks(t *testing.T) {
	l := New(time.Minute)
	ctx := context.Background()

	const workers = 16
	const perWorker = 25

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				res, err := l.Check(ctx, "shared", time.Minute, 100)
				if err != nil {
					t.Errorf("check: %v", err)
					return
				}
				if res.Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if allowed != 100 {
		t.Fatalf("expected exactly 100 allowed of %d, got %d", workers*perWorker, allowed)
	}
}
