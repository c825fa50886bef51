package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gutwise/diet-api/internal/core/domain"
	"github.com/gutwise/diet-api/internal/core/ports"
)

// LockoutService implements the brute-force tracker on top of the per-email
// counter store. Lock windows self-heal on read: there is no background
// sweep, a counter observed past its window is reset on the spot.
type LockoutService struct {
	repo        ports.LockoutRepository
	maxAttempts int
	duration    time.Duration
}

func NewLockoutService(repo ports.LockoutRepository, maxAttempts int, duration time.Duration) *LockoutService {
	return &LockoutService{repo: repo, maxAttempts: maxAttempts, duration: duration}
}

// Status reports whether the email is locked out and for how much longer.
// Observing an elapsed lock clears the counter as a side effect.
func (s *LockoutService) Status(ctx context.Context, email string) (locked bool, remaining time.Duration, err error) {
	email = domain.NormalizeEmail(email)
	lock, err := s.repo.Find(ctx, email)
	if err != nil {
		return false, 0, fmt.Errorf("lockout status: %w", err)
	}
	if lock == nil || !lock.Locked {
		return false, 0, nil
	}
	now := time.Now()
	if lock.LockExpired(now) {
		if err := s.repo.Delete(ctx, email); err != nil {
			return false, 0, fmt.Errorf("lockout status: clear expired lock: %w", err)
		}
		return false, 0, nil
	}
	return true, lock.Remaining(now), nil
}

// RecordFailure counts one failed attempt and locks the email when the
// threshold is reached. It returns the attempts left before lockout (zero
// when the lock just engaged).
func (s *LockoutService) RecordFailure(ctx context.Context, email string) (attemptsLeft int, nowLocked bool, err error) {
	email = domain.NormalizeEmail(email)
	now := time.Now()

	lock, err := s.repo.Find(ctx, email)
	if err != nil {
		return 0, false, fmt.Errorf("lockout record failure: %w", err)
	}
	if lock == nil {
		lock = &domain.LoginLock{Email: email}
	} else if lock.LockExpired(now) {
		// The previous window elapsed unnoticed; start counting fresh.
		lock.FailedAttempts = 0
		lock.Locked = false
		lock.LockedUntil = nil
	}

	lock.FailedAttempts++
	lock.LastFailureAt = now
	if lock.FailedAttempts >= s.maxAttempts {
		until := now.Add(s.duration)
		lock.Locked = true
		lock.LockedUntil = &until
	}

	if err := s.repo.Upsert(ctx, lock); err != nil {
		return 0, false, fmt.Errorf("lockout record failure: %w", err)
	}

	left := s.maxAttempts - lock.FailedAttempts
	if left < 0 {
		left = 0
	}
	return left, lock.Locked, nil
}

// RecordSuccess unconditionally clears the counter and any lock.
func (s *LockoutService) RecordSuccess(ctx context.Context, email string) error {
	if err := s.repo.Delete(ctx, domain.NormalizeEmail(email)); err != nil {
		return fmt.Errorf("lockout record success: %w", err)
	}
	return nil
}
