package domain

import "time"

// LoginLock is the per-email brute-force counter. It is keyed by normalized
// email rather than user id so attempts against non-existent accounts are
// throttled exactly like attempts against real ones.
type LoginLock struct {
	Email          string     `json:"email"`
	FailedAttempts int        `json:"failed_attempts"`
	LastFailureAt  time.Time  `json:"last_failure_at"`
	Locked         bool       `json:"locked"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
}

// LockExpired reports whether an existing lock window has elapsed.
func (l *LoginLock) LockExpired(now time.Time) bool {
	return l.Locked && l.LockedUntil != nil && !now.Before(*l.LockedUntil)
}

// Remaining returns how long the lock still holds. Zero when unlocked.
func (l *LoginLock) Remaining(now time.Time) time.Duration {
	if !l.Locked || l.LockedUntil == nil {
		return 0
	}
	if d := l.LockedUntil.Sub(now); d > 0 {
		return d
	}
	return 0
}
