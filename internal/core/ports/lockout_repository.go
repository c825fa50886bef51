package ports

import (
	"context"

	"github.com/gutwise/diet-api/internal/core/domain"
)

// LockoutRepository persists per-email brute-force counters with upsert
// semantics: one document per normalized email.
type LockoutRepository interface {
	// Find returns nil, nil when no counter exists for the email.
	Find(ctx context.Context, email string) (*domain.LoginLock, error)
	Upsert(ctx context.Context, lock *domain.LoginLock) error
	Delete(ctx context.Context, email string) error
}
