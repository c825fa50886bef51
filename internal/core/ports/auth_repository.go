package ports

import (
	"context"
	"time"

	"github.com/gutwise/diet-api/internal/core/domain"
)

// UserRepository is the persistence port for identity records. Email
// uniqueness is enforced by the store (unique index), surfacing as
// domain.ErrUserExists on Create.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// UpdatePassword swaps the stored hash for an already-hashed value.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// RecordLogin bumps login bookkeeping (last-active, login counter).
	RecordLogin(ctx context.Context, id string, at time.Time) error
}
