package ports

import (
	"context"
	"time"

	"github.com/gutwise/diet-api/internal/core/domain"
)

// SessionRepository is the refresh-credential ledger. It stores token
// hashes only; plaintext never crosses this interface.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) (*domain.Session, error)
	// FindByHash returns the session regardless of revocation or expiry
	// state; callers decide what a revoked or expired hit means.
	FindByHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	FindByID(ctx context.Context, id string) (*domain.Session, error)
	// FindAndRevoke atomically claims a valid (not revoked, not expired)
	// session by hash, marking it revoked and returning its prior state.
	// A second caller racing on the same hash, or any caller presenting
	// an expired token, gets domain.ErrSessionNotFound; expired sessions
	// are never flipped to revoked by this call.
	FindAndRevoke(ctx context.Context, tokenHash, reason string) (*domain.Session, error)
	// Revoke flips the revoked flag by id. Revoking an already-revoked
	// session is a no-op success.
	Revoke(ctx context.Context, id, reason string) error
	RevokeAllForUser(ctx context.Context, userID, reason string) (int64, error)
	// ListActiveForUser returns non-revoked, non-expired sessions.
	ListActiveForUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// DeleteExpired removes sessions whose expiry plus the retention
	// window has passed. Safe to run repeatedly; the store TTL index is
	// the backstop.
	DeleteExpired(ctx context.Context, retention time.Duration) (int64, error)
}
