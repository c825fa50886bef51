package ports

import (
	"context"

	"github.com/gutwise/diet-api/internal/core/domain"
)

// AttemptRepository appends login-attempt audit rows. Write-only from the
// auth core; the admin analytics that read this collection live elsewhere.
type AttemptRepository interface {
	Insert(ctx context.Context, attempt *domain.LoginAttempt) error
}

// AuditRecorder is the fire-and-forget facade the orchestrator uses. An
// implementation must never block the caller or surface its own failures.
type AuditRecorder interface {
	Record(attempt *domain.LoginAttempt)
}
