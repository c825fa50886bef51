package ports

import (
	"context"

	"github.com/gutwise/diet-api/internal/core/domain"
)

// RegisterInput carries everything needed to create an account.
type RegisterInput struct {
	Email     string
	Password  string
	Name      string
	UserAgent string
	IPAddress string
}

// LoginInput carries one authentication attempt.
type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// RefreshInput carries one refresh-token rotation request.
type RefreshInput struct {
	RefreshToken string
	UserAgent    string
	IPAddress    string
}

// LogoutInput ends one session, all sessions, or neither (client-side-only
// logout when no token is supplied and AllDevices is false).
type LogoutInput struct {
	UserID       string
	RefreshToken string
	AllDevices   bool
}

// ChangePasswordInput rotates an account's password.
type ChangePasswordInput struct {
	UserID          string
	CurrentPassword string
	NewPassword     string
}

// TokenPair is an access token plus the refresh token that can replace it.
// ExpiresIn is the access token lifetime in seconds.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AuthService is the orchestrator composing the credential store, hasher,
// token signer, session ledger and brute-force tracker into the full
// authentication workflows.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, *TokenPair, error)
	Login(ctx context.Context, in LoginInput) (*domain.User, *TokenPair, error)
	Refresh(ctx context.Context, in RefreshInput) (*TokenPair, error)
	Logout(ctx context.Context, in LogoutInput) error
	ChangePassword(ctx context.Context, in ChangePasswordInput) error
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
	ListSessions(ctx context.Context, userID string) ([]*domain.Session, error)
	RevokeSession(ctx context.Context, userID, sessionID string) error
}
