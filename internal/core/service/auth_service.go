package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gutwise/diet-api/internal/api/metrics"
	"github.com/gutwise/diet-api/internal/core/domain"
	"github.com/gutwise/diet-api/internal/core/ports"
)

// warnAttemptsThreshold controls when login failures start disclosing the
// remaining attempt count in the error message.
const warnAttemptsThreshold = 3

type authService struct {
	users      ports.UserRepository
	sessions   ports.SessionRepository
	lockouts   *LockoutService
	hasher     *PasswordHasher
	tokens     *TokenService
	audit      ports.AuditRecorder
	refreshTTL time.Duration
	log        zerolog.Logger
}

// NewAuthService wires the auth orchestrator. All collaborators arrive via
// constructor injection; the orchestrator is the only component composing
// them into full workflows.
func NewAuthService(
	users ports.UserRepository,
	sessions ports.SessionRepository,
	lockouts *LockoutService,
	hasher *PasswordHasher,
	tokens *TokenService,
	audit ports.AuditRecorder,
	refreshTTL time.Duration,
	log zerolog.Logger,
) ports.AuthService {
	return &authService{
		users:      users,
		sessions:   sessions,
		lockouts:   lockouts,
		hasher:     hasher,
		tokens:     tokens,
		audit:      audit,
		refreshTTL: refreshTTL,
		log:        log,
	}
}

func (s *authService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, *ports.TokenPair, error) {
	email := domain.NormalizeEmail(in.Email)

	if err := CheckPasswordStrength(in.Password); err != nil {
		return nil, nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	user, err := s.users.Create(ctx, &domain.User{
		Email:        email,
		Name:         in.Name,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.RegistrationsTotal.Inc()
	s.recordAttempt(email, in.UserAgent, in.IPAddress, true, "")

	pair, err := s.issuePair(ctx, user, in.UserAgent, in.IPAddress)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *authService) Login(ctx context.Context, in ports.LoginInput) (*domain.User, *ports.TokenPair, error) {
	email := domain.NormalizeEmail(in.Email)

	// Lock check comes first: a locked identifier never reaches the
	// password path, whether or not the account exists.
	locked, remaining, err := s.lockouts.Status(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if locked {
		metrics.LoginsTotal.WithLabelValues("locked").Inc()
		s.recordAttempt(email, in.UserAgent, in.IPAddress, false, domain.AttemptReasonLocked)
		return nil, nil, &domain.LockedError{RetryAfter: remaining}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, s.failLogin(ctx, email, in, domain.AttemptReasonNoAccount)
		}
		return nil, nil, err
	}

	// Status gate sits between the not-found check and password
	// verification: no point burning a bcrypt comparison for an account
	// that cannot log in anyway.
	switch user.Status {
	case domain.StatusBanned:
		metrics.LoginsTotal.WithLabelValues("banned").Inc()
		s.recordAttempt(email, in.UserAgent, in.IPAddress, false, domain.AttemptReasonBanned)
		return nil, nil, domain.ErrAccountBanned
	case domain.StatusInactive:
		metrics.LoginsTotal.WithLabelValues("inactive").Inc()
		s.recordAttempt(email, in.UserAgent, in.IPAddress, false, domain.AttemptReasonInactive)
		return nil, nil, domain.ErrAccountInactive
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, nil, s.failLogin(ctx, email, in, domain.AttemptReasonBadPassword)
	}

	if err := s.lockouts.RecordSuccess(ctx, email); err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("failed to reset lockout counter")
	}
	if err := s.users.RecordLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record login bookkeeping")
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.recordAttempt(email, in.UserAgent, in.IPAddress, true, "")

	pair, err := s.issuePair(ctx, user, in.UserAgent, in.IPAddress)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// failLogin records a tracker failure and returns the generic rejection.
// The not-found and wrong-password paths both land here, producing
// byte-identical responses for the same counter state.
func (s *authService) failLogin(ctx context.Context, email string, in ports.LoginInput, reason string) error {
	metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
	s.recordAttempt(email, in.UserAgent, in.IPAddress, false, reason)

	attemptsLeft, nowLocked, err := s.lockouts.RecordFailure(ctx, email)
	if err != nil {
		return err
	}
	if nowLocked {
		metrics.LockoutsTotal.Inc()
	}
	if !nowLocked && attemptsLeft <= warnAttemptsThreshold {
		return fmt.Errorf("%w (%d attempts remaining before temporary lock)",
			domain.ErrInvalidCredentials, attemptsLeft)
	}
	return domain.ErrInvalidCredentials
}

func (s *authService) Refresh(ctx context.Context, in ports.RefreshInput) (*ports.TokenPair, error) {
	if !domain.ValidRefreshTokenFormat(in.RefreshToken) {
		return nil, domain.ErrTokenInvalid
	}
	hash := domain.HashRefreshToken(in.RefreshToken)

	// Atomic find-and-revoke: the presented credential dies here no
	// matter what happens afterwards. Minting failure after this point
	// loses the session, which is the fail-safe direction. Expired
	// sessions never match, so they keep revoked=false and fall to
	// handleMissingRotation as a plain rejection.
	sess, err := s.sessions.FindAndRevoke(ctx, hash, domain.RevokeReasonRotated)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, s.handleMissingRotation(ctx, hash)
		}
		return nil, err
	}
	metrics.SessionsRevokedTotal.WithLabelValues(domain.RevokeReasonRotated).Inc()

	user, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, domain.ErrTokenInvalid
	}

	pair, err := s.issuePair(ctx, user, in.UserAgent, in.IPAddress)
	if err != nil {
		return nil, err
	}
	metrics.TokenRotationsTotal.Inc()
	return pair, nil
}

// handleMissingRotation distinguishes "never seen" and "expired" from
// "seen and already revoked". Only the last is the theft signal: every
// live session of the owner is revoked, forcing re-authentication
// everywhere. An expired session still carries revoked=false, so its
// replay stays a plain rejection.
func (s *authService) handleMissingRotation(ctx context.Context, hash string) error {
	prior, err := s.sessions.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ErrTokenInvalid
		}
		return err
	}
	if prior.Revoked {
		metrics.TokenReuseDetectedTotal.Inc()
		n, revokeErr := s.sessions.RevokeAllForUser(ctx, prior.UserID, domain.RevokeReasonReuse)
		if revokeErr != nil {
			return revokeErr
		}
		metrics.SessionsRevokedTotal.WithLabelValues(domain.RevokeReasonReuse).Add(float64(n))
		s.log.Warn().
			Str("user_id", prior.UserID).
			Int64("sessions_revoked", n).
			Msg("revoked refresh token reused, all sessions revoked")
	}
	return domain.ErrTokenInvalid
}

func (s *authService) Logout(ctx context.Context, in ports.LogoutInput) error {
	switch {
	case in.AllDevices:
		n, err := s.sessions.RevokeAllForUser(ctx, in.UserID, domain.RevokeReasonLogoutAll)
		if err != nil {
			return err
		}
		metrics.SessionsRevokedTotal.WithLabelValues(domain.RevokeReasonLogoutAll).Add(float64(n))
	case in.RefreshToken != "":
		if !domain.ValidRefreshTokenFormat(in.RefreshToken) {
			break
		}
		sess, err := s.sessions.FindByHash(ctx, domain.HashRefreshToken(in.RefreshToken))
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				break
			}
			return err
		}
		// A token belonging to someone else is silently ignored rather
		// than revealing that it exists.
		if sess.UserID != in.UserID {
			break
		}
		if err := s.sessions.Revoke(ctx, sess.ID, domain.RevokeReasonLogout); err != nil {
			return err
		}
		metrics.SessionsRevokedTotal.WithLabelValues(domain.RevokeReasonLogout).Inc()
	}

	s.auditForUser(ctx, in.UserID, true, "logout")
	return nil
}

func (s *authService) ChangePassword(ctx context.Context, in ports.ChangePasswordInput) error {
	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(in.CurrentPassword, user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	if err := CheckPasswordStrength(in.NewPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	// Every outstanding refresh credential dies with the old password.
	n, err := s.sessions.RevokeAllForUser(ctx, user.ID, domain.RevokeReasonPassword)
	if err != nil {
		return err
	}
	metrics.SessionsRevokedTotal.WithLabelValues(domain.RevokeReasonPassword).Add(float64(n))

	s.auditForUser(ctx, user.ID, true, "password_changed")
	return nil
}

func (s *authService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *authService) ListSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	return s.sessions.ListActiveForUser(ctx, userID)
}

func (s *authService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.UserID != userID {
		return domain.ErrForbidden
	}
	if err := s.sessions.Revoke(ctx, sess.ID, domain.RevokeReasonUserRevoked); err != nil {
		return err
	}
	metrics.SessionsRevokedTotal.WithLabelValues(domain.RevokeReasonUserRevoked).Inc()
	return nil
}

// issuePair mints a fresh access token and persists a new refresh session,
// returning the only copy of the plaintext refresh token that will ever
// exist outside the client.
func (s *authService) issuePair(ctx context.Context, user *domain.User, userAgent, ip string) (*ports.TokenPair, error) {
	access, err := s.tokens.Mint(user)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}

	plaintext, hash, err := domain.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if _, err := s.sessions.Create(ctx, &domain.Session{
		UserID:    user.ID,
		TokenHash: hash,
		UserAgent: userAgent,
		IPAddress: ip,
		CreatedAt: now,
		ExpiresAt: now.Add(s.refreshTTL),
	}); err != nil {
		return nil, fmt.Errorf("persist refresh session: %w", err)
	}

	return &ports.TokenPair{
		AccessToken:  access,
		RefreshToken: plaintext,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// recordAttempt hands an audit row to the best-effort recorder. It never
// fails the caller.
func (s *authService) recordAttempt(email, userAgent, ip string, success bool, reason string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(&domain.LoginAttempt{
		Email:     email,
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   success,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *authService) auditForUser(ctx context.Context, userID string, success bool, reason string) {
	if s.audit == nil {
		return
	}
	email := ""
	if user, err := s.users.FindByID(ctx, userID); err == nil {
		email = user.Email
	} else {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("audit user lookup failed")
	}
	s.audit.Record(&domain.LoginAttempt{
		Email:     email,
		Success:   success,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	})
}
