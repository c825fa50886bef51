package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the auth core. Handlers never build status codes from
// these directly; the central HTTP error handler owns that mapping.
var (
	// ErrInvalidCredentials covers both "no such account" and "wrong
	// password" so the two are indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrUserExists      = errors.New("email already registered")
	ErrUserNotFound    = errors.New("user not found")
	ErrAccountBanned   = errors.New("account is banned")
	ErrAccountInactive = errors.New("account is deactivated")
	ErrWeakPassword    = errors.New("password does not meet requirements")

	// ErrTokenInvalid is the single verdict for every token failure:
	// expired, malformed, wrong signature, wrong audience or type.
	ErrTokenInvalid = errors.New("invalid or expired token")

	ErrSessionNotFound = errors.New("session not found")
	ErrForbidden       = errors.New("access forbidden")
	ErrRateLimited     = errors.New("too many requests")
)

// LockedError reports a brute-force lockout with the remaining wait. Its
// message discloses only the wait time, never the attempt threshold.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	secs := int(e.RetryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("account temporarily locked, try again in %d seconds", secs)
}

// RateLimitError carries the retry hint back to the transport layer.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string { return ErrRateLimited.Error() }

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
