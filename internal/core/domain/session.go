package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// RefreshTokenBytes is the entropy of a refresh token before hex encoding.
// Clients see a 128-character hex string; the store only ever sees its hash.
const RefreshTokenBytes = 64

// RefreshTokenLength is the length of the hex-encoded plaintext token.
const RefreshTokenLength = RefreshTokenBytes * 2

// Revocation reasons recorded on the session document.
const (
	RevokeReasonRotated     = "rotated"
	RevokeReasonLogout      = "logout"
	RevokeReasonLogoutAll   = "logout_all_devices"
	RevokeReasonReuse       = "token_reuse_detected"
	RevokeReasonUserRevoked = "revoked_by_user"
	RevokeReasonInvalidUser = "owner_not_active"
	RevokeReasonPassword    = "password_changed"
)

// Session is one issued refresh credential. The plaintext token is returned
// to the client exactly once; only its SHA-256 hash is persisted here.
type Session struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	TokenHash     string     `json:"-"`
	UserAgent     string     `json:"user_agent"`
	IPAddress     string     `json:"ip_address"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	Revoked       bool       `json:"revoked"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokedReason string     `json:"revoked_reason,omitempty"`
}

// Valid reports whether the session may still be exchanged for a new token
// pair: not revoked and not past expiry.
func (s *Session) Valid(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}

// GenerateRefreshToken returns a new high-entropy refresh token as a hex
// string, alongside the hash under which it must be stored.
func GenerateRefreshToken() (plaintext, hash string, err error) {
	buf := make([]byte, RefreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate refresh token: %w", err)
	}
	plaintext = hex.EncodeToString(buf)
	return plaintext, HashRefreshToken(plaintext), nil
}

// HashRefreshToken maps a plaintext refresh token to its stored form.
func HashRefreshToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// ValidRefreshTokenFormat is a cheap shape check run before any store
// lookup: fixed length, hex alphabet only.
func ValidRefreshTokenFormat(token string) bool {
	if len(token) != RefreshTokenLength {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}
