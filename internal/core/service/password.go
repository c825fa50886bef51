package service

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/gutwise/diet-api/internal/core/domain"
)

const minPasswordLength = 8

// commonPasswords is a small denylist of passwords that pass the character
// rules but are still trivially guessable.
var commonPasswords = map[string]struct{}{
	"password1!":  {},
	"password123": {},
	"p@ssword1":   {},
	"p@ssw0rd":    {},
	"qwerty123!":  {},
	"admin123!":   {},
	"welcome1!":   {},
	"letmein1!":   {},
	"iloveyou1!":  {},
	"changeme1!":  {},
}

// PasswordHasher wraps bcrypt with a configurable work factor.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher clamps the cost into bcrypt's supported range.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns the salted bcrypt hash of plaintext. A failure here is a
// configuration problem, not a user error.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches the stored hash. It never
// returns an error: any mismatch or malformed hash is simply false.
// bcrypt's comparison is constant-time on the derived key.
func (h *PasswordHasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// CheckPasswordStrength enforces the registration password policy: minimum
// length, mixed case, a digit, a symbol, and absence from the common
// password denylist. The returned error wraps domain.ErrWeakPassword with
// a message naming the first unmet rule.
func CheckPasswordStrength(plaintext string) error {
	if len(plaintext) < minPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", domain.ErrWeakPassword, minPasswordLength)
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range plaintext {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	switch {
	case !hasUpper:
		return fmt.Errorf("%w: must contain an uppercase letter", domain.ErrWeakPassword)
	case !hasLower:
		return fmt.Errorf("%w: must contain a lowercase letter", domain.ErrWeakPassword)
	case !hasDigit:
		return fmt.Errorf("%w: must contain a digit", domain.ErrWeakPassword)
	case !hasSymbol:
		return fmt.Errorf("%w: must contain a symbol", domain.ErrWeakPassword)
	}

	if _, found := commonPasswords[strings.ToLower(plaintext)]; found {
		return fmt.Errorf("%w: too common", domain.ErrWeakPassword)
	}
	return nil
}
