package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gutwise/diet-api/internal/core/domain"
)

// TokenTypeAccess is the only token type this verifier accepts. Refresh
// credentials are opaque random values, not JWTs, so nothing else is ever
// legitimately presented here.
const TokenTypeAccess = "access"

// AccessClaims is the payload of a signed access token. It exists only
// inside the token and is never persisted.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"type"`
}

// TokenService mints and verifies HS256 access tokens.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

func NewTokenService(secret, issuer, audience string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
	}
}

// AccessTTL returns the configured access token lifetime.
func (ts *TokenService) AccessTTL() time.Duration {
	return ts.ttl
}

// Mint signs a new access token for the user.
func (ts *TokenService) Mint(user *domain.User) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    ts.issuer,
			Audience:  jwt.ClaimStrings{ts.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		TokenType: TokenTypeAccess,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.secret)
}

// Verify parses and validates an access token. Signature, issuer, audience,
// expiry and token type are all checked, and every failure collapses into
// domain.ErrTokenInvalid so callers cannot distinguish the cause.
func (ts *TokenService) Verify(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return ts.secret, nil
		},
		jwt.WithIssuer(ts.issuer),
		jwt.WithAudience(ts.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, domain.ErrTokenInvalid
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}
