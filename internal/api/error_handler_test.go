package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/gutwise/diet-api/internal/core/domain"
)

func handleError(t *testing.T, err error) (*httptest.ResponseRecorder, errorEnvelope) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop())(err, c)

	var env errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	return rec, env
}

func TestErrorHandler_DomainMappings(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{"token invalid", domain.ErrTokenInvalid, http.StatusUnauthorized, "token_invalid"},
		{"weak password", domain.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
		{"banned", domain.ErrAccountBanned, http.StatusForbidden, "account_banned"},
		{"inactive", domain.ErrAccountInactive, http.StatusForbidden, "account_inactive"},
		{"not owner", domain.ErrForbidden, http.StatusForbidden, "not_owner"},
		{"email taken", domain.ErrUserExists, http.StatusConflict, "email_taken"},
		{"session not found", domain.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := handleError(t, tc.err)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if env.Code != tc.code {
				t.Fatalf("code = %q, want %q", env.Code, tc.code)
			}
			if env.Success {
				t.Fatalf("error envelope reports success")
			}
		})
	}
}

func TestErrorHandler_WrappedErrorKeepsMapping(t *testing.T) {
	wrapped := fmt.Errorf("%w (2 attempts remaining before temporary lock)", domain.ErrInvalidCredentials)
	rec, env := handleError(t, wrapped)
	if rec.Code != http.StatusUnauthorized || env.Code != "invalid_credentials" {
		t.Fatalf("wrapped error lost its mapping: %d %q", rec.Code, env.Code)
	}
	// The attempt-count suffix survives into the client message.
	if env.Message != wrapped.Error() {
		t.Fatalf("message = %q, want %q", env.Message, wrapped.Error())
	}
}

func TestErrorHandler_LockedError(t *testing.T) {
	rec, env := handleError(t, &domain.LockedError{RetryAfter: 90 * time.Second})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if env.Code != "account_locked" {
		t.Fatalf("code = %q", env.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
}

func TestErrorHandler_RateLimitError(t *testing.T) {
	rec, env := handleError(t, &domain.RateLimitError{RetryAfter: 30 * time.Second})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if env.Code != "rate_limited" {
		t.Fatalf("code = %q", env.Code)
	}
}

func TestErrorHandler_EchoHTTPError(t *testing.T) {
	rec, env := handleError(t, echo.NewHTTPError(http.StatusBadRequest, "invalid payload"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Message != "invalid payload" {
		t.Fatalf("message = %q", env.Message)
	}
}

func TestErrorHandler_UnexpectedErrorIsOpaque(t *testing.T) {
	rec, env := handleError(t, errors.New("mongo: connection reset by peer"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if env.Code != "internal_error" || env.Message != "internal server error" {
		t.Fatalf("internal details leaked: %+v", env)
	}
}

func TestErrorHandler_CredentialFailuresIndistinguishable(t *testing.T) {
	// The not-found and wrong-password paths surface the same sentinel;
	// their rendered payloads must be byte-identical.
	rec1, _ := handleError(t, domain.ErrInvalidCredentials)
	rec2, _ := handleError(t, domain.ErrInvalidCredentials)
	if rec1.Body.String() != rec2.Body.String() {
		t.Fatalf("payloads differ: %q vs %q", rec1.Body.String(), rec2.Body.String())
	}
}
