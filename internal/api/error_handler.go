package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/gutwise/diet-api/internal/core/domain"
)

// errorEnvelope is the canonical error shape for all API errors:
// {"success":false,"error":"<category>","code":"<stable code>","message":"<human text>"}.
type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders the uniform JSON envelope on every error path.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, env := resolveError(err, log, c)
		_ = c.JSON(status, env)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorEnvelope) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorEnvelope{
			Error:   http.StatusText(he.Code),
			Code:    "http_error",
			Message: fmt.Sprintf("%v", he.Message),
		}
	}

	var locked *domain.LockedError
	if errors.As(err, &locked) {
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(locked.RetryAfter.Seconds())+1))
		return http.StatusUnauthorized, errorEnvelope{
			Error:   "unauthorized",
			Code:    "account_locked",
			Message: locked.Error(),
		}
	}

	var throttled *domain.RateLimitError
	if errors.As(err, &throttled) {
		return http.StatusTooManyRequests, errorEnvelope{
			Error:   "rate_limited",
			Code:    "rate_limited",
			Message: "too many requests, slow down",
		}
	}

	// Known domain errors get deterministic codes. The credential paths
	// deliberately reuse err.Error() so the not-found and wrong-password
	// payloads stay byte-identical.
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, envelope("unauthorized", "invalid_credentials", err.Error())
	case errors.Is(err, domain.ErrTokenInvalid):
		return http.StatusUnauthorized, envelope("unauthorized", "token_invalid", domain.ErrTokenInvalid.Error())
	case errors.Is(err, domain.ErrWeakPassword):
		return http.StatusBadRequest, envelope("validation_error", "weak_password", err.Error())
	case errors.Is(err, domain.ErrAccountBanned):
		return http.StatusForbidden, envelope("forbidden", "account_banned", domain.ErrAccountBanned.Error())
	case errors.Is(err, domain.ErrAccountInactive):
		return http.StatusForbidden, envelope("forbidden", "account_inactive", domain.ErrAccountInactive.Error())
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, envelope("forbidden", "not_owner", domain.ErrForbidden.Error())
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, envelope("conflict", "email_taken", domain.ErrUserExists.Error())
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, envelope("rate_limited", "rate_limited", "too many requests, slow down")
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, envelope("not_found", "session_not_found", domain.ErrSessionNotFound.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, envelope("not_found", "user_not_found", domain.ErrUserNotFound.Error())
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, envelope("internal", "internal_error", "internal server error")
}

func envelope(category, code, message string) errorEnvelope {
	return errorEnvelope{Error: category, Code: code, Message: message}
}
