package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/gutwise/diet-api/internal/core/domain"
	"github.com/gutwise/diet-api/internal/core/ports"
	"github.com/gutwise/diet-api/internal/ratelimit"
)

type failingLimiter struct{}

func (failingLimiter) Check(context.Context, string, time.Duration, int) (ports.RateLimitResult, error) {
	return ports.RateLimitResult{}, errors.New("backend down")
}

func callLimited(t *testing.T, mw echo.MiddlewareFunc, ip string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = ip + ":12345"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/auth/login")

	err := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, err
}

func TestRateLimit_RejectsOverBudget(t *testing.T) {
	limiter := ratelimit.New(time.Minute)
	tier := RateTier{Name: "auth", Window: time.Minute, Max: 2}
	mw := RateLimit(limiter, tier, zerolog.Nop())

	for i := 0; i < 2; i++ {
		if _, err := callLimited(t, mw, "1.2.3.4"); err != nil {
			t.Fatalf("request %d rejected: %v", i+1, err)
		}
	}

	rec, err := callLimited(t, mw, "1.2.3.4")
	var throttled *domain.RateLimitError
	if !errors.As(err, &throttled) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
}

func TestRateLimit_KeysByClientAddress(t *testing.T) {
	limiter := ratelimit.New(time.Minute)
	tier := RateTier{Name: "auth", Window: time.Minute, Max: 1}
	mw := RateLimit(limiter, tier, zerolog.Nop())

	if _, err := callLimited(t, mw, "1.2.3.4"); err != nil {
		t.Fatalf("first request rejected: %v", err)
	}
	if _, err := callLimited(t, mw, "1.2.3.4"); err == nil {
		t.Fatalf("second request from same address allowed")
	}
	if _, err := callLimited(t, mw, "5.6.7.8"); err != nil {
		t.Fatalf("request from other address rejected: %v", err)
	}
}

func TestRateLimit_TiersAreIndependent(t *testing.T) {
	limiter := ratelimit.New(time.Minute)
	authMW := RateLimit(limiter, RateTier{Name: "auth", Window: time.Minute, Max: 1}, zerolog.Nop())
	generalMW := RateLimit(limiter, RateTier{Name: "general", Window: time.Minute, Max: 5}, zerolog.Nop())

	if _, err := callLimited(t, authMW, "1.2.3.4"); err != nil {
		t.Fatalf("auth request rejected: %v", err)
	}
	if _, err := callLimited(t, authMW, "1.2.3.4"); err == nil {
		t.Fatalf("auth tier exhausted budget not enforced")
	}
	// The same client still has budget on the other tier.
	if _, err := callLimited(t, generalMW, "1.2.3.4"); err != nil {
		t.Fatalf("general tier affected by auth tier: %v", err)
	}
}

func TestRateLimit_FailsOpenOnBackendError(t *testing.T) {
	mw := RateLimit(failingLimiter{}, RateTier{Name: "auth", Window: time.Minute, Max: 1}, zerolog.Nop())

	for i := 0; i < 3; i++ {
		if _, err := callLimited(t, mw, "1.2.3.4"); err != nil {
			t.Fatalf("request %d should fail open: %v", i+1, err)
		}
	}
}
