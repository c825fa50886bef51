package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gutwise/diet-api/internal/core/domain"
	"github.com/gutwise/diet-api/internal/core/service"
)

func newVerifier() *service.TokenService {
	return service.NewTokenService(
		"0123456789abcdef0123456789abcdef",
		"diet-api-test", "diet-app-test", time.Minute,
	)
}

func mintFor(t *testing.T, ts *service.TokenService) string {
	t.Helper()
	token, err := ts.Mint(&domain.User{
		ID:    "user-1",
		Email: "alice@example.com",
		Role:  domain.RoleUser,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return token
}

func runAuth(t *testing.T, decorate func(*http.Request)) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	decorate(req)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Auth(newVerifier())(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return c, handler(c)
}

func TestAuth_BearerHeader(t *testing.T) {
	ts := newVerifier()
	token := mintFor(t, ts)

	c, err := runAuth(t, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})
	if err != nil {
		t.Fatalf("expected pass, got %v", err)
	}
	if c.Get(ContextUserID) != "user-1" {
		t.Fatalf("user id not injected: %v", c.Get(ContextUserID))
	}
	if c.Get(ContextEmail) != "alice@example.com" || c.Get(ContextRole) != domain.RoleUser {
		t.Fatalf("identity not injected: %v / %v", c.Get(ContextEmail), c.Get(ContextRole))
	}
}

func TestAuth_CookieFallback(t *testing.T) {
	ts := newVerifier()
	token := mintFor(t, ts)

	c, err := runAuth(t, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	})
	if err != nil {
		t.Fatalf("expected pass via cookie, got %v", err)
	}
	if c.Get(ContextUserID) != "user-1" {
		t.Fatalf("user id not injected: %v", c.Get(ContextUserID))
	}
}

func TestAuth_HeaderWinsOverCookie(t *testing.T) {
	ts := newVerifier()
	token := mintFor(t, ts)

	// A stale cookie next to a valid header must not shadow it.
	_, err := runAuth(t, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "stale-garbage"})
	})
	if err != nil {
		t.Fatalf("valid header rejected: %v", err)
	}
}

func TestAuth_Rejections(t *testing.T) {
	cases := []struct {
		name     string
		decorate func(*http.Request)
	}{
		{"no credentials", func(*http.Request) {}},
		{"garbage token", func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer garbage")
		}},
		{"wrong scheme", func(req *http.Request) {
			req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		}},
		{"bad cookie", func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "garbage"})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runAuth(t, tc.decorate)
			he, ok := err.(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected HTTPError, got %v", err)
			}
			if he.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", he.Code)
			}
		})
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	expired := service.NewTokenService(
		"0123456789abcdef0123456789abcdef",
		"diet-api-test", "diet-app-test", -time.Minute,
	)
	token := mintFor(t, expired)

	_, err := runAuth(t, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %v", err)
	}
}
