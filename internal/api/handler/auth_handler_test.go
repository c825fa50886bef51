package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gutwise/diet-api/internal/api/middleware"
	"github.com/gutwise/diet-api/internal/core/domain"
	"github.com/gutwise/diet-api/internal/core/ports"
)

// stubAuthService records inputs and returns canned results.
type stubAuthService struct {
	user *domain.User
	pair *ports.TokenPair
	err  error

	registerIn *ports.RegisterInput
	loginIn    *ports.LoginInput
	refreshIn  *ports.RefreshInput
	logoutIn   *ports.LogoutInput
	passwordIn *ports.ChangePasswordInput

	sessions []*domain.Session
	revoked  []string
}

func (s *stubAuthService) Register(_ context.Context, in ports.RegisterInput) (*domain.User, *ports.TokenPair, error) {
	s.registerIn = &in
	return s.user, s.pair, s.err
}

func (s *stubAuthService) Login(_ context.Context, in ports.LoginInput) (*domain.User, *ports.TokenPair, error) {
	s.loginIn = &in
	return s.user, s.pair, s.err
}

func (s *stubAuthService) Refresh(_ context.Context, in ports.RefreshInput) (*ports.TokenPair, error) {
	s.refreshIn = &in
	return s.pair, s.err
}

func (s *stubAuthService) Logout(_ context.Context, in ports.LogoutInput) error {
	s.logoutIn = &in
	return s.err
}

func (s *stubAuthService) ChangePassword(_ context.Context, in ports.ChangePasswordInput) error {
	s.passwordIn = &in
	return s.err
}

func (s *stubAuthService) CurrentUser(context.Context, string) (*domain.User, error) {
	return s.user, s.err
}

func (s *stubAuthService) ListSessions(context.Context, string) ([]*domain.Session, error) {
	return s.sessions, s.err
}

func (s *stubAuthService) RevokeSession(_ context.Context, _, sessionID string) error {
	s.revoked = append(s.revoked, sessionID)
	return s.err
}

func happyStub() *stubAuthService {
	return &stubAuthService{
		user: &domain.User{
			ID:     "user-1",
			Email:  "alice@example.com",
			Name:   "Alice",
			Role:   domain.RoleUser,
			Status: domain.StatusActive,
		},
		pair: &ports.TokenPair{
			AccessToken:  "access.jwt.token",
			RefreshToken: strings.Repeat("ab", 64),
			ExpiresIn:    900,
		},
	}
}

func newTestContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func newHandler(svc ports.AuthService) *AuthHandler {
	return NewAuthHandler(svc, 15*time.Minute, 7*24*time.Hour, false)
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	res := rec.Result()
	for _, cookie := range res.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestAuthHandler_Register(t *testing.T) {
	svc := happyStub()
	h := newHandler(svc)

	c, rec := newTestContext(t, http.MethodPost, "/auth/register",
		`{"email":"alice@example.com","password":"Str0ng!Pass","name":"Alice"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var body authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.User == nil || body.User.Email != "alice@example.com" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if body.AccessToken == "" || body.RefreshToken == "" || body.ExpiresIn != 900 {
		t.Fatalf("missing credentials in body: %s", rec.Body.String())
	}

	access := cookieByName(rec, middleware.AccessTokenCookie)
	refresh := cookieByName(rec, middleware.RefreshTokenCookie)
	if access == nil || refresh == nil {
		t.Fatalf("auth cookies not set")
	}
	if !access.HttpOnly || !refresh.HttpOnly {
		t.Fatalf("cookies must be http-only")
	}
	if svc.registerIn == nil || svc.registerIn.Email != "alice@example.com" {
		t.Fatalf("service not invoked with request payload: %+v", svc.registerIn)
	}
}

func TestAuthHandler_Register_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing email", `{"password":"Str0ng!Pass","name":"Alice"}`},
		{"bad email", `{"email":"not-an-email","password":"Str0ng!Pass","name":"Alice"}`},
		{"missing password", `{"email":"alice@example.com","name":"Alice"}`},
		{"missing name", `{"email":"alice@example.com","password":"Str0ng!Pass"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := happyStub()
			h := newHandler(svc)
			c, _ := newTestContext(t, http.MethodPost, "/auth/register", tc.body)

			err := h.Register(c)
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %v", err)
			}
			if svc.registerIn != nil {
				t.Fatalf("service reached with invalid payload")
			}
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	svc := happyStub()
	h := newHandler(svc)

	c, rec := newTestContext(t, http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"Str0ng!Pass"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if cookieByName(rec, middleware.RefreshTokenCookie) == nil {
		t.Fatalf("refresh cookie not set")
	}
}

func TestAuthHandler_Login_ServiceErrorPropagates(t *testing.T) {
	svc := happyStub()
	svc.err = domain.ErrInvalidCredentials
	h := newHandler(svc)

	c, _ := newTestContext(t, http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"wrong"}`)
	if err := h.Login(c); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected service error passed through, got %v", err)
	}
}

func TestAuthHandler_Refresh_BodyToken(t *testing.T) {
	svc := happyStub()
	h := newHandler(svc)
	token := strings.Repeat("cd", 64)

	c, rec := newTestContext(t, http.MethodPost, "/auth/refresh",
		`{"refreshToken":"`+token+`"}`)
	if err := h.Refresh(c); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if svc.refreshIn == nil || svc.refreshIn.RefreshToken != token {
		t.Fatalf("token not forwarded: %+v", svc.refreshIn)
	}
}

func TestAuthHandler_Refresh_CookieFallback(t *testing.T) {
	svc := happyStub()
	h := newHandler(svc)
	token := strings.Repeat("ef", 64)

	c, _ := newTestContext(t, http.MethodPost, "/auth/refresh", `{}`)
	c.Request().AddCookie(&http.Cookie{Name: middleware.RefreshTokenCookie, Value: token})
	if err := h.Refresh(c); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if svc.refreshIn == nil || svc.refreshIn.RefreshToken != token {
		t.Fatalf("cookie token not used: %+v", svc.refreshIn)
	}
}

func TestAuthHandler_Refresh_MalformedBodyToken(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"too short", `{"refreshToken":"abcd"}`},
		{"non-hex", `{"refreshToken":"` + strings.Repeat("zz", 64) + `"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := happyStub()
			h := newHandler(svc)
			c, _ := newTestContext(t, http.MethodPost, "/auth/refresh", tc.body)

			err := h.Refresh(c)
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %v", err)
			}
			if svc.refreshIn != nil {
				t.Fatalf("service reached with malformed token")
			}
		})
	}
}

func TestAuthHandler_Refresh_NoToken(t *testing.T) {
	h := newHandler(happyStub())
	c, _ := newTestContext(t, http.MethodPost, "/auth/refresh", `{}`)

	if err := h.Refresh(c); err != domain.ErrTokenInvalid {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	svc := happyStub()
	h := newHandler(svc)

	c, rec := newTestContext(t, http.MethodPost, "/auth/logout", `{"allDevices":true}`)
	c.Set(middleware.ContextUserID, "user-1")
	if err := h.Logout(c); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if svc.logoutIn == nil || !svc.logoutIn.AllDevices || svc.logoutIn.UserID != "user-1" {
		t.Fatalf("unexpected logout input: %+v", svc.logoutIn)
	}

	// Both cookies cleared.
	for _, name := range []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie} {
		cookie := cookieByName(rec, name)
		if cookie == nil || cookie.Value != "" || cookie.MaxAge >= 0 {
			t.Fatalf("cookie %s not cleared: %+v", name, cookie)
		}
	}
}

func TestAuthHandler_Logout_CookieToken(t *testing.T) {
	svc := happyStub()
	h := newHandler(svc)
	token := strings.Repeat("12", 64)

	// No body at all; the refresh cookie identifies the session to end.
	c, _ := newTestContext(t, http.MethodPost, "/auth/logout", "")
	c.Set(middleware.ContextUserID, "user-1")
	c.Request().AddCookie(&http.Cookie{Name: middleware.RefreshTokenCookie, Value: token})
	if err := h.Logout(c); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if svc.logoutIn == nil || svc.logoutIn.RefreshToken != token {
		t.Fatalf("cookie token not used: %+v", svc.logoutIn)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	svc := happyStub()
	h := newHandler(svc)

	c, rec := newTestContext(t, http.MethodGet, "/auth/me", "")
	c.Set(middleware.ContextUserID, "user-1")
	if err := h.Me(c); err != nil {
		t.Fatalf("me: %v", err)
	}

	var body authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.User == nil || body.User.ID != "user-1" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if body.AccessToken != "" || body.RefreshToken != "" {
		t.Fatalf("me must not mint credentials: %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("password material leaked: %s", rec.Body.String())
	}
}

func TestAuthHandler_Sessions(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	svc := happyStub()
	svc.sessions = []*domain.Session{
		{
			ID:        "session-1",
			UserID:    "user-1",
			TokenHash: "should-never-appear",
			UserAgent: "GutWise-iOS/2.1",
			IPAddress: "1.2.3.4",
			CreatedAt: now,
			ExpiresAt: now.Add(24 * time.Hour),
		},
	}
	h := newHandler(svc)

	c, rec := newTestContext(t, http.MethodGet, "/auth/sessions", "")
	c.Set(middleware.ContextUserID, "user-1")
	if err := h.Sessions(c); err != nil {
		t.Fatalf("sessions: %v", err)
	}

	var body sessionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Sessions) != 1 || body.Sessions[0].ID != "session-1" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if body.Sessions[0].Device != "GutWise-iOS/2.1" || body.Sessions[0].Address != "1.2.3.4" {
		t.Fatalf("device metadata missing: %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "should-never-appear") {
		t.Fatalf("token hash leaked: %s", rec.Body.String())
	}
}

func TestAuthHandler_RevokeSession(t *testing.T) {
	svc := happyStub()
	h := newHandler(svc)

	c, rec := newTestContext(t, http.MethodDelete, "/auth/sessions/session-9", "")
	c.Set(middleware.ContextUserID, "user-1")
	c.SetParamNames("id")
	c.SetParamValues("session-9")
	if err := h.RevokeSession(c); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(svc.revoked) != 1 || svc.revoked[0] != "session-9" {
		t.Fatalf("unexpected revocations: %v", svc.revoked)
	}
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	svc := happyStub()
	h := newHandler(svc)

	c, rec := newTestContext(t, http.MethodPut, "/auth/password",
		`{"currentPassword":"Old!Pass1x","newPassword":"N3w!Passw0rd"}`)
	c.Set(middleware.ContextUserID, "user-1")
	if err := h.ChangePassword(c); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if svc.passwordIn == nil || svc.passwordIn.NewPassword != "N3w!Passw0rd" {
		t.Fatalf("unexpected input: %+v", svc.passwordIn)
	}

	// Sessions are gone server-side, cookies must clear too.
	refresh := cookieByName(rec, middleware.RefreshTokenCookie)
	if refresh == nil || refresh.MaxAge >= 0 {
		t.Fatalf("refresh cookie not cleared: %+v", refresh)
	}
}
