package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gutwise/diet-api/internal/api/middleware"
	"github.com/gutwise/diet-api/internal/core/domain"
	"github.com/gutwise/diet-api/internal/core/ports"
)

// AuthHandler owns the /auth route family.
type AuthHandler struct {
	service       ports.AuthService
	accessTTL     time.Duration
	refreshTTL    time.Duration
	secureCookies bool
}

func NewAuthHandler(service ports.AuthService, accessTTL, refreshTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		service:       service,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		secureCookies: secureCookies,
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, pair, err := h.service.Register(c.Request().Context(), ports.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		UserAgent: c.Request().UserAgent(),
		IPAddress: c.RealIP(),
	})
	if err != nil {
		return err
	}

	h.setAuthCookies(c, pair)
	return c.JSON(http.StatusCreated, authResponse{
		Success:      true,
		User:         toUserResponse(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, pair, err := h.service.Login(c.Request().Context(), ports.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: c.Request().UserAgent(),
		IPAddress: c.RealIP(),
	})
	if err != nil {
		return err
	}

	h.setAuthCookies(c, pair)
	return c.JSON(http.StatusOK, authResponse{
		Success:      true,
		User:         toUserResponse(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// Refresh handles POST /auth/refresh. The token may arrive in the body or,
// for browser clients, in the refresh cookie.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	// omitempty keeps the cookie fallback open; a token in the body must
	// still have the right shape before it reaches the ledger.
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token := req.RefreshToken
	if token == "" {
		if cookie, err := c.Cookie(middleware.RefreshTokenCookie); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return domain.ErrTokenInvalid
	}

	pair, err := h.service.Refresh(c.Request().Context(), ports.RefreshInput{
		RefreshToken: token,
		UserAgent:    c.Request().UserAgent(),
		IPAddress:    c.RealIP(),
	})
	if err != nil {
		return err
	}

	h.setAuthCookies(c, pair)
	return c.JSON(http.StatusOK, authResponse{
		Success:      true,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// Logout handles POST /auth/logout (auth required). The body is optional:
// with allDevices every session dies, with a refreshToken only that one,
// with neither the server state is untouched and only cookies clear.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutRequest
	_ = c.Bind(&req) // body is optional

	token := req.RefreshToken
	if token == "" && !req.AllDevices {
		if cookie, err := c.Cookie(middleware.RefreshTokenCookie); err == nil {
			token = cookie.Value
		}
	}

	err := h.service.Logout(c.Request().Context(), ports.LogoutInput{
		UserID:       currentUserID(c),
		RefreshToken: token,
		AllDevices:   req.AllDevices,
	})
	if err != nil {
		return err
	}

	h.clearAuthCookies(c)
	return c.JSON(http.StatusOK, okResponse{Success: true})
}

// Me handles GET /auth/me (auth required).
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.service.CurrentUser(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse{Success: true, User: toUserResponse(user)})
}

// Sessions handles GET /auth/sessions (auth required).
func (h *AuthHandler) Sessions(c echo.Context) error {
	sessions, err := h.service.ListSessions(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:        s.ID,
			Device:    s.UserAgent,
			Address:   s.IPAddress,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
		})
	}
	return c.JSON(http.StatusOK, sessionsResponse{Success: true, Sessions: out})
}

// RevokeSession handles DELETE /auth/sessions/:id (auth required, scoped
// to the caller's own sessions).
func (h *AuthHandler) RevokeSession(c echo.Context) error {
	if err := h.service.RevokeSession(c.Request().Context(), currentUserID(c), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, okResponse{Success: true})
}

// ChangePassword handles PUT /auth/password (auth required, sensitive tier).
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	err := h.service.ChangePassword(c.Request().Context(), ports.ChangePasswordInput{
		UserID:          currentUserID(c),
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return err
	}

	// All refresh sessions are gone; the client must log in again.
	h.clearAuthCookies(c)
	return c.JSON(http.StatusOK, okResponse{Success: true})
}

func toUserResponse(u *domain.User) *userResponse {
	return &userResponse{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         u.Role,
		Status:       u.Status,
		LoginCount:   u.LoginCount,
		LastActiveAt: u.LastActiveAt,
		CreatedAt:    u.CreatedAt,
	}
}

func (h *AuthHandler) setAuthCookies(c echo.Context, pair *ports.TokenPair) {
	c.SetCookie(h.cookie(middleware.AccessTokenCookie, pair.AccessToken, h.accessTTL))
	c.SetCookie(h.cookie(middleware.RefreshTokenCookie, pair.RefreshToken, h.refreshTTL))
}

func (h *AuthHandler) clearAuthCookies(c echo.Context) {
	c.SetCookie(h.cookie(middleware.AccessTokenCookie, "", -time.Second))
	c.SetCookie(h.cookie(middleware.RefreshTokenCookie, "", -time.Second))
}

func (h *AuthHandler) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}
