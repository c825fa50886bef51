package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gutwise/diet-api/internal/api/handler"
	"github.com/gutwise/diet-api/internal/api/middleware"
	"github.com/gutwise/diet-api/internal/core/ports"
	"github.com/gutwise/diet-api/internal/core/service"
	"github.com/gutwise/diet-api/internal/infrastructure/audit"
	"github.com/gutwise/diet-api/internal/infrastructure/config"
	mongostore "github.com/gutwise/diet-api/internal/infrastructure/db/mongo"
)

// Deps carries the externally constructed collaborators the router wires
// into handlers. The limiter and audit dispatcher have their own lifecycle
// (Start/Stop, Close) owned by main, not the router.
type Deps struct {
	Config  *config.Config
	DB      *mongo.Database
	Redis   *redis.Client // nil unless the Redis limiter backend is active
	Limiter ports.RateLimiter
	Audit   *audit.Dispatcher
	Log     zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())

	cfg := d.Config
	general := middleware.RateTier{Name: "general", Window: cfg.Rate.GeneralWindowParsed, Max: cfg.Rate.GeneralMax}
	auth := middleware.RateTier{Name: "auth", Window: cfg.Rate.AuthWindowParsed, Max: cfg.Rate.AuthMax}
	sensitive := middleware.RateTier{Name: "sensitive", Window: cfg.Rate.SensitiveWindowParsed, Max: cfg.Rate.SensitiveMax}

	e.Use(middleware.RateLimit(d.Limiter, general, d.Log))

	// --- Dependencies ---
	userRepo := mongostore.NewUserRepository(d.DB)
	sessionRepo := mongostore.NewSessionRepository(d.DB)
	lockoutRepo := mongostore.NewLockoutRepository(d.DB)

	lockouts := service.NewLockoutService(lockoutRepo, cfg.Auth.MaxLoginAttempts, cfg.Auth.LockoutDurationParsed)
	hasher := service.NewPasswordHasher(cfg.Auth.BcryptCost)
	tokens := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.AccessTTLDuration)

	authService := service.NewAuthService(
		userRepo, sessionRepo, lockouts, hasher, tokens,
		d.Audit, cfg.JWT.RefreshTTLDuration, d.Log,
	)

	secureCookies := cfg.Env == "production"
	authHandler := handler.NewAuthHandler(authService, cfg.JWT.AccessTTLDuration, cfg.JWT.RefreshTTLDuration, secureCookies)
	requireAuth := middleware.Auth(tokens)

	authLimit := middleware.RateLimit(d.Limiter, auth, d.Log)
	sensitiveLimit := middleware.RateLimit(d.Limiter, sensitive, d.Log)

	// --- Auth routes ---
	g := e.Group("/auth")
	g.POST("/register", authHandler.Register, authLimit)
	g.POST("/login", authHandler.Login, authLimit)
	g.POST("/refresh", authHandler.Refresh, authLimit)
	g.POST("/logout", authHandler.Logout, requireAuth)
	g.GET("/me", authHandler.Me, requireAuth)
	g.GET("/sessions", authHandler.Sessions, requireAuth)
	g.DELETE("/sessions/:id", authHandler.RevokeSession, requireAuth, sensitiveLimit)
	g.PUT("/password", authHandler.ChangePassword, requireAuth, sensitiveLimit)

	// --- Observability (no auth required) ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.DB, d.Redis)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)

	return e
}
