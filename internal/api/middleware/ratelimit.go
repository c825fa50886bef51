package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/gutwise/diet-api/internal/api/metrics"
	"github.com/gutwise/diet-api/internal/core/domain"
	"github.com/gutwise/diet-api/internal/core/ports"
)

// RateTier names one throttle level and its budget.
type RateTier struct {
	Name   string
	Window time.Duration
	Max    int
}

// RateLimit rejects requests once the (client address, route) pair exhausts
// the tier's window budget. A limiter backend failure fails open with a
// warning: losing throttling beats losing the service.
func RateLimit(limiter ports.RateLimiter, tier RateTier, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := tier.Name + ":" + c.RealIP() + ":" + c.Path()

			res, err := limiter.Check(c.Request().Context(), key, tier.Window, tier.Max)
			if err != nil {
				log.Warn().Err(err).Str("tier", tier.Name).Msg("rate limiter unavailable")
				return next(c)
			}
			if !res.Allowed {
				metrics.RateLimitRejectionsTotal.WithLabelValues(tier.Name).Inc()
				retry := int(res.RetryAfter.Seconds()) + 1
				c.Response().Header().Set("Retry-After", strconv.Itoa(retry))
				return &domain.RateLimitError{RetryAfter: res.RetryAfter}
			}
			return next(c)
		}
	}
}
