package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// minSecretLength is the shortest signing secret accepted at startup.
// Anything below this aborts the process before it serves a request.
const minSecretLength = 32

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWT   JWTConfig
	Auth  AuthConfig
	Rate  RateConfig
	Mongo MongoConfig
	Redis RedisConfig
}

type JWTConfig struct {
	Secret     string `env:"JWT_SECRET"`
	Issuer     string `env:"JWT_ISSUER,   default=gutwise-diet-api"`
	Audience   string `env:"JWT_AUDIENCE, default=gutwise-app"`
	AccessTTL  string `env:"ACCESS_TOKEN_TTL,  default=15m"`
	RefreshTTL string `env:"REFRESH_TOKEN_TTL, default=7d"`

	// Parsed at startup by Validate; never read before then.
	AccessTTLDuration  time.Duration
	RefreshTTLDuration time.Duration
}

type AuthConfig struct {
	BcryptCost       int    `env:"BCRYPT_COST,        default=12"`
	MaxLoginAttempts int    `env:"MAX_LOGIN_ATTEMPTS, default=5"`
	LockoutDuration  string `env:"LOCKOUT_DURATION,   default=15m"`
	SessionRetention string `env:"SESSION_RETENTION,  default=30d"`
	AttemptRetention string `env:"ATTEMPT_RETENTION,  default=90d"`
	AuditBuffer      int    `env:"AUDIT_BUFFER,       default=256"`

	LockoutDurationParsed  time.Duration
	SessionRetentionParsed time.Duration
	AttemptRetentionParsed time.Duration
}

// RateConfig defines the three throttle tiers. "general" guards every
// route, "auth" the credential endpoints, "sensitive" the operations that
// mutate credentials or sessions.
type RateConfig struct {
	Backend string `env:"RATE_LIMIT_BACKEND, default=memory"`

	GeneralWindow string `env:"RATE_GENERAL_WINDOW, default=1m"`
	GeneralMax    int    `env:"RATE_GENERAL_MAX,    default=100"`

	AuthWindow string `env:"RATE_AUTH_WINDOW, default=1m"`
	AuthMax    int    `env:"RATE_AUTH_MAX,    default=10"`

	SensitiveWindow string `env:"RATE_SENSITIVE_WINDOW, default=15m"`
	SensitiveMax    int    `env:"RATE_SENSITIVE_MAX,    default=5"`

	GeneralWindowParsed   time.Duration
	AuthWindowParsed      time.Duration
	SensitiveWindowParsed time.Duration
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=gutwise"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate checks secrets and parses every duration string exactly once.
// Any failure here is fatal: a service with a short secret or an
// unparsable lifetime must not start.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < minSecretLength {
		return fmt.Errorf("config: JWT_SECRET must be at least %d characters", minSecretLength)
	}

	durations := []struct {
		name  string
		value string
		out   *time.Duration
	}{
		{"ACCESS_TOKEN_TTL", c.JWT.AccessTTL, &c.JWT.AccessTTLDuration},
		{"REFRESH_TOKEN_TTL", c.JWT.RefreshTTL, &c.JWT.RefreshTTLDuration},
		{"LOCKOUT_DURATION", c.Auth.LockoutDuration, &c.Auth.LockoutDurationParsed},
		{"SESSION_RETENTION", c.Auth.SessionRetention, &c.Auth.SessionRetentionParsed},
		{"ATTEMPT_RETENTION", c.Auth.AttemptRetention, &c.Auth.AttemptRetentionParsed},
		{"RATE_GENERAL_WINDOW", c.Rate.GeneralWindow, &c.Rate.GeneralWindowParsed},
		{"RATE_AUTH_WINDOW", c.Rate.AuthWindow, &c.Rate.AuthWindowParsed},
		{"RATE_SENSITIVE_WINDOW", c.Rate.SensitiveWindow, &c.Rate.SensitiveWindowParsed},
	}
	for _, d := range durations {
		parsed, err := ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("config: %s: %w", d.name, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("config: %s must be positive", d.name)
		}
		*d.out = parsed
	}

	switch c.Rate.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: RATE_LIMIT_BACKEND must be memory or redis, got %q", c.Rate.Backend)
	}

	if c.Auth.MaxLoginAttempts < 1 {
		return fmt.Errorf("config: MAX_LOGIN_ATTEMPTS must be at least 1")
	}
	return nil
}

// ParseDuration accepts everything time.ParseDuration does, plus whole-day
// ("7d") and whole-week ("2w") suffixes that lifetime configuration is
// usually written in.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	if n, ok := strings.CutSuffix(s, "d"); ok {
		if days, err := strconv.Atoi(n); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	if n, ok := strings.CutSuffix(s, "w"); ok {
		if weeks, err := strconv.Atoi(n); err == nil {
			return time.Duration(weeks) * 7 * 24 * time.Hour, nil
		}
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}
