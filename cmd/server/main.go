package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gutwise/diet-api/internal/api"
	"github.com/gutwise/diet-api/internal/core/ports"
	"github.com/gutwise/diet-api/internal/infrastructure/audit"
	"github.com/gutwise/diet-api/internal/infrastructure/config"
	mongostore "github.com/gutwise/diet-api/internal/infrastructure/db/mongo"
	redisstore "github.com/gutwise/diet-api/internal/infrastructure/db/redis"
	"github.com/gutwise/diet-api/internal/ratelimit"
	"github.com/gutwise/diet-api/pkg/logger"
)

const (
	shutdownTimeout      = 10 * time.Second
	sessionSweepInterval = time.Hour
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		fallback := logger.Init(logger.Options{})
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// --- MongoDB ---
	client, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongodb disconnect failed")
		}
	}()

	if err := mongostore.EnsureIndexes(ctx, db, cfg.Auth.SessionRetentionParsed, cfg.Auth.AttemptRetentionParsed); err != nil {
		log.Fatal().Err(err).Msg("index bootstrap failed")
	}

	// --- Rate limiter backend ---
	var (
		limiter     ports.RateLimiter
		redisClient *redis.Client
	)
	switch cfg.Rate.Backend {
	case "redis":
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer rdb.Close()
		redisClient = rdb
		limiter = redisstore.NewLimiter(rdb)
	default:
		mem := ratelimit.New(0)
		mem.Start()
		defer mem.Stop()
		limiter = mem
	}

	// --- Audit trail ---
	attemptRepo := mongostore.NewAttemptRepository(db)
	auditDispatcher := audit.NewDispatcher(attemptRepo, cfg.Auth.AuditBuffer, log)
	defer auditDispatcher.Close()

	// --- Session garbage collection (TTL index is the backstop) ---
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go sweepSessions(sweepCtx, mongostore.NewSessionRepository(db), cfg.Auth.SessionRetentionParsed, log)

	// --- HTTP server ---
	e := api.NewRouter(api.Deps{
		Config:  cfg,
		DB:      db,
		Redis:   redisClient,
		Limiter: limiter,
		Audit:   auditDispatcher,
		Log:     log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// sweepSessions periodically deletes sessions past the retention window so
// forensic rows do not pile up between TTL monitor passes.
func sweepSessions(ctx context.Context, sessions ports.SessionRepository, retention time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired(ctx, retention)
			if err != nil {
				log.Warn().Err(err).Msg("session sweep failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("expired sessions swept")
			}
		}
	}
}
