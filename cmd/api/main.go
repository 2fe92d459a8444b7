// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelamos/orderhub/internal/admin"
	"github.com/angelamos/orderhub/internal/auth"
	"github.com/angelamos/orderhub/internal/batch"
	"github.com/angelamos/orderhub/internal/config"
	"github.com/angelamos/orderhub/internal/core"
	"github.com/angelamos/orderhub/internal/directory"
	"github.com/angelamos/orderhub/internal/health"
	"github.com/angelamos/orderhub/internal/middleware"
	"github.com/angelamos/orderhub/internal/policy"
	"github.com/angelamos/orderhub/internal/principal"
	"github.com/angelamos/orderhub/internal/server"
	"github.com/angelamos/orderhub/internal/store"
	"github.com/angelamos/orderhub/internal/tenant"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to optional yaml config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	docStore := store.NewPostgresStore(db.DB)
	provider := directory.NewPostgresProvider(db.DB)
	matrix := policy.Default()

	tenantRepo := tenant.NewRepository(docStore)
	principalRepo := principal.NewRepository(docStore)
	partitioner := principal.NewPartitioner(principalRepo, matrix)
	writer := batch.NewWriter(docStore, cfg.Import.ChunkSize, logger)

	principalSvc := principal.NewService(principal.ServiceConfig{
		Tenants:     tenantRepo,
		Repo:        principalRepo,
		Provider:    provider,
		Partitioner: partitioner,
		Writer:      writer,
		ListLimit:   cfg.Import.ListLimit,
		Logger:      logger,
	})
	reconciler := principal.NewReconciler(principal.ReconcilerConfig{
		Tenants:           tenantRepo,
		Repo:              principalRepo,
		Provider:          provider,
		Partitioner:       partitioner,
		Matrix:            matrix,
		Writer:            writer,
		CreateConcurrency: cfg.Import.CreateConcurrency,
		Logger:            logger,
	})
	principalHandler := principal.NewHandler(principalSvc, reconciler)

	authSvc := auth.NewService(provider, principalSvc, jwtManager, redis.Client)
	authHandler := auth.NewHandler(authSvc)

	healthHandler := health.NewHandler(
		health.NamedChecker{Name: "database", Checker: db},
		health.NamedChecker{Name: "redis", Checker: redis},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(authSvc)
	adminOnly := middleware.RequireAdminTier

	// Tier budgets only apply once the authenticator has put the tier
	// claim on the context, so the limiter is chained after it.
	tierLimiter := middleware.TieredRateLimiter(redis.Client, middleware.DefaultTiers)
	authedLimited := func(next http.Handler) http.Handler {
		return authenticator(tierLimiter(next))
	}

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator)
		principalHandler.RegisterRoutes(r, authedLimited, adminOnly)
		adminHandler.RegisterRoutes(r, authedLimited, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
