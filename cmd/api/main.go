// Package main is the entrypoint for the LYNKS Portal analytics API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/lynks/portal/internal/aggregate"
	"github.com/lynks/portal/internal/analytics"
	"github.com/lynks/portal/internal/cache"
	"github.com/lynks/portal/internal/config"
	"github.com/lynks/portal/internal/geoip"
	"github.com/lynks/portal/internal/handler"
	"github.com/lynks/portal/internal/metrics"
	"github.com/lynks/portal/internal/middleware"
	"github.com/lynks/portal/internal/repository"
	"github.com/lynks/portal/internal/server"
	"github.com/lynks/portal/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Repositories
	eventRepo := repository.NewEventRepository(repo)
	rollupRepo := repository.NewRollupRepository(repo)
	businessRepo := repository.NewBusinessRepository(repo)

	// Shared in-memory metrics, exposed on /metrics.
	recorder := metrics.NewInMemory()

	// Aggregation pipeline
	geoResolver := geoip.NewResolver(cfg.GeoAPIURL, cfg.GeoTimeout, logger, recorder)
	publisher := analytics.NewPublisher(cacheClient.Client(), logger, recorder)
	aggregator := aggregate.NewAggregator(eventRepo, rollupRepo, businessRepo, logger, recorder)

	// Services
	trackingService := service.NewTrackingService(eventRepo, businessRepo, cacheClient, geoResolver, publisher, logger, recorder)
	queryService := service.NewQueryService(rollupRepo, eventRepo, businessRepo, logger, recorder)

	// Handlers
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	trackHandler := handler.NewTrackHandler(trackingService, logger, cfg.MaxRequestBodySize)
	analyticsHandler := handler.NewAnalyticsHandler(queryService, logger)
	apiKeyHandler := handler.NewAPIKeyHandler(logger, repo)
	metricsHandler := handler.NewMetricsHandler(recorder)

	r := setupRouter(healthHandler, trackHandler, analyticsHandler, apiKeyHandler, metricsHandler, repo, cacheClient, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Aggregation worker runs inside this process; it must drain its current
	// batch before the connections behind it go away.
	if cfg.WorkerEnabled {
		worker := analytics.NewWorker(cacheClient.Client(), aggregator, logger, analytics.NewConsumerID(), recorder)
		worker.SetBatchSize(cfg.WorkerBatchSize)

		workerCtx, workerCancel := context.WithCancel(ctx)
		defer workerCancel()
		go func() {
			if err := worker.Run(workerCtx); err != nil {
				logger.Error("aggregation worker stopped", "error", err)
			}
		}()
		srv.OnShutdown("aggregation worker", worker.Shutdown)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"worker_enabled", cfg.WorkerEnabled,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	healthHandler *handler.HealthHandler,
	trackHandler *handler.TrackHandler,
	analyticsHandler *handler.AnalyticsHandler,
	apiKeyHandler *handler.APIKeyHandler,
	metricsHandler *handler.MetricsHandler,
	repo *repository.Repository,
	cacheClient *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	// Health and metrics endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	authCfg := middleware.AuthConfig{
		Logger:     logger,
		Repository: repo,
		Cache:      cacheClient,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:       logger,
		Cache:        cacheClient,
		APIEnabled:   cfg.RateLimitAPIEnabled,
		TrackEnabled: cfg.RateLimitTrackEnabled,
		TrackRPS:     cfg.RateLimitTrackRPS,
		TrackBurst:   cfg.RateLimitTrackBurst,
	}

	// Public ingestion endpoint. Called cross-origin by the browser tracker
	// on every portal page; CORS is handled inside the handler.
	r.Route("/api/analytics", func(r chi.Router) {
		r.With(middleware.RateLimitIP(rateLimitCfg)).Post("/track", trackHandler.Track)
		r.Options("/track", trackHandler.Preflight)
	})

	// Dashboard API (requires authentication)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(dashboardCORS(cfg)))
		r.Use(middleware.Auth(authCfg))
		r.Use(middleware.RateLimitAPI(rateLimitCfg))

		r.Route("/analytics", func(r chi.Router) {
			r.With(middleware.RequireAdmin()).Get("/platform", analyticsHandler.GetPlatformAnalytics)
			r.With(middleware.RequireRead()).Get("/businesses/{businessID}", analyticsHandler.GetBusinessAnalytics)
			r.With(middleware.RequireRead()).Get("/businesses/{businessID}/export", analyticsHandler.ExportBusinessAnalytics)
		})

		// API key management (requires admin scope for mutations)
		r.Route("/api-keys", func(r chi.Router) {
			r.With(middleware.RequireRead()).Get("/", apiKeyHandler.ListAPIKeys)
			r.With(middleware.RequireAdmin()).Post("/", apiKeyHandler.CreateAPIKey)
			r.With(middleware.RequireAdmin()).Delete("/{key_id}", apiKeyHandler.RevokeAPIKey)
			r.With(middleware.RequireAdmin()).Post("/{key_id}/rotate", apiKeyHandler.RotateAPIKey)
		})
	})

	// 404 and 405 handlers
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}

// dashboardCORS builds the CORS policy for the authenticated dashboard API.
func dashboardCORS(cfg *config.Config) middleware.CORSConfig {
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	return corsCfg
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
