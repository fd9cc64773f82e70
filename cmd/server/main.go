package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dukerupert/shopfront/internal"
	"github.com/dukerupert/shopfront/internal/cart"
	"github.com/dukerupert/shopfront/internal/catalog"
	"github.com/dukerupert/shopfront/internal/domain"
	"github.com/dukerupert/shopfront/internal/events"
	"github.com/dukerupert/shopfront/internal/handler/api"
	"github.com/dukerupert/shopfront/internal/jobs"
	"github.com/dukerupert/shopfront/internal/locker"
	"github.com/dukerupert/shopfront/internal/memory"
	"github.com/dukerupert/shopfront/internal/middleware"
	"github.com/dukerupert/shopfront/internal/postgres"
	"github.com/dukerupert/shopfront/internal/router"
	"github.com/dukerupert/shopfront/internal/routes"
	"github.com/dukerupert/shopfront/internal/session"
	"github.com/dukerupert/shopfront/internal/telemetry"
	"github.com/dukerupert/shopfront/internal/worker"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	// Initialize Sentry error tracking
	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	// Persistence
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Same-session serialization
	lock, closeLock, err := openLocker(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLock()

	// Domain events
	publisher, err := openPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewMetrics("shopfront", registry)
	businessMetrics := telemetry.NewBusinessMetrics("shopfront", registry)

	// Services
	catalogService := catalog.NewService(store,
		catalog.WithPublisher(publisher),
		catalog.WithMetrics(businessMetrics),
		catalog.WithLogger(logger),
	)
	cartService := cart.NewService(store, lock,
		cart.WithPublisher(publisher),
		cart.WithMetrics(businessMetrics),
		cart.WithLogger(logger),
	)

	// ==========================================================================
	// Build route dependencies
	// ==========================================================================

	apiDeps := routes.APIDeps{
		CartHandler:     api.NewCartHandler(cartService),
		CategoryHandler: api.NewCategoryHandler(catalogService),
		ProductHandler:  api.NewProductHandler(catalogService),
		SKUHandler:      api.NewSKUHandler(catalogService),
		HealthHandler:   api.NewHealthHandler(store, cfg.Version),
	}

	// ==========================================================================
	// Configure middleware and routes
	// ==========================================================================

	rateLimitConfig := middleware.DefaultRateLimiterConfig()
	rateLimitConfig.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
	rateLimitConfig.BurstSize = cfg.RateLimit.Burst
	rateLimiter := middleware.NewRateLimiter(rateLimitConfig)
	defer rateLimiter.Stop()

	r := router.New(
		router.Recovery(logger),
		telemetry.SentryMiddleware(),
		middleware.RequestID,
		middleware.WithClientIP(),
		middleware.Session(session.NewResolver(), logger),
		middleware.WithRequestLogger(logger),
		httpMetrics.Middleware,
		middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig()),
		router.CORS(cfg.CORSOrigins),
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
		middleware.Timeout(middleware.DefaultTimeout),
		rateLimiter.Middleware,
		router.Logger(logger),
	)

	// Metrics endpoint (should be protected in production via firewall)
	r.Get("/metrics", httpMetrics.Handler().ServeHTTP)

	routes.RegisterAPIRoutes(r, apiDeps)

	// ==========================================================================
	// Background jobs
	// ==========================================================================

	scheduler := worker.NewScheduler(worker.Config{RunOnStart: true}, businessMetrics, logger)
	scheduler.Every(cfg.Cart.SweepInterval, jobs.NewCartCleanup(store, cfg.Cart.TTL, businessMetrics, logger))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler stopped", "error", err)
		}
	}()

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", server.Addr, "store", cfg.Store.Driver, "lock", cfg.Lock.Driver, "events", cfg.Events.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		stop()
		wg.Wait()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	wg.Wait()

	return nil
}

// openStore connects the configured store. For postgres it runs migrations
// over database/sql first, then serves from a pgx pool.
func openStore(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (domain.Store, func(), error) {
	if cfg.Store.Driver == "memory" {
		logger.Warn("Using in-memory store; data will not survive a restart")
		return memory.New(), func() {}, nil
	}

	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, nil, fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(ctx, sqlDB, logger); err != nil {
		return nil, nil, fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return postgres.New(pool), pool.Close, nil
}

func openLocker(cfg *internal.Config, logger *slog.Logger) (locker.Locker, func(), error) {
	if cfg.Lock.Driver != "redis" {
		return locker.NewLocal(), func() {}, nil
	}

	client, err := locker.NewRedisClient(cfg.Lock.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis initialization failed: %w", err)
	}
	logger.Info("Using redis session locks")
	return locker.NewRedis(client, locker.WithTTL(cfg.Lock.TTL), locker.WithLogger(logger)), func() { client.Close() }, nil
}

func openPublisher(cfg *internal.Config, logger *slog.Logger) (events.Publisher, error) {
	switch cfg.Events.Driver {
	case "nats":
		p, err := events.DialNATS(cfg.Events.NATSURL, cfg.Events.SubjectPrefix)
		if err != nil {
			return nil, err
		}
		logger.Info("Publishing events to NATS", "url", cfg.Events.NATSURL)
		return p, nil
	case "kafka":
		logger.Info("Publishing events to Kafka", "brokers", cfg.Events.KafkaBrokers, "topic", cfg.Events.KafkaTopic)
		return events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic), nil
	default:
		return events.Noop{}, nil
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
