package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/analytics"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/api"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/availability"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/config"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/db"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/inventory"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/jobs"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/middleware"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/observability"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/ratelimit"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/reach"
)

const (
	reloadJob        = "snapshot-reload"
	samplingStatsJob = "sampling-stats"
	rateLimitJob     = "rate-limit-prune"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLoggerWithService(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

// loadTables reads the capacity baseline and reach table. Without a file the
// built-in tables are used.
func loadTables(path string) (inventory.Baseline, *reach.Model, error) {
	if path == "" {
		return inventory.DefaultBaseline(), reach.DefaultModel(), nil
	}
	baseline, err := inventory.LoadFile(path)
	if err != nil {
		return inventory.Baseline{}, nil, err
	}
	model, err := reach.LoadFile(path)
	if err != nil {
		return inventory.Baseline{}, nil, err
	}
	return baseline.Merge(inventory.DefaultBaseline()), model, nil
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	baseline, model, err := loadTables(cfg.BaselineFile)
	if err != nil {
		return fmt.Errorf("load business tables: %w", err)
	}

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	metricsRegistry := observability.NewPrometheusRegistry()

	var cache *db.RedisStore
	if cfg.CacheEnabled {
		cache, err = db.InitRedis(cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, result caching disabled", zap.Error(err))
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	var queryLog analytics.QueryLog
	if cfg.QueryLogEnabled {
		ch, err := analytics.InitClickHouse(cfg.ClickHouseDSN, cfg.CHMaxOpenConns, cfg.CHMaxIdleConns, cfg.CHConnMaxLifetime, cfg.CHConnMaxIdleTime)
		if err != nil {
			return fmt.Errorf("failed to connect clickhouse: %w", err)
		}
		defer ch.Close()
		queryLog = ch
	}

	store := db.NewSnapshotStore(pg, baseline, cfg.CapacityFloor, db.BreakerSettings{
		FailureThreshold: cfg.ReloadFailureThreshold,
		Cooldown:         cfg.ReloadCooldown,
	}, logger, metricsRegistry)

	loadCtx, cancel := context.WithTimeout(ctx, cfg.ReloadTimeout)
	if _, err := store.Refresh(loadCtx); err != nil {
		// Health reports "starting" until a scheduled reload succeeds.
		logger.Error("initial snapshot load failed", zap.Error(err))
	}
	cancel()

	engine := availability.NewEngine(model, logger, metricsRegistry)
	srvDeps := api.NewServer(logger, engine, store, cache, queryLog, metricsRegistry, cfg)

	scheduler := jobs.NewScheduler(logger)
	if err := scheduler.Register(reloadJob, cfg.ReloadSchedule, cfg.ReloadTimeout, func(ctx context.Context) error {
		_, err := store.Refresh(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("schedule snapshot reload: %w", err)
	}
	if err := scheduler.Register(samplingStatsJob, "@hourly", 0, func(ctx context.Context) error {
		observability.LogSamplingStats(logger)
		return nil
	}); err != nil {
		return fmt.Errorf("schedule sampling stats: %w", err)
	}
	if cfg.RateLimitEnabled {
		limiter := ratelimit.NewClientLimiter(ratelimit.Config{
			Capacity:   cfg.RateLimitBurst,
			RefillRate: cfg.RateLimitPerSecond,
			Enabled:    true,
		}, metricsRegistry)
		srvDeps.Limiter = limiter
		if err := scheduler.Register(rateLimitJob, "@every 5m", 0, func(ctx context.Context) error {
			if n := limiter.Prune(cfg.RateLimitIdle); n > 0 {
				logger.Debug("pruned idle rate limit buckets", zap.Int("clients", n))
			}
			return nil
		}); err != nil {
			return fmt.Errorf("schedule rate limit prune: %w", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	r := mux.NewRouter()
	r.Use(middleware.WithRequestID, middleware.WithTraceLogger(logger))
	srvDeps.RegisterRoutes(r)
	r.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(r, cfg.ServiceName),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Availability server running", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
