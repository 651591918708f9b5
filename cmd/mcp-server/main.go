package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/availability"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/config"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/db"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/inventory"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/jobs"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/observability"
	"github.com/anja687gutierrez-jpg/ops-hub-portal-sub000/internal/reach"
)

func main() {
	cfg := config.Load()

	// The logger writes to stderr; stdout belongs to the stdio transport.
	logger, err := observability.InitLoggerWithService(cfg.ServiceName + "-mcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger, cfg); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseline := inventory.DefaultBaseline()
	model := reach.DefaultModel()
	if cfg.BaselineFile != "" {
		b, err := inventory.LoadFile(cfg.BaselineFile)
		if err != nil {
			return fmt.Errorf("load baseline: %w", err)
		}
		baseline = b.Merge(baseline)
		if model, err = reach.LoadFile(cfg.BaselineFile); err != nil {
			return fmt.Errorf("load reach table: %w", err)
		}
	}

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	logger.Info("Connected to PostgreSQL")

	metrics := observability.NewNoOpRegistry()
	store := db.NewSnapshotStore(pg, baseline, cfg.CapacityFloor, db.BreakerSettings{
		FailureThreshold: cfg.ReloadFailureThreshold,
		Cooldown:         cfg.ReloadCooldown,
	}, logger, metrics)

	loadCtx, cancel := context.WithTimeout(ctx, cfg.ReloadTimeout)
	snap, err := store.Refresh(loadCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("load booking snapshot: %w", err)
	}
	logger.Info("Loaded booking snapshot",
		zap.String("version", snap.Version),
		zap.Int("bookings", len(snap.Intervals)),
		zap.Int("discarded", snap.Discarded))

	scheduler := jobs.NewScheduler(logger)
	if err := scheduler.Register("snapshot-reload", cfg.ReloadSchedule, cfg.ReloadTimeout, func(ctx context.Context) error {
		_, err := store.Refresh(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("schedule snapshot reload: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	tools := &AvailabilityTools{
		engine:    availability.NewEngine(model, logger, metrics),
		snapshots: store,
		logger:    logger,
		now:       time.Now,
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "availability",
		Version: "1.0.0",
	}, nil)
	tools.Register(server)

	// Protocol traffic is buffered so it can be attached to a fatal error.
	var logBuffer bytes.Buffer
	transport := &mcp.LoggingTransport{
		Transport: &mcp.StdioTransport{},
		Writer:    &logBuffer,
	}

	logger.Info("MCP server running via stdio")
	if err := server.Run(ctx, transport); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w (transcript: %s)", err, logBuffer.String())
	}
	return nil
}
