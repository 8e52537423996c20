package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/riskibarqy/kart-league/internal/app"
	"github.com/riskibarqy/kart-league/internal/config"
	"github.com/riskibarqy/kart-league/internal/observability"
	"github.com/riskibarqy/kart-league/internal/platform/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Service: cfg.ServiceName + "-worker", Version: cfg.ServiceVersion})
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	obs, err := observability.Start(cfg, "worker", logger)
	if err != nil {
		logger.Error("start observability", "error", err)
		os.Exit(1)
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}
	defer func() { _ = container.Close() }()

	cycle := container.Services.Cycle
	if cfg.WorkerRunOnce {
		if _, err := cycle.RunCycle(ctx); err != nil {
			logger.Error("day cycle failed", "error", err)
			os.Exit(1)
		}
		return
	}

	logger.Info("worker started", "settlement_hour_utc", cfg.SettlementHourUTC, "storage", cfg.StorageDriver)
	if err := cycle.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
