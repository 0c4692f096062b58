package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/currency"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting reconcile-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	st, err := backend.New(cfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize storage backend", "error", err, "backend", cfg.Backend)
		os.Exit(1)
	}
	defer st.Close()

	rates, err := currency.ParseTable(cfg.ExchangeRates)
	if err != nil {
		logger.Error("Failed to parse exchange rates", "error", err)
		os.Exit(1)
	}

	// Initialize AMQP client for publishing reconciliation reports
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without event publishing", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - reconciliation reports will only be logged")
	}

	materializer := services.NewMaterializer(st, rates)
	reconciler := services.NewReconciler(st, materializer, cfg.ReconcileParallelism)
	if amqpClient != nil {
		reconciler = reconciler.WithPublisher(amqpClient)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Reconciliation sweep configured",
		"interval", cfg.ReconcileInterval,
		"parallelism", cfg.ReconcileParallelism)

	ticker := time.NewTicker(cfg.ReconcileInterval)
	defer ticker.Stop()

	// Run initial sweep on startup
	logger.Info("Running initial reconciliation sweep...")
	sweep(ctx, st, reconciler, logger)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				logger.Info("Running reconciliation sweep...")
				sweep(ctx, st, reconciler, logger)
				logger.Info("Sweep complete",
					"next_check", now.Add(cfg.ReconcileInterval).Format("15:04:05"))
			}
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down reconcile-worker...")
	cancel()
	logger.Info("Reconcile-worker shutdown complete")
}

// sweep reconciles every workspace. One workspace failing never blocks
// the others.
func sweep(ctx context.Context, st services.ReconcilerStore, reconciler *services.Reconciler, logger *applog.Logger) {
	workspaces, err := st.Workspaces(ctx)
	if err != nil {
		logger.Error("Failed to list workspaces", "error", err)
		return
	}

	var created, skipped int
	for _, ws := range workspaces {
		report, err := reconciler.Reconcile(ctx, ws.ID, time.Now())
		if err != nil {
			logger.Error("Workspace reconciliation failed", "workspace_id", ws.ID, "error", err)
			continue
		}
		created += report.CreatedCount
		skipped += report.SkippedCount
	}

	logger.Info("Sweep finished",
		"workspaces", len(workspaces),
		"created", created,
		"skipped", skipped)
}
