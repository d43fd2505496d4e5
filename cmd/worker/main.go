package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/goalquest/internal/config"
	"github.com/benvon/goalquest/internal/credentials"
	"github.com/benvon/goalquest/internal/database"
	"github.com/benvon/goalquest/internal/ledger"
	"github.com/benvon/goalquest/internal/logger"
	"github.com/benvon/goalquest/internal/queue"
	"github.com/benvon/goalquest/internal/services/ai"
	"github.com/benvon/goalquest/internal/storage"
	"github.com/benvon/goalquest/internal/telemetry"
	"github.com/benvon/goalquest/internal/workers"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateWorker(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag
	zapLogger := logger.New(logger.Options{Debug: debugMode, File: cfg.LogFile, Stdout: true})
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_model", cfg.AIModel),
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	tp, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:     cfg.OTELEnabled,
		ServiceName: "goalquest-worker",
		Endpoint:    cfg.OTELEndpoint,
	})
	if err != nil {
		zapLogger.Warn("otel_tracer_init_failed", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
			zapLogger.Error("otel_tracer_shutdown_failed", zap.Error(err))
		}
	}()

	store, err := storage.Open(ctx, cfg.StoreURL)
	if err != nil {
		zapLogger.Fatal("store_connect_failed", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			zapLogger.Warn("store_close_failed", zap.Error(err))
		}
	}()

	jobQueue, err := queue.NewRabbitMQQueue(ctx, cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("rabbitmq_connect_failed", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("rabbitmq_close_failed", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq")

	key, source := credentials.Resolve(cfg.OpenAIKey)
	completer := ai.NewCompleter(ai.OpenAIConfig{
		APIKey:    key,
		BaseURL:   cfg.AIBaseURL,
		Model:     cfg.AIModel,
		Timeout:   cfg.AITimeout,
		Logger:    zapLogger,
		DebugMode: debugMode,
	})
	if completer == nil {
		// Every job would fail and land in the dead-letter queue
		zapLogger.Fatal("ai_setup_required")
	}
	zapLogger.Info("ai_assistant_configured", zap.String("key_source", string(source)))

	worker := workers.NewSubtaskWorker(
		ledger.New(database.NewGoalRepository(store), zapLogger),
		ai.NewAssistant(completer, zapLogger),
		zapLogger,
	)

	msgs, errs, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("rabbitmq_consume_failed", zap.Error(err))
	}
	zapLogger.Info("worker_started")

	if err := worker.Run(ctx, msgs, errs); err != nil && !errors.Is(err, context.Canceled) {
		zapLogger.Error("worker_stopped", zap.Error(err))
		return
	}
	zapLogger.Info("worker_stopped")
}
