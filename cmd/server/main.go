package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/goalquest/internal/config"
	"github.com/benvon/goalquest/internal/credentials"
	"github.com/benvon/goalquest/internal/database"
	"github.com/benvon/goalquest/internal/ledger"
	"github.com/benvon/goalquest/internal/logger"
	"github.com/benvon/goalquest/internal/middleware"
	"github.com/benvon/goalquest/internal/queue"
	"github.com/benvon/goalquest/internal/services/ai"
	"github.com/benvon/goalquest/internal/services/oidc"
	"github.com/benvon/goalquest/internal/storage"
	"github.com/benvon/goalquest/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	dlqSweepInterval = time.Hour
	dlqRetention     = 24 * time.Hour
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging, including LLM request previews")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag
	zapLogger := logger.New(logger.Options{Debug: debugMode, File: cfg.LogFile, Stdout: true})
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	tp, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:     cfg.OTELEnabled,
		ServiceName: serviceName,
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
	zapLogger.Info("connected_to_store")

	// Rate-limit counters go to Redis when configured so every replica shares them
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("invalid_redis_url", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("redis_close_failed", zap.Error(err))
			}
		}()
		zapLogger.Info("rate_limit_store_redis")
	} else if rs, ok := store.(*storage.RedisStore); ok {
		redisClient = rs.Client()
		zapLogger.Info("rate_limit_store_shared_redis")
	}
	rateLimitStore, err := middleware.NewRateLimitStore(redisClient)
	if err != nil {
		zapLogger.Fatal("rate_limit_store_failed", zap.Error(err))
	}

	// The queue is optional; without it goals can still get sub-tasks synchronously
	var jobQueue queue.JobQueue
	if cfg.RabbitMQURL != "" {
		q, err := queue.NewRabbitMQQueue(ctx, cfg.RabbitMQURL, zapLogger)
		if err != nil {
			zapLogger.Fatal("rabbitmq_connect_failed", zap.Error(err))
		}
		jobQueue = q
		defer func() {
			if err := q.Close(); err != nil {
				zapLogger.Warn("rabbitmq_close_failed", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_rabbitmq")

		sweeper := queue.NewDeadLetterSweeper(q, dlqSweepInterval, dlqRetention, zapLogger)
		go func() {
			if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("dlq_sweeper_stopped", zap.Error(err))
			}
		}()
	}

	goals := ledger.New(database.NewGoalRepository(store), zapLogger)
	assistant := newAssistant(cfg, zapLogger, debugMode)

	settings := oidc.Settings{
		Issuer:       cfg.OIDCIssuer,
		JWKSURL:      cfg.JWKSURL(),
		Audience:     cfg.OIDCAudience,
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURI:  cfg.OIDCRedirectURI,
	}
	httpClient := &http.Client{Timeout: 10 * time.Second}

	router, err := newRouter(&app{
		cfg:            cfg,
		logger:         zapLogger,
		store:          store,
		ledger:         goals,
		assistant:      assistant,
		provider:       oidc.NewProvider(settings, httpClient),
		verifier:       oidc.NewVerifier(oidc.NewJWKSManager(httpClient), settings.Issuer, settings.JWKSURL, settings.Audience),
		users:          database.NewUserRepository(store),
		onboarding:     database.NewOnboardingRepository(store),
		settings:       database.NewSettingsRepository(store),
		jobQueue:       jobQueue,
		rateLimitStore: rateLimitStore,
		tracing:        tp != nil,
	})
	if err != nil {
		zapLogger.Fatal("router_setup_failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		zapLogger.Info("server_listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("server_shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}
	zapLogger.Info("server_exited")
}

// newAssistant resolves the API key from the environment or the OS keyring.
// Without a key the assistant runs in setup-required mode.
func newAssistant(cfg *config.Config, zapLogger *zap.Logger, debugMode bool) *ai.Assistant {
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
		zapLogger.Warn("ai_setup_required")
	} else {
		zapLogger.Info("ai_assistant_configured",
			zap.String("key_source", string(source)),
			zap.String("model", cfg.AIModel),
		)
	}
	return ai.NewAssistant(completer, zapLogger)
}
