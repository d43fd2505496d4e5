package main

import (
	"fmt"
	"net/http"

	"github.com/benvon/goalquest/api/openapi"
	"github.com/benvon/goalquest/internal/config"
	"github.com/benvon/goalquest/internal/database"
	"github.com/benvon/goalquest/internal/handlers"
	"github.com/benvon/goalquest/internal/ledger"
	"github.com/benvon/goalquest/internal/middleware"
	"github.com/benvon/goalquest/internal/queue"
	"github.com/benvon/goalquest/internal/services/ai"
	"github.com/benvon/goalquest/internal/services/oidc"
	"github.com/benvon/goalquest/internal/storage"
	"github.com/gorilla/mux"
	"github.com/ulule/limiter/v3"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "goalquest-api"

// app holds everything the router needs. JobQueue may be nil.
type app struct {
	cfg            *config.Config
	logger         *zap.Logger
	store          storage.Store
	ledger         *ledger.Ledger
	assistant      *ai.Assistant
	provider       *oidc.Provider
	verifier       oidc.TokenVerifier
	users          database.UserRepositoryInterface
	onboarding     database.OnboardingRepositoryInterface
	settings       database.SettingsRepositoryInterface
	jobQueue       queue.JobQueue
	rateLimitStore limiter.Store
	tracing        bool
}

func newRouter(a *app) (*mux.Router, error) {
	r := mux.NewRouter()

	// Middleware registered first wraps the others
	if a.tracing {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.SecurityHeaders(a.cfg.EnableHSTS))
	r.Use(middleware.CORS(a.cfg.FrontendURL))
	r.Use(middleware.RequestID)
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(a.cfg.RequestTimeout))
	r.Use(middleware.ErrorHandler(a.logger))
	r.Use(middleware.Audit(a.logger))
	r.Use(middleware.Logging(a.logger))

	rateLimit, err := middleware.RateLimit(a.rateLimitStore, a.cfg.RateLimit, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	// Public routes (no rate limiting for health checks)
	var queuePinger handlers.Pinger
	if a.jobQueue != nil {
		queuePinger = handlers.PingerFunc(a.jobQueue.HealthCheck)
	}
	health := handlers.NewHealthChecker(map[string]handlers.Pinger{
		"store": a.store,
		"queue": queuePinger,
	})
	r.HandleFunc("/healthz", health.HealthCheck).Methods("GET")

	openAPIHandler, err := handlers.NewOpenAPIHandler(openapi.Spec)
	if err != nil {
		return nil, err
	}
	openAPIHandler.RegisterRoutes(r)

	api := r.PathPrefix("/api/v1").Subrouter()

	authRouter := api.PathPrefix("/auth").Subrouter()
	authRouter.Use(rateLimit)
	handlers.NewAuthHandler(a.provider, a.cfg.BaseURL, a.logger).RegisterRoutes(authRouter)

	publicRouter := api.NewRoute().Subrouter()
	publicRouter.Use(rateLimit)
	handlers.NewCategoriesHandler().RegisterRoutes(publicRouter)

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.Auth(a.verifier, a.users, a.logger))
	protected.Use(rateLimit)
	handlers.NewGoalsHandler(a.ledger, a.jobQueue, a.logger).RegisterRoutes(protected)
	handlers.NewAIHandler(a.assistant, a.ledger, a.logger).RegisterRoutes(protected)
	handlers.NewOnboardingHandler(a.onboarding, a.ledger, a.logger).RegisterRoutes(protected)
	handlers.NewProfileHandler(a.settings, a.ledger, a.logger).RegisterRoutes(protected)

	r.NotFoundHandler = middleware.RequestID(http.HandlerFunc(handlers.NotFound))

	// Preflight requests are answered by the CORS middleware; this keeps them routable
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r, nil
}
