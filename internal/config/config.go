// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	StoreURL         string
	ServerPort       string
	BaseURL          string
	FrontendURL      string
	OpenAIKey        string
	AIModel          string
	AIBaseURL        string
	AITimeout        time.Duration
	RequestTimeout   time.Duration
	EnableHSTS       bool
	OIDCIssuer       string
	OIDCJWKSURL      string
	OIDCAudience     string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURI  string
	RedisURL         string
	RateLimit        string
	RabbitMQURL      string
	RabbitMQPrefetch int
	WorkerDebugMode  bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
	LogFile          string
}

// Load reads configuration from the environment after applying an optional .env file.
// Requirements that depend on the binary are checked by ValidateServer and ValidateWorker.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}
	return load(os.Getenv), nil
}

func load(lookup func(string) string) *Config {
	env := envReader(lookup)
	return &Config{
		StoreURL:         env.str("STORE_URL", ""),
		ServerPort:       env.str("SERVER_PORT", "8080"),
		BaseURL:          env.str("BASE_URL", "http://localhost:8080"),
		FrontendURL:      env.str("FRONTEND_URL", "http://localhost:3000"),
		OpenAIKey:        env.str("OPENAI_API_KEY", ""),
		AIModel:          env.str("AI_MODEL", ""),
		AIBaseURL:        env.str("AI_BASE_URL", ""),
		AITimeout:        time.Duration(env.integer("AI_TIMEOUT_SECONDS", 30)) * time.Second,
		RequestTimeout:   time.Duration(env.integer("REQUEST_TIMEOUT_SECONDS", 45)) * time.Second,
		EnableHSTS:       env.boolean("ENABLE_HSTS", false),
		OIDCIssuer:       env.str("OIDC_ISSUER", ""),
		OIDCJWKSURL:      env.str("OIDC_JWKS_URL", ""),
		OIDCAudience:     env.str("OIDC_AUDIENCE", ""),
		OIDCClientID:     env.str("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: env.str("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURI:  env.str("OIDC_REDIRECT_URI", ""),
		RedisURL:         env.str("REDIS_URL", ""),
		RateLimit:        env.str("RATE_LIMIT", "100-M"),
		RabbitMQURL:      env.str("RABBITMQ_URL", ""),
		RabbitMQPrefetch: env.integer("RABBITMQ_PREFETCH", 1),
		WorkerDebugMode:  env.boolean("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  env.boolean("SERVER_DEBUG_MODE", false),
		OTELEnabled:      env.boolean("OTEL_ENABLED", false),
		OTELEndpoint:     env.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		LogFile:          env.str("LOG_FILE", ""),
	}
}

// ValidateServer checks the settings the API server cannot start without
func (c *Config) ValidateServer() error {
	if c.StoreURL == "" {
		return fmt.Errorf("STORE_URL is required")
	}
	if c.OIDCIssuer == "" {
		return fmt.Errorf("OIDC_ISSUER is required to authenticate requests")
	}
	if c.AITimeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT_SECONDS must be positive")
	}
	// The handler deadline has to outlive the AI call, or clients see a bare
	// timeout instead of the assistant's fallback reply.
	if c.AITimeout >= c.RequestTimeout {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS (%s) must exceed AI_TIMEOUT_SECONDS (%s)", c.RequestTimeout, c.AITimeout)
	}
	return nil
}

// ValidateWorker checks the settings the sub-task worker cannot start without
func (c *Config) ValidateWorker() error {
	if c.StoreURL == "" {
		return fmt.Errorf("STORE_URL is required")
	}
	if c.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL is required for job queueing (AI features require RabbitMQ)")
	}
	if c.AITimeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// JWKSURL returns the configured JWKS URL or the issuer's well-known location
func (c *Config) JWKSURL() string {
	if c.OIDCJWKSURL != "" {
		return c.OIDCJWKSURL
	}
	if c.OIDCIssuer == "" {
		return ""
	}
	issuer := c.OIDCIssuer
	for len(issuer) > 0 && issuer[len(issuer)-1] == '/' {
		issuer = issuer[:len(issuer)-1]
	}
	return issuer + "/.well-known/jwks.json"
}

type envReader func(string) string

func (e envReader) str(key, defaultValue string) string {
	if value := e(key); value != "" {
		return value
	}
	return defaultValue
}

func (e envReader) boolean(key string, defaultValue bool) bool {
	if value := e(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func (e envReader) integer(key string, defaultValue int) int {
	if value := e(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
