package middleware

import (
	"fmt"
	"net/http"

	logpkg "github.com/benvon/goalquest/internal/logger"
	"github.com/benvon/goalquest/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

const (
	// DefaultRate applies when RATE_LIMIT is empty
	DefaultRate     = "100-M"
	rateLimitPrefix = "goalquest:ratelimit"
)

// NewRateLimitStore keeps counters in Redis when a client is given, otherwise in process memory
func NewRateLimitStore(client *redis.Client) (limiter.Store, error) {
	opts := limiter.StoreOptions{Prefix: rateLimitPrefix}
	if client == nil {
		return memorystore.NewStoreWithOptions(opts), nil
	}
	store, err := redisstore.NewStoreWithOptions(client, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis rate limit store: %w", err)
	}
	return store, nil
}

// RateLimitKey keys limits on the authenticated user, falling back to the client IP
func RateLimitKey(r *http.Request) string {
	if user := request.UserFromContext(r); user != nil && user.ID != "" {
		return "user:" + user.ID
	}
	return "ip:" + request.ClientIP(r)
}

// RateLimit returns ulule/limiter middleware for the formatted rate (e.g. "100-M").
// Store failures fail open so a Redis outage does not take the API down.
func RateLimit(store limiter.Store, formatted string, logger *zap.Logger) (func(http.Handler) http.Handler, error) {
	if formatted == "" {
		formatted = DefaultRate
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", formatted, err)
	}
	instance := limiter.New(store, rate)

	return func(next http.Handler) http.Handler {
		mw := stdlibmw.NewMiddleware(instance,
			stdlibmw.WithKeyGetter(RateLimitKey),
			stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
				respondErrorJSON(w, r, http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded, please slow down", logger)
			}),
			stdlibmw.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				logger.Warn("rate_limit_store_error",
					zap.String("error", logpkg.SanitizeError(err)),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				)
				next.ServeHTTP(w, r)
			}),
		)
		return mw.Handler(next)
	}, nil
}
