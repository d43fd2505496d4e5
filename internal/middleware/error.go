package middleware

import (
	"net/http"

	logpkg "github.com/benvon/goalquest/internal/logger"
	"github.com/benvon/goalquest/internal/request"
	"go.uber.org/zap"
)

// ErrorHandler turns a handler panic into the JSON 500 envelope.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				userID := ""
				if u := request.UserFromContext(r); u != nil {
					userID = logpkg.SanitizeUserID(u.ID)
				}
				logger.Error("panic_recovered",
					zap.Any("panic", rec),
					zap.Stack("stack"),
					zap.String("method", r.Method),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.String("user_id", userID),
					zap.String("request_id", request.RequestIDFromContext(r.Context())),
				)
				respondErrorJSON(w, r, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred", logger)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
