package middleware

import (
	"net/http"
	"time"

	logpkg "github.com/benvon/goalquest/internal/logger"
	"github.com/benvon/goalquest/internal/request"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logging writes one http_request entry per request. Server errors log at error level,
// client errors at warn, everything else at info.
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newStatusRecorder(w)

			next.ServeHTTP(wrapped, r)

			if ce := logger.Check(requestLevel(wrapped.statusCode), "http_request"); ce != nil {
				ce.Write(
					zap.String("method", r.Method),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.Int("status_code", wrapped.statusCode),
					zap.Int("bytes", wrapped.bytes),
					zap.Int64("duration_ms", time.Since(start).Milliseconds()),
					zap.String("request_id", request.RequestIDFromContext(r.Context())),
				)
			}
		})
	}
}

func requestLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
