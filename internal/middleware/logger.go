package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/shopfront/internal/domain"
)

// LoggerContextKey holds the request-scoped logger.
const LoggerContextKey contextKey = "logger"

// WithRequestLogger stores a logger in the request context that carries the
// request's method and path plus whichever of request_id, session_id and
// client_ip earlier middleware resolved. It belongs after RequestID, Session
// and WithClientIP in the chain.
func WithRequestLogger(baseLogger *slog.Logger) func(http.Handler) http.Handler {
	baseLogger = logFallback(baseLogger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			}
			for _, a := range []struct{ key, value string }{
				{"request_id", GetRequestID(ctx)},
				{"session_id", domain.SessionIDFromContext(ctx)},
				{"client_ip", GetClientIPFromContext(ctx)},
			} {
				if a.value != "" {
					attrs = append(attrs, slog.String(a.key, a.value))
				}
			}

			ctx = context.WithValue(ctx, LoggerContextKey, baseLogger.With(attrs...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger returns the request-scoped logger, else the first non-nil
// fallback, else slog.Default().
func GetLogger(ctx context.Context, fallback ...*slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*slog.Logger); ok {
		return logger
	}
	if len(fallback) > 0 && fallback[0] != nil {
		return fallback[0]
	}
	return slog.Default()
}
