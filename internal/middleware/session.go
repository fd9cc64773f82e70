package middleware

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/shopfront/internal/domain"
	"github.com/dukerupert/shopfront/internal/session"
)

// SessionResolver turns the raw X-Session-Id header into a session.
// *session.Resolver is the production implementation.
type SessionResolver interface {
	Resolve(raw string) domain.Session
}

// Session attaches the shopping session to every request and echoes its ID
// in the X-Session-Id response header, so clients that sent nothing (or a
// malformed value) learn the ID they should send next time.
func Session(resolver SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logFallback(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(session.Header)
			sess := resolver.Resolve(raw)

			if sess.IsNew && raw != "" {
				logger.Debug("replaced malformed session id",
					"request_id", GetRequestID(r.Context()),
					"session_id", sess.ID,
				)
			}

			w.Header().Set(session.Header, sess.ID)
			w.Header().Add("Access-Control-Expose-Headers", session.Header)

			ctx := domain.NewContextWithSession(r.Context(), sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
