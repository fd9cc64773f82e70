package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request ID in both directions.
	RequestIDHeader = "X-Request-ID"

	RequestIDContextKey contextKey = "request_id"

	// maxRequestIDLength bounds inbound IDs echoed into logs and headers.
	maxRequestIDLength = 64
)

// requestIDPattern admits the token shapes proxies and load balancers emit
// (UUIDs, hex trace IDs, "Root=1-..." style IDs).
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:=-]*$`)

// RequestID tags every request with an ID, available through GetRequestID and
// echoed in X-Request-ID. An inbound X-Request-ID is reused only when it is
// short and made of token characters; anything else gets a fresh UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validRequestID(id string) bool {
	return len(id) <= maxRequestIDLength && requestIDPattern.MatchString(id)
}

// GetRequestID returns the request ID, or "" outside the RequestID middleware.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDContextKey).(string); ok {
		return id
	}
	return ""
}
