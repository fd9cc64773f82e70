// Package middleware provides the HTTP middleware chain of the storefront API:
// request IDs, session resolution, request-scoped logging, rate limiting,
// body and time limits, security headers and Prometheus metrics.
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/shopfront/internal/domain"
)

// contextKey namespaces the values this package stores in a request context.
type contextKey string

// ============================================================================
// MIDDLEWARE ERROR RESPONSE HELPERS
// ============================================================================
//
// These helpers write the same JSON envelope as handler.ErrorResponse but are
// self-contained, since handler imports middleware for GetLogger.

type errorBody struct {
	Success bool        `json:"success"`
	Error   errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondWithError logs err and writes the error envelope.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	message := domain.ErrorMessage(err)
	status := errorCodeToHTTPStatus(code)

	logger := GetLogger(r.Context())

	attrs := []any{
		"error", err.Error(),
		"code", code,
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
	}

	if reqID := GetRequestID(r.Context()); reqID != "" {
		attrs = append(attrs, "request_id", reqID)
	}

	if status >= 500 {
		logger.Error("middleware error", attrs...)
	} else {
		logger.Info("middleware error", attrs...)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{Code: wireCode(code), Message: message},
	})
}

// respondInternalError logs the error and returns a generic 500 response.
func respondInternalError(w http.ResponseWriter, r *http.Request, err error) {
	respondWithError(w, r, domain.Internal(err, "", "An unexpected error occurred"))
}

func respondTooManyRequests(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, domain.Errorf(domain.ERATELIMIT, "", "Too many requests"))
}

func respondTooLarge(w http.ResponseWriter, r *http.Request, message string) {
	respondWithError(w, r, domain.Errorf(domain.ETOOLARGE, "", "%s", message))
}

func respondTimeout(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, domain.Errorf(domain.ETIMEOUT, "", "Request timed out"))
}

// errorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID, domain.EINVENTORY, domain.ESESSION:
		return http.StatusBadRequest // 400
	case domain.ENOTFOUND:
		return http.StatusNotFound // 404
	case domain.ECONFLICT:
		return http.StatusConflict // 409
	case domain.ETOOLARGE:
		return http.StatusRequestEntityTooLarge // 413
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests // 429
	case domain.ETIMEOUT:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}

// wireCode maps domain error codes to the codes clients see.
func wireCode(code string) string {
	switch code {
	case domain.EINVALID:
		return "VALIDATION_ERROR"
	case domain.ENOTFOUND:
		return "NOT_FOUND"
	case domain.ECONFLICT:
		return "DUPLICATE_RESOURCE"
	case domain.EINVENTORY:
		return "INSUFFICIENT_INVENTORY"
	case domain.ESESSION:
		return "SESSION_REQUIRED"
	case domain.EDATABASE:
		return "DATABASE_ERROR"
	case domain.ERATELIMIT:
		return "RATE_LIMIT_EXCEEDED"
	case domain.ETOOLARGE:
		return "PAYLOAD_TOO_LARGE"
	case domain.ETIMEOUT:
		return "TIMEOUT"
	default:
		return "INTERNAL_ERROR"
	}
}

// logFallback is used by middleware built before a request logger exists.
func logFallback(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
