// Package handler holds the HTTP response helpers shared by the API
// handlers: the JSON envelope, error mapping, and request decoding.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/shopfront/internal/domain"
	"github.com/dukerupert/shopfront/internal/middleware"
	"github.com/dukerupert/shopfront/internal/telemetry"
)

// Wire error codes sent to clients in error.code.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeDuplicate  = "DUPLICATE_RESOURCE"
	CodeInventory  = "INSUFFICIENT_INVENTORY"
	CodeSession    = "SESSION_REQUIRED"
	CodeDatabase   = "DATABASE_ERROR"
	CodeInternal   = "INTERNAL_ERROR"
	CodeRateLimit  = "RATE_LIMIT_EXCEEDED"
	CodeTooLarge   = "PAYLOAD_TOO_LARGE"
	CodeTimeout    = "TIMEOUT"
)

// ErrorResponse logs err, reports server faults to Sentry and writes the
// error envelope with the matching status code. Validation failures carry
// their field errors in error.details.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)

	logError(r, err, code, status)
	if status >= http.StatusInternalServerError {
		telemetry.CaptureErrorFromContext(r.Context(), err, map[string]interface{}{
			"path":   r.URL.Path,
			"method": r.Method,
		})
	}

	body := ErrorBody{
		Code:    WireCode(code),
		Message: domain.ErrorMessage(err),
		Details: domain.ValidationDetails(err),
	}

	writeJSON(w, status, envelope{Success: false, Error: &body})
}

// NotFoundResponse answers requests for routes that do not exist.
func NotFoundResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.ENOTFOUND, "", "Route %s %s not found", r.Method, r.URL.Path))
}

// BadRequestResponse writes a VALIDATION_ERROR with a single message.
func BadRequestResponse(w http.ResponseWriter, r *http.Request, message string) {
	ErrorResponse(w, r, domain.Invalid("", message))
}

// InternalErrorResponse hides err behind a generic 500.
func InternalErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(w, r, domain.Internal(err, "", "An unexpected error occurred"))
}

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
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

// WireCode maps a domain error code to the code clients see.
func WireCode(code string) string {
	switch code {
	case domain.EINVALID:
		return CodeValidation
	case domain.ENOTFOUND:
		return CodeNotFound
	case domain.ECONFLICT:
		return CodeDuplicate
	case domain.EINVENTORY:
		return CodeInventory
	case domain.ESESSION:
		return CodeSession
	case domain.EDATABASE:
		return CodeDatabase
	case domain.ERATELIMIT:
		return CodeRateLimit
	case domain.ETOOLARGE:
		return CodeTooLarge
	case domain.ETIMEOUT:
		return CodeTimeout
	default:
		return CodeInternal
	}
}

func logError(r *http.Request, err error, code string, status int) {
	logger := middleware.GetLogger(r.Context())

	attrs := []any{
		slog.String("error", err.Error()),
		slog.String("code", code),
		slog.Int("status", status),
	}
	if op := domain.ErrorOp(err); op != "" {
		attrs = append(attrs, slog.String("op", op))
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", attrs...)
		return
	}
	logger.Info("request rejected", attrs...)
}
