package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/shopfront/internal/domain"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"validation", domain.Invalid("op", "bad input"), http.StatusBadRequest, "VALIDATION_ERROR", "bad input"},
		{"inventory", domain.InsufficientInventory("op", "Only 2 items available in stock"), http.StatusBadRequest, "INSUFFICIENT_INVENTORY", "Only 2 items available in stock"},
		{"not found", domain.NotFound("op", "SKU", "x"), http.StatusNotFound, "NOT_FOUND", ""},
		{"conflict", domain.Conflict("op", "SKU code already exists"), http.StatusConflict, "DUPLICATE_RESOURCE", "SKU code already exists"},
		{"rate limit", domain.Errorf(domain.ERATELIMIT, "", "Too many requests"), http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Too many requests"},
		{"internal hides detail", domain.Internal(assert.AnError, "op", "boom"), http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred. Please try again later."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondWithError(rec, httptest.NewRequest(http.MethodGet, "/api/skus/x", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			body := decodeEnvelope(t, rec)
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body.Error.Message)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstSize:         2,
		CleanupInterval:   time.Hour,
	})
	defer rl.Stop()

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("203.0.113.5").Code)
	assert.Equal(t, http.StatusOK, do("203.0.113.5").Code)

	rec := do("203.0.113.5")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	// One token per 1000s; the next is a full refill away.
	assert.Equal(t, "1000", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", decodeEnvelope(t, rec).Error.Code)

	// Buckets are per client.
	assert.Equal(t, http.StatusOK, do("198.51.100.7").Code)

	rl.Stop()
}

func TestRateLimiter_ForgetsIdleClients(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 1,
		BurstSize:         1,
		CleanupInterval:   time.Hour,
	})
	defer rl.Stop()

	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	now = now.Add(30 * time.Minute)
	assert.True(t, rl.Allow("b"))

	now = now.Add(45 * time.Minute)
	rl.forgetIdle()

	rl.mu.Lock()
	_, hasA := rl.clients["a"]
	_, hasB := rl.clients["b"]
	rl.mu.Unlock()
	assert.False(t, hasA, "idle past the interval")
	assert.True(t, hasB)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(100*time.Millisecond))
	assert.Equal(t, 2, retryAfterSeconds(1100*time.Millisecond))
	assert.Equal(t, 60, retryAfterSeconds(time.Minute))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4321"
	assert.Equal(t, "192.0.2.1", GetClientIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.9")
	assert.Equal(t, "192.0.2.9", GetClientIP(req))

	req.Header.Set("X-Forwarded-For", " 192.0.2.50 , 10.0.0.1")
	assert.Equal(t, "192.0.2.50", GetClientIP(req))
}

func TestMaxBodySize(t *testing.T) {
	h := MaxBodySize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader(`{"skuId":"abcdef"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", decodeEnvelope(t, rec).Error.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	h := Timeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		<-release
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "TIMEOUT", decodeEnvelope(t, rec).Error.Code)
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/api/products":                      "/api/products",
		"/api/products/4f0c":                 "/api/products/:id",
		"/api/products/4f0c/skus":            "/api/products/:id/skus",
		"/api/categories/77aa":               "/api/categories/:id",
		"/api/skus/9b1e":                     "/api/skus/:id",
		"/api/cart":                          "/api/cart",
		"/api/cart/items":                    "/api/cart/items",
		"/api/cart/items/9b1e":               "/api/cart/items/:skuId",
		"/health":                            "/health",
		"/api/products/4f0c/skus/extra/path": "/api/products/4f0c/skus/extra/path",
	}

	for in, want := range tests {
		assert.Equal(t, want, normalizePath(in), in)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{}`))
	}))

	for range 3 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/skus/abc", nil))
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues(http.MethodGet, "/api/skus/:id", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.requestsInFlight))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(DefaultSecurityHeadersConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}

func TestRequestLogger(t *testing.T) {
	var called bool
	h := RequestID(Session(&stubResolver{resolveFunc: func(string) domain.Session {
		return domain.Session{ID: "s1"}
	}}, nil)(WithRequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.NotNil(t, GetLogger(r.Context()))
		assert.NotEmpty(t, GetRequestID(r.Context()))
	}))))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	assert.True(t, called)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name    string
		inbound string
		reused  bool
	}{
		{"none sent", "", false},
		{"uuid", "3f2b8c4e-9a1d-4c6b-8e2f-1a2b3c4d5e6f", true},
		{"load balancer trace", "Root=1-67891233-abcdef012345678912345678", true},
		{"hex trace id", "4bf92f3577b34da6a3ce929d0e0e4736", true},
		{"at length limit", strings.Repeat("a", 64), true},
		{"too long", strings.Repeat("a", 65), false},
		{"spaces", "req 123", false},
		{"log injection", "abc\nlevel=ERROR msg=forged", false},
		{"markup", "<script>", false},
		{"leading separator", "-abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
			if tt.inbound != "" {
				req.Header[RequestIDHeader] = []string{tt.inbound}
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
			if tt.reused {
				assert.Equal(t, tt.inbound, seen)
				return
			}
			assert.NotEqual(t, tt.inbound, seen)
			_, err := uuid.Parse(seen)
			assert.NoError(t, err, "expected a minted uuid, got %q", seen)
		})
	}
}

func TestRequestLogger_Attributes(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	resolver := &stubResolver{resolveFunc: func(string) domain.Session { return domain.Session{ID: "s1"} }}
	h := RequestID(WithClientIP()(Session(resolver, nil)(WithRequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		GetLogger(r.Context()).Info("handled")
	})))))

	req := httptest.NewRequest(http.MethodPost, "/api/cart/items", nil)
	req.RemoteAddr = "192.0.2.1:4321"
	req.Header.Set(RequestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	for _, want := range []string{"method=POST", "path=/api/cart/items", "request_id=req-1", "session_id=s1", "client_ip=192.0.2.1"} {
		assert.Contains(t, line, want)
	}
}

func TestGetLogger_Fallbacks(t *testing.T) {
	fallback := slog.New(slog.NewTextHandler(io.Discard, nil))

	assert.Same(t, fallback, GetLogger(context.Background(), fallback))
	assert.Same(t, slog.Default(), GetLogger(context.Background(), nil))
	assert.Same(t, slog.Default(), GetLogger(context.Background()))
}
