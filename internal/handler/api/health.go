package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dukerupert/shopfront/internal/handler"
	"github.com/dukerupert/shopfront/internal/middleware"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves GET /api/health.
type HealthHandler struct {
	db      Pinger
	version string
	timeout time.Duration
	now     func() time.Time
}

// NewHealthHandler creates a health handler probing db.
func NewHealthHandler(db Pinger, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		version: version,
		timeout: 2 * time.Second,
		now:     time.Now,
	}
}

type healthReport struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version"`
}

// Check handles GET /api/health. A failed database ping answers 503.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	report := healthReport{
		Status:    "healthy",
		Timestamp: h.now().UTC(),
		Services:  map[string]string{"api": "running", "database": "connected"},
		Version:   h.version,
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		middleware.GetLogger(r.Context()).Error("health check failed", "error", err)
		report.Status = "unhealthy"
		report.Services["database"] = "disconnected"
		handler.JSONFailure(w, http.StatusServiceUnavailable, report, handler.CodeDatabase, "Database unavailable")
		return
	}

	handler.JSON(w, http.StatusOK, report)
}
