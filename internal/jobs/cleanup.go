// Package jobs defines the storefront's background maintenance jobs.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/shopfront/internal/telemetry"
)

// Job type constants for cleanup jobs
const (
	JobTypeCleanupIdleCarts = "cleanup:idle_carts"
)

// DefaultCartTTL is how long a cart may sit untouched before it is swept.
const DefaultCartTTL = 30 * 24 * time.Hour

// CartSweeper deletes carts last updated before a cutoff.
type CartSweeper interface {
	DeleteIdleCarts(ctx context.Context, before time.Time) (int64, error)
}

// CleanupResult holds the result of a cleanup operation
type CleanupResult struct {
	CartsDeleted int64     `json:"carts_deleted"`
	Cutoff       time.Time `json:"cutoff"`
}

// CartCleanup removes carts idle for longer than its TTL.
type CartCleanup struct {
	store   CartSweeper
	ttl     time.Duration
	metrics *telemetry.BusinessMetrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewCartCleanup creates the idle cart sweep. A non-positive ttl uses DefaultCartTTL.
func NewCartCleanup(store CartSweeper, ttl time.Duration, metrics *telemetry.BusinessMetrics, logger *slog.Logger) *CartCleanup {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CartCleanup{
		store:   store,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Type implements worker.Job.
func (j *CartCleanup) Type() string {
	return JobTypeCleanupIdleCarts
}

// Run implements worker.Job.
func (j *CartCleanup) Run(ctx context.Context) error {
	_, err := j.Process(ctx)
	return err
}

// Process deletes carts whose last update is older than the TTL.
func (j *CartCleanup) Process(ctx context.Context) (*CleanupResult, error) {
	result := &CleanupResult{Cutoff: j.now().Add(-j.ttl)}

	n, err := j.store.DeleteIdleCarts(ctx, result.Cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to delete idle carts: %w", err)
	}
	result.CartsDeleted = n

	j.metrics.CartsRemoved(n)
	if n > 0 {
		j.logger.Info("idle carts removed", "count", n, "cutoff", result.Cutoff)
	}
	return result, nil
}
