package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cart operation outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// BusinessMetrics holds Prometheus metrics for storefront behaviour.
// A nil *BusinessMetrics is valid and records nothing.
type BusinessMetrics struct {
	// Cart
	CartsCreated        prometheus.Counter
	CartOperations      *prometheus.CounterVec
	InventoryRejections *prometheus.CounterVec
	CartConflictRetries prometheus.Counter
	CartValue           prometheus.Histogram
	CartsExpired        prometheus.Counter

	// Catalog
	CatalogChanges  *prometheus.CounterVec
	ProductSearches *prometheus.CounterVec

	// Background jobs
	JobsProcessed *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec

	// Events
	EventsPublished *prometheus.CounterVec
	EventsFailed    *prometheus.CounterVec
}

// NewBusinessMetrics creates business metrics registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "shopfront"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	subsystem := "business"
	factory := promauto.With(reg)

	return &BusinessMetrics{
		CartsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "carts_created_total",
			Help:      "Total carts created for new sessions",
		}),
		CartOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_operations_total",
				Help:      "Cart mutations by operation and outcome",
			},
			[]string{"operation", "outcome"}, // operation: add, update, remove, clear
		),
		InventoryRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "inventory_rejections_total",
				Help:      "Cart mutations refused for insufficient stock",
			},
			[]string{"operation"},
		),
		CartConflictRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cart_conflict_retries_total",
			Help:      "Cart saves retried after a version conflict",
		}),
		CartValue: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cart_value",
			Help:      "Cart total after a successful mutation",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
		CartsExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "carts_expired_total",
			Help:      "Idle carts removed by the cleanup job",
		}),
		CatalogChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "catalog_changes_total",
				Help:      "Catalog writes by entity and action",
			},
			[]string{"entity", "action"}, // entity: category, product, sku; action: create, update, delete
		),
		ProductSearches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "product_searches_total",
				Help:      "Product listings by filter type",
			},
			[]string{"filter_type"}, // filter_type: search, category, both, none
		),
		JobsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "jobs_processed_total",
				Help:      "Background jobs completed",
			},
			[]string{"job_type"},
		),
		JobsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "jobs_failed_total",
				Help:      "Background jobs that returned an error",
			},
			[]string{"job_type"},
		),
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "job_duration_seconds",
				Help:      "Background job duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"job_type"},
		),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "events_published_total",
				Help:      "Domain events delivered to the broker",
			},
			[]string{"type"},
		),
		EventsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "events_failed_total",
				Help:      "Domain events the broker rejected",
			},
			[]string{"type"},
		),
	}
}

// CartOperation records the outcome of a cart mutation.
func (m *BusinessMetrics) CartOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.CartOperations.WithLabelValues(operation, outcome).Inc()
}

// InventoryRejected records a stock rejection.
func (m *BusinessMetrics) InventoryRejected(operation string) {
	if m == nil {
		return
	}
	m.InventoryRejections.WithLabelValues(operation).Inc()
}

// CartCreated records a new cart.
func (m *BusinessMetrics) CartCreated() {
	if m == nil {
		return
	}
	m.CartsCreated.Inc()
}

// ConflictRetried records a CAS retry.
func (m *BusinessMetrics) ConflictRetried() {
	if m == nil {
		return
	}
	m.CartConflictRetries.Inc()
}

// ObserveCartValue records the total of a cart after a mutation.
func (m *BusinessMetrics) ObserveCartValue(total float64) {
	if m == nil {
		return
	}
	m.CartValue.Observe(total)
}

// CartsRemoved records carts deleted by expiry.
func (m *BusinessMetrics) CartsRemoved(n int64) {
	if m == nil {
		return
	}
	m.CartsExpired.Add(float64(n))
}

// CatalogChanged records a catalog write.
func (m *BusinessMetrics) CatalogChanged(entity, action string) {
	if m == nil {
		return
	}
	m.CatalogChanges.WithLabelValues(entity, action).Inc()
}

// ProductSearched records a product listing request.
func (m *BusinessMetrics) ProductSearched(filterType string) {
	if m == nil {
		return
	}
	m.ProductSearches.WithLabelValues(filterType).Inc()
}

// JobFinished records a job run and its duration in seconds.
func (m *BusinessMetrics) JobFinished(jobType string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.JobDuration.WithLabelValues(jobType).Observe(seconds)
	if err != nil {
		m.JobsFailed.WithLabelValues(jobType).Inc()
		return
	}
	m.JobsProcessed.WithLabelValues(jobType).Inc()
}

// EventPublished records a publish attempt.
func (m *BusinessMetrics) EventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.EventsFailed.WithLabelValues(eventType).Inc()
		return
	}
	m.EventsPublished.WithLabelValues(eventType).Inc()
}
