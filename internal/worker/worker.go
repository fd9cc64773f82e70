// Package worker runs the storefront's periodic background jobs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/shopfront/internal/telemetry"
)

// Job is a unit of periodic work.
type Job interface {
	Type() string
	Run(ctx context.Context) error
}

// Config holds scheduler configuration
type Config struct {
	// WorkerID uniquely identifies this scheduler instance in logs
	WorkerID string

	// MaxConcurrency is the maximum number of jobs running at once
	MaxConcurrency int

	// JobTimeout bounds a single job run
	JobTimeout time.Duration

	// RunOnStart runs every job once before its first tick
	RunOnStart bool
}

type entry struct {
	job   Job
	every time.Duration
}

// Scheduler runs each registered job on its own interval.
type Scheduler struct {
	config  Config
	entries []entry
	metrics *telemetry.BusinessMetrics
	logger  *slog.Logger

	sem chan struct{}
	wg  sync.WaitGroup
}

// NewScheduler creates a new background job scheduler
func NewScheduler(config Config, metrics *telemetry.BusinessMetrics, logger *slog.Logger) *Scheduler {
	// Set defaults
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 2
	}
	if config.JobTimeout == 0 {
		config.JobTimeout = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		config:  config,
		metrics: metrics,
		logger:  logger,
		sem:     make(chan struct{}, config.MaxConcurrency),
	}
}

// Every registers job to run once per interval. Call before Start.
func (s *Scheduler) Every(every time.Duration, job Job) {
	s.entries = append(s.entries, entry{job: job, every: every})
}

// Start runs jobs until ctx is cancelled, then waits for in-flight runs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("worker starting",
		"worker_id", s.config.WorkerID,
		"jobs", len(s.entries),
		"max_concurrency", s.config.MaxConcurrency,
	)

	for _, e := range s.entries {
		if e.every <= 0 {
			return fmt.Errorf("job %s: interval must be positive", e.job.Type())
		}
	}

	var loops sync.WaitGroup
	for _, e := range s.entries {
		loops.Add(1)
		go func() {
			defer loops.Done()
			s.loop(ctx, e)
		}()
	}

	<-ctx.Done()
	loops.Wait()
	s.wg.Wait()

	s.logger.Info("worker shutting down", "worker_id", s.config.WorkerID)
	return ctx.Err()
}

func (s *Scheduler) loop(ctx context.Context, e entry) {
	if s.config.RunOnStart {
		s.dispatch(ctx, e.job)
	}

	ticker := time.NewTicker(e.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatch(ctx, e.job)
		}
	}
}

// dispatch runs job in the background unless the scheduler is at capacity,
// in which case this tick is skipped.
func (s *Scheduler) dispatch(ctx context.Context, job Job) {
	select {
	case s.sem <- struct{}{}:
	default:
		s.logger.Warn("worker at capacity, skipping run", "job_type", job.Type())
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { <-s.sem }()
		s.processJob(ctx, job)
	}()
}

// processJob runs a single job with a timeout and records the outcome.
func (s *Scheduler) processJob(ctx context.Context, job Job) {
	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	start := time.Now()
	err := s.safeRun(jobCtx, job)
	elapsed := time.Since(start)

	s.metrics.JobFinished(job.Type(), elapsed.Seconds(), err)

	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			s.logger.Info("job cancelled by shutdown", "job_type", job.Type())
			return
		}
		s.logger.Error("job failed",
			"job_type", job.Type(),
			"duration", elapsed,
			"error", err,
		)
		telemetry.CaptureError(err, map[string]interface{}{"job_type": job.Type()})
		return
	}

	s.logger.Debug("job completed", "job_type", job.Type(), "duration", elapsed)
}

// safeRun turns a panicking job into an error so the scheduler keeps running.
func (s *Scheduler) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Type(), rec)
		}
	}()
	return job.Run(ctx)
}
