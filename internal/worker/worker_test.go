package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/shopfront/internal/telemetry"
)

type funcJob struct {
	name string
	run  func(ctx context.Context) error
	runs atomic.Int32
}

func (j *funcJob) Type() string { return j.name }

func (j *funcJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.run(ctx)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RunsJobsUntilCancelled(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewBusinessMetrics("test", reg)

	ok := &funcJob{name: "ok", run: func(context.Context) error { return nil }}
	failing := &funcJob{name: "failing", run: func(context.Context) error { return errors.New("boom") }}

	s := NewScheduler(Config{RunOnStart: true, MaxConcurrency: 4}, metrics, discardLogger())
	s.Every(10*time.Millisecond, ok)
	s.Every(10*time.Millisecond, failing)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool {
		return ok.runs.Load() >= 3 && failing.runs.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.JobsProcessed.WithLabelValues("ok")), 3.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.JobsFailed.WithLabelValues("failing")), 3.0)
}

func TestScheduler_AppliesJobTimeout(t *testing.T) {
	var sawDeadline atomic.Bool
	job := &funcJob{name: "slow", run: func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		sawDeadline.Store(ok)
		<-ctx.Done()
		return ctx.Err()
	}}

	s := NewScheduler(Config{JobTimeout: 20 * time.Millisecond}, nil, discardLogger())
	s.processJob(context.Background(), job)

	assert.True(t, sawDeadline.Load())
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestScheduler_RecoversPanics(t *testing.T) {
	job := &funcJob{name: "panics", run: func(context.Context) error { panic("bad state") }}
	s := NewScheduler(Config{}, nil, discardLogger())

	err := s.safeRun(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad state")
}

func TestScheduler_SkipsWhenAtCapacity(t *testing.T) {
	release := make(chan struct{})
	job := &funcJob{name: "blocking", run: func(context.Context) error {
		<-release
		return nil
	}}

	s := NewScheduler(Config{MaxConcurrency: 1}, nil, discardLogger())
	ctx := context.Background()
	s.dispatch(ctx, job)
	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, time.Millisecond)

	s.dispatch(ctx, job)
	close(release)
	s.wg.Wait()

	assert.Equal(t, int32(1), job.runs.Load())
}

func TestScheduler_RejectsNonPositiveInterval(t *testing.T) {
	s := NewScheduler(Config{}, nil, discardLogger())
	s.Every(0, &funcJob{name: "bad", run: func(context.Context) error { return nil }})

	err := s.Start(context.Background())
	require.Error(t, err)
}
