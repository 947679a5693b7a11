package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Measdoulas/CASHRULER-sub000/internal/domain"
	"github.com/Measdoulas/CASHRULER-sub000/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubJob is a controllable Job for runner tests
type stubJob struct {
	name string
	err  error
	runs atomic.Int64
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run(ctx context.Context, asOf time.Time) (any, error) {
	j.runs.Add(1)
	return map[string]int{"runs": int(j.runs.Load())}, j.err
}

func setupRunner(jobErr error) (*ScheduledRunner, *stubJob, *testutil.MockJobReporter) {
	job := &stubJob{name: "test-job", err: jobErr}
	reporter := &testutil.MockJobReporter{}
	runner := NewScheduledRunner(job, reporter, zerolog.Nop(), RunnerConfig{
		Interval: 100 * time.Millisecond, // Fast interval for testing
	})
	return runner, job, reporter
}

func TestScheduledRunner_Defaults(t *testing.T) {
	config := DefaultRunnerConfig()
	assert.Equal(t, 1*time.Hour, config.Interval)

	runner := NewScheduledRunner(&stubJob{name: "j"}, nil, zerolog.Nop(), RunnerConfig{})
	assert.Equal(t, 1*time.Hour, runner.interval)
	assert.False(t, runner.IsRunning())
}

func TestScheduledRunner_RunOnceClassification(t *testing.T) {
	tests := []struct {
		name   string
		jobErr error
		want   domain.JobResult
	}{
		{"no error is success", nil, domain.JobSuccess},
		{"transient store error is retry", errors.New("store unavailable"), domain.JobRetry},
		{"wrapped transient error is retry", fmt.Errorf("run: %w", errors.New("timeout")), domain.JobRetry},
		{"cancellation is retry", context.Canceled, domain.JobRetry},
		{"malformed data is permanent failure", fmt.Errorf("template 3: %w", domain.ErrMalformedTemplate), domain.JobFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, _, reporter := setupRunner(tt.jobErr)

			outcome := runner.RunOnce(context.Background())

			assert.Equal(t, tt.want, outcome.Result)
			assert.NotNil(t, outcome.Report, "the job's report travels with the outcome")
			last, ok := reporter.Last()
			require.True(t, ok, "result must be reported to the scheduling collaborator")
			assert.Equal(t, "test-job", last.Job)
			assert.Equal(t, tt.want, last.Result)
		})
	}
}

func TestScheduledRunner_StartStop(t *testing.T) {
	runner, job, _ := setupRunner(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	assert.True(t, runner.IsRunning())
	// Runs immediately on startup.
	assert.GreaterOrEqual(t, job.runs.Load(), int64(1))

	runner.Stop()
	assert.False(t, runner.IsRunning())
}

func TestScheduledRunner_StartTwice(t *testing.T) {
	runner, _, _ := setupRunner(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Starting twice should be idempotent.
	runner.Start(ctx)
	runner.Start(ctx)

	time.Sleep(50 * time.Millisecond)
	assert.True(t, runner.IsRunning())

	runner.Stop()
	assert.False(t, runner.IsRunning())
}

func TestScheduledRunner_StopWithoutStart(t *testing.T) {
	runner, _, _ := setupRunner(nil)

	// Stop without starting should not panic.
	runner.Stop()
	assert.False(t, runner.IsRunning())
}

func TestScheduledRunner_PeriodicExecution(t *testing.T) {
	runner, job, reporter := setupRunner(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner.Start(ctx)
	time.Sleep(250 * time.Millisecond)
	runner.Stop()

	// Startup run plus at least one tick.
	assert.GreaterOrEqual(t, job.runs.Load(), int64(2))
	last, ok := reporter.Last()
	require.True(t, ok)
	assert.Equal(t, domain.JobSuccess, last.Result)
}
