package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Measdoulas/CASHRULER-sub000/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Job is one unit of scheduled work: a single generation or reminder pass.
// Run returns the job's report payload alongside its error; the report is
// what a manual trigger serializes back to the caller.
type Job interface {
	Name() string
	Run(ctx context.Context, asOf time.Time) (any, error)
}

// ScheduledRunner wraps a Job with periodic, at-least-once execution and
// classifies every run into success, retry, or permanent failure. It never
// lets an error propagate unclassified. Rescheduling and backoff timing
// belong to the reporting collaborator, not the runner.
type ScheduledRunner struct {
	job      Job
	reporter domain.JobReporter
	logger   zerolog.Logger
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// RunnerConfig holds configuration for a scheduled runner
type RunnerConfig struct {
	Interval time.Duration // How often to run the job
}

// DefaultRunnerConfig returns sensible defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Interval: 1 * time.Hour,
	}
}

// NewScheduledRunner creates a new ScheduledRunner
func NewScheduledRunner(job Job, reporter domain.JobReporter, logger zerolog.Logger, config RunnerConfig) *ScheduledRunner {
	if config.Interval <= 0 {
		config.Interval = 1 * time.Hour
	}

	return &ScheduledRunner{
		job:      job,
		reporter: reporter,
		logger:   logger.With().Str("component", "runner").Str("job", job.Name()).Logger(),
		interval: config.Interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins periodic execution
func (r *ScheduledRunner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	r.logger.Info().Dur("interval", r.interval).Msg("Starting runner")

	go r.run(ctx)
}

// Stop gracefully stops the runner
func (r *ScheduledRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.logger.Info().Msg("Stopping runner")
	close(r.stopCh)
	<-r.doneCh
	r.logger.Info().Msg("Runner stopped")
}

// IsRunning returns whether the runner is currently running
func (r *ScheduledRunner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// run is the main loop for the runner
func (r *ScheduledRunner) run(ctx context.Context) {
	defer close(r.doneCh)

	// Run immediately on startup
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			r.running = false
			r.mu.Unlock()
			return
		case <-r.stopCh:
			r.mu.Lock()
			r.running = false
			r.mu.Unlock()
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOutcome is the classified result of one run plus the job's report payload.
type RunOutcome struct {
	Result domain.JobResult `json:"result"`
	Report any              `json:"report,omitempty"`
}

// RunOnce executes a single invocation of the job and returns its
// classification and report. The result is also reported to the scheduling
// collaborator.
func (r *ScheduledRunner) RunOnce(ctx context.Context) RunOutcome {
	runID := uuid.New()
	start := time.Now()
	logger := r.logger.With().Str("run_id", runID.String()).Logger()

	report, err := r.job.Run(ctx, start)
	result := classifyRunError(err)
	elapsed := time.Since(start)

	switch result {
	case domain.JobSuccess:
		logger.Info().Dur("elapsed", elapsed).Msg("Run succeeded")
	case domain.JobRetry:
		logger.Warn().Err(err).Dur("elapsed", elapsed).Msg("Run will be retried")
	case domain.JobFailure:
		logger.Error().Err(err).Dur("elapsed", elapsed).Msg("Run failed permanently")
	}

	if r.reporter != nil {
		r.reporter.Report(r.job.Name(), result)
	}

	return RunOutcome{Result: result, Report: report}
}

// classifyRunError maps a run error to the tri-state job result. Unclassified
// errors, transient store failures, and cancellation all map conservatively
// to retry; only data that can never succeed maps to permanent failure.
func classifyRunError(err error) domain.JobResult {
	switch {
	case err == nil:
		return domain.JobSuccess
	case errors.Is(err, domain.ErrMalformedTemplate):
		return domain.JobFailure
	default:
		return domain.JobRetry
	}
}
