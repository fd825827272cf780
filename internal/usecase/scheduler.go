package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"ArticlesHarvester/internal/domain"
	"ArticlesHarvester/internal/logging"
	"ArticlesHarvester/internal/ports"
)

// Runner is the piece of the pipeline the scheduler drives.
type Runner interface {
	Run(ctx context.Context, params domain.RunParams) (domain.Summary, error)
}

// Scheduler wires the cron-like driver with the pipeline use case.
type Scheduler struct {
	driver  ports.Scheduler
	runner  Runner
	params  domain.RunParams
	logger  *slog.Logger
	running atomic.Bool
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, runner Runner, params domain.RunParams, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{driver: driver, runner: runner, params: params, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}
	return s.driver.Start(ctx, func(trigger time.Time) {
		s.Trigger(ctx, trigger)
	})
}

// Trigger runs the pipeline once unless a previous run is still in flight.
// It reports whether a run was started.
func (s *Scheduler) Trigger(ctx context.Context, trigger time.Time) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous run still in progress, skipping tick", "trigger", trigger)
		return false
	}
	defer s.running.Store(false)

	summary, err := s.runner.Run(ctx, s.params)
	if err != nil {
		s.logger.Error("scheduled run failed", "trigger", trigger, "error", err)
		return true
	}
	s.logger.Info("scheduled run done", "trigger", trigger, "run_id", summary.RunID, "succeeded", summary.Succeeded, "failed", summary.Failed)
	return true
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
