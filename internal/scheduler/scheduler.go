// Package scheduler triggers a pipeline run once a day.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/pipeline"
	"github.com/go-co-op/gocron"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context) (pipeline.RunReport, error)
}

// Scheduler runs the pipeline daily at a fixed UTC wall-clock time. Runs
// never overlap: a trigger that fires while a run is active waits for it.
type Scheduler struct {
	scheduler *gocron.Scheduler
	job       *gocron.Job
	runner    Runner
	at        string
	logger    *slog.Logger
}

// New creates a Scheduler that fires daily at at ("HH:MM", UTC).
func New(runner Runner, at string, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		at:        at,
		logger:    logger,
	}
}

// Start registers the daily job and starts the scheduler in the background.
// ctx is handed to every run; cancel it to abort an in-flight run.
func (s *Scheduler) Start(ctx context.Context) error {
	job, err := s.scheduler.Every(1).Day().At(s.at).Do(func() {
		s.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule daily run at %s: %w", s.at, err)
	}
	s.job = job

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "at", s.at, "next_run", job.NextRun())
	return nil
}

// RunNow triggers the job immediately, outside the daily schedule.
func (s *Scheduler) RunNow() {
	s.scheduler.RunAll()
}

// NextRun returns when the daily job fires next, or the zero time before Start.
func (s *Scheduler) NextRun() time.Time {
	if s.job == nil {
		return time.Time{}
	}
	return s.job.NextRun()
}

// Stop stops the scheduler and cancels any future runs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		s.logger.Warn("scheduled run skipped", "error", err)
	case err != nil:
		s.logger.Error("scheduled run failed", "run_id", report.ID, "error", err)
	default:
		s.logger.Info("scheduled run complete", "run_id", report.ID, "next_run", s.NextRun())
	}
}
