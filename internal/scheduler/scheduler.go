package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Task is one unit of scheduled work, typically a full pipeline run.
type Task func(ctx context.Context) error

// Scheduler owns the main loop: runs the task immediately, then again each
// interval after the previous run finished. Runs never overlap.
type Scheduler struct {
	task     Task
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler that runs task at the given interval.
func NewScheduler(task Task, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		task:     task,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the loop. It returns nil when ctx is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "interval", s.interval.String())

	for cycle := 1; ; cycle++ {
		s.runOnce(ctx, cycle)

		next := time.Now().Add(s.interval)
		s.logger.Info("next run scheduled", "at", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return nil
		case <-time.After(s.interval):
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, cycle int) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := s.task(ctx); err != nil {
		s.logger.Error("scheduled run failed", "cycle", cycle, "duration", time.Since(start).Round(time.Millisecond), "error", err)
		return
	}
	s.logger.Info("scheduled run complete", "cycle", cycle, "duration", time.Since(start).Round(time.Millisecond))
}
