// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalogsync

import (
	"context"
	"log/slog"
	"time"
)

// Runner is the part of the [Orchestrator] the scheduler drives.
type Runner interface {
	RunAll(ctx context.Context, trigger string) (*Report, error)
}

// Scheduler invokes the "all providers" run on a fixed cadence.
type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

// NewScheduler constructs a [Scheduler]. Each tick gets its own runTimeout budget.
func NewScheduler(runner Runner, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{runner: runner, interval: interval, runTimeout: runTimeout, logger: logger}
}

// Start blocks, running once per interval until ctx is cancelled. The first
// run happens one interval after Start.
func (scheduler *Scheduler) Start(ctx context.Context) {
	if scheduler.interval <= 0 {
		scheduler.logger.Warn("sync_scheduler_disabled")
		return
	}

	ticker := time.NewTicker(scheduler.interval)
	defer ticker.Stop()

	scheduler.logger.Info("sync_scheduler_started", slog.Duration("interval", scheduler.interval))

	for {
		select {
		case <-ctx.Done():
			scheduler.logger.Info("sync_scheduler_stopped")
			return
		case <-ticker.C:
			scheduler.tick(ctx)
		}
	}
}

func (scheduler *Scheduler) tick(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, scheduler.runTimeout)
	defer cancel()

	report, err := scheduler.runner.RunAll(runCtx, TriggerSchedule)
	if err != nil {
		scheduler.logger.Error("scheduled_sync_failed", slog.Any("error", err))
		return
	}
	if !report.OK() {
		scheduler.logger.Warn("scheduled_sync_partial", slog.String("run_id", report.RunID), slog.Int("failed", report.Count(StateFailed)))
	}
}
