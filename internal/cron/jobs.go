package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultPruneSchedule runs the volatile prune every five minutes.
const DefaultPruneSchedule = "*/5 * * * *"

// DefaultMaxIdle is how long a volatile window may sit unused.
const DefaultMaxIdle = 30 * time.Minute

// WindowPruner drops idle volatile conversation windows.
type WindowPruner interface {
	PruneIdle(maxIdle time.Duration) int
	WindowCount() int
}

// Sweeper drops stale per-key state, such as rate limiter buckets.
type Sweeper interface {
	Sweep() int
}

// GaugeObserver receives the window count after each prune.
type GaugeObserver interface {
	ObserveVolatileWindows(n int)
}

// VolatilePruneJob keeps the in-process memory bounded: it drops volatile
// windows idle longer than MaxIdle and sweeps the optional Sweeper.
type VolatilePruneJob struct {
	Windows      WindowPruner
	Sweeper      Sweeper
	Observer     GaugeObserver
	MaxIdle      time.Duration
	ScheduleExpr string
	Logger       *slog.Logger
}

var _ Job = (*VolatilePruneJob)(nil)

// Name implements Job.
func (j *VolatilePruneJob) Name() string { return "volatile_prune" }

// Schedule implements Job.
func (j *VolatilePruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return DefaultPruneSchedule
}

// Run implements Job.
func (j *VolatilePruneJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cron: volatile prune cancelled: %w", err)
	}

	maxIdle := j.MaxIdle
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}

	pruned := j.Windows.PruneIdle(maxIdle)
	swept := 0
	if j.Sweeper != nil {
		swept = j.Sweeper.Sweep()
	}
	remaining := j.Windows.WindowCount()
	if j.Observer != nil {
		j.Observer.ObserveVolatileWindows(remaining)
	}

	if pruned > 0 || swept > 0 {
		j.logger().Info("pruned idle state", "windows", pruned, "rate_buckets", swept, "remaining", remaining)
	}
	return nil
}

func (j *VolatilePruneJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
