package cron

import (
	"context"
	"testing"
	"time"
)

type fakeWindows struct {
	count   int
	prune   int
	gotIdle time.Duration
	calls   int
}

func (f *fakeWindows) PruneIdle(maxIdle time.Duration) int {
	f.calls++
	f.gotIdle = maxIdle
	f.count -= f.prune
	return f.prune
}

func (f *fakeWindows) WindowCount() int { return f.count }

type sweepFunc func() int

func (f sweepFunc) Sweep() int { return f() }

type gauge struct{ last int }

func (g *gauge) ObserveVolatileWindows(n int) { g.last = n }

func TestVolatilePruneJob_Run(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		maxIdle  time.Duration
		wantIdle time.Duration
	}{
		{name: "configured", maxIdle: 10 * time.Minute, wantIdle: 10 * time.Minute},
		{name: "default", maxIdle: 0, wantIdle: DefaultMaxIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			windows := &fakeWindows{count: 5, prune: 2}
			swept := 0
			g := &gauge{}
			j := &VolatilePruneJob{
				Windows:  windows,
				Sweeper:  sweepFunc(func() int { swept++; return 1 }),
				Observer: g,
				MaxIdle:  tt.maxIdle,
			}

			if err := j.Run(context.Background()); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if windows.gotIdle != tt.wantIdle {
				t.Errorf("maxIdle = %v, want %v", windows.gotIdle, tt.wantIdle)
			}
			if swept != 1 {
				t.Errorf("sweeps = %d, want 1", swept)
			}
			if g.last != 3 {
				t.Errorf("observed windows = %d, want 3", g.last)
			}
		})
	}
}

func TestVolatilePruneJob_OptionalCollaborators(t *testing.T) {
	t.Parallel()
	windows := &fakeWindows{count: 1}
	j := &VolatilePruneJob{Windows: windows}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if windows.calls != 1 {
		t.Errorf("prune calls = %d, want 1", windows.calls)
	}
}

func TestVolatilePruneJob_Cancelled(t *testing.T) {
	t.Parallel()
	windows := &fakeWindows{}
	j := &VolatilePruneJob{Windows: windows}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := j.Run(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if windows.calls != 0 {
		t.Errorf("prune ran after cancellation")
	}
}

func TestVolatilePruneJob_Schedule(t *testing.T) {
	t.Parallel()
	if got := (&VolatilePruneJob{}).Schedule(); got != DefaultPruneSchedule {
		t.Errorf("Schedule() = %q, want %q", got, DefaultPruneSchedule)
	}
	if got := (&VolatilePruneJob{ScheduleExpr: "@hourly"}).Schedule(); got != "@hourly" {
		t.Errorf("Schedule() = %q, want @hourly", got)
	}
}
