package router

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ytclab/ytcbot/pkg/message"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkerCount is the number of turns run at once when none is configured.
const DefaultWorkerCount = 10

// envelope is one queued turn.
type envelope struct {
	Message message.InboundMessage
	Scope   string
}

// workers dispatches inbox envelopes onto per-scope queues. Each scope has
// at most one drainer goroutine, created on first use and reaped once its
// queue is empty, so turns within a scope run in arrival order. At most
// count turns run at once; a turn only takes a slot when it reaches the
// head of its scope, so a busy scope never holds slots other scopes need.
// A handler panic is logged and the drainer moves on to the next envelope.
type workers struct {
	count  int
	slots  chan struct{}
	logger *slog.Logger

	dispatch errgroup.Group
	drainers sync.WaitGroup

	mu     sync.Mutex
	queues map[string][]envelope
}

func newWorkers(count int, logger *slog.Logger) *workers {
	if count <= 0 {
		count = DefaultWorkerCount
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &workers{
		count:  count,
		slots:  make(chan struct{}, count),
		logger: logger,
		queues: make(map[string][]envelope),
	}
}

// run consumes inbox until it is closed.
func (w *workers) run(ctx context.Context, inbox <-chan envelope, handle func(context.Context, envelope)) {
	w.dispatch.Go(func() error {
		for env := range inbox {
			w.enqueue(ctx, env, handle)
		}
		return nil
	})
}

func (w *workers) enqueue(ctx context.Context, env envelope, handle func(context.Context, envelope)) {
	w.mu.Lock()
	pending, draining := w.queues[env.Scope]
	w.queues[env.Scope] = append(pending, env)
	w.mu.Unlock()
	if draining {
		return
	}
	w.drainers.Add(1)
	go w.drain(ctx, env.Scope, handle)
}

// drain runs the queued turns of one scope until none are left.
func (w *workers) drain(ctx context.Context, scope string, handle func(context.Context, envelope)) {
	defer w.drainers.Done()
	for {
		w.mu.Lock()
		pending := w.queues[scope]
		if len(pending) == 0 {
			delete(w.queues, scope)
			w.mu.Unlock()
			return
		}
		env := pending[0]
		pending[0] = envelope{}
		w.queues[scope] = pending[1:]
		w.mu.Unlock()

		w.handleOne(ctx, env, handle)
	}
}

func (w *workers) handleOne(ctx context.Context, env envelope, handle func(context.Context, envelope)) {
	select {
	case w.slots <- struct{}{}:
	case <-ctx.Done():
		w.abandon(env)
		return
	}
	defer func() { <-w.slots }()
	if ctx.Err() != nil {
		w.abandon(env)
		return
	}
	defer func() {
		if v := recover(); v != nil {
			w.logger.Error("turn panicked", "scope", env.Scope, "message_id", env.Message.ID, "panic", v)
		}
	}()
	handle(ctx, env)
}

func (w *workers) abandon(env envelope) {
	w.logger.Warn("turn abandoned while waiting for a worker", "scope", env.Scope, "message_id", env.Message.ID)
}

// pending reports how many scopes have queued or running turns.
func (w *workers) pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queues)
}

// wait blocks until the inbox is drained and every scope queue is empty.
func (w *workers) wait() {
	_ = w.dispatch.Wait()
	w.drainers.Wait()
}
