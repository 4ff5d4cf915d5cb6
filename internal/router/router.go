package router

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ytclab/ytcbot/internal/channel"
	"github.com/ytclab/ytcbot/internal/lane"
	"github.com/ytclab/ytcbot/pkg/message"
)

const (
	defaultInboxSize      = 256
	defaultMaxMessageSize = 16 << 10
)

// Task is one prepared unit of work for an inbound message.
type Task struct {
	// Name labels the task in logs, e.g. a command name or "chat".
	Name string
	// Chat marks a model turn. A typing indicator is shown while it runs.
	Chat bool
	// Run produces the reply text. An empty reply sends nothing.
	Run func(ctx context.Context) (string, error)
}

// Handler decides what to do with an inbound message. ok is false when
// the message is not addressed to the bot.
type Handler interface {
	Prepare(msg message.InboundMessage) (task Task, ok bool)
}

// ResponseSender delivers outbound messages. channel.Dispatcher
// implements it.
type ResponseSender interface {
	Send(ctx context.Context, msg message.OutboundMessage) error
}

// TypingLookup resolves channels able to show typing indicators.
type TypingLookup interface {
	Typing(name string) (channel.TypingChannel, bool)
}

// Limiter bounds how often one sender may start a chat turn.
// security.RateLimiter implements it.
type Limiter interface {
	Allow(key string) error
}

// Observer receives router measurements. May be nil.
type Observer interface {
	ObserveInboxDepth(n int)
}

// Config holds the configuration for a Router.
type Config struct {
	WorkerCount    int
	InboxSize      int
	Policy         Policy
	Handler        Handler
	ResponseSender ResponseSender
	Typing         TypingLookup
	Observer       Observer
	Limiter        Limiter
	Logger         *slog.Logger

	// ErrorText maps a failed task to the text shown to the user. Nil uses
	// DefaultErrorText for every error.
	ErrorText func(err error) string

	// MaxMessageSize is the maximum inbound text size in bytes. Zero means
	// 16 KiB.
	MaxMessageSize int

	// TypingInterval overrides channel.DefaultTypingInterval.
	TypingInterval time.Duration
}

// DefaultErrorText is sent when a task fails and Config.ErrorText is nil.
const DefaultErrorText = "An error occurred while processing your message."

// RateLimitedText is sent when a sender exceeds the chat rate limit.
const RateLimitedText = "You are sending messages too quickly. Please wait a moment."

// withDefaults returns a copy of the config with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.WorkerCount <= 0 {
		c.WorkerCount = DefaultWorkerCount
	}
	if c.InboxSize <= 0 {
		c.InboxSize = defaultInboxSize
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	if c.ErrorText == nil {
		c.ErrorText = func(error) string { return DefaultErrorText }
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Router is the central dispatch layer. Turns for the same scope run one
// after another in arrival order; turns for different scopes run in
// parallel, up to WorkerCount at once.
type Router struct {
	config   Config
	inbox    chan envelope
	inboxMu  sync.RWMutex
	workers  *workers
	pipeline *Pipeline
	cancel   context.CancelFunc
	stopOnce sync.Once
	logger   *slog.Logger
	stopped  atomic.Bool
}

// NewRouter creates a new Router with the given configuration.
func NewRouter(cfg Config) (*Router, error) {
	cfg = cfg.withDefaults()

	if cfg.Handler == nil {
		return nil, ErrNoHandler
	}
	if cfg.ResponseSender == nil {
		return nil, ErrNoResponseSender
	}

	logger := cfg.Logger.With("component", "router")

	return &Router{
		config:  cfg,
		inbox:   make(chan envelope, cfg.InboxSize),
		workers: newWorkers(cfg.WorkerCount, logger),
		pipeline: NewPipeline(PipelineConfig{
			Lanes:          lane.New(),
			Policy:         cfg.Policy,
			Handler:        cfg.Handler,
			ResponseSender: cfg.ResponseSender,
			Typing:         cfg.Typing,
			Limiter:        cfg.Limiter,
			TypingInterval: cfg.TypingInterval,
			ErrorText:      cfg.ErrorText,
			Logger:         logger,
		}),
		logger: logger,
	}, nil
}

// Start launches the inbox workers and begins processing messages.
func (r *Router) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.inboxMu.Lock()
	if r.stopped.Load() {
		r.inboxMu.Unlock()
		cancel()
		r.logger.Warn("start ignored, router already stopped")
		return
	}
	r.cancel = cancel
	r.inboxMu.Unlock()

	r.workers.run(ctx, r.inbox, func(ctx context.Context, env envelope) {
		r.observeDepth()
		r.pipeline.Execute(ctx, env)
	})
	r.logger.Info("started", "workers", r.workers.count, "inbox_size", r.config.InboxSize)
}

// Submit enqueues an inbound message for processing. It never blocks: when
// the inbox is full the message is dropped and ErrInboxFull returned.
func (r *Router) Submit(msg message.InboundMessage) error {
	r.inboxMu.RLock()
	defer r.inboxMu.RUnlock()

	if r.stopped.Load() {
		return ErrRouterStopped
	}

	if len(msg.Text) > r.config.MaxMessageSize {
		r.logger.Warn("message too large, rejected",
			"size", len(msg.Text),
			"channel", msg.Channel,
		)
		return ErrMessageTooLarge
	}

	env := envelope{Message: msg, Scope: msg.Scope()}

	select {
	case r.inbox <- env:
		r.observeDepth()
		return nil
	default:
		r.logger.Warn("inbox full, message dropped",
			"channel", msg.Channel,
			"scope", env.Scope,
		)
		return ErrInboxFull
	}
}

// Stop gracefully shuts down the router: closes inbox, cancels in-flight
// turns and waits for the workers.
func (r *Router) Stop(_ context.Context) {
	r.stopOnce.Do(func() {
		r.logger.Info("stopping")

		r.inboxMu.Lock()
		r.stopped.Store(true)
		close(r.inbox)
		cancel := r.cancel
		r.inboxMu.Unlock()

		// Cancel before waiting so in-flight handlers can terminate.
		if cancel != nil {
			cancel()
		}

		r.workers.wait()
		r.logger.Info("stopped")
	})
}

// ActiveScopes returns the number of scopes with a turn running or queued.
func (r *Router) ActiveScopes() int {
	return r.workers.pending()
}

func (r *Router) observeDepth() {
	if r.config.Observer != nil {
		r.config.Observer.ObserveInboxDepth(len(r.inbox))
	}
}
