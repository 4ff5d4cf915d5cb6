package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/ytclab/ytcbot/internal/channel"
	"github.com/ytclab/ytcbot/internal/lane"
	"github.com/ytclab/ytcbot/pkg/message"
)

// PipelineConfig groups the dependencies of a Pipeline.
type PipelineConfig struct {
	Lanes          *lane.Lock
	Policy         Policy
	Handler        Handler
	ResponseSender ResponseSender
	Typing         TypingLookup
	Limiter        Limiter
	TypingInterval time.Duration
	ErrorText      func(err error) string
	Logger         *slog.Logger
}

// PipelineResult contains the outcome of pipeline execution.
type PipelineResult struct {
	Task    string
	Reply   string
	Error   error
	Skipped bool
}

// Pipeline processes a single inbound message:
//
//  1. policy check
//  2. handler preparation (command parsing, chat detection)
//  3. per-sender rate limit for chat turns
//  4. per-scope lane lock
//  5. typing indicator for chat turns
//  6. task execution
//  7. reply or failure notice delivery
type Pipeline struct {
	cfg PipelineConfig
}

// NewPipeline creates a new pipeline with the given configuration.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Lanes == nil {
		cfg.Lanes = lane.New()
	}
	if cfg.ErrorText == nil {
		cfg.ErrorText = func(error) string { return DefaultErrorText }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{cfg: cfg}
}

// Execute runs the pipeline for one message.
func (p *Pipeline) Execute(ctx context.Context, env envelope) PipelineResult {
	msg := env.Message
	logger := p.cfg.Logger.With(
		"channel", msg.Channel,
		"scope", env.Scope,
		"sender", msg.Sender.ID,
	)
	logger.Debug("message received", "message_id", msg.ID)

	if !p.cfg.Policy.ShouldProcess(msg) {
		logger.Debug("message filtered by policy")
		return PipelineResult{Skipped: true}
	}

	task, ok := p.cfg.Handler.Prepare(msg)
	if !ok {
		return PipelineResult{Skipped: true}
	}

	if task.Chat && p.cfg.Limiter != nil {
		if err := p.cfg.Limiter.Allow(msg.Sender.ID); err != nil {
			logger.Info("chat turn rate limited", "error", err)
			p.sendError(ctx, msg, RateLimitedText)
			return PipelineResult{Task: task.Name, Error: err}
		}
	}

	// The router already serializes a scope; the lane guards direct callers.
	// Waiting gives up on shutdown.
	if err := p.cfg.Lanes.Acquire(ctx, env.Scope); err != nil {
		logger.Warn("turn abandoned while waiting for scope", "task", task.Name, "error", err)
		return PipelineResult{Task: task.Name, Error: err}
	}
	defer p.cfg.Lanes.Release(env.Scope)

	var stopTyping context.CancelFunc
	if task.Chat && p.cfg.Typing != nil {
		if tc, ok := p.cfg.Typing.Typing(msg.Channel); ok {
			typingCtx, cancel := context.WithCancel(ctx)
			stopTyping = cancel
			channel.StartTypingLoop(typingCtx, tc, msg.Chat, p.cfg.TypingInterval)
		}
	}

	start := time.Now()
	reply, err := task.Run(ctx)
	if stopTyping != nil {
		stopTyping()
	}

	if err != nil {
		logger.Error("task failed", "task", task.Name, "error", err, "duration", time.Since(start))
		if ctx.Err() == nil {
			p.sendError(ctx, msg, p.cfg.ErrorText(err))
		}
		return PipelineResult{Task: task.Name, Error: err}
	}

	if reply != "" {
		if err := p.cfg.ResponseSender.Send(ctx, message.ReplyTo(msg, reply)); err != nil {
			logger.Error("failed to send response", "task", task.Name, "error", err)
			return PipelineResult{Task: task.Name, Reply: reply, Error: err}
		}
	}
	logger.Debug("task done", "task", task.Name, "duration", time.Since(start))
	return PipelineResult{Task: task.Name, Reply: reply}
}

// sendError sends a user-friendly error message via ResponseSender. Never panics.
func (p *Pipeline) sendError(ctx context.Context, original message.InboundMessage, text string) {
	if err := p.cfg.ResponseSender.Send(ctx, message.ReplyTo(original, text)); err != nil {
		p.cfg.Logger.Error("failed to send error message", "error", err)
	}
}
