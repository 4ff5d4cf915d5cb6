// Package assistant runs one chat turn: gather context, compose the
// prompt, call the model and remember the exchange.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ytclab/ytcbot/internal/botconfig"
	"github.com/ytclab/ytcbot/internal/memory"
	"github.com/ytclab/ytcbot/internal/persona"
	"github.com/ytclab/ytcbot/internal/prompt"
	"github.com/ytclab/ytcbot/internal/provider"
)

// Sampling temperatures for the reply call.
const (
	DefaultTemperature = 1.0
	SearchTemperature  = 0.5
)

// DefaultModelTimeout bounds each model call when Config leaves it unset.
const DefaultModelTimeout = 60 * time.Second

// EmptyReplyText is sent when the model answers with nothing. The
// placeholder is never written to memory: an empty turn leaves no trace in
// either the durable log or the live window.
const EmptyReplyText = "Unable to generate a response."

// Decider returns a search excerpt for a turn, or "", false.
type Decider interface {
	Decide(ctx context.Context, userInput, scope string) (string, bool)
}

// Observer receives turn and model-call measurements. May be nil.
type Observer interface {
	ObserveModelCall(purpose, status string, d time.Duration)
	ObserveTurn(outcome string)
	ObserveMemoryWrite(ok bool)
}

// Config tunes an Assistant.
type Config struct {
	ModelTimeout time.Duration
}

// Deps are the collaborators of an Assistant.
type Deps struct {
	Provider provider.Provider
	Settings *botconfig.Store
	Personas *persona.Store
	Memory   *memory.Store
	Search   Decider
	Observer Observer
	Logger   *slog.Logger
}

// Request is one user turn.
type Request struct {
	AuthorID   string
	AuthorNick string
	Scope      string
	Text       string
}

// Reply is the outcome of a successful turn.
type Reply struct {
	Text string
	// Searched is true when a search excerpt was injected.
	Searched bool
	// Remembered is true when the turn reached durable memory.
	Remembered bool
	// Persona tells which persona source shaped the reply.
	Persona persona.Source
}

// Assistant runs chat turns. Safe for concurrent use.
type Assistant struct {
	deps    Deps
	timeout time.Duration
	tracer  trace.Tracer
	logger  *slog.Logger
}

// New creates an Assistant.
func New(deps Deps, cfg Config) *Assistant {
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = DefaultModelTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		deps:    deps,
		timeout: cfg.ModelTimeout,
		tracer:  otel.Tracer("github.com/ytclab/ytcbot/internal/assistant"),
		logger:  logger.With("component", "assistant"),
	}
}

// ModelTimeout returns the per-call model timeout.
func (a *Assistant) ModelTimeout() time.Duration { return a.timeout }

// Respond runs one turn. The only error it returns is a *ModelCallError
// (or the caller's context error); every other failure degrades.
func (a *Assistant) Respond(ctx context.Context, req Request) (Reply, error) {
	ctx, span := a.tracer.Start(ctx, "assistant.respond", trace.WithAttributes(
		attribute.String("scope", req.Scope),
		attribute.Int("input.length", len(req.Text)),
	))
	defer span.End()

	settings := a.deps.Settings.Current()
	logger := a.logger.With("scope", req.Scope, "author", req.AuthorID)

	// The search decision and the memory read are independent; run them
	// side by side so the decision call does not delay the history lookup.
	var searchText, memoryText string
	g, gctx := errgroup.WithContext(ctx)
	if a.deps.Search != nil {
		g.Go(func() error {
			sctx, sspan := a.tracer.Start(gctx, "assistant.search_decision")
			defer sspan.End()
			searchText, _ = a.deps.Search.Decide(sctx, req.Text, req.Scope)
			sspan.SetAttributes(attribute.Bool("searched", searchText != ""))
			return nil
		})
	}
	if settings.ChatMemory && a.deps.Memory != nil {
		g.Go(func() error {
			memoryText, _ = a.deps.Memory.ReadRecent(gctx, req.Scope, 0)
			return nil
		})
	}
	_ = g.Wait()

	resolved := persona.Resolution{Text: settings.Personality, Source: persona.SourceGlobal}
	if a.deps.Personas != nil {
		resolved = a.deps.Personas.Resolve(req.Scope)
	}

	text := prompt.Build(prompt.Parts{
		SystemPrompt: settings.SystemPrompt,
		Persona:      resolved.Text,
		Memory:       memoryText,
		Search:       searchText,
		AuthorNick:   req.AuthorNick,
		UserText:     req.Text,
	})

	temperature := DefaultTemperature
	if searchText != "" {
		temperature = SearchTemperature
	}

	out, err := a.generate(ctx, "reply", settings.Model, text, temperature)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		a.observeTurn("model_error")
		logger.Error("model call failed", "error", err)
		return Reply{}, err
	}

	reply := Reply{Searched: searchText != "", Persona: resolved.Source}
	if strings.TrimSpace(out) == "" {
		a.observeTurn("empty")
		logger.Warn("model returned an empty reply")
		reply.Text = EmptyReplyText
		return reply, nil
	}
	reply.Text = out

	if settings.ChatMemory && a.deps.Memory != nil {
		err := a.deps.Memory.RecordTurn(ctx, memory.TurnRecord{
			AuthorID:   req.AuthorID,
			AuthorNick: req.AuthorNick,
			Scope:      req.Scope,
			Input:      req.Text,
			Search:     searchText,
			Reply:      out,
		})
		reply.Remembered = err == nil
		if a.deps.Observer != nil {
			a.deps.Observer.ObserveMemoryWrite(err == nil)
		}
	}

	a.observeTurn("ok")
	logger.Info("turn answered",
		"input", truncate(req.Text, 50),
		"output", truncate(out, 50),
		"searched", reply.Searched,
		"persona", string(resolved.Source),
	)
	return reply, nil
}

// generate calls the model under the per-call timeout and classifies
// the failure.
func (a *Assistant) generate(ctx context.Context, purpose, model, text string, temperature float64) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	callCtx, span := a.tracer.Start(callCtx, "assistant.model_call", trace.WithAttributes(
		attribute.String("purpose", purpose),
		attribute.String("model", model),
		attribute.Float64("temperature", temperature),
		attribute.Int("prompt.length", len(text)),
	))
	defer span.End()

	start := time.Now()
	out, err := provider.Generate(callCtx, a.deps.Provider, model, text, temperature)
	elapsed := time.Since(start)

	if err != nil {
		// A caller that went away is not a model failure.
		if ctx.Err() != nil {
			a.observeModel(purpose, "cancelled", elapsed)
			return "", ctx.Err()
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = errors.Join(ErrModelTimeout, err)
			a.observeModel(purpose, "timeout", elapsed)
		} else {
			a.observeModel(purpose, provider.Reason(err), elapsed)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", &ModelCallError{Err: err}
	}
	a.observeModel(purpose, "ok", elapsed)
	return out, nil
}

func (a *Assistant) observeModel(purpose, status string, d time.Duration) {
	if a.deps.Observer != nil {
		a.deps.Observer.ObserveModelCall(purpose, status, d)
	}
}

func (a *Assistant) observeTurn(outcome string) {
	if a.deps.Observer != nil {
		a.deps.Observer.ObserveTurn(outcome)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
