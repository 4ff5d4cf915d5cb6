// Package search decides, per chat turn, whether fresh external
// information would help, and fetches it when it would.
package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ytclab/ytcbot/internal/botconfig"
	"github.com/ytclab/ytcbot/internal/provider"
)

// DecisionTemperature is the sampling temperature of the decision call.
const DecisionTemperature = 0.5

// Decision outcomes reported to Engine.OnDecision.
const (
	OutcomeDisabled    = "disabled"
	OutcomeNoSearch    = "no_search"
	OutcomeSearched    = "searched"
	OutcomeModelError  = "model_error"
	OutcomeParseError  = "parse_error"
	OutcomeSearchError = "search_error"
	OutcomePanic       = "panic"
)

// MemoryReader supplies the recent history shown to the decision model.
type MemoryReader interface {
	ReadRecent(ctx context.Context, scope string, count int) (string, bool)
}

// Engine runs the search decision.
type Engine struct {
	Provider provider.Provider
	Searcher Searcher
	// Settings returns the current bot settings.
	Settings func() botconfig.Settings
	// Memory is consulted when chat memory is enabled. May be nil.
	Memory MemoryReader
	// Timeout bounds the decision model call. Zero means no extra bound.
	Timeout time.Duration
	Logger  *slog.Logger
	// OnDecision, when set, is called once per Decide with the outcome.
	OnDecision func(outcome string)
}

// Decide returns a search excerpt for userInput, or "", false when search
// is disabled, not warranted, or anything on the way fails. It never
// returns an error: a failed decision just means no search. A panic in
// the provider or searcher is recovered and reported as OutcomePanic.
func (e *Engine) Decide(ctx context.Context, userInput, scope string) (result string, ok bool) {
	settings := e.Settings()
	if !settings.UseSearchEngine {
		e.report(OutcomeDisabled)
		return "", false
	}
	logger := e.logger().With("scope", scope)
	defer func() {
		if v := recover(); v != nil {
			logger.Error("search decision panicked", "panic", v)
			e.report(OutcomePanic)
			result, ok = "", false
		}
	}()

	var memoryText string
	if settings.ChatMemory && e.Memory != nil {
		memoryText, _ = e.Memory.ReadRecent(ctx, scope, 0)
	}

	callCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	raw, err := provider.Generate(callCtx, e.Provider, settings.Model,
		DecisionPrompt(settings.SystemPrompt, memoryText, userInput), DecisionTemperature)
	if err != nil {
		logger.Error("search decision call failed", "error", err)
		e.report(OutcomeModelError)
		return "", false
	}
	if strings.TrimSpace(raw) == "" {
		logger.Error("search decision returned empty output")
		e.report(OutcomeParseError)
		return "", false
	}

	verdict, err := ParseVerdict(raw)
	if err != nil {
		logger.Error("search verdict unparseable", "error", err, "output", truncate(raw, 200))
		e.report(OutcomeParseError)
		return "", false
	}
	if !verdict.Wants() {
		e.report(OutcomeNoSearch)
		return "", false
	}

	found, err := e.Searcher.Search(ctx, strings.TrimSpace(verdict.Query))
	if err != nil {
		logger.Error("search failed", "query", verdict.Query, "error", err)
		e.report(OutcomeSearchError)
		return "", false
	}
	logger.Info("search performed", "query", verdict.Query)
	e.report(OutcomeSearched)
	return found, found != ""
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default().With("component", "search")
}

func (e *Engine) report(outcome string) {
	if e.OnDecision != nil {
		e.OnDecision(outcome)
	}
}

// DecisionPrompt builds the prompt asking the model for a verdict.
func DecisionPrompt(systemPrompt, memoryText, userInput string) string {
	var b strings.Builder
	if systemPrompt != "" {
		b.WriteString(systemPrompt)
		b.WriteString("\n\n")
	}
	b.WriteString(`Based on the user input and conversation history below, decide whether live information from the web is needed, and if so give a good search query (answer "無" when no search is needed).
Your task:
1. Decide whether the question involves real-time, recent, or beyond-general-knowledge topics.
2. If a search is needed, give effective search keywords adjusted to the conversation context.
3. If no search is needed, answer {"search": false, "query":"無"}.
`)
	if memoryText != "" {
		b.WriteString("\n### Conversation history:\n")
		b.WriteString(memoryText)
	}
	b.WriteString("\n### User input:\n")
	b.WriteString(userInput)
	b.WriteString(`

### Output format:
- Use JSON.
- Example outputs:
{"search": true, "query":"2025 Taiwan presidential election candidates"}
{"search": true, "query":"Warriors game result yesterday"}
{"search": false, "query":"無"}
`)
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
