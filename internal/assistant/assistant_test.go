package assistant_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ytclab/ytcbot/internal/assistant"
	"github.com/ytclab/ytcbot/internal/botconfig"
	"github.com/ytclab/ytcbot/internal/memory"
	"github.com/ytclab/ytcbot/internal/persona"
	"github.com/ytclab/ytcbot/internal/provider"
	"github.com/ytclab/ytcbot/internal/provider/providertest"
)

type fixedDecider struct{ text string }

func (d fixedDecider) Decide(context.Context, string, string) (string, bool) {
	return d.text, d.text != ""
}

type recordingObserver struct {
	turns  []string
	models []string
	writes []bool
}

func (o *recordingObserver) ObserveModelCall(purpose, status string, _ time.Duration) {
	o.models = append(o.models, purpose+":"+status)
}
func (o *recordingObserver) ObserveTurn(outcome string) { o.turns = append(o.turns, outcome) }
func (o *recordingObserver) ObserveMemoryWrite(ok bool) { o.writes = append(o.writes, ok) }

type fixture struct {
	asst     *assistant.Assistant
	provider *providertest.MockProvider
	memory   *memory.Store
	personas *persona.Store
	observer *recordingObserver
}

func newFixture(t *testing.T, settings botconfig.Settings, search string, cfg assistant.Config) *fixture {
	t.Helper()
	dir := t.TempDir()
	store := botconfig.NewStatic(settings)
	mem := memory.NewStore(memory.NewFileLog(dir+"/memory", nil), memory.Config{}, nil)
	personas := persona.NewStore(dir+"/personality", func() string { return store.Current().Personality }, nil)
	p := &providertest.MockProvider{Reply: "hello back"}
	obs := &recordingObserver{}
	a := assistant.New(assistant.Deps{
		Provider: p,
		Settings: store,
		Personas: personas,
		Memory:   mem,
		Search:   fixedDecider{text: search},
		Observer: obs,
	}, cfg)
	return &fixture{asst: a, provider: p, memory: mem, personas: personas, observer: obs}
}

func baseSettings() botconfig.Settings {
	return botconfig.Settings{
		SystemPrompt: "You are YTC.",
		Personality:  "cheerful",
		Model:        "test-model",
		ChatMemory:   true,
	}
}

var req = assistant.Request{AuthorID: "42", AuthorNick: "Ann", Scope: "chan-1", Text: "hi there"}

func TestRespondComposesPromptAndRemembers(t *testing.T) {
	t.Parallel()
	f := newFixture(t, baseSettings(), "", assistant.Config{})

	reply, err := f.asst.Respond(context.Background(), req)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if reply.Text != "hello back" || reply.Searched || !reply.Remembered {
		t.Fatalf("reply = %+v", reply)
	}
	if reply.Persona != persona.SourceGlobal {
		t.Errorf("Persona = %q, want %q", reply.Persona, persona.SourceGlobal)
	}

	reqs := f.provider.Requests()
	if len(reqs) != 1 {
		t.Fatalf("provider calls = %d, want 1", len(reqs))
	}
	got := reqs[0]
	if got.Model != "test-model" {
		t.Errorf("Model = %q", got.Model)
	}
	if got.Temperature == nil || *got.Temperature != assistant.DefaultTemperature {
		t.Errorf("Temperature = %v, want %v", got.Temperature, assistant.DefaultTemperature)
	}
	for _, want := range []string{"You are YTC.", "cheerful", "### User Ann:", "hi there", "### Your reply:"} {
		if !strings.Contains(got.Prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, got.Prompt)
		}
	}
	if strings.Contains(got.Prompt, "### Reference material:") {
		t.Errorf("prompt has a reference section without search:\n%s", got.Prompt)
	}

	text, ok := f.memory.ReadRecent(context.Background(), "chan-1", 0)
	if !ok || !strings.Contains(text, "Input: hi there") || !strings.Contains(text, "Reply: hello back") {
		t.Fatalf("memory = %q, %v", text, ok)
	}
	if len(f.observer.turns) != 1 || f.observer.turns[0] != "ok" {
		t.Errorf("turn outcomes = %v", f.observer.turns)
	}
}

func TestRespondUsesHistoryOnNextTurn(t *testing.T) {
	t.Parallel()
	f := newFixture(t, baseSettings(), "", assistant.Config{})
	ctx := context.Background()

	if _, err := f.asst.Respond(ctx, req); err != nil {
		t.Fatal(err)
	}
	if _, err := f.asst.Respond(ctx, req); err != nil {
		t.Fatal(err)
	}
	second := f.provider.Requests()[1].Prompt
	if !strings.Contains(second, "### Conversation history:") || !strings.Contains(second, "Reply: hello back") {
		t.Fatalf("second prompt lacks history:\n%s", second)
	}
}

func TestRespondWithSearchLowersTemperature(t *testing.T) {
	t.Parallel()
	settings := baseSettings()
	settings.UseSearchEngine = true
	f := newFixture(t, settings, "fresh facts", assistant.Config{})

	reply, err := f.asst.Respond(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !reply.Searched {
		t.Error("Searched = false")
	}
	got := f.provider.Requests()[0]
	if *got.Temperature != assistant.SearchTemperature {
		t.Errorf("Temperature = %v, want %v", *got.Temperature, assistant.SearchTemperature)
	}
	if !strings.Contains(got.Prompt, "### Reference material:\nfresh facts") {
		t.Errorf("prompt lacks search excerpt:\n%s", got.Prompt)
	}
	text, _ := f.memory.ReadRecent(context.Background(), "chan-1", 0)
	if !strings.Contains(text, "Reference: fresh facts") {
		t.Errorf("memory lacks reference: %q", text)
	}
}

func TestRespondScopeOverrideWins(t *testing.T) {
	t.Parallel()
	f := newFixture(t, baseSettings(), "", assistant.Config{})
	if err := f.personas.SetOverride("chan-1", "grumpy pirate"); err != nil {
		t.Fatal(err)
	}

	reply, err := f.asst.Respond(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if reply.Persona != persona.SourceOverride {
		t.Errorf("Persona = %q", reply.Persona)
	}
	p := f.provider.Requests()[0].Prompt
	if !strings.Contains(p, "grumpy pirate") || strings.Contains(p, "cheerful") {
		t.Errorf("prompt persona wrong:\n%s", p)
	}
}

func TestRespondModelFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t, baseSettings(), "", assistant.Config{})
	f.provider.CompleteFunc = func(context.Context, provider.CompletionRequest) (provider.CompletionResponse, error) {
		return provider.CompletionResponse{}, provider.ErrProviderDown
	}

	_, err := f.asst.Respond(context.Background(), req)
	if !assistant.IsModelCallError(err) {
		t.Fatalf("error = %v, want ModelCallError", err)
	}
	if !errors.Is(err, provider.ErrProviderDown) {
		t.Errorf("error does not wrap the provider cause: %v", err)
	}
	if errors.Is(err, assistant.ErrModelTimeout) {
		t.Error("plain failure reported as timeout")
	}
	if _, ok := f.memory.ReadRecent(context.Background(), "chan-1", 0); ok {
		t.Error("failed turn was remembered")
	}
	if len(f.observer.models) != 1 || f.observer.models[0] != "reply:unavailable" {
		t.Errorf("model observations = %v", f.observer.models)
	}
}

func TestRespondModelTimeout(t *testing.T) {
	t.Parallel()
	f := newFixture(t, baseSettings(), "", assistant.Config{ModelTimeout: 20 * time.Millisecond})
	f.provider.CompleteFunc = func(ctx context.Context, _ provider.CompletionRequest) (provider.CompletionResponse, error) {
		<-ctx.Done()
		return provider.CompletionResponse{}, ctx.Err()
	}

	_, err := f.asst.Respond(context.Background(), req)
	if !errors.Is(err, assistant.ErrModelTimeout) {
		t.Fatalf("error = %v, want ErrModelTimeout", err)
	}
	if !assistant.IsModelCallError(err) {
		t.Errorf("timeout is not a ModelCallError: %v", err)
	}
}

func TestRespondCallerCancelled(t *testing.T) {
	t.Parallel()
	f := newFixture(t, baseSettings(), "", assistant.Config{})
	f.provider.CompleteFunc = func(ctx context.Context, _ provider.CompletionRequest) (provider.CompletionResponse, error) {
		<-ctx.Done()
		return provider.CompletionResponse{}, ctx.Err()
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.asst.Respond(ctx, req)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if assistant.IsModelCallError(err) {
		t.Error("cancellation reported as a model failure")
	}
}

func TestRespondEmptyReply(t *testing.T) {
	t.Parallel()
	f := newFixture(t, baseSettings(), "", assistant.Config{})
	f.provider.Reply = "  \n"

	reply, err := f.asst.Respond(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text != assistant.EmptyReplyText || reply.Remembered {
		t.Fatalf("reply = %+v", reply)
	}
	if _, ok := f.memory.ReadRecent(context.Background(), "chan-1", 0); ok {
		t.Error("empty reply was remembered")
	}
	if w := f.memory.VolatileWindow(req.AuthorID, req.Scope); len(w) != 0 {
		t.Errorf("live window = %+v, want empty", w)
	}
}

func TestRespondWithoutChatMemory(t *testing.T) {
	t.Parallel()
	settings := baseSettings()
	settings.ChatMemory = false
	f := newFixture(t, settings, "", assistant.Config{})

	reply, err := f.asst.Respond(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if reply.Remembered {
		t.Error("Remembered = true with chat memory off")
	}
	if _, ok := f.memory.ReadRecent(context.Background(), "chan-1", 0); ok {
		t.Error("turn persisted with chat memory off")
	}
	if w := f.memory.VolatileWindow("42", "chan-1"); len(w) != 0 {
		t.Errorf("volatile window = %v", w)
	}
}

func TestNewDefaultsTimeout(t *testing.T) {
	t.Parallel()
	a := assistant.New(assistant.Deps{Settings: botconfig.NewStatic(baseSettings())}, assistant.Config{})
	if got := a.ModelTimeout(); got != assistant.DefaultModelTimeout {
		t.Errorf("ModelTimeout() = %v, want %v", got, assistant.DefaultModelTimeout)
	}
}
