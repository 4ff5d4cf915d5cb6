package admin

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ytclab/ytcbot/internal/botconfig"
	"github.com/ytclab/ytcbot/internal/memory"
	"github.com/ytclab/ytcbot/internal/persona"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	dir := t.TempDir()
	settings := botconfig.NewStatic(botconfig.Settings{SystemPrompt: "sys", Personality: "global"})
	personas := persona.NewStore(filepath.Join(dir, "personality"), func() string {
		return settings.Current().Personality
	}, nil)
	mem := memory.NewStore(memory.NewFileLog(filepath.Join(dir, "memory"), nil), memory.Config{}, nil)
	return New(settings, personas, mem, nil), mem
}

func TestService_SettersRejectBlankText(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	if _, err := s.SetSystemPrompt("  "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("SetSystemPrompt = %v, want ErrEmptyText", err)
	}
	if _, err := s.SetPersonality(""); !errors.Is(err, ErrEmptyText) {
		t.Errorf("SetPersonality = %v, want ErrEmptyText", err)
	}
	if err := s.SetScopePersonality("c1", "\n"); !errors.Is(err, ErrEmptyText) {
		t.Errorf("SetScopePersonality = %v, want ErrEmptyText", err)
	}
	if got := s.Settings().SystemPrompt; got != "sys" {
		t.Errorf("SystemPrompt changed to %q", got)
	}
}

func TestService_Prompts(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	if _, err := s.SetPersonality("new global"); err != nil {
		t.Fatal(err)
	}
	p, err := s.Prompts("c1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Personality != "new global" || p.ScopePersonality != "" || p.Effective != "new global" || p.Source != string(persona.SourceGlobal) {
		t.Errorf("Prompts() = %+v", p)
	}

	if err := s.SetScopePersonality("c1", "pirate"); err != nil {
		t.Fatal(err)
	}
	p, _ = s.Prompts("c1")
	if p.ScopePersonality != "pirate" || p.Effective != "pirate" || p.Source != string(persona.SourceOverride) {
		t.Errorf("Prompts() after override = %+v", p)
	}

	removed, err := s.ClearScopePersonality("c1")
	if err != nil || !removed {
		t.Fatalf("ClearScopePersonality = %v, %v", removed, err)
	}
	removed, err = s.ClearScopePersonality("c1")
	if err != nil || removed {
		t.Errorf("second ClearScopePersonality = %v, %v", removed, err)
	}
}

func TestService_MemoryRoundTrip(t *testing.T) {
	t.Parallel()
	s, mem := newService(t)
	ctx := context.Background()

	view, err := s.Memory(ctx, "u1", "c1")
	if err != nil || !view.Empty() {
		t.Fatalf("Memory() on empty scope = %+v, %v", view, err)
	}

	err = mem.RecordTurn(ctx, memory.TurnRecord{
		AuthorID: "u1", AuthorNick: "Ann", Scope: "c1", Input: "hi", Reply: "hello",
	})
	if err != nil {
		t.Fatal(err)
	}
	view, err = s.Memory(ctx, "u1", "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Window) != 2 || view.Turns != 1 || view.Durable == "" {
		t.Fatalf("Memory() = %+v", view)
	}

	info, err := s.MemoryInfo(ctx, "c1")
	if err != nil || !info.Exists || info.Turns != 1 {
		t.Fatalf("MemoryInfo() = %+v, %v", info, err)
	}

	if err := s.ClearMemory(ctx, "u1", "c1"); err != nil {
		t.Fatal(err)
	}
	view, _ = s.Memory(ctx, "u1", "c1")
	if !view.Empty() {
		t.Errorf("Memory() after clear = %+v", view)
	}
}
