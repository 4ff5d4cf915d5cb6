// Package admin implements the administrative operations shared by chat
// commands, the HTTP admin API and the CLI.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ytclab/ytcbot/internal/botconfig"
	"github.com/ytclab/ytcbot/internal/memory"
	"github.com/ytclab/ytcbot/internal/persona"
)

// ErrEmptyText is returned when a setter receives blank text.
var ErrEmptyText = errors.New("admin: text must not be empty")

// Prompts is the prompt configuration seen from one scope.
type Prompts struct {
	SystemPrompt string `json:"system_prompt"`
	Personality  string `json:"personality"`
	// ScopePersonality is the scope's override, empty when none is set.
	ScopePersonality string `json:"scope_personality"`
	// Effective is the persona a chat turn in the scope would use.
	Effective string `json:"effective"`
	Source    string `json:"source"`
}

// MemoryView is the conversation memory seen from one (author, scope).
type MemoryView struct {
	Window  []memory.Message `json:"window"`
	Durable string           `json:"durable"`
	Turns   int              `json:"turns"`
}

// Empty reports whether neither the window nor the durable log hold data.
func (v MemoryView) Empty() bool {
	return len(v.Window) == 0 && v.Durable == ""
}

// Service performs administrative operations. Every mutation goes through
// the owning store; Service holds no state of its own.
type Service struct {
	settings *botconfig.Store
	personas *persona.Store
	memory   *memory.Store
	logger   *slog.Logger
}

// New creates a Service.
func New(settings *botconfig.Store, personas *persona.Store, mem *memory.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		settings: settings,
		personas: personas,
		memory:   mem,
		logger:   logger.With("component", "admin"),
	}
}

// Settings returns the current bot settings.
func (s *Service) Settings() botconfig.Settings { return s.settings.Current() }

// SetSystemPrompt replaces and persists the system prompt.
func (s *Service) SetSystemPrompt(text string) (botconfig.Settings, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return s.settings.Current(), ErrEmptyText
	}
	next, err := s.settings.Update(botconfig.SetSystemPrompt(text))
	if err != nil {
		return next, fmt.Errorf("admin: set system prompt: %w", err)
	}
	s.logger.Info("system prompt updated", "length", len(text))
	return next, nil
}

// SetPersonality replaces and persists the global persona.
func (s *Service) SetPersonality(text string) (botconfig.Settings, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return s.settings.Current(), ErrEmptyText
	}
	next, err := s.settings.Update(botconfig.SetPersonality(text))
	if err != nil {
		return next, fmt.Errorf("admin: set personality: %w", err)
	}
	s.logger.Info("global personality updated", "length", len(text))
	return next, nil
}

// SetScopePersonality stores a persona override for scope.
func (s *Service) SetScopePersonality(scope, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}
	if err := s.personas.SetOverride(scope, text); err != nil {
		return fmt.Errorf("admin: set scope personality: %w", err)
	}
	s.logger.Info("scope personality updated", "scope", scope, "length", len(text))
	return nil
}

// ClearScopePersonality removes scope's override. removed is false when
// there was none.
func (s *Service) ClearScopePersonality(scope string) (removed bool, err error) {
	removed, err = s.personas.ClearOverride(scope)
	if err != nil {
		return false, fmt.Errorf("admin: clear scope personality: %w", err)
	}
	if removed {
		s.logger.Info("scope personality cleared", "scope", scope)
	}
	return removed, nil
}

// Prompts reports the prompt configuration for scope. A scope override
// that cannot be read is reported as unset; err carries the read failure.
func (s *Service) Prompts(scope string) (Prompts, error) {
	settings := s.settings.Current()
	p := Prompts{
		SystemPrompt: settings.SystemPrompt,
		Personality:  settings.Personality,
	}
	text, ok, err := s.personas.Override(scope)
	if ok {
		p.ScopePersonality = text
	}
	r := s.personas.Resolve(scope)
	p.Effective, p.Source = r.Text, string(r.Source)
	return p, err
}

// Memory returns the volatile window of (authorID, scope) and the recent
// durable turns of scope.
func (s *Service) Memory(ctx context.Context, authorID, scope string) (MemoryView, error) {
	view := MemoryView{Window: s.memory.VolatileWindow(authorID, scope)}
	r := s.memory.ReadRecentResult(ctx, scope, 0)
	view.Durable, view.Turns = r.Text, r.Turns
	return view, r.Err
}

// ClearMemory clears the author's window in scope and the scope's whole
// durable log.
func (s *Service) ClearMemory(ctx context.Context, authorID, scope string) error {
	if err := s.memory.Clear(ctx, authorID, scope); err != nil {
		return fmt.Errorf("admin: clear memory: %w", err)
	}
	return nil
}

// MemoryInfo describes where the scope's durable log lives.
func (s *Service) MemoryInfo(ctx context.Context, scope string) (memory.LogInfo, error) {
	info, err := s.memory.Inspect(ctx, scope)
	if err != nil {
		return info, fmt.Errorf("admin: inspect memory: %w", err)
	}
	return info, nil
}
