// Package persona resolves the persona text injected into prompts: a
// per-scope override when one is set, otherwise the global persona.
package persona

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ytclab/ytcbot/internal/atomicfile"
	"github.com/ytclab/ytcbot/internal/scope"
)

// Override is the on-disk record of a per-scope persona.
type Override struct {
	Personality string `json:"personality"`
}

// Source tells where a resolved persona came from.
type Source string

// Resolution sources.
const (
	SourceOverride Source = "override"
	SourceGlobal   Source = "global"
	SourceNone     Source = "none"
)

// Resolution is the result of Resolve. Resolve never fails: when the
// override cannot be read, Err carries the cause and Text falls back to
// the global persona.
type Resolution struct {
	Text   string
	Source Source
	Err    error
}

// Degraded reports whether an override read failed during resolution.
func (r Resolution) Degraded() bool { return r.Err != nil }

// Store owns the persona override files under one directory.
//
// Reads are cached per scope and revalidated with a stat on every call,
// so an edit made on disk by another process is picked up on the next
// turn.
type Store struct {
	dir    string
	global func() string
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]cachedOverride
}

type cachedOverride struct {
	modTime time.Time
	size    int64
	text    string
}

// NewStore creates a store rooted at dir. global returns the current
// global persona and is consulted on every Resolve.
func NewStore(dir string, global func() string, logger *slog.Logger) *Store {
	if global == nil {
		global = func() string { return "" }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:    dir,
		global: global,
		logger: logger.With("component", "persona"),
		cache:  make(map[string]cachedOverride),
	}
}

// Dir returns the override directory.
func (s *Store) Dir() string { return s.dir }

// Resolve returns the effective persona for scopeID.
func (s *Store) Resolve(scopeID string) Resolution {
	text, ok, err := s.Override(scopeID)
	if err != nil {
		s.logger.Error("reading persona override failed, using global persona",
			"scope", scopeID, "error", err)
	}
	if ok && text != "" {
		return Resolution{Text: text, Source: SourceOverride}
	}
	if g := s.global(); g != "" {
		return Resolution{Text: g, Source: SourceGlobal, Err: err}
	}
	return Resolution{Source: SourceNone, Err: err}
}

// Override returns the raw override for scopeID. ok is false when no
// override file exists.
func (s *Store) Override(scopeID string) (text string, ok bool, err error) {
	if err := scope.Validate(scopeID); err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrStorageRead, err)
	}
	path := s.path(scopeID)

	info, err := os.Stat(path)
	if err != nil {
		s.forget(scopeID)
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %w", ErrStorageRead, err)
	}

	s.mu.RLock()
	c, hit := s.cache[scopeID]
	s.mu.RUnlock()
	if hit && c.modTime.Equal(info.ModTime()) && c.size == info.Size() {
		return c.text, true, nil
	}

	var rec Override
	if err := atomicfile.ReadJSON(path, &rec); err != nil {
		s.forget(scopeID)
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %w", ErrStorageRead, err)
	}
	text = strings.TrimSpace(rec.Personality)

	s.mu.Lock()
	s.cache[scopeID] = cachedOverride{modTime: info.ModTime(), size: info.Size(), text: text}
	s.mu.Unlock()
	return text, true, nil
}

// SetOverride writes the override for scopeID. Readers never observe a
// partially written file.
func (s *Store) SetOverride(scopeID, text string) error {
	if err := scope.Validate(scopeID); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	if err := atomicfile.WriteJSON(s.path(scopeID), Override{Personality: text}); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	s.forget(scopeID)
	s.logger.Info("persona override set", "scope", scopeID, "length", len(text))
	return nil
}

// ClearOverride removes the override for scopeID and reports whether one
// existed.
func (s *Store) ClearOverride(scopeID string) (bool, error) {
	if err := scope.Validate(scopeID); err != nil {
		return false, fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	s.forget(scopeID)
	err := os.Remove(s.path(scopeID))
	switch {
	case err == nil:
		s.logger.Info("persona override cleared", "scope", scopeID)
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
}

func (s *Store) path(scopeID string) string {
	return filepath.Join(s.dir, scope.FileName(scopeID))
}

func (s *Store) forget(scopeID string) {
	s.mu.Lock()
	delete(s.cache, scopeID)
	s.mu.Unlock()
}
