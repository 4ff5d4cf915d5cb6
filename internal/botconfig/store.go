package botconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"sync"
	"sync/atomic"

	"github.com/ytclab/ytcbot/internal/atomicfile"
)

// Store is the one shared reference to the current Settings.
type Store struct {
	path   string
	logger *slog.Logger

	current atomic.Pointer[Settings]

	// writeMu serializes Update and Reload so two admins editing at the
	// same time cannot lose each other's change.
	writeMu sync.Mutex
	// document holds every top-level key last read from disk, including
	// ones Settings does not model. Guarded by writeMu.
	document map[string]json.RawMessage

	subMu       sync.RWMutex
	subscribers []func(Settings)
}

// Load reads the document at path. Any failure is wrapped in ErrConfig.
func Load(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, logger: logger.With("component", "botconfig")}

	settings, document, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	s.document = document
	s.current.Store(&settings)
	s.logger.Info("bot config loaded",
		"path", path,
		"model", settings.Model,
		"chat_memory", settings.ChatMemory,
		"search", settings.UseSearchEngine,
	)
	return s, nil
}

// NewStatic returns a store holding settings that is not backed by a file.
// Update publishes without persisting. Used by tests and offline tools.
func NewStatic(settings Settings) *Store {
	s := &Store{logger: slog.Default().With("component", "botconfig")}
	settings = settings.withDefaults()
	s.current.Store(&settings)
	return s
}

// Path returns the backing document path, empty for a static store.
func (s *Store) Path() string { return s.path }

// Current returns the current settings snapshot.
func (s *Store) Current() Settings {
	return *s.current.Load()
}

// Update applies fn to a copy of the current settings, writes the result
// to disk atomically, then publishes it. Keys in the document that Settings
// does not model are written back untouched. On any error the published
// value is unchanged.
func (s *Store) Update(fn Mutator) (Settings, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.Current()
	if err := fn(&next); err != nil {
		return s.Current(), err
	}
	next = next.withDefaults()

	if s.path != "" {
		document, err := overlay(s.document, next)
		if err != nil {
			return s.Current(), fmt.Errorf("botconfig: encoding: %w", err)
		}
		if err := atomicfile.WriteJSON(s.path, document); err != nil {
			return s.Current(), fmt.Errorf("botconfig: persisting: %w", err)
		}
		s.document = document
	}
	s.publish(next)
	return next, nil
}

// Reload re-reads the document from disk, e.g. after an external edit.
// A malformed document is rejected and the current settings stay active.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next, document, err := readDocument(s.path)
	if err != nil {
		return err
	}
	s.document = document
	if next == s.Current() {
		return nil
	}
	s.publish(next)
	s.logger.Info("bot config reloaded", "path", s.path)
	return nil
}

// Subscribe registers fn to be called with every newly published value.
func (s *Store) Subscribe(fn func(Settings)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) publish(next Settings) {
	s.current.Store(&next)

	s.subMu.RLock()
	subs := make([]func(Settings), len(s.subscribers))
	copy(subs, s.subscribers)
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(next)
	}
}

func readDocument(path string) (Settings, map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, nil, fmt.Errorf("%w: reading %s: %w", ErrConfig, path, err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	var settings Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return Settings{}, nil, fmt.Errorf("%w: parsing %s: %w", ErrConfig, path, err)
	}
	var document map[string]json.RawMessage
	if err := json.Unmarshal(raw, &document); err != nil {
		return Settings{}, nil, fmt.Errorf("%w: parsing %s: %w", ErrConfig, path, err)
	}
	return settings.withDefaults(), document, nil
}

// overlay returns a copy of document with the fields of settings written
// over it.
func overlay(document map[string]json.RawMessage, settings Settings) (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(document)+len(fields))
	maps.Copy(out, document)
	maps.Copy(out, fields)
	return out, nil
}
