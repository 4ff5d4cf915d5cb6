package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ytclab/ytcbot/internal/lane"
)

// Defaults for Config.
const (
	DefaultMaxMemories = 100
	DefaultRecentCount = 5
)

// FallbackPrefix introduces durable history injected when the volatile
// window is empty.
const FallbackPrefix = "Previous conversation for reference:\n\n"

// HistoryFallback selects how GetContext rebuilds context when an
// author has no volatile window, e.g. right after a restart.
type HistoryFallback string

const (
	// FallbackSummary injects the rendered recent turns as one model entry.
	FallbackSummary HistoryFallback = "summary"
	// FallbackTurns rebuilds user/model pairs from the recent turns.
	FallbackTurns HistoryFallback = "turns"
)

// Config tunes a Store.
type Config struct {
	MaxMemories int
	RecentCount int
	Fallback    HistoryFallback
	// Nick resolves an author ID to a display name for turns recorded
	// through AddVolatile. Defaults to "User_<id>".
	Nick func(authorID string) string
}

func (c *Config) defaults() {
	if c.MaxMemories <= 0 {
		c.MaxMemories = DefaultMaxMemories
	}
	if c.RecentCount <= 0 {
		c.RecentCount = DefaultRecentCount
	}
	if c.Fallback == "" {
		c.Fallback = FallbackSummary
	}
	if c.Nick == nil {
		c.Nick = func(id string) string { return "User_" + id }
	}
}

// TurnRecord is a completed exchange handed to RecordTurn.
type TurnRecord struct {
	AuthorID   string
	AuthorNick string
	Scope      string
	Input      string
	Search     string
	Reply      string
}

// RecentResult is ReadRecentResult's typed outcome. Err is set when the
// log exists but could not be read; Text is then empty.
type RecentResult struct {
	Text  string
	Turns int
	Err   error
}

// Found reports whether any turns were rendered.
func (r RecentResult) Found() bool { return r.Turns > 0 }

// Store is the single owner of conversation memory: the durable log
// backend and the volatile windows.
//
// Durable read-modify-write cycles are serialized per scope, so two
// turns finishing at the same time in one channel both persist, while
// scopes never wait on each other.
type Store struct {
	log     Log
	cfg     Config
	locks   *lane.Lock
	windows *windows
	logger  *slog.Logger
	now     func() time.Time
}

// NewStore creates a Store over log.
func NewStore(log Log, cfg Config, logger *slog.Logger) *Store {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		log:     log,
		cfg:     cfg,
		locks:   lane.New(),
		windows: newWindows(),
		logger:  logger.With("component", "memory"),
		now:     time.Now,
	}
}

// Log returns the durable backend.
func (s *Store) Log() Log { return s.log }

// Append records one turn in the scope's durable log, keeping at most
// MaxMemories turns.
func (s *Store) Append(ctx context.Context, scopeID, authorNick, input, search, reply string) error {
	turn := NewTurn(authorNick, input, search, reply, s.now())

	err := s.locks.Do(ctx, scopeID, func() error {
		return s.log.Append(ctx, scopeID, turn, s.cfg.MaxMemories)
	})
	if err != nil {
		if !errors.Is(err, ErrStorageWrite) {
			err = fmt.Errorf("%w: %w", ErrStorageWrite, err)
		}
		s.logger.Warn("turn not persisted", "scope", scopeID, "error", err)
		return err
	}
	return nil
}

// ReadRecent renders the last count turns of the scope (DefaultRecentCount
// when count <= 0). ok is false when the log is absent, empty or unreadable.
func (s *Store) ReadRecent(ctx context.Context, scopeID string, count int) (string, bool) {
	r := s.ReadRecentResult(ctx, scopeID, count)
	return r.Text, r.Found()
}

// ReadRecentResult is ReadRecent with the read error exposed.
func (s *Store) ReadRecentResult(ctx context.Context, scopeID string, count int) RecentResult {
	if count <= 0 {
		count = s.cfg.RecentCount
	}
	turns, err := s.log.Recent(ctx, scopeID, count)
	if err != nil {
		s.logger.Error("reading memory log failed", "scope", scopeID, "error", err)
		return RecentResult{Err: err}
	}
	if len(turns) == 0 {
		return RecentResult{}
	}
	return RecentResult{Text: Render(turns), Turns: len(turns)}
}

// AddVolatile appends to the (author, scope) window. A model entry is
// also written to the durable log, paired with the latest user entry
// already in the window; without one nothing is persisted.
func (s *Store) AddVolatile(ctx context.Context, authorID, scopeID, role, content string) error {
	norm, err := NormalizeRole(role)
	if err != nil {
		return fmt.Errorf("%w: %q", err, role)
	}

	w := s.windows.getOrCreate(authorID, scopeID)
	prevUser, hasUser := w.push(Message{Role: norm, Content: content, CreatedAt: s.now()})

	if norm != RoleModel || !hasUser {
		return nil
	}
	return s.Append(ctx, scopeID, s.cfg.Nick(authorID), prevUser, "", content)
}

// RecordTurn writes a finished exchange through both layers: the user
// and model entries go to the window and the turn, with its search
// excerpt, goes to the durable log exactly once.
func (s *Store) RecordTurn(ctx context.Context, rec TurnRecord) error {
	now := s.now()
	w := s.windows.getOrCreate(rec.AuthorID, rec.Scope)
	w.push(Message{Role: RoleUser, Content: rec.Input, CreatedAt: now})
	w.push(Message{Role: RoleModel, Content: rec.Reply, CreatedAt: now})

	nick := rec.AuthorNick
	if nick == "" {
		nick = s.cfg.Nick(rec.AuthorID)
	}
	return s.Append(ctx, rec.Scope, nick, rec.Input, rec.Search, rec.Reply)
}

// GetContext returns the author's window for the scope. An empty window
// falls back to durable history per the configured HistoryFallback; with
// no history at all the result is empty.
func (s *Store) GetContext(ctx context.Context, authorID, scopeID string) []Message {
	if w, ok := s.windows.get(authorID, scopeID); ok {
		if entries := w.snapshot(); len(entries) > 0 {
			return entries
		}
	}

	if s.cfg.Fallback == FallbackTurns {
		turns, err := s.log.Recent(ctx, scopeID, s.cfg.RecentCount)
		if err != nil {
			s.logger.Error("reading memory log failed", "scope", scopeID, "error", err)
			return []Message{}
		}
		out := make([]Message, 0, 2*len(turns))
		for _, t := range turns {
			at := parseTimestamp(t.Timestamp)
			out = append(out,
				Message{Role: RoleUser, Content: t.Input, CreatedAt: at},
				Message{Role: RoleModel, Content: t.Reply, CreatedAt: at},
			)
		}
		return out
	}

	text, ok := s.ReadRecent(ctx, scopeID, s.cfg.RecentCount)
	if !ok {
		return []Message{}
	}
	return []Message{{Role: RoleModel, Content: FallbackPrefix + text, CreatedAt: s.now()}}
}

// Clear drops the author's window for the scope and deletes the scope's
// durable log.
//
// The two halves differ in reach: the window belongs to one author, but
// the durable log is shared by every author in the scope, so clearing it
// forgets everyone's turns there.
func (s *Store) Clear(ctx context.Context, authorID, scopeID string) error {
	s.windows.delete(authorID, scopeID)

	var removed bool
	err := s.locks.Do(ctx, scopeID, func() error {
		var err error
		removed, err = s.log.Delete(ctx, scopeID)
		return err
	})
	if err != nil {
		s.logger.Error("deleting memory log failed", "scope", scopeID, "error", err)
		return err
	}
	s.logger.Info("memory cleared", "scope", scopeID, "author", authorID, "durable_removed", removed)
	return nil
}

// Inspect reports debug information about the scope's durable log.
func (s *Store) Inspect(ctx context.Context, scopeID string) (LogInfo, error) {
	return s.log.Inspect(ctx, scopeID)
}

// VolatileWindow returns a copy of the (author, scope) window.
func (s *Store) VolatileWindow(authorID, scopeID string) []Message {
	w, ok := s.windows.get(authorID, scopeID)
	if !ok {
		return nil
	}
	return w.snapshot()
}

// PruneIdle drops windows with no activity for longer than maxIdle and
// returns how many were dropped.
func (s *Store) PruneIdle(maxIdle time.Duration) int {
	return s.windows.pruneIdle(s.now().Add(-maxIdle))
}

// WindowCount returns the number of live windows.
func (s *Store) WindowCount() int {
	return s.windows.len()
}

func parseTimestamp(ts string) time.Time {
	t, err := time.ParseInLocation(TimestampLayout, ts, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}
