package wschannel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/ytclab/ytcbot/pkg/message"
)

// Session is one connected client speaking in a single chat.
type Session struct {
	ID          string
	Sender      message.Sender
	Chat        message.Chat
	ConnectedAt time.Time

	mu         sync.Mutex
	lastSeenAt time.Time
	conn       *websocket.Conn
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeenAt = now
	s.mu.Unlock()
}

// LastSeen returns when the client last sent a frame.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeenAt
}

func (s *Session) write(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("websocket: marshal %s: %w", env.Type, err)
	}
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("websocket: write to session %s: %w", s.ID, err)
	}
	return nil
}

func (s *Session) close(code websocket.StatusCode, reason string) {
	_ = s.conn.Close(code, reason)
}

// SessionStore is a concurrent-safe set of live sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// AddIfUnder adds s unless the store already holds max sessions.
func (st *SessionStore) AddIfUnder(s *Session, max int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if max > 0 && len(st.sessions) >= max {
		return false
	}
	st.sessions[s.ID] = s
	return true
}

// Remove deletes the session with the given ID.
func (st *SessionStore) Remove(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// ByChat returns every session speaking in chatID.
func (st *SessionStore) ByChat(chatID string) []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	var out []*Session
	for _, s := range st.sessions {
		if s.Chat.ID == chatID {
			out = append(out, s)
		}
	}
	return out
}

// All returns a snapshot of every session.
func (st *SessionStore) All() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	return out
}
