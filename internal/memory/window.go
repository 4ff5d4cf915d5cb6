package memory

import (
	"sync"
	"time"
)

// Window roles. The model API only understands these two.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// WindowSize is the number of entries kept per (author, scope) window.
const WindowSize = 20

// Message is one volatile window entry.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeRole maps "assistant" to "model" and rejects unknown roles.
func NormalizeRole(role string) (string, error) {
	switch role {
	case RoleUser, RoleModel:
		return role, nil
	case "assistant":
		return RoleModel, nil
	default:
		return "", ErrInvalidRole
	}
}

type windowKey struct {
	author string
	scope  string
}

// window is a bounded FIFO of messages for one (author, scope) pair.
type window struct {
	mu       sync.Mutex
	entries  []Message
	lastUsed time.Time
}

// push appends m, evicting the oldest entries past WindowSize, and
// returns the latest user content that precedes m in the window.
func (w *window) push(m Message) (prevUser string, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := len(w.entries) - 1; i >= 0; i-- {
		if w.entries[i].Role == RoleUser {
			prevUser, ok = w.entries[i].Content, true
			break
		}
	}

	w.entries = append(w.entries, m)
	if len(w.entries) > WindowSize {
		w.entries = append(w.entries[:0:0], w.entries[len(w.entries)-WindowSize:]...)
	}
	w.lastUsed = m.CreatedAt
	return prevUser, ok
}

func (w *window) snapshot() []Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Message, len(w.entries))
	copy(out, w.entries)
	return out
}

// windows is the map of every live window.
type windows struct {
	mu sync.RWMutex
	m  map[windowKey]*window
}

func newWindows() *windows {
	return &windows{m: make(map[windowKey]*window)}
}

func (ws *windows) get(author, scope string) (*window, bool) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	w, ok := ws.m[windowKey{author, scope}]
	return w, ok
}

func (ws *windows) getOrCreate(author, scope string) *window {
	if w, ok := ws.get(author, scope); ok {
		return w
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	key := windowKey{author, scope}
	w, ok := ws.m[key]
	if !ok {
		w = &window{}
		ws.m[key] = w
	}
	return w
}

func (ws *windows) delete(author, scope string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	delete(ws.m, windowKey{author, scope})
}

// pruneIdle removes windows not written to since cutoff.
func (ws *windows) pruneIdle(cutoff time.Time) int {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	n := 0
	for key, w := range ws.m {
		w.mu.Lock()
		idle := w.lastUsed.Before(cutoff)
		w.mu.Unlock()
		if idle {
			delete(ws.m, key)
			n++
		}
	}
	return n
}

func (ws *windows) len() int {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return len(ws.m)
}
