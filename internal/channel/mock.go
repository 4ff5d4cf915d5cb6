package channel

import (
	"context"
	"sync"

	"github.com/ytclab/ytcbot/internal/botconfig"
	"github.com/ytclab/ytcbot/internal/core"
	"github.com/ytclab/ytcbot/pkg/message"
)

// MockChannel is a test double implementing Channel, TypingChannel and
// PresenceChannel. It records everything sent to it and can inject
// inbound messages with SimulateMessage.
type MockChannel struct {
	name string

	mu        sync.Mutex
	inbox     func(msg message.InboundMessage) error
	sent      []message.OutboundMessage
	typing    []message.Chat
	presences []botconfig.Presence

	// SendFunc, if set, is called after the message is recorded and its
	// error is returned.
	SendFunc func(ctx context.Context, msg message.OutboundMessage) error
}

var (
	_ TypingChannel   = (*MockChannel)(nil)
	_ PresenceChannel = (*MockChannel)(nil)
)

// NewMockChannel creates a MockChannel named name.
func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name}
}

// ModuleInfo implements core.Module.
func (m *MockChannel) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  core.ModuleID("channel." + m.name),
		New: func() core.Module { return NewMockChannel(m.name) },
	}
}

// Send records msg, then delegates to SendFunc when set.
func (m *MockChannel) Send(ctx context.Context, msg message.OutboundMessage) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	fn := m.SendFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, msg)
	}
	return nil
}

// SetInbox stores the inbox callback provided by the router.
func (m *MockChannel) SetInbox(fn func(msg message.InboundMessage) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = fn
}

// SendTyping records chat.
func (m *MockChannel) SendTyping(_ context.Context, chat message.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typing = append(m.typing, chat)
	return nil
}

// SetPresence records p.
func (m *MockChannel) SetPresence(_ context.Context, p botconfig.Presence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presences = append(m.presences, p)
	return nil
}

// SimulateMessage tags msg with this channel's name and pushes it into the
// inbox. Returns ErrNoInbox if SetInbox has not been called.
func (m *MockChannel) SimulateMessage(msg message.InboundMessage) error {
	m.mu.Lock()
	inbox := m.inbox
	m.mu.Unlock()

	if inbox == nil {
		return ErrNoInbox
	}
	msg.Channel = m.name
	return inbox(msg)
}

// SentMessages returns a copy of all outbound messages recorded by Send.
func (m *MockChannel) SentMessages() []message.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]message.OutboundMessage, len(m.sent))
	copy(cp, m.sent)
	return cp
}

// TypingChats returns a copy of the chats that received typing indicators.
func (m *MockChannel) TypingChats() []message.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]message.Chat, len(m.typing))
	copy(cp, m.typing)
	return cp
}

// Presences returns a copy of every presence published.
func (m *MockChannel) Presences() []botconfig.Presence {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]botconfig.Presence, len(m.presences))
	copy(cp, m.presences)
	return cp
}

// Reset clears everything recorded.
func (m *MockChannel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent, m.typing, m.presences = nil, nil, nil
}
