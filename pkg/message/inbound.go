package message

import "time"

// InboundMessage is a user text event received from a channel.
type InboundMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Channel   string    `json:"channel"`
	Sender    Sender    `json:"sender"`
	Chat      Chat      `json:"chat"`
	Text      string    `json:"text"`
	// Mentioned is true when the bot itself was addressed.
	Mentioned bool `json:"mentioned,omitempty"`
}

// Scope returns the conversation scope of the message: the chat ID
// qualified by the channel name, so equal chat IDs on two transports
// stay apart.
func (m *InboundMessage) Scope() string {
	return ScopeOf(m.Channel, m.Chat.ID)
}

// ScopeOf joins a channel name and chat ID into a scope. A message with
// no channel is scoped by its chat ID alone.
func ScopeOf(channel, chatID string) string {
	if channel == "" {
		return chatID
	}
	return channel + "." + chatID
}

// IsGroup reports whether the message was sent in a group chat.
func (m *InboundMessage) IsGroup() bool {
	return m.Chat.IsGroup()
}
