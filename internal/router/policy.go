package router

import (
	"slices"

	"github.com/ytclab/ytcbot/pkg/message"
)

// Policy filters inbound messages before they reach the handler.
type Policy struct {
	// IgnoreDMs drops direct messages.
	IgnoreDMs bool `yaml:"ignore_dms"`
	// Denylist holds sender IDs whose messages are dropped.
	Denylist []string `yaml:"denylist"`
	// AllowedChats, when non-empty, restricts group messages to these chat IDs.
	AllowedChats []string `yaml:"allowed_chats"`
}

// ShouldProcess reports whether msg may be handled.
func (p Policy) ShouldProcess(msg message.InboundMessage) bool {
	if slices.Contains(p.Denylist, msg.Sender.ID) {
		return false
	}
	if msg.Chat.IsDirectMessage() {
		return !p.IgnoreDMs
	}
	if len(p.AllowedChats) > 0 {
		return slices.Contains(p.AllowedChats, msg.Chat.ID)
	}
	return true
}
