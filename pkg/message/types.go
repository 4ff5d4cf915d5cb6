// Package message defines the platform-agnostic contract between chat
// channels and the assistant: who spoke, in which conversation scope,
// and what they said.
package message

import "strings"

// ChatType indicates the kind of conversation.
type ChatType string

const (
	// ChatDM is a direct (one-to-one) conversation.
	ChatDM ChatType = "dm"
	// ChatGroup is a multi-participant channel.
	ChatGroup ChatType = "group"
)

// Sender identifies the author of an inbound message.
type Sender struct {
	ID          string `json:"id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Nick returns the name the assistant addresses the author by: display
// name, then username, then "User_<id>".
func (s Sender) Nick() string {
	if n := strings.TrimSpace(s.DisplayName); n != "" {
		return n
	}
	if n := strings.TrimSpace(s.Username); n != "" {
		return n
	}
	return "User_" + s.ID
}

// Chat identifies the conversation a message belongs to. Its ID doubles
// as the conversation scope for memory and persona state.
type Chat struct {
	ID    string   `json:"id"`
	Type  ChatType `json:"type"`
	Title string   `json:"title,omitempty"`
}

// IsGroup reports whether the chat is a group conversation.
func (c Chat) IsGroup() bool {
	return c.Type == ChatGroup
}

// IsDirectMessage reports whether the chat is a direct message.
func (c Chat) IsDirectMessage() bool {
	return c.Type == ChatDM
}
