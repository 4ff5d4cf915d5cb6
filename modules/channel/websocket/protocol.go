package wschannel

import (
	"encoding/json"
	"time"

	"github.com/ytclab/ytcbot/internal/botconfig"
	"github.com/ytclab/ytcbot/pkg/message"
)

// MessageType identifies the kind of frame exchanged over the socket.
type MessageType string

// Frames sent by clients.
const (
	MsgHello     MessageType = "hello"
	MsgMessage   MessageType = "message"
	MsgHeartbeat MessageType = "heartbeat"
)

// Frames sent by the server.
const (
	MsgWelcome      MessageType = "welcome"
	MsgReply        MessageType = "reply"
	MsgTyping       MessageType = "typing"
	MsgPresence     MessageType = "presence"
	MsgHeartbeatAck MessageType = "heartbeat_ack"
	MsgError        MessageType = "error"
)

// Envelope is the wire format of every frame.
type Envelope struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Hello opens a session. Chat.ID is the conversation scope the client
// speaks in.
type Hello struct {
	Token string         `json:"token,omitempty"`
	User  message.Sender `json:"user"`
	Chat  message.Chat   `json:"chat"`
}

// Welcome acknowledges a Hello.
type Welcome struct {
	SessionID string             `json:"session_id"`
	Presence  botconfig.Presence `json:"presence"`
}

// ChatText carries user text inbound and bot replies outbound.
type ChatText struct {
	Text      string `json:"text"`
	Mentioned bool   `json:"mentioned,omitempty"`
	ReplyTo   string `json:"reply_to,omitempty"`
}

// ErrorPayload describes a rejected frame.
type ErrorPayload struct {
	Message string `json:"message"`
}

func newEnvelope(t MessageType, id string, payload any) Envelope {
	env := Envelope{Type: t, ID: id, Timestamp: time.Now()}
	if payload != nil {
		env.Payload, _ = json.Marshal(payload)
	}
	return env
}
