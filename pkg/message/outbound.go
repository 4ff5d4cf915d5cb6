package message

// OutboundMessage is a reply to be delivered through a channel. Text may
// exceed the transport limit; channels chunk it on send.
type OutboundMessage struct {
	// Channel names the channel module that delivers the message.
	Channel   string `json:"channel"`
	Chat      Chat   `json:"chat"`
	ReplyToID string `json:"reply_to_id,omitempty"`
	Text      string `json:"text"`
}

// NewTextMessage creates an outbound message for chat on channel.
func NewTextMessage(channel string, chat Chat, text string) OutboundMessage {
	return OutboundMessage{Channel: channel, Chat: chat, Text: text}
}

// ReplyTo creates an outbound message answering in on the same channel.
func ReplyTo(in InboundMessage, text string) OutboundMessage {
	return OutboundMessage{Channel: in.Channel, Chat: in.Chat, ReplyToID: in.ID, Text: text}
}
