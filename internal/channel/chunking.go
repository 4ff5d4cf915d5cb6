package channel

import (
	"unicode/utf8"

	"github.com/ytclab/ytcbot/pkg/message"
)

// MaxMessageLength is the default chunk size in characters. It leaves
// headroom under the common 2000 character platform limit.
const MaxMessageLength = 1900

// SplitText cuts text into chunks of at most max characters (runes, never
// bytes). A chunk ends after the last newline in its window when that
// newline falls in the second half of the window; otherwise it is cut at
// exactly max characters. Concatenating the chunks yields text.
//
// A max <= 0 disables splitting. Empty text yields no chunks.
func SplitText(text string, max int) []string {
	if text == "" {
		return nil
	}
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	var chunks []string
	for text != "" {
		end := cutPoint(text, max)
		chunks = append(chunks, text[:end])
		text = text[end:]
	}
	return chunks
}

// cutPoint returns the byte offset at which the next chunk of text ends.
func cutPoint(text string, max int) int {
	lastNewline := -1
	runes := 0
	for i, r := range text {
		if runes == max {
			if lastNewline >= 0 {
				return lastNewline + 1
			}
			return i
		}
		runes++
		if r == '\n' && runes > max/2 {
			lastNewline = i
		}
	}
	return len(text)
}

// SplitMessage splits msg into messages whose text fits max characters.
// Only the first chunk keeps ReplyToID.
func SplitMessage(msg message.OutboundMessage, max int) []message.OutboundMessage {
	parts := SplitText(msg.Text, max)
	if len(parts) <= 1 {
		return []message.OutboundMessage{msg}
	}

	out := make([]message.OutboundMessage, len(parts))
	for i, part := range parts {
		out[i] = message.OutboundMessage{
			Channel: msg.Channel,
			Chat:    msg.Chat,
			Text:    part,
		}
	}
	out[0].ReplyToID = msg.ReplyToID
	return out
}
