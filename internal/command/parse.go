package command

import (
	"strings"
	"unicode"
)

// Invocation is a parsed inbound message.
type Invocation struct {
	// Name is the first word after the prefix. Empty for a mention.
	Name string
	// Args is the text after Name, trimmed.
	Args string
	// Text is everything after the prefix or mention, trimmed. When Name
	// is not a command, Text is the chat input.
	Text string
}

// Parse splits a message addressed to the bot. Text starting with prefix
// is a command candidate; otherwise a mention makes the whole text chat
// input. Whether Name is a real command is decided by the caller.
//
// Errors: ErrNotAddressed, ErrEmptyInput.
func Parse(prefix, text string, mentioned bool) (Invocation, error) {
	text = strings.TrimSpace(text)
	rest, prefixed := strings.CutPrefix(text, prefix)
	if prefix == "" {
		prefixed = false
	}

	switch {
	case prefixed:
		rest = strings.TrimSpace(rest)
		if rest == "" {
			return Invocation{}, ErrEmptyInput
		}
		name, args := splitName(rest)
		return Invocation{Name: name, Args: args, Text: rest}, nil
	case mentioned:
		if text == "" {
			return Invocation{}, ErrEmptyInput
		}
		return Invocation{Text: text}, nil
	default:
		return Invocation{}, ErrNotAddressed
	}
}

func splitName(s string) (name, args string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}
