package command

import "errors"

var (
	// ErrUnknownCommand means the text after the prefix does not name a
	// command. The text is then treated as a chat turn.
	ErrUnknownCommand = errors.New("command: unknown command")

	// ErrNotAddressed means the message is neither prefixed nor a mention.
	ErrNotAddressed = errors.New("command: message not addressed to the bot")

	// ErrEmptyInput means the message carried a prefix or mention but no text.
	ErrEmptyInput = errors.New("command: empty input")
)
