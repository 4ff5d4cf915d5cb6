package channel

import (
	"context"
	"time"

	"github.com/ytclab/ytcbot/pkg/message"
)

// DefaultTypingInterval is how often a typing indicator is repeated while
// a turn is being answered.
const DefaultTypingInterval = 5 * time.Second

// TypingChannel is implemented by channels that can show a typing
// indicator while the assistant is working.
type TypingChannel interface {
	Channel

	// SendTyping sends a single typing indicator.
	SendTyping(ctx context.Context, chat message.Chat) error
}

// StartTypingLoop sends a typing indicator now and then every interval
// until ctx is done. A non-positive interval uses DefaultTypingInterval.
func StartTypingLoop(ctx context.Context, ch TypingChannel, chat message.Chat, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTypingInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		_ = ch.SendTyping(ctx, chat)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = ch.SendTyping(ctx, chat)
			}
		}
	}()
}
