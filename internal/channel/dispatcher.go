package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/ytclab/ytcbot/internal/botconfig"
	"github.com/ytclab/ytcbot/pkg/message"
)

// Dispatcher routes outbound messages to the registered channel named by
// msg.Channel, splitting them into transport-sized chunks on the way.
// It implements router.ResponseSender.
type Dispatcher struct {
	mu        sync.RWMutex
	channels  map[string]Channel
	maxLength int
	logger    *slog.Logger
}

// NewDispatcher creates an empty Dispatcher that chunks at maxLength
// characters (MaxMessageLength when <= 0).
func NewDispatcher(maxLength int, logger *slog.Logger) *Dispatcher {
	if maxLength <= 0 {
		maxLength = MaxMessageLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		channels:  make(map[string]Channel),
		maxLength: maxLength,
		logger:    logger.With("component", "dispatcher"),
	}
}

// Register adds a channel under the given name.
// Returns ErrDuplicateChannel if the name is already taken.
func (d *Dispatcher) Register(name string, ch Channel) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.channels[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateChannel, name)
	}
	d.channels[name] = ch
	return nil
}

// Get returns the channel registered under name, or false if none.
func (d *Dispatcher) Get(name string) (Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ch, ok := d.channels[name]
	return ch, ok
}

// Send delivers msg in order, one chunk at a time. It stops at the first
// failed chunk. Returns ErrNoChannel if no channel is registered under
// msg.Channel.
func (d *Dispatcher) Send(ctx context.Context, msg message.OutboundMessage) error {
	ch, ok := d.Get(msg.Channel)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoChannel, msg.Channel)
	}
	if msg.Text == "" {
		return nil
	}

	parts := SplitMessage(msg, d.maxLength)
	for i, part := range parts {
		if err := ch.Send(ctx, part); err != nil {
			return fmt.Errorf("channel: send chunk %d/%d to %s: %w", i+1, len(parts), msg.Channel, err)
		}
	}
	return nil
}

// Typing returns the channel behind name when it can show typing
// indicators.
func (d *Dispatcher) Typing(name string) (TypingChannel, bool) {
	ch, ok := d.Get(name)
	if !ok {
		return nil, false
	}
	tc, ok := ch.(TypingChannel)
	return tc, ok
}

// SetPresence publishes p on every channel that supports presence. Errors
// are joined; one failing channel does not stop the others.
func (d *Dispatcher) SetPresence(ctx context.Context, p botconfig.Presence) error {
	d.mu.RLock()
	targets := make(map[string]PresenceChannel)
	for name, ch := range d.channels {
		if pc, ok := ch.(PresenceChannel); ok {
			targets[name] = pc
		}
	}
	d.mu.RUnlock()

	var errs []error
	for name, pc := range targets {
		if err := pc.SetPresence(ctx, p); err != nil {
			d.logger.Warn("presence update failed", "channel", name, "error", err)
			errs = append(errs, fmt.Errorf("channel: presence on %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Channels returns the names of all registered channels, sorted.
func (d *Dispatcher) Channels() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.channels))
	for name := range d.channels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
