// Package channel defines the bridge between chat transports and the
// router: the Channel interface, reply chunking, typing indicators,
// presence and the outbound dispatcher.
package channel

import (
	"context"

	"github.com/ytclab/ytcbot/internal/botconfig"
	"github.com/ytclab/ytcbot/internal/core"
	"github.com/ytclab/ytcbot/pkg/message"
)

// Channel is a chat transport. It pushes user text events to the router
// through the inbox callback and delivers replies through Send.
//
// Send receives one transport-sized chunk at a time; the Dispatcher does
// the splitting.
type Channel interface {
	core.Module

	// Send delivers an outbound message to the transport.
	Send(ctx context.Context, msg message.OutboundMessage) error

	// SetInbox gives the channel the function that hands inbound messages
	// to the router. It is called during wiring, before Start.
	SetInbox(fn func(msg message.InboundMessage) error)
}

// PresenceChannel is implemented by channels that can show a bot status
// and activity line.
type PresenceChannel interface {
	Channel

	// SetPresence publishes p. Channels ignore fields they cannot show.
	SetPresence(ctx context.Context, p botconfig.Presence) error
}
