// Package router dispatches inbound chat messages to the command handler,
// one turn at a time per conversation scope, and sends the replies back
// through the originating channel.
package router

import "errors"

// Sentinel errors for router operations.
var (
	// ErrInboxFull indicates the router's message inbox is at capacity
	// and the incoming message was dropped.
	ErrInboxFull = errors.New("router: inbox full, message dropped")

	// ErrRouterStopped indicates the router has been shut down and is
	// no longer accepting messages.
	ErrRouterStopped = errors.New("router: stopped")

	// ErrNoHandler indicates no turn handler has been configured.
	ErrNoHandler = errors.New("router: no handler configured")

	// ErrNoResponseSender indicates no response sender has been configured.
	// The router cannot deliver outbound messages without one.
	ErrNoResponseSender = errors.New("router: no response sender configured")

	// ErrMessageTooLarge indicates the inbound text exceeds the size limit.
	ErrMessageTooLarge = errors.New("router: message too large")
)
