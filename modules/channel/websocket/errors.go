package wschannel

import "errors"

// Sentinel errors for the websocket channel.
var (
	ErrInvalidToken = errors.New("websocket: invalid token")
	ErrMaxSessions  = errors.New("websocket: maximum number of sessions reached")
	ErrNoSession    = errors.New("websocket: no session connected to chat")
	ErrBadHello     = errors.New("websocket: invalid hello")
)
