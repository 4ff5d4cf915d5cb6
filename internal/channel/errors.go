package channel

import "errors"

// ErrNoChannel is returned by Dispatcher.Send when the reply names a
// transport that was never registered.
var ErrNoChannel = errors.New("channel: no such transport")

// ErrDuplicateChannel is returned by Dispatcher.Register for a name that
// is already taken.
var ErrDuplicateChannel = errors.New("channel: transport name already registered")

// ErrNoInbox is returned when a transport receives input before the
// router has attached its inbox.
var ErrNoInbox = errors.New("channel: no inbox attached")
