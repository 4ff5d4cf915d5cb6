package memory

import "errors"

var (
	// ErrStorageRead marks a durable log that is unreadable or malformed.
	// Callers treat it as "no data".
	ErrStorageRead = errors.New("memory: storage read failed")

	// ErrStorageWrite marks a failed durable write. The turn's reply is
	// still delivered but the turn is not remembered.
	ErrStorageWrite = errors.New("memory: storage write failed")

	// ErrInvalidRole is returned for window roles other than user, model
	// and assistant.
	ErrInvalidRole = errors.New("memory: invalid role")
)
