package persona

import "errors"

var (
	// ErrStorageRead wraps failures reading or decoding an override file.
	ErrStorageRead = errors.New("persona: storage read failed")

	// ErrStorageWrite wraps failures writing or removing an override file.
	ErrStorageWrite = errors.New("persona: storage write failed")
)
