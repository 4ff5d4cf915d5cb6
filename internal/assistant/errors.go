package assistant

import (
	"errors"
	"fmt"
)

// ErrModelTimeout is wrapped by ModelCallError when the model did not
// answer within the configured timeout.
var ErrModelTimeout = errors.New("assistant: model call timed out")

// ModelCallError means the model produced no usable reply. It is the one
// failure users see: the turn is answered with a failure notice and is
// not remembered.
type ModelCallError struct {
	Err error
}

func (e *ModelCallError) Error() string {
	return fmt.Sprintf("assistant: model call failed: %v", e.Err)
}

func (e *ModelCallError) Unwrap() error { return e.Err }

// IsModelCallError reports whether err is or wraps a *ModelCallError.
func IsModelCallError(err error) bool {
	var mce *ModelCallError
	return errors.As(err, &mce)
}
