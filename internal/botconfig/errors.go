package botconfig

import "errors"

// ErrConfig marks a missing or malformed configuration document. Startup
// must not proceed when Load returns it.
var ErrConfig = errors.New("botconfig: invalid configuration")
