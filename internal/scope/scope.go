// Package scope validates conversation scope identifiers. A scope is one
// chat channel or direct-message conversation; its ID names the files
// that hold the scope's memory log and persona override.
package scope

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is returned for IDs that cannot safely name a file.
var ErrInvalid = errors.New("invalid scope id")

const maxLen = 128

// Validate checks that id is non-empty, short, and free of path
// separators, dot segments and control characters.
func Validate(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalid)
	case len(id) > maxLen:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalid, maxLen)
	case id == "." || id == "..":
		return fmt.Errorf("%w: %q", ErrInvalid, id)
	case strings.ContainsAny(id, `/\:`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalid, id)
	}
	for _, r := range id {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: %q contains a control character", ErrInvalid, id)
		}
	}
	return nil
}

// FileName returns the JSON file name for id. Callers validate first.
func FileName(id string) string {
	return id + ".json"
}

// FromFileName reverses FileName, reporting false for other files.
func FromFileName(name string) (string, bool) {
	id, ok := strings.CutSuffix(name, ".json")
	if !ok || Validate(id) != nil {
		return "", false
	}
	return id, true
}
