package search

import "errors"

// Decision parse failures. None of them reach the user: a verdict that
// cannot be parsed means no search is performed.
var (
	// ErrNoVerdict means the model output contains no {...} substring.
	ErrNoVerdict = errors.New("search: no verdict object in model output")

	// ErrMalformedVerdict means the {...} substring is not valid JSON.
	ErrMalformedVerdict = errors.New("search: malformed verdict")

	// ErrIncompleteVerdict means a required field is missing.
	ErrIncompleteVerdict = errors.New("search: verdict missing a required field")
)
