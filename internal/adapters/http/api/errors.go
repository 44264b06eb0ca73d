package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNoEvent    = errors.New("no event tracked")
)

// withCause joins a client-facing kind with the error behind it.
func withCause(kind, cause error) error {
	return fmt.Errorf("%w: %w", kind, cause)
}
