package backend

import (
	"errors"
	"fmt"

	"github.com/okian/arenasync/internal/domain/model"
)

// ErrNotFound reports that no battle exists. It matches model.ErrEventNotFound.
var ErrNotFound = fmt.Errorf("backend: %w", model.ErrEventNotFound)

var (
	ErrInvalidBaseURL = errors.New("backend: invalid base url")
	ErrEmptyID        = errors.New("backend: empty battle id")
)

// StatusError is an unexpected HTTP status from the backend.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: status %d", e.Status)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}
