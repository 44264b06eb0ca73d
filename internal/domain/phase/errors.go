package phase

import "errors"

// ErrUnknownPhase is returned when a status string does not name a phase.
var ErrUnknownPhase = errors.New("unknown phase")
