// Package phase defines the lifecycle phases of a scheduled event and the
// monotonic state machine that applies fetched snapshots.
package phase

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Phase is a lifecycle stage of a scheduled event.
type Phase uint8

// Phases in lifecycle order. Cancelled is a sink reachable from any non-terminal phase.
const (
	Unknown Phase = iota
	Scheduled
	BettingOpen
	BettingClosed
	InProgress
	Completed
	Cancelled
)

var names = [...]string{ //nolint:gochecknoglobals // wire names
	Unknown:       "unknown",
	Scheduled:     "scheduled",
	BettingOpen:   "betting_open",
	BettingClosed: "betting_closed",
	InProgress:    "in_progress",
	Completed:     "completed",
	Cancelled:     "cancelled",
}

// All lists the known phases in rank order, Unknown excluded.
func All() []Phase {
	return []Phase{Scheduled, BettingOpen, BettingClosed, InProgress, Completed, Cancelled}
}

// Rank returns the position of p in the total order. Unknown ranks lowest.
func (p Phase) Rank() int {
	if !p.Valid() {
		return 0
	}
	return int(p)
}

// Terminal reports whether no further phase can follow p.
func (p Phase) Terminal() bool {
	return p == Completed || p == Cancelled
}

// Next returns the phase expected after p. Terminal and unknown phases have none.
func (p Phase) Next() (Phase, bool) {
	switch p {
	case Scheduled, BettingOpen, BettingClosed, InProgress:
		return p + 1, true
	default:
		return Unknown, false
	}
}

// Before reports whether p is strictly earlier than other.
func (p Phase) Before(other Phase) bool {
	return p.Rank() < other.Rank()
}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	return p >= Scheduled && p <= Cancelled
}

func (p Phase) String() string {
	if int(p) < len(names) {
		return names[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Parse maps a backend status string to a Phase. Matching is case-insensitive.
func Parse(s string) (Phase, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, p := range All() {
		if names[p] == v {
			return p, nil
		}
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnknownPhase, s)
}

// MarshalJSON encodes p as its wire name.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a wire name into p.
func (p *Phase) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("phase: %w", err)
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}
