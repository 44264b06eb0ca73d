// Package overlay decides when a "catching up" overlay masks the latency
// between a phase deadline passing and the next phase being observed.
package overlay

import (
	"time"

	"github.com/okian/arenasync/internal/domain/phase"
)

// DefaultGrace is how long the overlay may stay up without the awaited phase.
const DefaultGrace = 20 * time.Second

// Transition reports what an Evaluate or Observe call changed.
type Transition uint8

// Transitions.
const (
	None Transition = iota
	Entered
	Cleared
	TimedOut
	Forced
)

func (t Transition) String() string {
	switch t {
	case Entered:
		return "entered"
	case Cleared:
		return "cleared"
	case TimedOut:
		return "timed_out"
	case Forced:
		return "forced"
	default:
		return "none"
	}
}

// Status is a read-only view of the controller.
type Status struct {
	Active     bool        `json:"active"`
	Awaited    phase.Phase `json:"awaited,omitempty"`
	DeadlineAt time.Time   `json:"deadline_at,omitzero"`
}

// Controller is the Idle/Awaiting state machine. It is not safe for
// concurrent use; the owning session serializes access.
type Controller struct {
	grace time.Duration

	active     bool
	awaited    phase.Phase
	deadlineAt time.Time

	// timedOutIn is the phase whose overlay already timed out. The overlay is
	// not shown again until a different phase is observed.
	timedOutIn phase.Phase
}

// New creates a Controller in Idle.
func New(opts ...Option) *Controller {
	c := &Controller{grace: DefaultGrace}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Evaluate runs one tick. expired is the countdown state of current's own deadline.
func (c *Controller) Evaluate(now time.Time, current phase.Phase, expired bool) Transition {
	c.forget(current)

	if forcesIdle(current) {
		return c.idle(Forced)
	}

	if c.active {
		switch {
		case current.Rank() >= c.awaited.Rank():
			return c.idle(Cleared)
		case !now.Before(c.deadlineAt):
			c.timedOutIn = current
			return c.idle(TimedOut)
		default:
			return None
		}
	}

	if !expired || current == c.timedOutIn {
		return None
	}
	next, ok := current.Next()
	if !ok {
		return None
	}
	c.active = true
	c.awaited = next
	c.deadlineAt = now.Add(c.grace)
	return Entered
}

// Observe reacts to a phase change reported by the phase machine.
func (c *Controller) Observe(_ time.Time, p phase.Phase) Transition {
	c.forget(p)

	if forcesIdle(p) {
		return c.idle(Forced)
	}
	if c.active && p.Rank() >= c.awaited.Rank() {
		return c.idle(Cleared)
	}
	return None
}

// Reset returns to Idle and forgets any timeout, e.g. when the tracked event is dropped.
func (c *Controller) Reset() Transition {
	c.timedOutIn = phase.Unknown
	return c.idle(Forced)
}

// Active reports whether the overlay is shown.
func (c *Controller) Active() bool { return c.active }

// Status returns the current state.
func (c *Controller) Status() Status {
	if !c.active {
		return Status{}
	}
	return Status{Active: true, Awaited: c.awaited, DeadlineAt: c.deadlineAt}
}

// idle moves to Idle, reporting t only when the overlay was shown.
func (c *Controller) idle(t Transition) Transition {
	if !c.active {
		return None
	}
	c.active = false
	c.awaited = phase.Unknown
	c.deadlineAt = time.Time{}
	return t
}

func (c *Controller) forget(current phase.Phase) {
	if current != c.timedOutIn {
		c.timedOutIn = phase.Unknown
	}
}

// forcesIdle lists phases that are never masked by the overlay.
func forcesIdle(p phase.Phase) bool {
	return p == phase.InProgress || p == phase.Completed || p == phase.Cancelled
}
