package polling

import (
	"encoding/json"
	"time"

	"github.com/okian/arenasync/internal/domain/phase"
)

// Mode is what the scheduler is polling for.
type Mode uint8

// Modes.
const (
	// Discovery polls for the current event on a coarse interval.
	Discovery Mode = iota
	// Tracking polls one event at a phase-dependent rate.
	Tracking
	// Stopped issues no fetches.
	Stopped
)

func (m Mode) String() string {
	switch m {
	case Tracking:
		return "tracking"
	case Stopped:
		return "stopped"
	default:
		return "discovery"
	}
}

// MarshalText encodes the mode name.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// State is the scheduler's bookkeeping.
type State struct {
	Mode        Mode          `json:"mode"`
	EventID     string        `json:"event_id,omitempty"`
	LastFetchAt time.Time     `json:"last_fetch_at,omitzero"`
	NextDueAt   time.Time     `json:"next_due_at,omitzero"`
	Interval    time.Duration `json:"-"`
}

// MarshalJSON reports the interval in milliseconds.
func (st State) MarshalJSON() ([]byte, error) {
	type plain State
	return json.Marshal(struct {
		plain
		IntervalMS int64 `json:"interval_ms"`
	}{plain(st), st.Interval.Milliseconds()})
}

// Scheduler tracks due-times for one session. It is not safe for concurrent
// use; the owning session serializes access.
type Scheduler struct {
	discovery time.Duration
	minGap    time.Duration
	state     State
}

// New returns a scheduler in Discovery mode whose first fetch is due immediately.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{discovery: DiscoveryInterval}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Interval = s.discovery
	return s
}

// Due reports whether a fetch should be issued at now.
func (s *Scheduler) Due(now time.Time) bool {
	if s.state.Mode == Stopped || now.Before(s.state.NextDueAt) {
		return false
	}
	if s.minGap > 0 && !s.state.LastFetchAt.IsZero() && now.Sub(s.state.LastFetchAt) < s.minGap {
		return false
	}
	return true
}

// Fired records a fetch issued at now for an event in phase p whose relevant
// deadline is ttd away, and schedules the next one.
func (s *Scheduler) Fired(now time.Time, p phase.Phase, ttd time.Duration) {
	s.state.LastFetchAt = now
	interval := s.discovery
	if s.state.Mode == Tracking {
		if v := Interval(p, ttd); v > 0 {
			interval = v
		}
	}
	s.state.Interval = interval
	s.state.NextDueAt = now.Add(interval)
}

// PhaseChanged makes the next fetch due immediately.
func (s *Scheduler) PhaseChanged(now time.Time) {
	s.ForceDue(now)
}

// ForceDue makes the next fetch due at now, bypassing the computed interval.
// It has no effect once stopped.
func (s *Scheduler) ForceDue(now time.Time) {
	if s.state.Mode == Stopped {
		return
	}
	if s.state.NextDueAt.After(now) {
		s.state.NextDueAt = now
	}
}

// Track switches to polling event id. The current due-time is kept.
func (s *Scheduler) Track(id string) {
	s.state.Mode = Tracking
	s.state.EventID = id
}

// Untrack reverts to discovery, rescheduling from the last fetch.
func (s *Scheduler) Untrack() {
	s.state.Mode = Discovery
	s.state.EventID = ""
	s.state.Interval = s.discovery
	if !s.state.LastFetchAt.IsZero() {
		s.state.NextDueAt = s.state.LastFetchAt.Add(s.discovery)
	}
}

// Stop ends polling for good.
func (s *Scheduler) Stop() {
	s.state.Mode = Stopped
	s.state.Interval = 0
	s.state.NextDueAt = time.Time{}
}

// State returns a copy of the bookkeeping.
func (s *Scheduler) State() State {
	return s.state
}
