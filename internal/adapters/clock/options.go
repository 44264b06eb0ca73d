package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Option configures a Source.
type Option func(*Source)

// WithClock sets the clock, e.g. clockwork.NewFakeClock() in tests.
func WithClock(c clockwork.Clock) Option {
	return func(s *Source) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithInterval sets the tick period.
func WithInterval(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.interval = d
		}
	}
}
