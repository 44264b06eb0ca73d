package polling

import "time"

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMinGap sets a floor between two fetches, applied on top of the
// computed schedule and of due-time resets. Zero disables it.
func WithMinGap(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.minGap = d
		}
	}
}

// WithDiscoveryInterval overrides the coarse discovery interval.
func WithDiscoveryInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.discovery = d
		}
	}
}
