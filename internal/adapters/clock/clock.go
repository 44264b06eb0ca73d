// Package clock provides the session tick source over a clockwork clock.
package clock

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultInterval is the nominal tick period.
const DefaultInterval = time.Second

// Source emits ticks at a fixed nominal rate.
type Source struct {
	clock    clockwork.Clock
	interval time.Duration
}

// New creates a Source on the real clock unless WithClock is given.
func New(opts ...Option) *Source {
	s := &Source{
		clock:    clockwork.NewRealClock(),
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Clock returns the underlying clock.
func (s *Source) Clock() clockwork.Clock { return s.clock }

// Now returns the clock's current time.
func (s *Source) Now() time.Time { return s.clock.Now() }

// Interval returns the tick period.
func (s *Source) Interval() time.Duration { return s.interval }

// Start emits ticks until ctx is done, then closes the channel. The channel
// holds one pending tick; ticks that find it full are dropped, so a slow
// consumer sees coalesced ticks instead of a backlog.
func (s *Source) Start(ctx context.Context) <-chan time.Time {
	out := make(chan time.Time, 1)
	ticker := s.clock.NewTicker(s.interval)
	go func() {
		defer close(out)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.Chan():
				select {
				case out <- t:
				default:
				}
			}
		}
	}()
	return out
}
