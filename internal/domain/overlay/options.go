package overlay

import "time"

// Option configures a Controller.
type Option func(*Controller)

// WithGrace sets the overlay timeout.
func WithGrace(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.grace = d
		}
	}
}
