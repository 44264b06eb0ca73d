package playback

import "time"

// Option configures a Player.
type Option func(*Player)

// WithBaseline sets the value before the first round and the fallback for
// rounds without a remaining value.
func WithBaseline(v float64) Option {
	return func(p *Player) {
		if v >= 0 {
			p.baseline = v
		}
	}
}

// WithSteps sets the number of interpolation steps per round.
func WithSteps(n int) Option {
	return func(p *Player) {
		if n > 0 {
			p.steps = n
		}
	}
}

// WithStepInterval sets the period between interpolation steps.
func WithStepInterval(d time.Duration) Option {
	return func(p *Player) {
		if d > 0 {
			p.stepInterval = d
		}
	}
}

// WithRoundInterval sets the period between two reveals.
func WithRoundInterval(d time.Duration) Option {
	return func(p *Player) {
		if d > 0 {
			p.roundInterval = d
		}
	}
}

// WithPerTarget interpolates from the same target's previous value instead
// of the previous round's value.
func WithPerTarget() Option {
	return func(p *Player) {
		p.perTarget = true
	}
}
