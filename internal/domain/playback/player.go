// Package playback turns a completed event's result log into a paced
// sequence of round reveals with interpolated values.
package playback

import (
	"encoding/json"
	"math"
	"time"

	"github.com/okian/arenasync/internal/domain/model"
)

// Reference pacing.
const (
	DefaultBaseline      = 100.0
	DefaultRoundInterval = 1000 * time.Millisecond
	DefaultSteps         = 20
	DefaultStepInterval  = 20 * time.Millisecond
)

// Step is one interpolated value, Offset after the reveal started.
type Step struct {
	Offset time.Duration `json:"-"`
	Value  float64       `json:"value"`
}

// MarshalJSON reports the offset in milliseconds.
func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		OffsetMS int64   `json:"offset_ms"`
		Value    float64 `json:"value"`
	}{s.Offset.Milliseconds(), s.Value})
}

// Reveal is one round of the log with its value path from From to Target.
// The last step of Path always carries Target.
type Reveal struct {
	Index  int               `json:"index"`
	Round  model.RoundRecord `json:"round"`
	From   float64           `json:"from"`
	Target float64           `json:"target"`
	Path   []Step            `json:"path"`
}

// Player yields one Reveal per round, in order. It is single-use.
type Player struct {
	rounds        []model.RoundRecord
	baseline      float64
	steps         int
	stepInterval  time.Duration
	roundInterval time.Duration
	perTarget     bool

	next int
	prev float64
	last map[string]float64
}

// NewPlayer creates a player over rounds.
func NewPlayer(rounds []model.RoundRecord, opts ...Option) *Player {
	p := &Player{
		rounds:        rounds,
		baseline:      DefaultBaseline,
		steps:         DefaultSteps,
		stepInterval:  DefaultStepInterval,
		roundInterval: DefaultRoundInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.prev = p.baseline
	if p.perTarget {
		p.last = make(map[string]float64)
	}
	return p
}

// Len returns the number of rounds.
func (p *Player) Len() int { return len(p.rounds) }

// Done reports whether every round has been yielded.
func (p *Player) Done() bool { return p.next >= len(p.rounds) }

// Next yields the next reveal, or false once the log is drained.
func (p *Player) Next() (Reveal, bool) {
	if p.Done() {
		return Reveal{}, false
	}
	idx := p.next
	r := p.rounds[idx]
	p.next++

	from := p.prev
	if p.perTarget {
		from = p.baseline
		if v, ok := p.last[r.TargetID]; ok {
			from = v
		}
	}
	target := r.Remaining(p.baseline)
	if target < 0 {
		target = 0
	}

	p.prev = target
	if p.perTarget {
		p.last[r.TargetID] = target
	}

	return Reveal{
		Index:  idx,
		Round:  r,
		From:   from,
		Target: target,
		Path:   p.path(from, target),
	}, true
}

// path subdivides from->target into fixed steps, rounding intermediate values
// and clamping to target on overshoot.
func (p *Player) path(from, target float64) []Step {
	if from == target {
		return []Step{{Offset: 0, Value: target}}
	}
	delta := (from - target) / float64(p.steps)
	out := make([]Step, 0, p.steps)
	current := from
	for k := 1; k <= p.steps; k++ {
		current -= delta
		offset := time.Duration(k) * p.stepInterval
		if k == p.steps || (delta > 0 && current <= target) || (delta < 0 && current >= target) {
			out = append(out, Step{Offset: offset, Value: target})
			break
		}
		out = append(out, Step{Offset: offset, Value: roundHalfUp(current)})
	}
	return out
}

// roundHalfUp rounds half toward +Inf.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
