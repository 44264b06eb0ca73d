package playback

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Sink receives playback output.
type Sink interface {
	OnReveal(r Reveal)
	OnStep(index int, s Step)
	OnComplete()
}

// SinkFuncs adapts functions to a Sink. Nil funcs are skipped.
type SinkFuncs struct {
	Reveal   func(Reveal)
	Step     func(int, Step)
	Complete func()
}

func (f SinkFuncs) OnReveal(r Reveal) {
	if f.Reveal != nil {
		f.Reveal(r)
	}
}

func (f SinkFuncs) OnStep(index int, s Step) {
	if f.Step != nil {
		f.Step(index, s)
	}
}

func (f SinkFuncs) OnComplete() {
	if f.Complete != nil {
		f.Complete()
	}
}

// Play drains the player on clock: reveal i starts i round intervals after the
// first, its steps follow at their offsets, and OnComplete fires once after the
// last step. An empty log completes immediately. Cancelling ctx stops playback
// without OnComplete and returns ctx.Err().
func (p *Player) Play(ctx context.Context, clock clockwork.Clock, sink Sink) error {
	start := clock.Now()
	for {
		r, ok := p.Next()
		if !ok {
			break
		}
		revealAt := start.Add(time.Duration(r.Index) * p.roundInterval)
		if err := sleepUntil(ctx, clock, revealAt); err != nil {
			return err
		}
		sink.OnReveal(r)
		for _, s := range r.Path {
			if err := sleepUntil(ctx, clock, revealAt.Add(s.Offset)); err != nil {
				return err
			}
			sink.OnStep(r.Index, s)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	sink.OnComplete()
	return nil
}

func sleepUntil(ctx context.Context, clock clockwork.Clock, at time.Time) error {
	d := at.Sub(clock.Now())
	if d <= 0 {
		return ctx.Err()
	}
	t := clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Chan():
		return nil
	}
}
