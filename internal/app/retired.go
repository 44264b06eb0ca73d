package service

import (
	"context"
	"time"

	"github.com/okian/arenasync/internal/domain/dedupe"
	"github.com/okian/arenasync/internal/domain/phase"
)

// retirement is when an event stopped being tracked and the phase it held.
type retirement struct {
	at    time.Time
	phase phase.Phase
}

// retiredEvents remembers events a following session moved away from.
// A retired event is admitted again once the backend serves it in its
// remembered phase or later, from a fetch issued after it was retired.
type retiredEvents struct {
	ids   dedupe.Deduper
	meta  map[string]retirement
	limit int
}

func newRetiredEvents(limit int) *retiredEvents {
	return &retiredEvents{
		ids:   dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(limit)),
		meta:  make(map[string]retirement),
		limit: limit,
	}
}

// retire records id as left behind at time at while in phase p.
func (r *retiredEvents) retire(ctx context.Context, id string, p phase.Phase, at time.Time) {
	r.ids.SeenAndRecord(ctx, id)
	r.meta[id] = retirement{at: at, phase: p}

	if len(r.meta) > r.limit {
		for k := range r.meta {
			if !r.ids.Seen(ctx, k) {
				delete(r.meta, k)
			}
		}
	}
}

// admit reports whether a snapshot of id in phase p, fetched by a request
// issued at issuedAt, may be tracked. Admitted ids are forgotten.
func (r *retiredEvents) admit(ctx context.Context, id string, p phase.Phase, issuedAt time.Time) bool {
	if !r.ids.Seen(ctx, id) {
		delete(r.meta, id)
		return true
	}
	rt, ok := r.meta[id]
	if ok && (!issuedAt.After(rt.at) || p.Rank() < rt.phase.Rank()) {
		return false
	}
	r.ids.Unrecord(ctx, id)
	delete(r.meta, id)
	return true
}
