// Package dedupe remembers event ids a session has already acted on.
package dedupe

import (
	"context"
	"sync"
)

// defaultMaxSize bounds the number of remembered ids.
const defaultMaxSize = 256

// Deduper records seen event IDs to ensure at-most-once handling.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Seen reports whether id is recorded without recording it.
	Seen(ctx context.Context, id string) bool

	// Unrecord removes an ID, e.g. when an event the session retired comes back.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper is a bounded set with FIFO eviction over a ring of ids.
// With maxSize <= 0 it is unbounded and the ring is not used.
type inMemoryDeduper struct {
	mu      sync.RWMutex
	seen    map[string]struct{}
	ring    []string
	head    int // next ring slot to write
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.ring = make([]string, 0, d.maxSize)
	}

	return d
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize > 0 {
		if len(d.ring) < d.maxSize {
			d.ring = append(d.ring, id)
		} else {
			// oldest entry sits at head once the ring is full
			delete(d.seen, d.ring[d.head])
			d.ring[d.head] = id
		}
		d.head = (d.head + 1) % d.maxSize
	}
	d.seen[id] = struct{}{}
	return false
}

// Seen reports whether id is recorded.
func (d *inMemoryDeduper) Seen(_ context.Context, id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, exists := d.seen[id]
	return exists
}

// Unrecord removes an ID from the seen set. Its ring slot is left in place
// and is skipped when it is evicted.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; !exists {
		return
	}
	delete(d.seen, id)
	for i, v := range d.ring {
		if v == id {
			d.ring[i] = ""
			break
		}
	}
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return int64(len(d.seen))
}
