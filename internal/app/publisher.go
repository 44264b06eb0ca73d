package service

import (
	"sync"
	"time"

	"github.com/okian/arenasync/internal/domain/model"
	"github.com/okian/arenasync/internal/domain/playback"
	"github.com/okian/arenasync/pkg/metrics"
)

// UpdateKind names what an Update carries.
type UpdateKind string

// Update kinds.
const (
	UpdateView             UpdateKind = "view"
	UpdateReveal           UpdateKind = "reveal"
	UpdateStep             UpdateKind = "step"
	UpdatePlaybackComplete UpdateKind = "playback_complete"
)

// Update is one observable output of a session.
type Update struct {
	Kind    UpdateKind       `json:"kind"`
	At      time.Time        `json:"at"`
	EventID model.ID         `json:"event_id,omitempty"`
	View    *View            `json:"view,omitempty"`
	Reveal  *playback.Reveal `json:"reveal,omitempty"`
	Round   int              `json:"round,omitempty"`
	Step    *playback.Step   `json:"step,omitempty"`
}

// Publisher fans updates out to subscribers. Emit never blocks: a subscriber
// whose buffer is full misses the update.
type Publisher struct {
	mu     sync.Mutex
	subs   map[int]chan Update
	nextID int
	closed bool
}

// NewPublisher returns an open publisher.
func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[int]chan Update)}
}

// Subscribe registers a new observer channel and returns a func that removes
// it. On a closed publisher the returned channel is already closed.
func (p *Publisher) Subscribe(buffer int) (<-chan Update, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Update, buffer)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		close(ch)
		return ch, func() {}
	}
	id := p.nextID
	p.nextID++
	p.subs[id] = ch
	metrics.UpdateStreamClients(len(p.subs))

	var once sync.Once
	return ch, func() {
		once.Do(func() { p.unsubscribe(id) })
	}
}

func (p *Publisher) unsubscribe(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.subs[id]
	if !ok {
		return
	}
	delete(p.subs, id)
	close(ch)
	metrics.UpdateStreamClients(len(p.subs))
}

// Emit delivers u to every subscriber with room for it.
func (p *Publisher) Emit(u Update) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	for _, ch := range p.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// Len returns the number of subscribers.
func (p *Publisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Close closes every subscriber channel. Later emits are ignored.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for id, ch := range p.subs {
		close(ch)
		delete(p.subs, id)
	}
	metrics.UpdateStreamClients(0)
}
