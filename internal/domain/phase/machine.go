package phase

// Snapshot is a fetched point-in-time view of an event.
type Snapshot interface {
	SnapshotID() string
	SnapshotPhase() Phase
}

// Result describes what Apply did with a snapshot.
type Result struct {
	Previous Phase
	Current  Phase
	// Changed is set only when the held phase differs from Previous.
	Changed bool
	// Stale is set when the snapshot was rejected by the monotonic guard.
	Stale bool
	// NewEvent is set when the snapshot replaced a different (or no) event.
	NewEvent bool
}

// Machine holds the latest accepted snapshot of one tracked event.
// It is not safe for concurrent use; the owning session serializes access.
type Machine[S Snapshot] struct {
	held S
	has  bool
}

// NewMachine returns an empty machine.
func NewMachine[S Snapshot]() *Machine[S] {
	return &Machine[S]{}
}

// Apply replaces local state with s unless s would regress the phase of the
// same event. A snapshot for a different event id replaces state as a new event.
func (m *Machine[S]) Apply(s S) Result {
	prev := m.Current()
	next := s.SnapshotPhase()

	if !m.has || m.held.SnapshotID() != s.SnapshotID() {
		m.held, m.has = s, true
		return Result{Previous: prev, Current: next, Changed: prev != next, NewEvent: true}
	}

	if rejects(prev, next) {
		return Result{Previous: prev, Current: prev, Stale: true}
	}

	m.held = s
	return Result{Previous: prev, Current: next, Changed: prev != next}
}

// rejects reports whether moving from held to next violates the phase order.
func rejects(held, next Phase) bool {
	if held.Terminal() {
		return next != held
	}
	return next.Before(held)
}

// Current returns the held phase, Unknown when nothing is held.
func (m *Machine[S]) Current() Phase {
	if !m.has {
		return Unknown
	}
	return m.held.SnapshotPhase()
}

// Snapshot returns the held snapshot and whether one is held.
func (m *Machine[S]) Snapshot() (S, bool) {
	return m.held, m.has
}

// Reset forgets the held snapshot.
func (m *Machine[S]) Reset() {
	var zero S
	m.held, m.has = zero, false
}
