// Package service runs the tracking session: it keeps a local view of one
// scheduled event in sync with the backend and replays its result log.
package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/okian/arenasync/internal/adapters/clock"
	"github.com/okian/arenasync/internal/adapters/mq/queue"
	"github.com/okian/arenasync/internal/adapters/mq/worker"
	"github.com/okian/arenasync/internal/domain/countdown"
	"github.com/okian/arenasync/internal/domain/dedupe"
	"github.com/okian/arenasync/internal/domain/model"
	"github.com/okian/arenasync/internal/domain/overlay"
	"github.com/okian/arenasync/internal/domain/phase"
	"github.com/okian/arenasync/internal/domain/playback"
	"github.com/okian/arenasync/internal/domain/polling"
	"github.com/okian/arenasync/pkg/logger"
	"github.com/okian/arenasync/pkg/metrics"
)

// Default session configuration constants.
const (
	defaultWorkerCount    = 2
	defaultQueueSize      = 64
	defaultRequestTimeout = 5 * time.Second
	defaultMinBet         = 10
	defaultMaxBet         = 10_000
	rememberedEvents      = 256
	teardownTimeout       = 5 * time.Second
)

const (
	stateIdle int32 = iota
	stateRunning
	stateClosed
)

// Committer places commitments (bets) on an event.
type Committer interface {
	PlaceBet(ctx context.Context, eventID, choiceID model.ID, amount decimal.Decimal) (model.Commitment, error)
}

// Backend is everything a session needs from the battle backend.
type Backend interface {
	worker.Fetcher
	Committer
}

// Session tracks one scheduled event. All domain state is owned by the Run
// loop; View, Subscribe, Refresh and PlaceBet are safe to call concurrently.
type Session struct {
	id        string
	pinned    model.ID
	backend   Backend
	clock     *clock.Source
	publisher *Publisher

	// Configuration
	workerCount    int
	queueSize      int
	requestTimeout time.Duration
	overlayGrace   time.Duration
	minGap         time.Duration
	playbackOpts   []playback.Option
	minBet         decimal.Decimal
	maxBet         decimal.Decimal

	// Loop-owned state
	machine   *phase.Machine[model.ScheduledEvent]
	scheduler *polling.Scheduler
	overlay   *overlay.Controller
	retired   *retiredEvents
	played    dedupe.Deduper
	lastErr   string
	lastErrAt time.Time

	generation atomic.Uint64
	state      atomic.Int32
	requests   *queue.InMemoryQueue[worker.Request]
	results    *queue.InMemoryQueue[worker.Result]
	pool       *worker.Pool
	refreshCh  chan struct{}
	playWG     sync.WaitGroup

	mu   sync.RWMutex
	view View
	play PlaybackStatus

	logger logger.Logger
}

// New constructs a session against backend. It does nothing until Run.
func New(backend Backend, opts ...Option) *Session {
	s := &Session{
		id:             uuid.NewString(),
		backend:        backend,
		workerCount:    defaultWorkerCount,
		queueSize:      defaultQueueSize,
		requestTimeout: defaultRequestTimeout,
		overlayGrace:   overlay.DefaultGrace,
		minBet:         decimal.NewFromInt(defaultMinBet),
		maxBet:         decimal.NewFromInt(defaultMaxBet),
		refreshCh:      make(chan struct{}, 1),
		publisher:      NewPublisher(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("session")
	}
	s.logger = s.logger.With(logger.String("session_id", s.id))

	s.machine = phase.NewMachine[model.ScheduledEvent]()
	s.scheduler = polling.New(polling.WithMinGap(s.minGap))
	s.overlay = overlay.New(overlay.WithGrace(s.overlayGrace))
	s.retired = newRetiredEvents(rememberedEvents)
	s.played = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(rememberedEvents))

	s.requests = queue.NewInMemoryQueue[worker.Request](
		queue.WithCapacity(s.queueSize),
		queue.WithDropHook(func(reason string) { metrics.RecordResultDropped("request_" + reason) }),
	)
	s.results = queue.NewInMemoryQueue[worker.Result](
		queue.WithCapacity(s.queueSize),
		queue.WithDropHook(metrics.RecordResultDropped),
		queue.WithLenHook(metrics.UpdateResultQueueSize),
	)
	s.pool = worker.NewPool(s.workerCount, s.requests, s.results, backend,
		worker.WithRequestTimeout(s.requestTimeout),
	)

	s.view = s.buildView(s.clock.Now())
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Mode returns ModePinned or ModeFollow.
func (s *Session) Mode() string {
	if s.pinned != "" {
		return ModePinned
	}
	return ModeFollow
}

// Run drives the session until ctx is done, then tears it down: the tick
// source stops, in-flight fetch results are dropped, playback is cancelled
// and subscriber channels are closed. A session runs at most once.
func (s *Session) Run(ctx context.Context) error {
	if !s.state.CompareAndSwap(stateIdle, stateRunning) {
		if s.state.Load() == stateClosed {
			return ErrSessionClosed
		}
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.teardown()
	}()

	gen := s.generation.Add(1)
	s.pool.Start(ctx)
	ticks := s.clock.Start(ctx)

	s.logger.Info(ctx, "session started",
		logger.String("mode", s.Mode()),
		logger.String("pinned", s.pinned.String()),
		logger.Int("workers", s.pool.Size()),
		logger.Int("request_queue", s.requests.Cap()),
		logger.Int("result_queue", s.results.Cap()),
		logger.Duration("tick", s.clock.Interval()),
	)

	s.tick(ctx, gen, s.clock.Now())
	for {
		select {
		case <-ctx.Done():
			return nil
		case now, ok := <-ticks:
			if !ok {
				return nil
			}
			s.tick(ctx, gen, now)
		case res, ok := <-s.results.Chan():
			if !ok {
				return nil
			}
			s.handle(ctx, gen, res)
		case <-s.refreshCh:
			s.refresh(ctx, gen, s.clock.Now())
		}
	}
}

func (s *Session) teardown() {
	s.generation.Add(1)
	s.state.Store(stateClosed)

	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "fetch pool shutdown", logger.Error(err))
	}
	_ = s.results.Close()
	s.playWG.Wait()
	s.publisher.Close()
	metrics.UpdateOverlayActive(false)

	s.logger.Info(ctx, "session stopped")
}

// Refresh requests an out-of-band fetch, bypassing the scheduled due-time.
func (s *Session) Refresh() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

// Subscribe returns a channel of updates and a func that unsubscribes.
// The channel is closed when the session is torn down.
func (s *Session) Subscribe(buffer int) (<-chan Update, func()) {
	return s.publisher.Subscribe(buffer)
}

// View returns the latest published view.
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Countdown recomputes the countdown of the tracked phase at the current time.
func (s *Session) Countdown() countdown.Remaining {
	v := s.View()
	return countdown.Compute(s.clock.Now(), v.CountdownTarget)
}

// tick runs once per clock tick: overlay evaluation, then a fetch when due.
func (s *Session) tick(ctx context.Context, gen uint64, now time.Time) {
	if snap, ok := s.machine.Snapshot(); ok {
		target, has := snap.CurrentDeadline()
		expired := has && countdown.Compute(now, target).Expired
		s.noteOverlay(ctx, s.overlay.Evaluate(now, snap.Phase, expired))
	}

	// while awaiting a phase every tick fetches, unless the last fetch failed
	if s.overlay.Active() && s.lastErr == "" {
		s.scheduler.ForceDue(now)
	}
	if s.scheduler.Due(now) {
		s.dispatch(ctx, gen, now)
	}
	s.publishView(now)
}

func (s *Session) refresh(ctx context.Context, gen uint64, now time.Time) {
	if s.scheduler.State().Mode == polling.Stopped {
		return
	}
	s.scheduler.ForceDue(now)
	s.dispatch(ctx, gen, now)
}

// dispatch hands a fetch to the worker pool and reschedules.
func (s *Session) dispatch(ctx context.Context, gen uint64, now time.Time) {
	req := worker.Request{Generation: gen, EventID: s.target(), IssuedAt: now}
	if !s.requests.Enqueue(ctx, req) {
		s.logger.Warn(ctx, "fetch request dropped", logger.String("event_id", req.EventID.String()))
	}

	p, ttd := s.pollPhase(now)
	s.scheduler.Fired(now, p, ttd)
	metrics.UpdatePollInterval(s.scheduler.State().Interval.Milliseconds())
}

// target is the event id to fetch by, empty to fetch the current event.
// Following sessions switch to the by-id endpoint once betting has closed,
// since the current endpoint moves on to the next battle.
func (s *Session) target() model.ID {
	if s.pinned != "" {
		return s.pinned
	}
	snap, ok := s.machine.Snapshot()
	if !ok {
		return ""
	}
	switch snap.Phase {
	case phase.BettingClosed, phase.InProgress:
		return snap.ID
	case phase.Completed:
		if _, has := snap.Log(); !has {
			return snap.ID
		}
	}
	return ""
}

// pollPhase returns the phase and time-to-deadline the interval is based on.
// A completed event without its log is polled like one in progress.
func (s *Session) pollPhase(now time.Time) (phase.Phase, time.Duration) {
	snap, ok := s.machine.Snapshot()
	if !ok {
		return phase.Unknown, 0
	}
	p := snap.Phase
	if p == phase.Completed {
		if _, has := snap.Log(); !has {
			p = phase.InProgress
		}
	}
	var ttd time.Duration
	if target, has := snap.Deadline(p); has {
		ttd = target.Sub(now)
	}
	return p, ttd
}

func (s *Session) heldID() model.ID {
	snap, ok := s.machine.Snapshot()
	if !ok {
		return ""
	}
	return snap.ID
}

// handle applies one fetch result.
func (s *Session) handle(ctx context.Context, gen uint64, res worker.Result) {
	if res.Generation != gen {
		metrics.RecordResultDropped("stale_generation")
		return
	}

	// A current-endpoint answer issued before the session switched to by-id
	// fetching says nothing about the tracked event.
	if res.Request.EventID == "" && s.target() != "" &&
		(res.Snapshot == nil || res.Snapshot.ID != s.heldID()) {
		metrics.RecordResultDropped("superseded")
		return
	}

	now := s.clock.Now()
	switch {
	case res.Err != nil:
		s.lastErr, s.lastErrAt = res.Err.Error(), now
		metrics.RecordErrorByComponent("session", "fetch")
	case res.NotFound:
		s.lastErr, s.lastErrAt = "", time.Time{}
		s.notFound(ctx, res.Request)
	case res.Snapshot != nil:
		s.lastErr, s.lastErrAt = "", time.Time{}
		s.apply(ctx, now, res.Request.IssuedAt, *res.Snapshot)
	}
	s.publishView(now)
}

// notFound drops the tracked event and reverts to discovery.
func (s *Session) notFound(ctx context.Context, req worker.Request) {
	if s.scheduler.State().Mode == polling.Stopped {
		return
	}
	if s.pinned == "" && req.EventID != "" && req.EventID != s.heldID() {
		return
	}

	if held := s.heldID(); held != "" {
		s.logger.Info(ctx, "tracked event gone", logger.String("event_id", held.String()))
	}
	s.machine.Reset()
	s.scheduler.Untrack()
	s.noteOverlay(ctx, s.overlay.Reset())
	metrics.UpdateTrackedPhase(phase.Unknown.Rank())
}

// apply feeds a snapshot through the phase machine and reacts to the result.
// issuedAt is when the fetch that produced snap was dispatched.
func (s *Session) apply(ctx context.Context, now, issuedAt time.Time, snap model.ScheduledEvent) {
	if !s.retired.admit(ctx, snap.ID.String(), snap.Phase, issuedAt) {
		s.stale(ctx, snap, "retired event")
		return
	}

	prev, had := s.machine.Snapshot()
	r := s.machine.Apply(snap)
	if r.Stale {
		s.stale(ctx, snap, "phase regression")
		return
	}

	if r.NewEvent {
		if had && prev.ID != snap.ID {
			s.retired.retire(ctx, prev.ID.String(), prev.Phase, now)
			s.noteOverlay(ctx, s.overlay.Reset())
		}
		s.scheduler.Track(snap.ID.String())
		s.logger.Info(ctx, "tracking event",
			logger.String("event_id", snap.ID.String()),
			logger.String("phase", snap.Phase.String()),
		)
	}

	if r.Changed {
		metrics.RecordPhaseChange(r.Previous.String(), r.Current.String())
		metrics.UpdateTrackedPhase(r.Current.Rank())
		s.logger.Info(ctx, "phase changed",
			logger.String("event_id", snap.ID.String()),
			logger.String("from", r.Previous.String()),
			logger.String("to", r.Current.String()),
		)
		s.scheduler.PhaseChanged(now)
		s.noteOverlay(ctx, s.overlay.Observe(now, r.Current))
	}

	if r.Current.Terminal() {
		s.settle(ctx, snap)
	}
}

// settle handles a terminal snapshot. A completed event without its log keeps
// being polled until the log is attached.
func (s *Session) settle(ctx context.Context, snap model.ScheduledEvent) {
	if snap.Phase == phase.Completed {
		rounds, ok := snap.Log()
		if !ok {
			return
		}
		s.startPlayback(ctx, snap.ID, rounds)
	}

	if s.pinned != "" {
		s.scheduler.Stop()
		metrics.UpdatePollInterval(0)
		return
	}
	s.scheduler.Untrack()
}

func (s *Session) stale(ctx context.Context, snap model.ScheduledEvent, reason string) {
	metrics.RecordStaleSnapshot()
	s.logger.Warn(ctx, "stale snapshot rejected",
		logger.String("event_id", snap.ID.String()),
		logger.String("phase", snap.Phase.String()),
		logger.String("held", s.machine.Current().String()),
		logger.String("reason", reason),
	)
}

func (s *Session) noteOverlay(ctx context.Context, t overlay.Transition) {
	if t == overlay.None {
		return
	}
	metrics.RecordOverlayTransition(t.String())
	metrics.UpdateOverlayActive(s.overlay.Active())

	if t == overlay.Entered {
		st := s.overlay.Status()
		s.logger.Info(ctx, "awaiting phase",
			logger.String("awaited", st.Awaited.String()),
			logger.Time("deadline", st.DeadlineAt),
		)
		return
	}
	s.logger.Debug(ctx, "overlay dismissed", logger.String("transition", t.String()))
}

// startPlayback plays rounds once per event id on the session clock.
func (s *Session) startPlayback(ctx context.Context, id model.ID, rounds []model.RoundRecord) {
	if s.played.SeenAndRecord(ctx, id.String()) {
		return
	}

	player := playback.NewPlayer(rounds, s.playbackOpts...)
	s.mu.Lock()
	s.play = PlaybackStatus{EventID: id, Total: player.Len()}
	s.mu.Unlock()

	s.logger.Info(ctx, "playing result log",
		logger.String("event_id", id.String()),
		logger.Int("rounds", player.Len()),
	)

	sink := playback.SinkFuncs{
		Reveal: func(r playback.Reveal) {
			metrics.RecordReveal()
			s.updatePlayback(id, func(ps *PlaybackStatus) {
				ps.Revealed = r.Index + 1
				ps.Value = r.From
			})
			s.publisher.Emit(Update{Kind: UpdateReveal, At: s.clock.Now(), EventID: id, Reveal: &r})
		},
		Step: func(round int, st playback.Step) {
			s.updatePlayback(id, func(ps *PlaybackStatus) { ps.Value = st.Value })
			s.publisher.Emit(Update{Kind: UpdateStep, At: s.clock.Now(), EventID: id, Round: round, Step: &st})
		},
		Complete: func() {
			metrics.RecordPlaybackCompleted()
			s.updatePlayback(id, func(ps *PlaybackStatus) { ps.Complete = true })
			s.publisher.Emit(Update{Kind: UpdatePlaybackComplete, At: s.clock.Now(), EventID: id})
		},
	}

	s.playWG.Add(1)
	go func() {
		defer s.playWG.Done()
		if err := player.Play(ctx, s.clock.Clock(), sink); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn(ctx, "playback stopped", logger.String("event_id", id.String()), logger.Error(err))
		}
	}()
}

func (s *Session) updatePlayback(id model.ID, fn func(*PlaybackStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.play.EventID != id {
		return
	}
	fn(&s.play)
	s.view.Playback = s.play
}

func (s *Session) buildView(now time.Time) View {
	v := View{
		SessionID:   s.id,
		Mode:        s.Mode(),
		Overlay:     s.overlay.Status(),
		Polling:     s.scheduler.State(),
		LastError:   s.lastErr,
		LastErrorAt: s.lastErrAt,
		Countdown:   countdown.Compute(now, time.Time{}),
		UpdatedAt:   now,
	}
	if snap, ok := s.machine.Snapshot(); ok {
		ev := snap
		v.Event = &ev
		v.Phase = snap.Phase
		if target, has := snap.CurrentDeadline(); has {
			v.CountdownTarget = target
			v.Countdown = countdown.Compute(now, target)
		}
	}
	return v
}

// publishView stores the view and emits it to subscribers.
func (s *Session) publishView(now time.Time) {
	v := s.buildView(now)
	s.mu.Lock()
	v.Playback = s.play
	s.view = v
	s.mu.Unlock()

	s.publisher.Emit(Update{Kind: UpdateView, At: now, EventID: s.heldID(), View: &v})
}
