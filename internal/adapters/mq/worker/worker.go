// Package worker runs snapshot fetches off the session loop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/arenasync/internal/domain/model"
	"github.com/okian/arenasync/pkg/logger"
	"github.com/okian/arenasync/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 2
	defaultRequestTimeout = 5 * time.Second
	poolShutdownTimeout   = 10 * time.Second
	fetchKindCurrent      = "current"
	fetchKindByID         = "by_id"
	fetchOutcomeOK        = "ok"
	fetchOutcomeNotFound  = "not_found"
	fetchOutcomeError     = "error"
	fetchOutcomeCancelled = "cancelled"
	workerLoggerName      = "fetch-worker"
	workerPoolLoggerName  = "fetch-pool"
)

// Fetcher is the snapshot collaborator. A missing event is reported with an
// error matching model.ErrEventNotFound.
type Fetcher interface {
	Current(ctx context.Context) (model.ScheduledEvent, error)
	ByID(ctx context.Context, id model.ID) (model.ScheduledEvent, error)
}

// Request asks for one snapshot. An empty EventID fetches the current event.
type Request struct {
	Generation uint64
	EventID    model.ID
	IssuedAt   time.Time
}

func (r Request) kind() string {
	if r.EventID == "" {
		return fetchKindCurrent
	}
	return fetchKindByID
}

// Result is the outcome of a Request. Exactly one of Snapshot, NotFound or Err is set.
type Result struct {
	Generation uint64
	Request    Request
	Snapshot   *model.ScheduledEvent
	NotFound   bool
	Err        error
	IssuedAt   time.Time
	Latency    time.Duration
}

// Source is where workers read requests.
type Source interface {
	Dequeue(ctx context.Context) <-chan Request
}

// Sink is where workers deliver results.
type Sink interface {
	Enqueue(ctx context.Context, r Result) bool
}

// Worker executes fetch requests until its source closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker, waiting for an in-flight fetch to finish.
	Shutdown(ctx context.Context) error
}

// FetchWorker implements Worker.
type FetchWorker struct {
	source  Source
	sink    Sink
	fetcher Fetcher
	name    string
	timeout time.Duration

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewFetchWorker creates a new worker with configuration options.
func NewFetchWorker(source Source, sink Sink, fetcher Fetcher, opts ...Option) *FetchWorker {
	w := &FetchWorker{
		source:   source,
		sink:     sink,
		fetcher:  fetcher,
		name:     workerLoggerName,
		timeout:  defaultRequestTimeout,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named(workerLoggerName),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != workerLoggerName {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *FetchWorker) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.source.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			w.deliver(ctx, w.fetch(ctx, req))
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *FetchWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// fetch performs one request with the per-request timeout.
func (w *FetchWorker) fetch(ctx context.Context, req Request) Result {
	rctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	var (
		snap model.ScheduledEvent
		err  error
	)
	if req.EventID == "" {
		snap, err = w.fetcher.Current(rctx)
	} else {
		snap, err = w.fetcher.ByID(rctx, req.EventID)
	}
	latency := time.Since(start)

	res := Result{
		Generation: req.Generation,
		Request:    req,
		IssuedAt:   req.IssuedAt,
		Latency:    latency,
	}

	kind := req.kind()
	switch {
	case err == nil:
		res.Snapshot = &snap
		metrics.RecordFetch(kind, fetchOutcomeOK, float64(latency.Milliseconds()))
	case errors.Is(err, model.ErrEventNotFound):
		res.NotFound = true
		metrics.RecordFetch(kind, fetchOutcomeNotFound, float64(latency.Milliseconds()))
	case ctx.Err() != nil:
		res.Err = err
		metrics.RecordFetch(kind, fetchOutcomeCancelled, float64(latency.Milliseconds()))
	default:
		res.Err = err
		metrics.RecordFetch(kind, fetchOutcomeError, float64(latency.Milliseconds()))
		metrics.RecordErrorByComponent("worker", "fetch_error")
		w.logger.Warn(ctx, "fetch failed",
			logger.String("kind", kind),
			logger.String("event_id", req.EventID.String()),
			logger.Duration("latency", latency),
			logger.Error(err),
		)
	}
	return res
}

func (w *FetchWorker) deliver(ctx context.Context, res Result) {
	if w.sink.Enqueue(ctx, res) {
		return
	}
	w.logger.Debug(ctx, "result dropped",
		logger.Int64("generation", int64(res.Generation)), //nolint:gosec // generation counters stay small
		logger.String("event_id", res.Request.EventID.String()),
	)
}

// Pool manages multiple workers.
type Pool struct {
	workers []*FetchWorker
	source  Source

	logger logger.Logger
}

// NewPool creates a worker pool reading requests from source and delivering
// results to sink.
func NewPool(workerCount int, source Source, sink Sink, fetcher Fetcher, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*FetchWorker, workerCount),
		source:  source,
		logger:  logger.Get().Named(workerPoolLoggerName),
	}

	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewFetchWorker(source, sink, fetcher, wopts...)
	}

	metrics.UpdateFetchWorkers(workerCount)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Shutdown closes the request source and waits for workers to finish.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.source.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing request queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for i, worker := range p.workers {
		if err := worker.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			errs = append(errs, err)
		}
	}

	metrics.UpdateFetchWorkers(0)
	return errors.Join(errs...)
}
