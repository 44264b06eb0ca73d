package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/arenasync/internal/adapters/mq/queue"
	worker "github.com/okian/arenasync/internal/adapters/mq/worker"
	model "github.com/okian/arenasync/internal/domain/model"
	phase "github.com/okian/arenasync/internal/domain/phase"
	logging "github.com/okian/arenasync/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockFetcher struct {
	mu       sync.Mutex
	current  *model.ScheduledEvent
	byID     map[model.ID]model.ScheduledEvent
	err      error
	delay    time.Duration
	calls    int
	lastByID model.ID
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{byID: make(map[model.ID]model.ScheduledEvent)}
}

func (f *mockFetcher) Current(ctx context.Context) (model.ScheduledEvent, error) {
	f.mu.Lock()
	f.calls++
	cur, err, delay := f.current, f.err, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.ScheduledEvent{}, ctx.Err()
		}
	}
	if err != nil {
		return model.ScheduledEvent{}, err
	}
	if cur == nil {
		return model.ScheduledEvent{}, fmt.Errorf("current: %w", model.ErrEventNotFound)
	}
	return *cur, nil
}

func (f *mockFetcher) ByID(_ context.Context, id model.ID) (model.ScheduledEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastByID = id
	if f.err != nil {
		return model.ScheduledEvent{}, f.err
	}
	ev, ok := f.byID[id]
	if !ok {
		return model.ScheduledEvent{}, model.ErrEventNotFound
	}
	return ev, nil
}

func (f *mockFetcher) set(fn func(f *mockFetcher)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func receive(results *queue.InMemoryQueue[worker.Result]) (worker.Result, bool) {
	select {
	case r := <-results.Chan():
		return r, true
	case <-time.After(time.Second):
		return worker.Result{}, false
	}
}

func TestFetchWorker(t *testing.T) {
	convey.Convey("Given a fetch worker wired to request and result queues", t, func() {
		_ = logging.Init()

		requests := queue.NewInMemoryQueue[worker.Request](queue.WithCapacity(8))
		results := queue.NewInMemoryQueue[worker.Result](queue.WithCapacity(8))
		fetcher := newMockFetcher()

		w := worker.NewFetchWorker(requests, results, fetcher,
			worker.WithName("test-worker"),
			worker.WithRequestTimeout(50*time.Millisecond),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When the current event exists", func() {
			fetcher.set(func(f *mockFetcher) {
				f.current = &model.ScheduledEvent{ID: "7", Phase: phase.BettingOpen}
			})
			requests.Enqueue(ctx, worker.Request{Generation: 3, IssuedAt: time.Unix(100, 0)})

			res, ok := receive(results)

			convey.Convey("Then the snapshot is delivered with its generation", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(res.Generation, convey.ShouldEqual, 3)
				convey.So(res.Err, convey.ShouldBeNil)
				convey.So(res.NotFound, convey.ShouldBeFalse)
				convey.So(res.Snapshot, convey.ShouldNotBeNil)
				convey.So(res.Snapshot.ID, convey.ShouldEqual, model.ID("7"))
				convey.So(res.IssuedAt, convey.ShouldEqual, time.Unix(100, 0))
			})
		})

		convey.Convey("When no event is scheduled", func() {
			requests.Enqueue(ctx, worker.Request{Generation: 1})

			res, ok := receive(results)

			convey.Convey("Then the result is marked not found", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(res.NotFound, convey.ShouldBeTrue)
				convey.So(res.Snapshot, convey.ShouldBeNil)
				convey.So(res.Err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When fetching a pinned event by id", func() {
			fetcher.set(func(f *mockFetcher) {
				f.byID["42"] = model.ScheduledEvent{ID: "42", Phase: phase.InProgress}
			})
			requests.Enqueue(ctx, worker.Request{Generation: 2, EventID: "42"})

			res, ok := receive(results)

			convey.Convey("Then the by-id endpoint is used", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(res.Snapshot, convey.ShouldNotBeNil)
				convey.So(res.Snapshot.Phase, convey.ShouldEqual, phase.InProgress)
				convey.So(res.Request.EventID, convey.ShouldEqual, model.ID("42"))
			})
		})

		convey.Convey("When the backend fails", func() {
			fetcher.set(func(f *mockFetcher) { f.err = errors.New("connection refused") })
			requests.Enqueue(ctx, worker.Request{Generation: 5})

			res, ok := receive(results)

			convey.Convey("Then the error is carried in the result", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(res.Err, convey.ShouldNotBeNil)
				convey.So(res.Snapshot, convey.ShouldBeNil)
				convey.So(res.NotFound, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the backend is slower than the request timeout", func() {
			fetcher.set(func(f *mockFetcher) {
				f.current = &model.ScheduledEvent{ID: "1"}
				f.delay = time.Second
			})
			requests.Enqueue(ctx, worker.Request{Generation: 9})

			res, ok := receive(results)

			convey.Convey("Then the fetch is abandoned with a deadline error", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(errors.Is(res.Err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer shutdownCancel()

			err := w.Shutdown(shutdownCtx)

			convey.Convey("Then it should shutdown gracefully", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a fetch pool", t, func() {
		_ = logging.Init()

		requests := queue.NewInMemoryQueue[worker.Request](queue.WithCapacity(16))
		results := queue.NewInMemoryQueue[worker.Result](queue.WithCapacity(16))
		fetcher := newMockFetcher()
		fetcher.set(func(f *mockFetcher) { f.current = &model.ScheduledEvent{ID: "11"} })

		convey.Convey("When created with a non-positive count", func() {
			pool := worker.NewPool(0, requests, results, fetcher)

			convey.Convey("Then the default size is used", func() {
				convey.So(pool.Size(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When started with several requests", func() {
			pool := worker.NewPool(3, requests, results, fetcher)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			pool.Start(ctx)

			for i := 1; i <= 5; i++ {
				requests.Enqueue(ctx, worker.Request{Generation: uint64(i)})
			}

			seen := map[uint64]bool{}
			for i := 0; i < 5; i++ {
				if res, ok := receive(results); ok {
					seen[res.Generation] = true
				}
			}

			convey.Convey("Then every request produces a result", func() {
				convey.So(len(seen), convey.ShouldEqual, 5)
				fetcher.mu.Lock()
				convey.So(fetcher.calls, convey.ShouldEqual, 5)
				fetcher.mu.Unlock()
			})

			convey.Convey("And shutdown closes the request queue", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
				defer shutdownCancel()

				err := pool.Shutdown(shutdownCtx)

				convey.So(err, convey.ShouldBeNil)
				convey.So(requests.Enqueue(context.Background(), worker.Request{Generation: 6}), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When its context is cancelled", func() {
			pool := worker.NewPool(2, requests, results, fetcher)
			ctx, cancel := context.WithCancel(context.Background())
			pool.Start(ctx)
			cancel()
			time.Sleep(10 * time.Millisecond)

			convey.Convey("Then requests are no longer served", func() {
				requests.Enqueue(context.Background(), worker.Request{Generation: 1})
				select {
				case <-results.Chan():
					convey.So("unexpected result", convey.ShouldBeEmpty)
				case <-time.After(50 * time.Millisecond):
				}
			})
		})
	})
}
