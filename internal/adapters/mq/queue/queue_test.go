package queue

import (
	"context"
	"sync"
	"testing"
	"time"
)

type item struct {
	gen uint64
	id  string
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue[item](WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, item{gen: 1, id: "a"}) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.id != "a" || got.gen != 1 {
		t.Errorf("expected a/1, got %v", got)
	}
}

func TestInMemoryQueue_CapacityAndDrops(t *testing.T) {
	var mu sync.Mutex
	reasons := []string{}
	lens := []int{}
	q := NewInMemoryQueue[item](
		WithCapacity(2),
		WithDropHook(func(r string) { mu.Lock(); reasons = append(reasons, r); mu.Unlock() }),
		WithLenHook(func(n int) { mu.Lock(); lens = append(lens, n); mu.Unlock() }),
	)
	ctx := context.Background()

	if !q.Enqueue(ctx, item{id: "1"}) || !q.Enqueue(ctx, item{id: "2"}) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, item{id: "3"}) {
		t.Error("expected enqueue to fail when full")
	}
	if q.Cap() != 2 {
		t.Errorf("expected capacity 2, got %d", q.Cap())
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if q.Enqueue(cancelled, item{id: "4"}) {
		t.Error("expected enqueue to fail on a cancelled context")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reasons) != 2 || reasons[0] != "queue_full" || reasons[1] != "context_cancelled" {
		t.Errorf("unexpected drop reasons %v", reasons)
	}
	if len(lens) == 0 || lens[len(lens)-1] != 2 {
		t.Errorf("expected last reported length 2, got %v", lens)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue[item]()
	ctx := context.Background()

	out := q.Dequeue(ctx)
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if q.Enqueue(ctx, item{id: "late"}) {
		t.Error("expected enqueue after close to fail")
	}

	select {
	case _, ok := <-out:
		if ok {
			t.Error("expected dequeue channel to be closed")
		}
	case <-time.After(time.Second):
		t.Error("dequeue channel not closed")
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue[item](WithCapacity(1000))
	ctx := context.Background()
	numGoroutines := 10
	numItems := 100

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for j := 0; j < numItems; j++ {
				q.Enqueue(ctx, item{gen: uint64(g)})
			}
		}(i)
	}
	wg.Wait()

	if l := q.Len(ctx); l != numGoroutines*numItems {
		t.Errorf("expected %d items, got %d", numGoroutines*numItems, l)
	}

	_ = q.Close()
	count := 0
	for range q.Chan() {
		count++
	}
	if count != numGoroutines*numItems {
		t.Errorf("expected to drain %d items, got %d", numGoroutines*numItems, count)
	}
}
