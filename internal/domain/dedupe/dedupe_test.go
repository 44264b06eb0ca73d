package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/arenasync/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()

		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should be empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording events", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the event is new", func() {
				seen := d.SeenAndRecord(ctx, "event-1")

				Convey("Then it should return false and record the event", func() {
					So(seen, ShouldBeFalse)
					So(d.Seen(ctx, "event-1"), ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the event was already seen", func() {
				d.SeenAndRecord(ctx, "event-1")
				seen := d.SeenAndRecord(ctx, "event-1")

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And Seen is asked about an unknown id", func() {
				So(d.Seen(ctx, "event-9"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the bound is reached", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for i := 1; i <= 4; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("event-%d", i))
			}

			Convey("Then the oldest id is evicted first", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.Seen(ctx, "event-1"), ShouldBeFalse)
				So(d.Seen(ctx, "event-2"), ShouldBeTrue)
				So(d.Seen(ctx, "event-4"), ShouldBeTrue)
			})

			Convey("And eviction keeps cycling", func() {
				d.SeenAndRecord(ctx, "event-5")
				So(d.Seen(ctx, "event-2"), ShouldBeFalse)
				So(d.Seen(ctx, "event-3"), ShouldBeTrue)
				So(d.Seen(ctx, "event-5"), ShouldBeTrue)
			})
		})

		Convey("When unbounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			for i := 0; i < 1000; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("event-%d", i))
			}

			Convey("Then nothing is evicted", func() {
				So(d.Size(), ShouldEqual, 1000)
				So(d.Seen(ctx, "event-0"), ShouldBeTrue)
			})
		})

		Convey("When unrecording an id", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))
			d.SeenAndRecord(ctx, "event-1")
			d.SeenAndRecord(ctx, "event-2")
			d.Unrecord(ctx, "event-1")

			Convey("Then it can be recorded again", func() {
				So(d.Seen(ctx, "event-1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
				So(d.SeenAndRecord(ctx, "event-1"), ShouldBeFalse)
				So(d.Seen(ctx, "event-2"), ShouldBeTrue)
			})

			Convey("And unrecording an unknown id is a no-op", func() {
				d.Unrecord(ctx, "event-9")
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When used concurrently", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 100; i++ {
						if !d.SeenAndRecord(ctx, fmt.Sprintf("event-%d", i)) {
							mu.Lock()
							fresh++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then every id is recorded exactly once", func() {
				So(fresh, ShouldEqual, 100)
				So(d.Size(), ShouldEqual, 100)
			})
		})
	})
}
