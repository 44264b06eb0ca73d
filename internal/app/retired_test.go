package service

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/arenasync/internal/domain/phase"
)

func TestRetiredEvents(t *testing.T) {
	Convey("Given an event retired while open for betting", t, func() {
		ctx := context.Background()
		at := time.Date(2025, 5, 1, 12, 0, 10, 0, time.UTC)
		r := newRetiredEvents(4)
		r.retire(ctx, "1", phase.BettingOpen, at)

		Convey("Then unrelated events are admitted", func() {
			So(r.admit(ctx, "2", phase.Scheduled, at.Add(-time.Minute)), ShouldBeTrue)
		})

		Convey("Then a fetch issued before the retirement is rejected", func() {
			So(r.admit(ctx, "1", phase.InProgress, at.Add(-time.Second)), ShouldBeFalse)
			So(r.admit(ctx, "1", phase.InProgress, at), ShouldBeFalse)
		})

		Convey("Then an earlier phase is rejected", func() {
			So(r.admit(ctx, "1", phase.Scheduled, at.Add(time.Second)), ShouldBeFalse)
			So(r.ids.Seen(ctx, "1"), ShouldBeTrue)
		})

		Convey("When it is served again in the same phase by a later fetch", func() {
			So(r.admit(ctx, "1", phase.BettingOpen, at.Add(time.Second)), ShouldBeTrue)

			Convey("Then it is forgotten", func() {
				So(r.ids.Seen(ctx, "1"), ShouldBeFalse)
				So(r.meta, ShouldNotContainKey, "1")
				So(r.admit(ctx, "1", phase.Scheduled, at), ShouldBeTrue)
			})
		})

		Convey("When more events retire than are remembered", func() {
			for _, id := range []string{"2", "3", "4", "5", "6"} {
				r.retire(ctx, id, phase.Scheduled, at)
			}

			Convey("Then the oldest are dropped with their phase", func() {
				So(r.ids.Seen(ctx, "1"), ShouldBeFalse)
				So(len(r.meta), ShouldBeLessThanOrEqualTo, 4)
				So(r.admit(ctx, "1", phase.Scheduled, at), ShouldBeTrue)
				So(r.admit(ctx, "6", phase.Scheduled, at), ShouldBeFalse)
			})
		})
	})
}
