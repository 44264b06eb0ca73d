package overlay_test

import (
	"testing"
	"time"

	"github.com/okian/arenasync/internal/domain/overlay"
	"github.com/okian/arenasync/internal/domain/phase"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOverlayLifecycle(t *testing.T) {
	Convey("Given an idle overlay controller", t, func() {
		now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
		c := overlay.New()

		Convey("When the countdown has not expired", func() {
			tr := c.Evaluate(now, phase.Scheduled, false)

			Convey("Then it stays idle", func() {
				So(tr, ShouldEqual, overlay.None)
				So(c.Active(), ShouldBeFalse)
			})
		})

		Convey("When the Scheduled countdown expires", func() {
			tr := c.Evaluate(now, phase.Scheduled, true)

			Convey("Then it awaits BettingOpen for the grace window", func() {
				So(tr, ShouldEqual, overlay.Entered)
				st := c.Status()
				So(st.Active, ShouldBeTrue)
				So(st.Awaited, ShouldEqual, phase.BettingOpen)
				So(st.DeadlineAt, ShouldEqual, now.Add(overlay.DefaultGrace))
			})

			Convey("And BettingOpen is observed", func() {
				tr := c.Observe(now.Add(time.Second), phase.BettingOpen)

				Convey("Then the overlay clears", func() {
					So(tr, ShouldEqual, overlay.Cleared)
					So(c.Active(), ShouldBeFalse)
				})
			})

			Convey("And a later phase is observed", func() {
				tr := c.Observe(now.Add(time.Second), phase.BettingClosed)

				Convey("Then skipping past the awaited phase also clears", func() {
					So(tr, ShouldEqual, overlay.Cleared)
				})
			})

			Convey("And the next tick still sees the old phase", func() {
				tr := c.Evaluate(now.Add(19*time.Second), phase.Scheduled, true)

				Convey("Then it keeps waiting", func() {
					So(tr, ShouldEqual, overlay.None)
					So(c.Active(), ShouldBeTrue)
				})
			})

			Convey("And 20s pass without a phase change", func() {
				tr := c.Evaluate(now.Add(20*time.Second), phase.Scheduled, true)

				Convey("Then it times out", func() {
					So(tr, ShouldEqual, overlay.TimedOut)
					So(c.Active(), ShouldBeFalse)
				})

				Convey("Then it does not re-enter for the same phase", func() {
					So(c.Evaluate(now.Add(21*time.Second), phase.Scheduled, true), ShouldEqual, overlay.None)
					So(c.Active(), ShouldBeFalse)
				})

				Convey("Then it arms again once the phase moves on", func() {
					So(c.Observe(now.Add(22*time.Second), phase.BettingOpen), ShouldEqual, overlay.None)
					So(c.Evaluate(now.Add(23*time.Second), phase.BettingOpen, true), ShouldEqual, overlay.Entered)
					So(c.Status().Awaited, ShouldEqual, phase.BettingClosed)
				})
			})
		})

		Convey("When the BettingClosed countdown expires", func() {
			c.Evaluate(now, phase.BettingClosed, true)

			Convey("Then it awaits InProgress", func() {
				So(c.Status().Awaited, ShouldEqual, phase.InProgress)
			})
		})
	})
}

func TestOverlayForcedDismissal(t *testing.T) {
	Convey("Given an awaiting overlay", t, func() {
		now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
		c := overlay.New(overlay.WithGrace(5 * time.Second))
		So(c.Evaluate(now, phase.Scheduled, true), ShouldEqual, overlay.Entered)
		So(c.Status().DeadlineAt, ShouldEqual, now.Add(5*time.Second))

		for _, p := range []phase.Phase{phase.InProgress, phase.Completed, phase.Cancelled} {
			Convey("When "+p.String()+" is observed", func() {
				tr := c.Observe(now, p)

				Convey("Then the overlay is forced idle", func() {
					So(tr, ShouldEqual, overlay.Forced)
					So(c.Active(), ShouldBeFalse)
				})
			})
		}

		Convey("When reset", func() {
			tr := c.Reset()

			Convey("Then it is idle", func() {
				So(tr, ShouldEqual, overlay.Forced)
				So(c.Status(), ShouldResemble, overlay.Status{})
			})
		})
	})

	Convey("Given an idle overlay", t, func() {
		now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
		c := overlay.New()

		Convey("Then execution and terminal phases never enter", func() {
			for _, p := range []phase.Phase{phase.InProgress, phase.Completed, phase.Cancelled} {
				So(c.Evaluate(now, p, true), ShouldEqual, overlay.None)
				So(c.Active(), ShouldBeFalse)
			}
		})

		Convey("Then an unknown phase never enters", func() {
			So(c.Evaluate(now, phase.Unknown, true), ShouldEqual, overlay.None)
		})
	})
}
