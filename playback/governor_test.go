package playback

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLadder(t *testing.T) {
	Convey("Given an unordered level list", t, func() {
		l := NewLadder(ladder)

		Convey("It should be ordered by height, highest first", func() {
			So(l[0].ID, ShouldEqual, 1)
			So(l[1].ID, ShouldEqual, 2)
			So(l[2].ID, ShouldEqual, 0)
			So(l[0].Label, ShouldEqual, "1080p")
		})

		Convey("Below should step strictly down", func() {
			So(l.Below(1).MustGet().ID, ShouldEqual, 2)
			So(l.Below(2).MustGet().ID, ShouldEqual, 0)
			So(l.Below(0).IsPresent(), ShouldBeFalse)
			So(l.Below(99).IsPresent(), ShouldBeFalse)
		})

		Convey("Highest should honor the height cap", func() {
			So(l.Highest(0).MustGet().ID, ShouldEqual, 1)
			So(l.Highest(800).MustGet().ID, ShouldEqual, 2)
			So(l.Highest(100).MustGet().ID, ShouldEqual, 0)
		})
	})

	Convey("Given levels without heights", t, func() {
		l := NewLadder([]Level{{ID: 0, Bandwidth: 500_000}, {ID: 1, Bandwidth: 1_500_000}})

		Convey("Bandwidth should order them", func() {
			So(l[0].ID, ShouldEqual, 1)
			So(l[0].Label, ShouldEqual, "1500 kbps")
			So(l.Below(1).MustGet().ID, ShouldEqual, 0)
		})
	})
}

func TestGovernor(t *testing.T) {
	Convey("Given a playing adaptive session in auto mode", t, func() {
		clock := newFakeClock()
		media := newFakeSource()
		engines := &fakeEngines{}
		ctrl := NewController(media, nil, WithEngine(engines.factory), WithConfig(testConfig()), WithClock(clock.Now))
		defer ctrl.Stop()

		s, _ := ctrl.Load(Source{URL: "https://host/a.m3u8"})
		engine := engines.last()
		engine.emit(ManifestParsed{Levels: ladder})
		await(t, s, inState(Playing))

		check := func() {
			_ = s.call(func() error {
				s.checkStall(clock.Now())
				return nil
			})
		}

		Convey("Stalling past the threshold should ratchet down one rung at a time", func() {
			media.emit(Waiting{})
			settle(s)
			So(s.Snapshot().Buffering, ShouldBeTrue)

			clock.Advance(4 * time.Second)
			check()
			So(s.Snapshot().CurrentLevel, ShouldEqual, 1)

			clock.Advance(2 * time.Second)
			check()
			So(s.Snapshot().CurrentLevel, ShouldEqual, 2)
			So(s.Snapshot().AutoLevel, ShouldBeTrue)

			check()
			So(s.Snapshot().CurrentLevel, ShouldEqual, 2)

			clock.Advance(6 * time.Second)
			check()
			So(s.Snapshot().CurrentLevel, ShouldEqual, 0)

			Convey("The lowest rung should be a no-op", func() {
				clock.Advance(60 * time.Second)
				check()
				So(s.Snapshot().CurrentLevel, ShouldEqual, 0)
				So(engine.capLog(), ShouldResemble, []int{2, 0})
				So(s.Stats().Downgrades, ShouldEqual, 2)
			})
		})

		Convey("Progress should reset the stall clock", func() {
			media.emit(Waiting{})
			clock.Advance(4 * time.Second)
			engine.emit(FragBuffered{Level: 1, Duration: 4})
			media.emit(Waiting{})
			clock.Advance(4 * time.Second)
			settle(s)
			check()
			So(s.Snapshot().CurrentLevel, ShouldEqual, 1)
		})

		Convey("A level forced by the user should never be lowered", func() {
			So(s.SetLevel(1), ShouldBeNil)
			media.emit(Waiting{})
			clock.Advance(time.Minute)
			settle(s)
			check()
			So(s.Snapshot().CurrentLevel, ShouldEqual, 1)
			So(engine.capLog(), ShouldBeEmpty)
		})

		Convey("The governor should be off once the session ended", func() {
			media.emit(Waiting{})
			media.emit(MediaEnded{})
			await(t, s, inState(Ended))
			clock.Advance(time.Minute)
			check()
			So(s.Snapshot().CurrentLevel, ShouldEqual, 1)
		})
	})

	Convey("Given a short stall threshold and the real clock", t, func() {
		media := newFakeSource()
		engines := &fakeEngines{}
		cfg := testConfig()
		cfg.StallThreshold = 30 * time.Millisecond
		cfg.StallPollInterval = 5 * time.Millisecond
		ctrl := NewController(media, nil, WithEngine(engines.factory), WithConfig(cfg))
		defer ctrl.Stop()

		s, _ := ctrl.Load(Source{URL: "https://host/a.m3u8"})
		engine := engines.last()
		engine.emit(ManifestParsed{Levels: ladder})
		await(t, s, inState(Playing))

		Convey("The poller should lower the quality on its own", func() {
			media.emit(Waiting{})
			snap := await(t, s, func(s Snapshot) bool { return s.CurrentLevel != 1 })
			So(snap.CurrentLevel, ShouldBeIn, 2, 0)
			So(engine.capLog()[0], ShouldEqual, 2)
		})
	})
}
