package playback

import (
	"testing"
	"time"

	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/resolve"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSubtitles(t *testing.T) {
	tracks := []SubtitleTrack{
		{Language: "en", URL: "https://x/en.vtt"},
		{Language: "ja", URL: "https://x/ja.vtt"},
	}

	Convey("Given an episode with two subtitle tracks", t, func() {
		media := newFakeMedia(constant.MimeMP4)
		ctrl := NewController(media, resolve.New("https://p.example"), WithConfig(testConfig()))
		defer ctrl.Stop()

		s, err := ctrl.Load(Source{URL: "https://host/a.mp4", Subtitles: tracks})
		So(err, ShouldBeNil)
		media.emit(Loaded{})
		await(t, s, inState(Playing))

		Convey("The first track should be active and showing through the proxy", func() {
			So(media.tracks.Len(), ShouldEqual, 1)
			tr, _ := media.tracks.only()
			So(tr.track.Language, ShouldEqual, "en")
			So(tr.mode, ShouldEqual, TrackShowing)
			So(tr.url, ShouldEqual, "https://p.example/subtitle-proxy?url=https%3A%2F%2Fx%2Fen.vtt")
			So(s.Snapshot().Subtitle.MustGet().Language, ShouldEqual, "en")
		})

		Convey("The showing mode should be re-asserted a bounded number of times", func() {
			time.Sleep(50 * time.Millisecond)
			settle(s)
			tr, _ := media.tracks.only()
			So(tr.shows, ShouldEqual, 1+testConfig().SubtitleReassertAttempts)
		})

		Convey("Activating another track should replace the first", func() {
			So(s.SetSubtitle(&tracks[1]), ShouldBeNil)
			So(media.tracks.Len(), ShouldEqual, 1)
			tr, _ := media.tracks.only()
			So(tr.track.Language, ShouldEqual, "ja")
		})

		Convey("Disabling subtitles should remove every track", func() {
			So(s.SetSubtitle(nil), ShouldBeNil)
			So(media.tracks.Len(), ShouldEqual, 0)
			So(s.Snapshot().Subtitle.IsPresent(), ShouldBeFalse)

			time.Sleep(20 * time.Millisecond)
			settle(s)
			So(media.tracks.Len(), ShouldEqual, 0)
		})
	})
}
