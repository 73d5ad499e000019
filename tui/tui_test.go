package tui

import (
	"testing"

	"github.com/anisan-cli/anistream/internal/ui"
	"github.com/anisan-cli/anistream/playback"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeSession struct {
	snapshot playback.Snapshot
	changed  chan struct{}
	done     chan struct{}

	toggles  int
	seeks    []float64
	volume   float64
	rate     float64
	level    *int
	subtitle *playback.SubtitleTrack
	skipped  []playback.SkipKind
}

func newFakeSession(s playback.Snapshot) *fakeSession {
	return &fakeSession{
		snapshot: s,
		changed:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (f *fakeSession) Snapshot() playback.Snapshot { return f.snapshot }
func (f *fakeSession) Changed() <-chan struct{} { return f.changed }
func (f *fakeSession) Done() <-chan struct{} { return f.done }
func (f *fakeSession) TogglePlay() error { f.toggles++; return nil }
func (f *fakeSession) SeekBy(delta float64) error { f.seeks = append(f.seeks, delta); return nil }
func (f *fakeSession) SetVolume(v float64) error { f.volume = v; return nil }
func (f *fakeSession) SetRate(r float64) error { f.rate = r; return nil }
func (f *fakeSession) SetLevel(id int) error { f.level = &id; return nil }
func (f *fakeSession) SetFullscreen(bool) error { return nil }
func (f *fakeSession) PictureInPicture(bool) error { return playback.ErrUnsupported }
func (f *fakeSession) Skip(k playback.SkipKind) error { f.skipped = append(f.skipped, k); return nil }
func (f *fakeSession) SetSubtitle(t *playback.SubtitleTrack) error {
	f.subtitle = t
	return nil
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func playing() playback.Snapshot {
	return playback.Snapshot{
		Title:       "Frieren - 1",
		State:       playback.Playing,
		Playing:     true,
		IsHLS:       true,
		CurrentTime: 65,
		Duration:    1440,
		Volume:      0.5,
		Rate:        1,
		AutoLevel:   true,
		Levels: playback.Ladder{
			{ID: 1, Height: 1080, Label: "1080p"},
			{ID: 0, Height: 720, Label: "720p"},
		},
		CurrentLevel: playback.AutoLevel,
		Subtitles: []playback.SubtitleTrack{
			{Label: "English", Language: "en", URL: "https://subs.example/en.vtt"},
			{Label: "Deutsch", Language: "de", URL: "https://subs.example/de.vtt"},
		},
	}
}

func TestBubble(t *testing.T) {
	Convey("Given the controls for a loading session", t, func() {
		session := newFakeSession(playback.Snapshot{State: playback.Loading})
		b := newBubble(session, &Options{Server: "#1 720p"})

		So(b.state, ShouldEqual, loadingState)
		So(b.View(), ShouldContainSubstring, "Loading stream")

		Convey("Keys should be ignored until the stream is ready", func() {
			b.Update(tea.KeyMsg{Type: tea.KeySpace})
			So(session.toggles, ShouldEqual, 0)
		})

		Convey("A new snapshot should switch to the controls", func() {
			b.Update(snapshotMsg(playing()))
			So(b.state, ShouldEqual, controlsState)

			view := b.View()
			So(view, ShouldContainSubstring, "Frieren - 1")
			So(view, ShouldContainSubstring, "#1 720p")
			So(view, ShouldContainSubstring, "1:05 / 24:00")
			So(view, ShouldContainSubstring, "Auto")
		})

		Convey("An ended snapshot should quit", func() {
			_, cmd := b.Update(snapshotMsg(playback.Snapshot{State: playback.Ended}))
			So(b.state, ShouldEqual, endedState)
			So(cmd(), ShouldResemble, tea.QuitMsg{})
		})

		Convey("A failed session should stay on the error view", func() {
			session.snapshot = playback.Snapshot{
				State: playback.Error,
				Err:   &playback.PlaybackFatalError{Cause: playback.CauseMedia},
			}
			close(session.done)

			b.Update(sessionDoneMsg{})
			So(b.state, ShouldEqual, errorState)
			So(b.View(), ShouldContainSubstring, "please try another server")
		})
	})

	Convey("Given the controls for a playing session", t, func() {
		session := newFakeSession(playing())
		b := newBubble(session, nil)

		Convey("Space should toggle playback", func() {
			b.Update(tea.KeyMsg{Type: tea.KeySpace})
			So(session.toggles, ShouldEqual, 1)
		})

		Convey("Arrows should seek and change volume", func() {
			b.Update(tea.KeyMsg{Type: tea.KeyLeft})
			b.Update(tea.KeyMsg{Type: tea.KeyRight})
			So(session.seeks, ShouldResemble, []float64{-seekStep, seekStep})

			b.Update(tea.KeyMsg{Type: tea.KeyUp})
			So(session.volume, ShouldAlmostEqual, 0.6)
		})

		Convey("Speed should stay within bounds", func() {
			b.snapshot.Rate = maxRate
			b.Update(runes(">"))
			So(session.rate, ShouldEqual, maxRate)

			b.snapshot.Rate = minRate
			b.Update(runes("<"))
			So(session.rate, ShouldEqual, minRate)
		})

		Convey("Quality should cycle from Auto through the ladder", func() {
			b.Update(runes("q"))
			So(*session.level, ShouldEqual, 1)

			b.snapshot.AutoLevel = false
			b.snapshot.CurrentLevel = 1
			So(b.nextLevel(), ShouldEqual, 0)

			b.snapshot.CurrentLevel = 0
			So(b.nextLevel(), ShouldEqual, playback.AutoLevel)
		})

		Convey("Subtitles should cycle and end with off", func() {
			b.Update(runes("c"))
			So(session.subtitle, ShouldNotBeNil)
			So(session.subtitle.Language, ShouldEqual, "en")

			b.snapshot.Subtitle = mo.Some(b.snapshot.Subtitles[1])
			So(b.nextSubtitle(), ShouldBeNil)
		})

		Convey("Skip should only act while the affordance is visible", func() {
			b.Update(runes("s"))
			So(session.skipped, ShouldBeEmpty)

			b.snapshot.SkipOutroVisible = true
			b.Update(runes("s"))
			So(session.skipped, ShouldResemble, []playback.SkipKind{playback.Outro})
			So(b.View(), ShouldContainSubstring, "Skip outro")
		})

		Convey("Unsupported controls should become a notification", func() {
			cmd := b.handleControl(runes("p"))
			So(cmd, ShouldNotBeNil)

			msg := cmd()
			So(msg, ShouldEqual, playback.Message(playback.ErrUnsupported))
			So(b.pip, ShouldBeFalse)

			b.Update(msg)
			So(b.notifier.Notification(), ShouldEqual, msg)
		})

		Convey("Quit should end the program", func() {
			_, cmd := b.Update(tea.KeyMsg{Type: tea.KeyEsc})
			So(cmd(), ShouldResemble, tea.QuitMsg{})
		})

		Convey("Notifications should be cleared", func() {
			b.Update("hello")
			b.Update(ui.ClearNotificationMsg{})
			So(b.notifier.Notification(), ShouldBeEmpty)
		})
	})
}

func TestFormatTime(t *testing.T) {
	Convey("Times should render as clock values", t, func() {
		So(formatTime(0), ShouldEqual, "0:00")
		So(formatTime(65.9), ShouldEqual, "1:05")
		So(formatTime(3725), ShouldEqual, "1:02:05")
		So(formatTime(-3), ShouldEqual, "0:00")
	})
}
