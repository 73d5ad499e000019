package playback

import (
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/resolve"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAdaptiveLoad(t *testing.T) {
	Convey("Given an HLS source behind a proxy and a healthy network", t, func() {
		media := newFakeSource()
		engines := &fakeEngines{}
		ctrl := NewController(media, resolve.New("https://p.example"), WithEngine(engines.factory), WithConfig(testConfig()))
		defer ctrl.Stop()

		headers := map[string]string{"Referer": "https://site/"}
		s, err := ctrl.Load(Source{URL: "https://host/a.m3u8", Headers: headers})
		So(err, ShouldBeNil)
		So(s.Snapshot().State, ShouldEqual, Loading)

		engine := engines.last()
		So(engine, ShouldNotBeNil)

		Convey("The manifest should be requested through the proxy with the headers embedded", func() {
			parsed, err := url.Parse(engine.loaded)
			So(err, ShouldBeNil)
			So(parsed.Path, ShouldEqual, "/m3u8-proxy")
			target, embedded, err := resolve.DecodeRequest(parsed.Query())
			So(err, ShouldBeNil)
			So(target, ShouldEqual, "https://host/a.m3u8")
			So(embedded, ShouldResemble, headers)
			So(engine.opts.Headers, ShouldResemble, headers)
		})

		Convey("A parsed manifest should lead to Ready then Playing at the highest level", func() {
			engine.emit(ManifestParsed{Levels: ladder})

			snap := await(t, s, inState(Playing))
			So(snap.Levels, ShouldHaveLength, 3)
			So(snap.Levels[0].Height, ShouldEqual, 1080)
			So(snap.CurrentLevel, ShouldEqual, 1)
			So(snap.AutoLevel, ShouldBeTrue)
			So(snap.LevelLabel(), ShouldEqual, "Auto (1080p)")
			So(snap.IsHLS, ShouldBeTrue)
			So(engine.capLog(), ShouldBeEmpty)
		})

		Convey("A late manifest should not change a running session", func() {
			engine.emit(ManifestParsed{Levels: ladder})
			await(t, s, inState(Playing))
			engine.emit(ManifestParsed{Levels: ladder[:1]})
			settle(s)
			So(s.Snapshot().Levels, ShouldHaveLength, 3)
		})
	})

	Convey("Given a viewport cap", t, func() {
		media := newFakeSource()
		engines := &fakeEngines{}
		cfg := testConfig()
		cfg.MaxHeight = 720
		ctrl := NewController(media, nil, WithEngine(engines.factory), WithConfig(cfg))
		defer ctrl.Stop()

		s, err := ctrl.Load(Source{URL: "https://host/a.m3u8"})
		So(err, ShouldBeNil)
		engines.last().emit(ManifestParsed{Levels: ladder})

		Convey("The initial level should be the highest one that fits", func() {
			snap := await(t, s, inState(Playing))
			So(snap.CurrentLevel, ShouldEqual, 2)
			So(engines.last().capLog(), ShouldResemble, []int{2})
		})
	})

	Convey("Given autoplay is disabled", t, func() {
		media := newFakeSource()
		engines := &fakeEngines{}
		cfg := testConfig()
		cfg.Autoplay = false
		ctrl := NewController(media, nil, WithEngine(engines.factory), WithConfig(cfg))
		defer ctrl.Stop()

		s, _ := ctrl.Load(Source{URL: "https://host/a.m3u8"})
		engines.last().emit(ManifestParsed{Levels: ladder})
		await(t, s, inState(Ready))

		Convey("Play and pause should toggle between Playing and Paused", func() {
			So(s.TogglePlay(), ShouldBeNil)
			So(s.Snapshot().State, ShouldEqual, Playing)
			So(s.TogglePlay(), ShouldBeNil)
			So(s.Snapshot().State, ShouldEqual, Paused)
			So(s.Play(), ShouldBeNil)
			So(s.Snapshot().Playing, ShouldBeTrue)
		})

		Convey("Play requested while loading should be honored on Ready", func() {
			s2, _ := ctrl.Load(Source{URL: "https://host/b.m3u8"})
			So(s2.Play(), ShouldBeNil)
			So(s2.Snapshot().State, ShouldEqual, Loading)
			engines.last().emit(ManifestParsed{Levels: ladder})
			await(t, s2, inState(Playing))
		})
	})
}

func TestFatalErrors(t *testing.T) {
	Convey("Given an adaptive session", t, func() {
		media := newFakeSource()
		engines := &fakeEngines{}
		cfg := testConfig()
		cfg.MaxRecoveries = 2
		ctrl := NewController(media, nil, WithEngine(engines.factory), WithConfig(cfg))
		defer ctrl.Stop()

		s, err := ctrl.Load(Source{URL: "https://host/a.m3u8"})
		So(err, ShouldBeNil)
		engine := engines.last()

		Convey("A fatal network error while loading should end in a network PlaybackFatalError", func() {
			engine.emit(EngineError{Kind: NetworkError, Fatal: true, Err: errors.New("manifest: 5 attempts failed")})

			snap := await(t, s, inState(Error))
			var fatal *PlaybackFatalError
			So(errors.As(snap.Err, &fatal), ShouldBeTrue)
			So(fatal.Cause, ShouldEqual, CauseNetwork)
			So(Message(snap.Err), ShouldEqual, "Failed to load video — please try another server")
			So(engine.isDestroyed(), ShouldBeTrue)
			So(engine.startLoadLog(), ShouldBeEmpty)
		})

		Convey("Non-fatal errors should never be surfaced", func() {
			engine.emit(EngineError{Kind: NetworkError, Err: errors.New("attempt 1 failed")})
			settle(s)
			So(s.Snapshot().State, ShouldEqual, Loading)
			So(s.Snapshot().Err, ShouldBeNil)
		})

		Convey("Access denied should be surfaced distinctly", func() {
			engine.emit(EngineError{Kind: NetworkError, Fatal: true, Err: &AccessDeniedError{URL: "https://host/a.m3u8", Status: 403}})
			snap := await(t, s, inState(Error))
			So(Message(snap.Err), ShouldEqual, "Access denied — check headers")
		})

		Convey("An unreachable proxy should be surfaced distinctly", func() {
			engine.emit(EngineError{Kind: NetworkError, Fatal: true, Err: &ProxyUnavailableError{Proxy: "https://p.example", Status: 502}})
			snap := await(t, s, inState(Error))
			So(Message(snap.Err), ShouldStartWith, "Could not connect to proxy server")
		})

		Convey("An unrecoverable parse error should fail without recovery", func() {
			engine.emit(EngineError{Kind: OtherError, Fatal: true, Err: errors.New("not a playlist")})
			snap := await(t, s, inState(Error))
			var fatal *PlaybackFatalError
			So(errors.As(snap.Err, &fatal), ShouldBeTrue)
			So(fatal.Cause, ShouldEqual, CauseOther)
		})

		Convey("Once playing", func() {
			engine.emit(ManifestParsed{Levels: ladder})
			await(t, s, inState(Playing))

			Convey("Fatal network errors should reload from the current position until recoveries run out", func() {
				media.emit(TimeUpdate{Time: 42})
				for i := 0; i < cfg.MaxRecoveries; i++ {
					engine.emit(EngineError{Kind: NetworkError, Fatal: true, Err: fmt.Errorf("fragment %d", i)})
				}
				settle(s)
				So(s.Snapshot().State, ShouldEqual, Playing)

				deadline := time.Now().Add(time.Second)
				for len(engine.startLoadLog()) < cfg.MaxRecoveries && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				So(engine.startLoadLog(), ShouldResemble, []float64{42, 42})

				engine.emit(EngineError{Kind: NetworkError, Fatal: true, Err: errors.New("fragment again")})
				snap := await(t, s, inState(Error))
				So(snap.Err.(*PlaybackFatalError).Cause, ShouldEqual, CauseNetwork)
			})

			Convey("Fatal media errors should trigger media recovery before failing", func() {
				for i := 0; i < cfg.MaxRecoveries; i++ {
					engine.emit(EngineError{Kind: MediaError, Fatal: true, Err: errors.New("decode")})
				}
				settle(s)
				So(engine.recovers, ShouldEqual, cfg.MaxRecoveries)
				So(s.Snapshot().State, ShouldEqual, Playing)

				engine.emit(EngineError{Kind: MediaError, Fatal: true, Err: errors.New("decode")})
				snap := await(t, s, inState(Error))
				So(Message(snap.Err), ShouldEqual, "Video could not be decoded — please try another server")
			})

			Convey("Fragments should reset the network recovery budget", func() {
				engine.emit(EngineError{Kind: NetworkError, Fatal: true, Err: errors.New("fragment")})
				engine.emit(EngineError{Kind: NetworkError, Fatal: true, Err: errors.New("fragment")})
				engine.emit(FragBuffered{Level: 1, Start: 0, Duration: 4, Bytes: 1024})
				engine.emit(EngineError{Kind: NetworkError, Fatal: true, Err: errors.New("fragment")})
				settle(s)
				So(s.Snapshot().State, ShouldEqual, Playing)
				So(s.Stats().Fragments, ShouldEqual, 1)
			})
		})
	})
}

func TestSourcePaths(t *testing.T) {
	Convey("Given invalid sources", t, func() {
		ctrl := NewController(newFakeMedia(constant.MimeMP4), nil, WithConfig(testConfig()))
		defer ctrl.Stop()

		for _, src := range []string{"", "undefined", "https://api/episode/undefined/sources"} {
			s, err := ctrl.Load(Source{URL: src})

			var invalid *resolve.InvalidSourceError
			So(errors.As(err, &invalid), ShouldBeTrue)
			So(s.Snapshot().State, ShouldEqual, Error)
			So(Message(s.Snapshot().Err), ShouldEqual, "No valid video source provided")
		}
	})

	Convey("Given a media element without HLS support and no adaptive client", t, func() {
		ctrl := NewController(newFakeMedia(constant.MimeMP4), nil, WithConfig(testConfig()))
		defer ctrl.Stop()

		s, err := ctrl.Load(Source{URL: "https://host/a.m3u8"})

		Convey("Loading HLS should fail with UnsupportedFormatError", func() {
			var unsupported *UnsupportedFormatError
			So(errors.As(err, &unsupported), ShouldBeTrue)
			So(unsupported.MIME, ShouldEqual, constant.MimeHLS)
			So(s.Snapshot().State, ShouldEqual, Error)
			So(Message(err), ShouldEqual, "This player cannot play this video format")
		})
	})

	Convey("Given a media element with native HLS support", t, func() {
		media := newFakeMedia(constant.MimeHLS, constant.MimeMP4)
		headers := map[string]string{"Referer": "https://site/"}

		Convey("A proxied manifest should embed the headers instead of sending them", func() {
			ctrl := NewController(media, resolve.New("https://p.example"), WithConfig(testConfig()))
			defer ctrl.Stop()

			s, err := ctrl.Load(Source{URL: "https://host/a.m3u8", Headers: headers})
			So(err, ShouldBeNil)
			So(media.source, ShouldStartWith, "https://p.example/m3u8-proxy?url=")
			So(media.source, ShouldContainSubstring, "&headers=")
			So(media.headers, ShouldBeEmpty)

			media.emit(Loaded{})
			snap := await(t, s, inState(Playing))
			So(snap.Levels, ShouldBeEmpty)
			So(snap.LevelLabel(), ShouldEqual, "Auto")
			So(s.SetLevel(0), ShouldEqual, ErrUnsupported)
		})

		Convey("Without a proxy the headers should be sent directly", func() {
			ctrl := NewController(media, nil, WithConfig(testConfig()))
			defer ctrl.Stop()

			_, err := ctrl.Load(Source{URL: "https://host/a.m3u8", Headers: headers})
			So(err, ShouldBeNil)
			So(media.source, ShouldEqual, "https://host/a.m3u8")
			So(media.headers, ShouldResemble, headers)
		})

		Convey("A direct file should end in Ended", func() {
			ctrl := NewController(media, nil, WithConfig(testConfig()))
			defer ctrl.Stop()

			s, err := ctrl.Load(Source{URL: "https://host/a.mp4", Headers: headers})
			So(err, ShouldBeNil)
			media.emit(Loaded{})
			media.emit(DurationChange{Duration: 1400})
			await(t, s, inState(Playing))

			media.emit(MediaEnded{})
			snap := await(t, s, inState(Ended))
			So(snap.CurrentTime, ShouldEqual, 1400)
			So(snap.Playing, ShouldBeFalse)
		})

		Convey("A failing direct file should surface a fatal error", func() {
			ctrl := NewController(media, nil, WithConfig(testConfig()))
			defer ctrl.Stop()

			s, _ := ctrl.Load(Source{URL: "https://host/a.mp4"})
			media.emit(MediaFailed{Err: errors.New("http 404")})
			snap := await(t, s, inState(Error))
			So(snap.Err.(*PlaybackFatalError).Cause, ShouldEqual, CauseNetwork)
		})
	})
}

func TestExclusivity(t *testing.T) {
	Convey("Given a playing session", t, func() {
		media := newFakeSource()
		engines := &fakeEngines{}
		ctrl := NewController(media, nil, WithEngine(engines.factory), WithConfig(testConfig()))
		defer ctrl.Stop()

		first, _ := ctrl.Load(Source{
			URL:       "https://host/one.m3u8",
			Subtitles: []SubtitleTrack{{Language: "en", URL: "https://x/en.vtt"}},
		})
		oldEngine := engines.last()
		oldEngine.emit(ManifestParsed{Levels: ladder})
		await(t, first, inState(Playing))
		So(media.tracks.Len(), ShouldEqual, 1)

		Convey("Loading another source should dispose the first one before the second starts", func() {
			second, err := ctrl.Load(Source{URL: "https://host/two.m3u8"})
			So(err, ShouldBeNil)

			So(oldEngine.isDestroyed(), ShouldBeTrue)
			So(engines.last(), ShouldNotEqual, oldEngine)
			So(media.resets, ShouldEqual, 1)
			So(media.subscribers(), ShouldEqual, 1)

			select {
			case <-first.Done():
			default:
				t.Fatal("first session still running")
			}

			Convey("Late events of the old client should be no-ops", func() {
				oldEngine.emit(ManifestParsed{Levels: ladder})
				oldEngine.emit(EngineError{Kind: NetworkError, Fatal: true, Err: errors.New("stale")})
				settle(second)
				So(second.Snapshot().State, ShouldEqual, Loading)
				So(second.Snapshot().Err, ShouldBeNil)
			})

			Convey("Operations on the old session should report it closed", func() {
				So(first.Play(), ShouldEqual, ErrSessionClosed)
				So(ctrl.Current().MustGet(), ShouldEqual, second)
			})
		})

		Convey("Stop should dispose everything and return the last snapshot", func() {
			media.emit(TimeUpdate{Time: 12})
			settle(first)

			last, ok := ctrl.Stop().Get()
			So(ok, ShouldBeTrue)
			So(last.CurrentTime, ShouldEqual, 12)
			So(oldEngine.isDestroyed(), ShouldBeTrue)
			So(media.tracks.Len(), ShouldEqual, 0)
			So(media.subscribers(), ShouldEqual, 0)
			So(ctrl.Current().IsPresent(), ShouldBeFalse)
			So(ctrl.Stop(), ShouldResemble, mo.None[Snapshot]())
		})
	})
}

func TestControls(t *testing.T) {
	Convey("Given a playing adaptive session", t, func() {
		media := newFakeSource()
		engines := &fakeEngines{}
		ctrl := NewController(media, nil, WithEngine(engines.factory), WithConfig(testConfig()))
		defer ctrl.Stop()

		s, _ := ctrl.Load(Source{URL: "https://host/a.m3u8"})
		engine := engines.last()
		engine.emit(ManifestParsed{Levels: ladder})
		media.emit(DurationChange{Duration: 100})
		await(t, s, inState(Playing))

		Convey("Volume should be clamped", func() {
			So(s.SetVolume(1.7), ShouldBeNil)
			So(s.Snapshot().Volume, ShouldEqual, 1)
			So(s.SetVolume(-1), ShouldBeNil)
			So(media.volume, ShouldEqual, 0)
		})

		Convey("Rate should be positive", func() {
			So(s.SetRate(0), ShouldNotBeNil)
			So(s.SetRate(1.5), ShouldBeNil)
			So(s.Snapshot().Rate, ShouldEqual, 1.5)
		})

		Convey("Seeking should clamp and restart loading outside the buffer", func() {
			So(s.Seek(250), ShouldBeNil)
			So(s.Snapshot().CurrentTime, ShouldEqual, 100)
			So(s.SeekBy(-500), ShouldBeNil)
			So(s.Snapshot().CurrentTime, ShouldEqual, 0)
			So(engine.startLoadLog(), ShouldResemble, []float64{100, 0})
		})

		Convey("Seeking inside the buffer should not restart loading", func() {
			media.mu.Lock()
			media.buffered = []TimeRange{{Start: 0, End: 30}}
			media.mu.Unlock()
			So(s.Seek(10), ShouldBeNil)
			So(engine.startLoadLog(), ShouldBeEmpty)
			So(s.Snapshot().BufferedFraction, ShouldAlmostEqual, 0.3)
		})

		Convey("Forcing a level should leave auto mode until Auto is chosen again", func() {
			So(s.SetLevel(0), ShouldBeNil)
			snap := s.Snapshot()
			So(snap.AutoLevel, ShouldBeFalse)
			So(snap.CurrentLevel, ShouldEqual, 0)
			So(snap.LevelLabel(), ShouldEqual, "360p")
			So(s.SetLevel(42), ShouldNotBeNil)

			So(s.SetLevel(AutoLevel), ShouldBeNil)
			So(s.Snapshot().AutoLevel, ShouldBeTrue)
			So(engine.forced, ShouldResemble, []int{0, AutoLevel})
		})

		Convey("Picture-in-Picture and cast should be reported unsupported", func() {
			So(s.PictureInPicture(true), ShouldEqual, ErrUnsupported)
			So(s.Cast("living room"), ShouldEqual, ErrUnsupported)
		})

		Convey("External pauses should be mirrored", func() {
			media.emit(PlayStateChanged{Playing: false})
			await(t, s, inState(Paused))
			media.emit(PlayStateChanged{Playing: true})
			await(t, s, inState(Playing))
		})
	})
}

func TestBufferedFraction(t *testing.T) {
	Convey("Given a playing session with a growing buffer", t, func() {
		media := newFakeSource()
		engines := &fakeEngines{}
		ctrl := NewController(media, nil, WithEngine(engines.factory), WithConfig(testConfig()))
		defer ctrl.Stop()

		s, _ := ctrl.Load(Source{URL: "https://host/a.m3u8"})
		engine := engines.last()
		engine.emit(ManifestParsed{Levels: ladder})
		media.emit(DurationChange{Duration: 100})
		await(t, s, inState(Playing))

		setBuffered := func(ranges ...TimeRange) {
			media.mu.Lock()
			media.buffered = ranges
			media.mu.Unlock()
		}

		Convey("The fraction should never decrease without a seek", func() {
			setBuffered(TimeRange{Start: 0, End: 40})
			engine.emit(FragBuffered{Level: 1, Start: 36, Duration: 4})
			settle(s)
			So(s.Snapshot().BufferedFraction, ShouldAlmostEqual, 0.4)

			setBuffered(TimeRange{Start: 20, End: 30})
			media.emit(TimeUpdate{Time: 21})
			settle(s)
			So(s.Snapshot().BufferedFraction, ShouldAlmostEqual, 0.4)

			Convey("A seek should reset it", func() {
				So(s.Seek(25), ShouldBeNil)
				So(s.Snapshot().BufferedFraction, ShouldAlmostEqual, 0.3)
			})
		})
	})
}
