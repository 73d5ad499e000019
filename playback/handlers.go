package playback

import (
	"errors"
	"math"

	"github.com/anisan-cli/anistream/log"
	"github.com/anisan-cli/anistream/metrics"
	"github.com/samber/mo"
)

// seekTolerance is how far a reported seek may land from the requested one and still be ours.
const seekTolerance = 0.5

func (s *Session) onEngine(ev Event) {
	switch ev := ev.(type) {
	case ManifestParsed:
		s.onManifest(ev)
	case LevelSwitched:
		if ev.Level != s.level {
			s.stats.LevelSwitches++
		}
		s.level = ev.Level
		s.publish()
	case FragBuffered:
		s.stats.Fragments++
		s.stats.Bytes += int64(ev.Bytes)
		s.netRecoveries = 0
		s.progress()
		s.refreshBuffered()
		s.publish()
	case BufferStalled:
		s.stall()
	case EngineError:
		s.onEngineError(ev)
	}
}

func (s *Session) onManifest(ev ManifestParsed) {
	if s.state != Loading {
		return
	}

	s.levels = NewLadder(ev.Levels)
	s.auto = true
	if top, ok := s.levels.Highest(s.cfg.MaxHeight).Get(); ok {
		s.level = top.ID
		if top.ID != s.levels[0].ID {
			s.viewportCap = top.ID
			s.engine.CapAutoLevel(top.ID)
		}
	}

	s.log.WithFields(log.Fields{"levels": len(s.levels), "live": ev.Live, "start": s.level}).Info("manifest parsed")
	s.ready()
}

func (s *Session) onEngineError(ev EngineError) {
	entry := s.log.WithFields(log.Fields{"kind": ev.Kind, "fatal": ev.Fatal}).WithError(ev.Err)
	if !ev.Fatal {
		entry.Debug("recoverable error")
		return
	}

	var (
		denied *AccessDeniedError
		proxy  *ProxyUnavailableError
	)

	switch {
	case errors.As(ev.Err, &denied), errors.As(ev.Err, &proxy):
		s.fail(ev.Err)
	case ev.Kind == NetworkError && s.state == Loading:
		s.fail(&PlaybackFatalError{Cause: CauseNetwork, Err: ev.Err})
	case ev.Kind == NetworkError && s.netRecoveries < s.cfg.MaxRecoveries:
		s.netRecoveries++
		s.stats.Recoveries++
		metrics.Recoveries.WithLabelValues(NetworkError.String()).Inc()
		entry.WithField("attempt", s.netRecoveries).Warn("reloading from current position")
		s.after(s.cfg.RetryDelay, func() {
			if s.engine != nil && !s.state.Terminal() {
				s.engine.StartLoad(s.current)
			}
		})
	case ev.Kind == NetworkError:
		s.fail(&PlaybackFatalError{Cause: CauseNetwork, Err: ev.Err})
	case ev.Kind == MediaError && s.engine != nil && s.mediaRecoveries < s.cfg.MaxRecoveries:
		s.mediaRecoveries++
		s.stats.Recoveries++
		metrics.Recoveries.WithLabelValues(MediaError.String()).Inc()
		entry.WithField("attempt", s.mediaRecoveries).Warn("recovering media error")
		s.engine.RecoverMediaError()
	case ev.Kind == MediaError:
		s.fail(&PlaybackFatalError{Cause: CauseMedia, Err: ev.Err})
	default:
		s.fail(&PlaybackFatalError{Cause: CauseOther, Err: ev.Err})
	}
}

func (s *Session) onMedia(ev MediaEvent) {
	if s.state == Error {
		return
	}

	switch ev := ev.(type) {
	case TimeUpdate:
		if s.state.Terminal() {
			return
		}
		s.current = s.clampTime(ev.Time)
		s.refreshBuffered()
		s.evaluateSkips()
		s.publish()
	case DurationChange:
		s.onDuration(ev.Duration)
	case Loaded:
		if !s.adaptive && s.state == Loading {
			s.ready()
		}
	case Waiting:
		s.stall()
	case Resumed:
		s.progress()
	case PlayStateChanged:
		switch {
		case ev.Playing && s.state == Paused:
			s.playing = true
			s.transition(Playing)
		case !ev.Playing && s.state == Playing:
			s.playing = false
			s.transition(Paused)
		}
	case Seeked:
		if target, ok := s.lastSeek.Get(); ok && math.Abs(target-ev.Time) <= seekTolerance {
			s.lastSeek = mo.None[float64]()
			return
		}
		s.seeked(ev.Time, true)
	case MediaEnded:
		s.onEnded()
	case MediaFailed:
		s.onMediaFailed(ev.Err)
	}
}

func (s *Session) onDuration(duration float64) {
	if duration <= 0 || math.IsInf(duration, 0) || math.IsNaN(duration) {
		return
	}
	s.duration = duration
	s.current = s.clampTime(s.current)

	kept := s.skips[:0]
	for _, k := range s.skips {
		if k.clamp(duration) {
			kept = append(kept, k)
		}
	}
	s.skips = kept
	s.publish()
}

func (s *Session) onEnded() {
	switch s.state {
	case Ready, Playing, Paused:
	default:
		return
	}
	if s.duration > 0 {
		s.current = s.duration
	}
	s.playing = false
	s.stopGovernor()
	s.transition(Ended)
}

func (s *Session) onMediaFailed(err error) {
	if s.adaptive {
		s.onEngineError(EngineError{Kind: MediaError, Fatal: true, Err: err})
		return
	}

	cause := CauseMedia
	if s.state == Loading {
		cause = CauseNetwork
	}
	s.fail(&PlaybackFatalError{Cause: cause, Err: err})
}
