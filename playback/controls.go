package playback

import (
	"fmt"

	"github.com/samber/lo"
)

// Play starts or resumes playback. While loading it only records the intent.
func (s *Session) Play() error {
	return s.call(s.play)
}

// Pause pauses playback.
func (s *Session) Pause() error {
	return s.call(s.pause)
}

// TogglePlay switches between playing and paused.
func (s *Session) TogglePlay() error {
	return s.call(func() error {
		if s.state == Playing {
			return s.pause()
		}
		return s.play()
	})
}

// Seek moves the playhead to position seconds.
func (s *Session) Seek(position float64) error {
	return s.call(func() error {
		return s.seekTo(position, true)
	})
}

// SeekBy moves the playhead by delta seconds.
func (s *Session) SeekBy(delta float64) error {
	return s.call(func() error {
		return s.seekTo(s.current+delta, true)
	})
}

// SetVolume sets the volume, clamped to [0, 1].
func (s *Session) SetVolume(volume float64) error {
	return s.call(func() error {
		volume = lo.Clamp(volume, 0, 1)
		if err := s.media.SetVolume(volume); err != nil {
			return err
		}
		s.volume = volume
		s.publish()
		return nil
	})
}

// SetRate sets the playback speed.
func (s *Session) SetRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("invalid playback rate %v", rate)
	}
	return s.call(func() error {
		if err := s.media.SetRate(rate); err != nil {
			return err
		}
		s.rate = rate
		s.publish()
		return nil
	})
}

// SetLevel forces a quality level, or returns to automatic selection with AutoLevel.
func (s *Session) SetLevel(id int) error {
	return s.call(func() error {
		if !s.adaptive || s.engine == nil {
			return ErrUnsupported
		}

		if id == AutoLevel {
			s.auto = true
			s.engine.SetCurrentLevel(AutoLevel)
			s.engine.CapAutoLevel(s.viewportCap)
			s.publish()
			return nil
		}

		if _, ok := s.levels.Find(id).Get(); !ok {
			return fmt.Errorf("unknown level %d", id)
		}
		s.auto = false
		s.level = id
		s.engine.SetCurrentLevel(id)
		s.publish()
		return nil
	})
}

// SetSubtitle activates track, replacing any attached one. Nil disables subtitles.
func (s *Session) SetSubtitle(track *SubtitleTrack) error {
	return s.call(func() error {
		return s.setSubtitle(track)
	})
}

// Skip seeks past the given interval when the playhead is inside it.
func (s *Session) Skip(kind SkipKind) error {
	return s.call(func() error {
		for _, k := range s.skips {
			if k.kind != kind {
				continue
			}
			target, ok := k.skip(s.current)
			if !ok {
				return fmt.Errorf("not inside the %s", kind)
			}
			return s.seekTo(target, false)
		}
		return fmt.Errorf("no %s marker", kind)
	})
}

// SetFullscreen toggles fullscreen on the media element.
func (s *Session) SetFullscreen(on bool) error {
	return s.call(func() error {
		return s.media.SetFullscreen(on)
	})
}

// PictureInPicture toggles the floating window mode when the media element has one.
func (s *Session) PictureInPicture(on bool) error {
	return s.call(func() error {
		if pip, ok := s.media.(PictureInPicturer); ok {
			return pip.PictureInPicture(on)
		}
		return ErrUnsupported
	})
}

// Cast hands playback to a remote device when the media element supports it.
func (s *Session) Cast(device string) error {
	return s.call(func() error {
		if caster, ok := s.media.(Caster); ok {
			return caster.Cast(device)
		}
		return ErrUnsupported
	})
}

// Stats returns the quality of experience counters.
func (s *Session) Stats() Stats {
	var stats Stats
	if err := s.call(func() error {
		stats = s.stats
		return nil
	}); err != nil {
		// the session goroutine has exited and no longer writes
		<-s.done
		return s.stats
	}
	return stats
}
