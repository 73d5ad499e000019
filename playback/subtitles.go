package playback

import (
	"time"

	"github.com/samber/mo"
)

// setSubtitle replaces every attached text track with track, or removes them all when track is nil.
func (s *Session) setSubtitle(track *SubtitleTrack) error {
	s.subGen++
	tracks := s.media.TextTracks()

	if err := tracks.RemoveAll(); err != nil {
		return err
	}
	s.subtitle = mo.None[SubtitleTrack]()

	if track == nil {
		s.publish()
		return nil
	}

	id, err := tracks.Add(*track, s.resolver.SubtitleURL(track.URL, s.src.Headers))
	if err != nil {
		s.publish()
		return err
	}
	if err := tracks.SetMode(id, TrackShowing); err != nil {
		s.log.WithError(err).Debug("show subtitle")
	}
	s.subtitle = mo.Some(*track)

	// attaching and showing a track are not atomic on every element
	gen := s.subGen
	for i := 1; i <= s.cfg.SubtitleReassertAttempts; i++ {
		s.after(time.Duration(i)*s.cfg.SubtitleReassertDelay, func() {
			if s.subGen != gen {
				return
			}
			if err := tracks.SetMode(id, TrackShowing); err != nil {
				s.log.WithError(err).Debug("reassert subtitle")
			}
		})
	}

	s.publish()
	return nil
}
