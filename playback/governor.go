package playback

import (
	"time"

	"github.com/anisan-cli/anistream/log"
	"github.com/anisan-cli/anistream/metrics"
)

func (s *Session) startGovernor() {
	if s.stopPoll != nil {
		return
	}
	s.stopPoll = s.every(s.cfg.StallPollInterval, func() {
		s.checkStall(s.now())
	})
}

func (s *Session) stopGovernor() {
	if s.stopPoll == nil {
		return
	}
	s.stopPoll()
	s.stopPoll = nil
}

// checkStall lowers the auto cap one rung when buffering outlasted the stall threshold.
// It never raises quality and does nothing on the lowest rung or when the user forced a level.
func (s *Session) checkStall(now time.Time) {
	if s.state.Terminal() || !s.auto || s.engine == nil || len(s.levels) == 0 {
		return
	}

	stalled := s.buffering.StalledFor(now)
	if stalled <= s.cfg.StallThreshold {
		return
	}

	next, ok := s.levels.Below(s.level).Get()
	if !ok {
		return
	}

	s.log.WithFields(log.Fields{
		"stalled": stalled.Round(time.Millisecond),
		"from":    s.level,
		"to":      next.ID,
	}).Warn("stalled, lowering quality")

	s.engine.CapAutoLevel(next.ID)
	s.level = next.ID
	s.buffering.LastProgress = now
	s.stats.Downgrades++
	metrics.QualityDowngrades.Inc()
	s.publish()
}
