package hls

import (
	"sync"
	"time"

	"github.com/anisan-cli/anistream/metrics"
	"github.com/anisan-cli/anistream/playback"
	"github.com/samber/lo"
)

const (
	// weight of the newest sample in the moving average
	ewmaAlpha = 0.3
	// fraction of the estimate a level may use
	safetyFactor = 0.8
)

type estimator struct {
	mu      sync.Mutex
	bps     float64
	samples int
}

func (e *estimator) sample(bytes int, took time.Duration) {
	if bytes <= 0 || took <= 0 {
		return
	}

	bps := float64(bytes*8) / took.Seconds()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.samples == 0 {
		e.bps = bps
	} else {
		e.bps = ewmaAlpha*bps + (1-ewmaAlpha)*e.bps
	}
	e.samples++
	metrics.BandwidthEstimate.Set(e.bps)
}

func (e *estimator) estimate() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bps, e.samples > 0
}

// choose picks the best level the estimate can sustain, never above capID.
// Without an estimate the highest permitted level is used.
func choose(ladder playback.Ladder, capID int, bps float64, measured bool) playback.Level {
	allowed := ladder
	if capLevel, ok := ladder.Find(capID).Get(); ok {
		allowed = lo.Filter(ladder, func(l playback.Level, _ int) bool {
			if l.Height > 0 && capLevel.Height > 0 {
				return l.Height <= capLevel.Height
			}
			return l.Bandwidth <= capLevel.Bandwidth
		})
	}
	if len(allowed) == 0 {
		return ladder[len(ladder)-1]
	}
	if !measured {
		return allowed[0]
	}

	for _, l := range allowed {
		if float64(l.Bandwidth) <= bps*safetyFactor {
			return l
		}
	}
	return allowed[len(allowed)-1]
}
