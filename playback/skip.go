package playback

import "math"

// skipper tracks one skippable interval.
type skipper struct {
	kind     SkipKind
	interval Interval
	auto     bool
	// done is set once the interval was passed or skipped.
	// Only an explicit seek into the interval clears it.
	done    bool
	visible bool
}

func newSkipper(kind SkipKind, interval Interval, auto bool) *skipper {
	if !interval.Valid() {
		return nil
	}
	return &skipper{kind: kind, interval: interval, auto: auto}
}

// update evaluates the playhead and returns the position to seek to when an auto-skip fires.
func (k *skipper) update(t float64) (float64, bool) {
	if !k.interval.Contains(t) {
		k.visible = false
		if t >= k.interval.End {
			k.done = true
		}
		return 0, false
	}

	switch {
	case k.done:
		k.visible = false
		return 0, false
	case k.auto:
		k.done = true
		k.visible = false
		return k.target(t), true
	default:
		k.visible = true
		return 0, false
	}
}

// seeked handles an explicit seek to t.
func (k *skipper) seeked(t float64) {
	if k.interval.Contains(t) {
		k.done = false
		return
	}
	k.visible = false
	if t >= k.interval.End {
		k.done = true
	}
}

// skip is the user skip; it reports the target when the interval is active at t.
func (k *skipper) skip(t float64) (float64, bool) {
	if !k.interval.Contains(t) {
		return 0, false
	}
	k.done = true
	k.visible = false
	return k.target(t), true
}

// target never lies before t.
func (k *skipper) target(t float64) float64 {
	return math.Max(k.interval.End, t)
}

// clamp narrows a provisional interval once the duration is known.
// It reports false when nothing skippable is left.
func (k *skipper) clamp(duration float64) bool {
	k.interval = k.interval.Clamp(duration)
	return k.interval.Valid()
}
