// Package playback implements the adaptive playback core: the session state machine,
// the stall/quality governor, the subtitle track manager and the intro/outro skip controller.
package playback

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/samber/mo"
)

// State is the lifecycle state of a Session.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Playing
	Paused
	Ended
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition can happen without a new load.
func (s State) Terminal() bool {
	return s == Ended || s == Error
}

// AutoLevel selects automatic quality switching.
const AutoLevel = -1

// Level is one rung of the quality ladder.
type Level struct {
	// ID is the index of the variant in the manifest.
	ID int
	// Height in pixels, zero when the manifest does not declare it.
	Height int
	// Bandwidth in bits per second.
	Bandwidth int
	Label     string
}

// DefaultLabel names a level after its height, falling back to its bandwidth.
func DefaultLabel(height, bandwidth int) string {
	if height > 0 {
		return fmt.Sprintf("%dp", height)
	}
	if bandwidth > 0 {
		return fmt.Sprintf("%d kbps", bandwidth/1000)
	}
	return "source"
}

// higher reports whether a sorts before b on the ladder.
func (a Level) higher(b Level) bool {
	if a.Height != b.Height {
		return a.Height > b.Height
	}
	if a.Bandwidth != b.Bandwidth {
		return a.Bandwidth > b.Bandwidth
	}
	return a.ID < b.ID
}

// Ladder is a level list ordered by height, highest first.
type Ladder []Level

// NewLadder copies and orders levels.
func NewLadder(levels []Level) Ladder {
	ladder := make(Ladder, len(levels))
	copy(ladder, levels)
	sort.SliceStable(ladder, func(i, j int) bool {
		return ladder[i].higher(ladder[j])
	})
	for i := range ladder {
		if ladder[i].Label == "" {
			ladder[i].Label = DefaultLabel(ladder[i].Height, ladder[i].Bandwidth)
		}
	}
	return ladder
}

// Find returns the level with the given ID.
func (l Ladder) Find(id int) mo.Option[Level] {
	for _, level := range l {
		if level.ID == id {
			return mo.Some(level)
		}
	}
	return mo.None[Level]()
}

// Highest returns the top rung whose height does not exceed maxHeight.
// A maxHeight of zero means no cap. When every rung exceeds the cap the lowest one is returned.
func (l Ladder) Highest(maxHeight int) mo.Option[Level] {
	if len(l) == 0 {
		return mo.None[Level]()
	}
	for _, level := range l {
		if maxHeight <= 0 || level.Height == 0 || level.Height <= maxHeight {
			return mo.Some(level)
		}
	}
	return mo.Some(l[len(l)-1])
}

// Below returns the first rung that is strictly lower than the level with the given ID.
// Heights decide when both levels declare one, bandwidth otherwise.
func (l Ladder) Below(id int) mo.Option[Level] {
	current, ok := l.Find(id).Get()
	if !ok {
		return mo.None[Level]()
	}
	for _, level := range l {
		if current.Height > 0 && level.Height > 0 {
			if level.Height < current.Height {
				return mo.Some(level)
			}
			continue
		}
		if level.Bandwidth < current.Bandwidth {
			return mo.Some(level)
		}
	}
	return mo.None[Level]()
}

// Interval is an intro or outro range in seconds.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Valid reports whether the interval is non-empty.
func (i Interval) Valid() bool {
	return !math.IsNaN(i.Start) && !math.IsNaN(i.End) && i.Start >= 0 && i.Start < i.End
}

// Contains reports whether t lies in [Start, End).
func (i Interval) Contains(t float64) bool {
	return t >= i.Start && t < i.End
}

// Clamp restricts the interval to [0, duration].
func (i Interval) Clamp(duration float64) Interval {
	if duration <= 0 {
		return i
	}
	return Interval{
		Start: math.Max(0, math.Min(i.Start, duration)),
		End:   math.Max(0, math.Min(i.End, duration)),
	}
}

// SkipKind names a skippable interval.
type SkipKind int

const (
	Intro SkipKind = iota
	Outro
)

func (k SkipKind) String() string {
	if k == Outro {
		return "outro"
	}
	return "intro"
}

// SubtitleTrack is one selectable subtitle file.
type SubtitleTrack struct {
	Label    string `json:"label"`
	Language string `json:"lang"`
	URL      string `json:"url"`
}

// Name returns a display name for the track.
func (t SubtitleTrack) Name() string {
	if t.Label != "" {
		return t.Label
	}
	return t.Language
}

// Source is everything a session needs to play one episode.
type Source struct {
	URL     string
	Headers map[string]string
	// Subtitles are pre-sorted by the caller; the first one is activated by default.
	Subtitles []SubtitleTrack
	Intro     mo.Option[Interval]
	Outro     mo.Option[Interval]
	Title     string
	// StartAt is a resume position in seconds.
	StartAt float64
}

// BufferingState tracks stall detection.
type BufferingState struct {
	IsBuffering  bool
	LastProgress time.Time
}

// StalledFor returns how long playback has been stalled at now, or zero when it is not buffering.
func (b BufferingState) StalledFor(now time.Time) time.Duration {
	if !b.IsBuffering || b.LastProgress.IsZero() {
		return 0
	}
	return now.Sub(b.LastProgress)
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID        string
	State     State
	Err       error
	Title     string
	SourceURL string
	IsHLS     bool

	CurrentTime      float64
	Duration         float64
	Playing          bool
	Volume           float64
	Rate             float64
	BufferedFraction float64
	Buffering        bool

	Levels       Ladder
	CurrentLevel int
	AutoLevel    bool

	Subtitles []SubtitleTrack
	Subtitle  mo.Option[SubtitleTrack]

	SkipIntroVisible bool
	SkipOutroVisible bool
}

// LevelLabel returns a display label for the selected quality.
func (s Snapshot) LevelLabel() string {
	level, ok := s.Levels.Find(s.CurrentLevel).Get()
	switch {
	case s.AutoLevel && ok:
		return "Auto (" + level.Label + ")"
	case s.AutoLevel || len(s.Levels) == 0:
		return "Auto"
	case ok:
		return level.Label
	default:
		return "Auto"
	}
}
