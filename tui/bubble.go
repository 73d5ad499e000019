package tui

import (
	"time"

	"github.com/anisan-cli/anistream/internal/ui"
	"github.com/anisan-cli/anistream/playback"
	"github.com/anisan-cli/anistream/style"
	"github.com/anisan-cli/anistream/util"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/samber/lo"
)

const (
	seekStep   = 10.0
	volumeStep = 0.1
	rateStep   = 0.25
	minRate    = 0.25
	maxRate    = 4.0
)

// statefulBubble renders a session and turns key presses into session controls.
type statefulBubble struct {
	state  state
	keymap *statefulKeymap

	spinnerC  spinner.Model
	progressC progress.Model
	helpC     help.Model
	notifier  *ui.Model

	session  Session
	snapshot playback.Snapshot
	done     bool

	fullscreen   bool
	pip          bool
	showControls bool
	lastInput    time.Time

	width, height int
	options       *Options
}

func newBubble(session Session, options *Options) *statefulBubble {
	if options == nil {
		options = &Options{}
	}

	bubble := &statefulBubble{
		keymap:       newStatefulKeymap(),
		session:      session,
		options:      options,
		showControls: true,
		lastInput:    time.Now(),
		notifier:     &ui.Model{},
	}

	bubble.helpC = help.New()
	bubble.spinnerC = spinner.New()
	bubble.spinnerC.Spinner = spinner.Dot
	bubble.progressC = progress.New(progress.WithGradient(string(style.ProgressStart), string(style.ProgressEnd)), progress.WithoutPercentage())

	if width, height, err := util.TerminalSize(); err == nil {
		bubble.resize(width, height)
	}

	bubble.apply(session.Snapshot())
	return bubble
}

// apply stores a snapshot and derives the view state from it.
func (b *statefulBubble) apply(snapshot playback.Snapshot) {
	b.snapshot = snapshot

	switch snapshot.State {
	case playback.Idle, playback.Loading:
		b.setState(loadingState)
	case playback.Ended:
		b.setState(endedState)
	case playback.Error:
		b.setState(errorState)
	default:
		b.setState(controlsState)
	}
}

func (b *statefulBubble) resize(width, height int) {
	b.width, b.height = width, height
	b.progressC.Width = max(width-20, 10)
	b.helpC.Width = width
}

func (b *statefulBubble) setState(s state) {
	b.state = s
	b.keymap.setState(s)
}

// nextLevel returns the level after the current one in the cycle Auto, highest ... lowest.
func (b *statefulBubble) nextLevel() int {
	levels := b.snapshot.Levels
	if len(levels) == 0 {
		return playback.AutoLevel
	}
	if b.snapshot.AutoLevel {
		return levels[0].ID
	}

	_, index, ok := lo.FindIndexOf(levels, func(l playback.Level) bool {
		return l.ID == b.snapshot.CurrentLevel
	})
	if !ok || index == len(levels)-1 {
		return playback.AutoLevel
	}
	return levels[index+1].ID
}

// nextSubtitle returns the track after the current one in the cycle off, first ... last.
func (b *statefulBubble) nextSubtitle() *playback.SubtitleTrack {
	tracks := b.snapshot.Subtitles
	if len(tracks) == 0 {
		return nil
	}

	current, ok := b.snapshot.Subtitle.Get()
	if !ok {
		return &tracks[0]
	}

	_, index, found := lo.FindIndexOf(tracks, func(t playback.SubtitleTrack) bool {
		return t.URL == current.URL
	})
	if !found || index == len(tracks)-1 {
		return nil
	}
	return &tracks[index+1]
}

// skipTarget returns the interval whose skip affordance is showing.
func (b *statefulBubble) skipTarget() (playback.SkipKind, bool) {
	switch {
	case b.snapshot.SkipIntroVisible:
		return playback.Intro, true
	case b.snapshot.SkipOutroVisible:
		return playback.Outro, true
	default:
		return playback.Intro, false
	}
}
