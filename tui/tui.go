// Package tui implements the playback controls surface.
package tui

import (
	"time"

	"github.com/anisan-cli/anistream/playback"
	tea "github.com/charmbracelet/bubbletea"
)

// Session is the part of a playback session the controls drive.
type Session interface {
	Snapshot() playback.Snapshot
	Changed() <-chan struct{}
	Done() <-chan struct{}

	TogglePlay() error
	SeekBy(delta float64) error
	SetVolume(volume float64) error
	SetRate(rate float64) error
	SetLevel(id int) error
	SetSubtitle(track *playback.SubtitleTrack) error
	Skip(kind playback.SkipKind) error
	SetFullscreen(on bool) error
	PictureInPicture(on bool) error
}

// Options encapsulates the runtime configuration of the controls.
type Options struct {
	// Server is displayed next to the title, e.g. "#2 auto".
	Server string
	// ControlsTimeout hides the key hints after this much inactivity. Zero keeps them visible.
	ControlsTimeout time.Duration
}

// Run shows the controls until the user quits or playback ends.
// It returns the last snapshot of the session.
func Run(session Session, options *Options) (playback.Snapshot, error) {
	bubble := newBubble(session, options)

	final, err := tea.NewProgram(bubble, tea.WithAltScreen()).Run()
	if err != nil {
		return session.Snapshot(), err
	}

	return final.(*statefulBubble).snapshot, nil
}
