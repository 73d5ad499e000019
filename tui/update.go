package tui

import (
	"fmt"
	"time"

	"github.com/anisan-cli/anistream/internal/ui"
	"github.com/anisan-cli/anistream/playback"
	"github.com/anisan-cli/anistream/util"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type (
	snapshotMsg     playback.Snapshot
	sessionDoneMsg  struct{}
	hideControlsMsg struct{ at time.Time }
)

// waitForChange blocks until the session publishes a new snapshot or finishes.
func (b *statefulBubble) waitForChange() tea.Cmd {
	changed, done := b.session.Changed(), b.session.Done()
	return func() tea.Msg {
		select {
		case <-changed:
			return snapshotMsg(b.session.Snapshot())
		case <-done:
			return sessionDoneMsg{}
		}
	}
}

func (b *statefulBubble) hideControlsAfter() tea.Cmd {
	if b.options.ControlsTimeout <= 0 {
		return nil
	}
	at := b.lastInput
	return tea.Tick(b.options.ControlsTimeout, func(time.Time) tea.Msg {
		return hideControlsMsg{at: at}
	})
}

func (b *statefulBubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if cmd := b.notifier.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
	case snapshotMsg:
		b.apply(playback.Snapshot(msg))
		if b.state == endedState {
			return b, tea.Quit
		}
		cmds = append(cmds, b.waitForChange())
	case sessionDoneMsg:
		b.done = true
		b.apply(b.session.Snapshot())
		if b.state != errorState {
			return b, tea.Quit
		}
	case hideControlsMsg:
		if msg.at.Equal(b.lastInput) && b.state == controlsState {
			b.showControls = false
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spinnerC, cmd = b.spinnerC.Update(msg)
		cmds = append(cmds, cmd)
	case progress.FrameMsg:
		model, cmd := b.progressC.Update(msg)
		b.progressC = model.(progress.Model)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		if key.Matches(msg, b.keymap.forceQuit, b.keymap.quit) {
			return b, tea.Quit
		}

		b.lastInput = time.Now()
		b.showControls = true
		cmds = append(cmds, b.hideControlsAfter())

		if b.state != controlsState {
			break
		}
		if cmd := b.handleControl(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	return b, tea.Batch(cmds...)
}

// handleControl maps a key to a session control. Failures become notifications.
func (b *statefulBubble) handleControl(msg tea.KeyMsg) tea.Cmd {
	s := b.snapshot
	var (
		err  error
		note string
	)

	switch {
	case key.Matches(msg, b.keymap.playPause):
		err = b.session.TogglePlay()
	case key.Matches(msg, b.keymap.seekBack):
		err = b.session.SeekBy(-seekStep)
	case key.Matches(msg, b.keymap.seekForward):
		err = b.session.SeekBy(seekStep)
	case key.Matches(msg, b.keymap.volumeUp):
		volume := util.Clamp(s.Volume+volumeStep, 0, 1)
		err = b.session.SetVolume(volume)
		note = fmt.Sprintf("volume %d%%", int(volume*100+0.5))
	case key.Matches(msg, b.keymap.volumeDown):
		volume := util.Clamp(s.Volume-volumeStep, 0, 1)
		err = b.session.SetVolume(volume)
		note = fmt.Sprintf("volume %d%%", int(volume*100+0.5))
	case key.Matches(msg, b.keymap.slower):
		rate := util.Clamp(s.Rate-rateStep, minRate, maxRate)
		err = b.session.SetRate(rate)
		note = fmt.Sprintf("speed %.2gx", rate)
	case key.Matches(msg, b.keymap.faster):
		rate := util.Clamp(s.Rate+rateStep, minRate, maxRate)
		err = b.session.SetRate(rate)
		note = fmt.Sprintf("speed %.2gx", rate)
	case key.Matches(msg, b.keymap.quality):
		if !s.IsHLS || len(s.Levels) == 0 {
			note = "no quality levels"
			break
		}
		level := b.nextLevel()
		err = b.session.SetLevel(level)
		if level == playback.AutoLevel {
			note = "quality Auto"
		} else if l, ok := s.Levels.Find(level).Get(); ok {
			note = "quality " + l.Label
		}
	case key.Matches(msg, b.keymap.subtitles):
		if len(s.Subtitles) == 0 {
			note = "no subtitles"
			break
		}
		track := b.nextSubtitle()
		err = b.session.SetSubtitle(track)
		if track == nil {
			note = "subtitles off"
		} else {
			note = "subtitles " + track.Name()
		}
	case key.Matches(msg, b.keymap.skip):
		kind, ok := b.skipTarget()
		if !ok {
			return nil
		}
		err = b.session.Skip(kind)
	case key.Matches(msg, b.keymap.fullscreen):
		if err = b.session.SetFullscreen(!b.fullscreen); err == nil {
			b.fullscreen = !b.fullscreen
		}
	case key.Matches(msg, b.keymap.pip):
		if err = b.session.PictureInPicture(!b.pip); err == nil {
			b.pip = !b.pip
		}
	case key.Matches(msg, b.keymap.showHelp):
		b.helpC.ShowAll = !b.helpC.ShowAll
		return nil
	default:
		return nil
	}

	if err != nil {
		return ui.Notify(playback.Message(err))
	}
	if note != "" {
		return ui.Notify(note)
	}
	return nil
}
