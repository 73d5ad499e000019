package tui

import (
	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/style"
	"github.com/charmbracelet/bubbles/key"
)

// statefulKeymap defines the keys available in each view state.
type statefulKeymap struct {
	state state

	quit, forceQuit,
	playPause,
	seekBack, seekForward,
	volumeUp, volumeDown,
	slower, faster,
	quality, subtitles,
	skip,
	fullscreen, pip,
	showHelp key.Binding
}

func (k *statefulKeymap) setState(newState state) {
	k.state = newState
}

func newStatefulKeymap() *statefulKeymap {
	return &statefulKeymap{
		quit: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "quit"),
		),
		forceQuit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+d"),
			key.WithHelp("ctrl+c", "quit"),
		),
		playPause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp(style.Fg(color.Orange)("space"), style.Fg(color.Orange)("play/pause")),
		),
		seekBack: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "-10s"),
		),
		seekForward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "+10s"),
		),
		volumeUp: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑", "volume up"),
		),
		volumeDown: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓", "volume down"),
		),
		slower: key.NewBinding(
			key.WithKeys("<", ","),
			key.WithHelp("<", "slower"),
		),
		faster: key.NewBinding(
			key.WithKeys(">", "."),
			key.WithHelp(">", "faster"),
		),
		quality: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quality"),
		),
		subtitles: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "subtitles"),
		),
		skip: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "skip"),
		),
		fullscreen: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "fullscreen"),
		),
		pip: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "picture-in-picture"),
		),
		showHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

func (k *statefulKeymap) help() ([]key.Binding, []key.Binding) {
	h := func(bindings ...key.Binding) []key.Binding {
		return bindings
	}

	to2 := func(a []key.Binding) ([]key.Binding, []key.Binding) {
		return a, a
	}

	switch k.state {
	case loadingState, endedState, errorState:
		return to2(h(k.quit, k.forceQuit))
	case controlsState:
		return h(k.playPause, k.seekBack, k.seekForward, k.quality, k.subtitles, k.showHelp, k.quit),
			h(k.playPause, k.seekBack, k.seekForward, k.volumeUp, k.volumeDown, k.slower, k.faster,
				k.quality, k.subtitles, k.skip, k.fullscreen, k.pip, k.showHelp, k.quit)
	default:
		return to2(h())
	}
}

func (k *statefulKeymap) ShortHelp() []key.Binding {
	short, _ := k.help()
	return short
}

func (k *statefulKeymap) FullHelp() [][]key.Binding {
	_, full := k.help()
	return [][]key.Binding{full[:7], full[7:]}
}
