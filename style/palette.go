package style

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha colors used by the controls and command output.
var (
	Base    = lipgloss.Color("#1e1e2e")
	Text    = lipgloss.Color("#cdd6f4")
	Overlay = lipgloss.Color("#6c7086")

	Mauve    = lipgloss.Color("#cba6f7")
	Red      = lipgloss.Color("#f38ba8")
	Peach    = lipgloss.Color("#fab387")
	Green    = lipgloss.Color("#a6e3a1")
	Lavender = lipgloss.Color("#b4befe")
)

// Semantic colors.
var (
	AccentColor = Mauve
	HiRed       = Red

	// Playback state tags and the position bar.
	PlayingColor   = Green
	PausedColor    = Overlay
	BufferingColor = Peach
	ErrorColor     = Red
	ProgressStart  = Mauve
	ProgressEnd    = Lavender
)
