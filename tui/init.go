package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Init starts the spinner and subscribes to session changes.
func (b *statefulBubble) Init() tea.Cmd {
	return tea.Batch(b.spinnerC.Tick, b.waitForChange(), b.hideControlsAfter())
}
