// Package style holds the lipgloss renderers shared by the controls and the commands.
package style

import "github.com/charmbracelet/lipgloss"

func New() lipgloss.Style {
	return lipgloss.NewStyle()
}

// Fg renders with the foreground c.
func Fg(c lipgloss.Color) func(string) string {
	s := New().Foreground(c)
	return func(text string) string { return s.Render(text) }
}

// Tag renders a padded block, used for state badges and titles.
func Tag(fg, bg lipgloss.Color) func(string) string {
	s := New().Foreground(fg).Background(bg).Padding(0, 1)
	return func(text string) string { return s.Render(text) }
}

// Truncate pads or wraps to exactly width cells.
func Truncate(width int) func(string) string {
	s := New().Width(width)
	return func(text string) string { return s.Render(text) }
}

var (
	Faint = func(s string) string { return New().Faint(true).Render(s) }
	Bold  = func(s string) string { return New().Bold(true).Render(s) }

	Title      = Tag(Base, AccentColor)
	ErrorTitle = Tag(Base, ErrorColor)
)
