// Package color holds the terminal colors used for command output.
package color

import "github.com/charmbracelet/lipgloss"

// New returns the color for an ANSI index or a hex value.
func New(value string) lipgloss.Color {
	return lipgloss.Color(value)
}

// ANSI colors, so output follows the terminal theme.
var (
	Red    = New("1")
	Green  = New("2")
	Yellow = New("3")
	Blue   = New("4")
	Purple = New("5")
	Cyan   = New("6")

	HiRed    = New("9")
	HiBlue   = New("12")
	HiPurple = New("13")
)

// Hex colors.
var (
	Orange = New("#ffb703")
	Gray   = New("#808080")
)
