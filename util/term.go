package util

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// TerminalSize is the size of the terminal attached to stdout.
func TerminalSize() (width, height int, err error) {
	return term.GetSize(int(os.Stdout.Fd()))
}

// PrintErasable prints msg on the current line and returns a func blanking it again.
func PrintErasable(msg string) (erase func()) {
	fmt.Fprint(os.Stdout, "\r"+msg)
	return func() {
		fmt.Fprint(os.Stdout, "\r"+strings.Repeat(" ", lipgloss.Width(msg))+"\r")
	}
}
