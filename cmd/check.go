package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/player"
	"github.com/anisan-cli/anistream/style"
	"github.com/charmbracelet/lipgloss"
)

var installHints = map[string]string{
	constant.Darwin:  "brew install mpv",
	constant.Linux:   "sudo apt install mpv",
	constant.Windows: "scoop install mpv",
	constant.Android: "pkg install mpv",
}

// CheckDependencies exits with install instructions when mpv is not in PATH.
func CheckDependencies() {
	if _, err := exec.LookPath("mpv"); err == nil {
		return
	}

	fmt.Println(missingDependency("mpv", installHints[runtime.GOOS]))
	os.Exit(1)
}

func missingDependency(binary, install string) string {
	accent := style.New().Foreground(style.AccentColor).Bold(true).Render

	lines := []string{
		style.New().Bold(true).Foreground(style.HiRed).Render(icon.Get(icon.Fail) + " Missing dependency"),
		"",
		style.New().Foreground(style.Text).Render(fmt.Sprintf("%s was not found in your PATH.", binary)),
	}
	if install != "" {
		lines = append(lines, "", "Install it with", "  "+accent(install))
	}
	lines = append(lines, "", "or play without a window using", "  "+accent("--player "+player.HeadlessName))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.HiRed).
		Padding(1, 2).
		Margin(1, 0).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
