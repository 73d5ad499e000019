package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/anisan-cli/anistream/color"
	"github.com/anisan-cli/anistream/icon"
	"github.com/anisan-cli/anistream/playback"
	"github.com/anisan-cli/anistream/style"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wrap"
)

var paddingStyle = lipgloss.NewStyle().Padding(1, 2)

func (b *statefulBubble) View() string {
	var output string

	switch b.state {
	case loadingState:
		output = b.viewLoading()
	case controlsState:
		output = b.viewControls()
	case endedState:
		output = b.viewEnded()
	case errorState:
		output = b.viewError()
	default:
		output = "Unknown state"
	}

	return b.notifier.View(output)
}

func (b *statefulBubble) header() string {
	title := b.snapshot.Title
	if title == "" {
		title = "Now Playing"
	}
	header := style.Title(title)
	if b.options.Server != "" {
		header += " " + style.Faint(b.options.Server)
	}
	return header
}

func (b *statefulBubble) viewLoading() string {
	return b.renderLines(true, []string{
		b.header(),
		"",
		b.spinnerC.View() + " Loading stream",
	})
}

func (b *statefulBubble) viewControls() string {
	s := b.snapshot

	status := icon.Get(icon.Pause) + " " + style.Tag(style.Base, style.PausedColor)("Paused")
	if s.Playing {
		status = icon.Get(icon.Play) + " " + style.Tag(style.Base, style.PlayingColor)("Playing")
	}
	if s.Buffering {
		status = b.spinnerC.View() + " " + style.Tag(style.Base, style.BufferingColor)("Buffering")
	}

	fraction := 0.0
	if s.Duration > 0 {
		fraction = math.Min(s.CurrentTime/s.Duration, 1)
	}

	lines := []string{
		b.header(),
		"",
		status,
		"",
		b.progressC.ViewAs(fraction) + " " + formatTime(s.CurrentTime) + " / " + formatTime(s.Duration),
		"",
		style.Truncate(b.width)(b.details()),
	}

	if kind, ok := b.skipTarget(); ok {
		lines = append(lines, "", style.Fg(color.Orange)(icon.Get(icon.Skip)+" Skip "+kind.String()+" (s)"))
	}

	return b.renderLines(b.showControls, lines)
}

// details renders the buffered, quality, subtitle, volume and speed row.
func (b *statefulBubble) details() string {
	s := b.snapshot

	subtitle := "off"
	if track, ok := s.Subtitle.Get(); ok {
		subtitle = track.Name()
	}

	parts := []string{
		fmt.Sprintf("buffered %d%%", int(s.BufferedFraction*100)),
		icon.Get(icon.Quality) + " " + s.LevelLabel(),
		icon.Get(icon.Subtitles) + " " + subtitle,
		icon.Get(icon.Volume) + fmt.Sprintf(" %d%%", int(s.Volume*100+0.5)),
		fmt.Sprintf("%.2gx", s.Rate),
	}

	if b.fullscreen {
		parts = append(parts, "fullscreen")
	}
	if b.pip {
		parts = append(parts, "pip")
	}

	return style.Faint(strings.Join(parts, "  "))
}

func (b *statefulBubble) viewEnded() string {
	return b.renderLines(true, []string{
		b.header(),
		"",
		icon.Get(icon.Success) + " Finished",
	})
}

func (b *statefulBubble) viewError() string {
	errorStyle := lipgloss.NewStyle().Foreground(style.ErrorColor).Bold(true)
	width := b.width
	if width <= 0 {
		width = 80
	}
	message := wrap.String(errorStyle.Render(playback.Message(b.snapshot.Err)), width)

	return b.renderLines(true, []string{
		style.ErrorTitle("Error"),
		"",
		icon.Get(icon.Fail) + " " + message,
	})
}

func (b *statefulBubble) renderLines(addHelp bool, lines []string) string {
	h := len(lines)
	l := strings.Join(lines, "\n")
	if addHelp {
		if b.height > h+4 {
			l += strings.Repeat("\n", b.height-h-4)
		} else {
			l += "\n\n"
		}
		l += b.helpC.View(b.keymap)
	}

	return paddingStyle.Render(l)
}

// formatTime renders seconds as m:ss, or h:mm:ss past the hour.
func formatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	total := int(seconds)
	h, m, s := total/3600, total%3600/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
