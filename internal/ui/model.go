// Package ui provides ephemeral notifications for bubbletea models.
package ui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// NotificationTimeout is how long a notification stays on screen.
const NotificationTimeout = 3 * time.Second

// Model holds the current notification.
type Model struct {
	notification string
	notifiedAt   time.Time
}

// ClearNotificationMsg resets the notification.
type ClearNotificationMsg struct {
	at time.Time
}

// Notify returns a tea.Cmd that shows text as a notification.
func Notify(text string) tea.Cmd {
	return func() tea.Msg {
		return text
	}
}

// clearAfter clears the notification raised at notifiedAt unless a newer one replaced it.
func clearAfter(notifiedAt time.Time) tea.Cmd {
	return tea.Tick(NotificationTimeout, func(time.Time) tea.Msg {
		return ClearNotificationMsg{at: notifiedAt}
	})
}

// Notification returns the text currently shown, if any.
func (m *Model) Notification() string {
	return m.notification
}

// Update processes incoming messages to modify the notification state.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case string:
		m.notification = msg
		m.notifiedAt = time.Now()
		return clearAfter(m.notifiedAt)
	case ClearNotificationMsg:
		if msg.at.IsZero() || msg.at.Equal(m.notifiedAt) {
			m.notification = ""
		}
	}
	return nil
}

// View appends the current notification to the last line of mainContent.
func (m *Model) View(mainContent string) string {
	if m.notification == "" {
		return mainContent
	}

	lines := strings.Split(mainContent, "\n")
	notifier := "\033[90m" + m.notification + "\033[0m"
	lines[len(lines)-1] = lines[len(lines)-1] + "  " + notifier
	return strings.Join(lines, "\n")
}
