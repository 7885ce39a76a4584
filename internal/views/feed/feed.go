// Package feed renders the live notice list shown on the dashboards.
package feed

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/prince4597/society-management-software-sub001/internal/realtime"
	"github.com/prince4597/society-management-software-sub001/internal/theme"
)

const maxNotices = 50

// Model holds the notices received for the current sign-in.
type Model struct {
	Title   string
	Room    string
	Joined  bool
	notices []realtime.Notice
}

// New creates an empty feed.
func New(title string) Model {
	return Model{Title: title}
}

// Add records a notice, newest first, capping the list.
func (m *Model) Add(n realtime.Notice) {
	m.notices = append([]realtime.Notice{n}, m.notices...)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[:maxNotices]
	}
}

// Reset forgets every notice and the room.
func (m *Model) Reset() {
	m.notices = nil
	m.Room = ""
	m.Joined = false
}

func (m Model) Len() int {
	return len(m.notices)
}

// View renders at most height-3 notices.
func (m Model) View(width, height int) string {
	if width < 40 {
		width = 40
	}
	rows := height - 3
	if rows < 1 {
		rows = 1
	}

	header := theme.StyleHeader.Render(m.Title)
	switch {
	case m.Room == "":
	case m.Joined:
		header += theme.StyleDimmed.Render("  room " + m.Room)
	default:
		header += theme.StyleDimmed.Render("  joining " + m.Room + "...")
	}

	lines := []string{header}
	if len(m.notices) == 0 {
		lines = append(lines, theme.StyleDimmed.Render("  Waiting for events"))
	}
	for i, n := range m.notices {
		if i >= rows {
			lines = append(lines, theme.StyleDimmed.Render(fmt.Sprintf("  +%d older", len(m.notices)-rows)))
			break
		}
		ts := theme.StyleDimmed.Render(n.At.Format("15:04:05"))
		title := lipgloss.NewStyle().Foreground(theme.ColorBright).Render(n.Title)
		line := fmt.Sprintf("  %s %s", ts, title)
		if n.Body != "" {
			line += theme.StyleDimmed.Render("  " + n.Body)
		}
		lines = append(lines, line)
	}

	return theme.StyleBorder.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
