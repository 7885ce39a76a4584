package status

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/prince4597/society-management-software-sub001/internal/theme"
)

// Model holds the status bar state.
type Model struct {
	Actor string
	Role  string
	// Session is the session status name, shown when nobody is signed in.
	Session    string
	Route      string
	Connected  bool
	HasChannel bool
	ConnError  string
	Width      int
}

// New creates a status bar model.
func New() Model {
	return Model{}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")

	var actor string
	if m.Actor != "" {
		actor = theme.StyleHeader.Render(m.Actor) + " " +
			lipgloss.NewStyle().Foreground(theme.RoleColor(m.Role)).Render(m.Role)
	} else {
		actor = theme.StyleDimmed.Render("signed out (" + m.Session + ")")
	}

	content := m.connView() + sep + actor
	if m.Route != "" {
		content += sep + theme.StyleDimmed.Render(m.Route)
	}
	if m.ConnError != "" {
		content += sep + theme.StyleError.Render(m.ConnError)
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

func (m Model) connView() string {
	switch {
	case m.Connected:
		return lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Live")
	case m.ConnError != "":
		return lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("✗ Offline")
	case m.HasChannel:
		return lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("○ Connecting...")
	default:
		return theme.StyleDimmed.Render("○ No channel")
	}
}
