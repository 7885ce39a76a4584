// Package toast renders the notification stack.
package toast

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/prince4597/society-management-software-sub001/internal/notify"
	"github.com/prince4597/society-management-software-sub001/internal/theme"
)

const maxWidth = 48

// View renders toasts newest-last, right-aligned within width. It returns
// "" when there is nothing to show.
func View(toasts []notify.Toast, width int) string {
	if len(toasts) == 0 {
		return ""
	}

	boxW := maxWidth
	if width > 0 && width-2 < boxW {
		boxW = width - 2
	}
	if boxW < 16 {
		boxW = 16
	}

	cards := make([]string, 0, len(toasts))
	for _, t := range toasts {
		color := theme.KindColor(string(t.Kind))
		glyph := lipgloss.NewStyle().Foreground(color).Bold(true).Render(theme.KindGlyph(string(t.Kind)))
		card := lipgloss.NewStyle().
			Width(boxW).
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(color).
			Render(glyph + " " + t.Message)
		cards = append(cards, card)
	}

	stack := lipgloss.JoinVertical(lipgloss.Right, cards...)
	if width <= 0 {
		return stack
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, stack)
}
