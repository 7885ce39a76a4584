// Package theme provides the Lip Gloss color palette and reusable styles
// for the console. It is a leaf package with no internal imports to avoid
// import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Role colors.
var (
	colorSuperAdmin   = lipgloss.Color("#a855f7")
	colorSocietyAdmin = lipgloss.Color("#3b82f6")
	colorDefault      = lipgloss.Color("#9ca3af")
)

// Toast kind colors.
var (
	ColorSuccess = lipgloss.Color("#16a34a")
	ColorError   = lipgloss.Color("#dc2626")
	ColorInfo    = lipgloss.Color("#2563eb")
	ColorWarning = lipgloss.Color("#d97706")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorAccent  = lipgloss.Color("#7c3aed")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// RoleColor returns the color for a role name.
func RoleColor(role string) lipgloss.Color {
	switch role {
	case "SUPER_ADMIN":
		return colorSuperAdmin
	case "SOCIETY_ADMIN":
		return colorSocietyAdmin
	default:
		return colorDefault
	}
}

// KindColor returns the color for a toast kind.
func KindColor(kind string) lipgloss.Color {
	switch kind {
	case "success":
		return ColorSuccess
	case "error":
		return ColorError
	case "info":
		return ColorInfo
	case "warning":
		return ColorWarning
	default:
		return colorDefault
	}
}

// KindGlyph returns a glyph for a toast kind.
func KindGlyph(kind string) string {
	switch kind {
	case "success":
		return "✓"
	case "error":
		return "✗"
	case "info":
		return "i"
	case "warning":
		return "!"
	default:
		return "·"
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorDanger)
)
