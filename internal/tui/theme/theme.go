// Package theme provides the Lip Gloss color palette and reusable styles
// for the gateway dashboard. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Session state colors.
var (
	ColorListening = lipgloss.Color("#2563eb")
	ColorAccepted  = lipgloss.Color("#16a34a")
)

// General palette.
var (
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
	ColorDimmed  = lipgloss.Color("#4b5563")
	ColorBorder  = lipgloss.Color("#374151")
	ColorAccent  = lipgloss.Color("#06b6d4")
)

// Reusable styles.
var (
	StyleHeader   = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	StyleDimmed   = lipgloss.NewStyle().Foreground(ColorDimmed)
	StyleSelected = lipgloss.NewStyle().Bold(true)
)

// StateColor maps a session state name to its display color.
func StateColor(state string) lipgloss.Color {
	switch state {
	case "accepted":
		return ColorAccepted
	case "listening":
		return ColorListening
	default:
		return ColorDimmed
	}
}
