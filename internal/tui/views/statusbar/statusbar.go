// Package statusbar renders the dashboard's top bar: connection state,
// session counts, and gateway process stats.
package statusbar

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/danneforslund/zappagateway/internal/status"
	"github.com/danneforslund/zappagateway/internal/tui/theme"
)

// Model holds the status bar state.
type Model struct {
	Connected bool
	Listening int
	Accepted  int
	Gateway   status.GatewayStats
	Width     int
}

// New creates a status bar model.
func New() Model {
	return Model{}
}

// SetCounts updates the per-state session counts.
func (m *Model) SetCounts(listening, accepted int) {
	m.Listening = listening
	m.Accepted = accepted
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var connStr string
	if m.Connected {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Connected")
	} else {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Connecting...")
	}

	counts := fmt.Sprintf("%d listening  %d accepted", m.Listening, m.Accepted)

	gw := fmt.Sprintf("pid %d  cpu %.1f%%  rss %s  up %s",
		m.Gateway.PID,
		m.Gateway.CPUPercent,
		formatBytes(m.Gateway.RSSBytes),
		formatUptime(m.Gateway.UptimeSeconds))

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr + sep + counts + sep + theme.StyleDimmed.Render(gw)

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

func formatBytes(n uint64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1fGiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}

func formatUptime(seconds int64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds < 3600 {
		return fmt.Sprintf("%dm%ds", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%dh%dm", seconds/3600, (seconds%3600)/60)
}
