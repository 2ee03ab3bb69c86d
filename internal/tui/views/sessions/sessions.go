// Package sessions renders the session pool as a table: one row per
// discovery port with peer, state, traffic counters, and disconnect count.
package sessions

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/danneforslund/zappagateway/internal/session"
	"github.com/danneforslund/zappagateway/internal/tui/theme"
)

// Model holds the table state.
type Model struct {
	Sessions []session.View
	Selected int
	Width    int
}

// New creates an empty sessions table.
func New() Model {
	return Model{}
}

// View renders the table.
func (m Model) View() string {
	var lines []string

	header := fmt.Sprintf("  %-7s %-21s %-10s %12s %12s %6s",
		"PORT", "PEER", "STATE", "TO CLIENT", "TO DEVICE", "DROPS")
	lines = append(lines, theme.StyleHeader.Render(header))

	if len(m.Sessions) == 0 {
		lines = append(lines, theme.StyleDimmed.Render("  No sessions yet, waiting for discovery traffic"))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for i, s := range m.Sessions {
		prefix := "  "
		if i == m.Selected {
			prefix = "> "
		}
		stateStr := lipgloss.NewStyle().Foreground(theme.StateColor(s.State)).Render(fmt.Sprintf("%-10s", s.State))
		row := fmt.Sprintf("%s%-7d %-21s %s %12s %12s %6d",
			prefix, s.Port, s.Peer, stateStr,
			formatBytes(s.BytesToClient), formatBytes(s.BytesToDevice),
			s.Disconnects)
		if i == m.Selected {
			row = theme.StyleSelected.Render(row)
		}
		lines = append(lines, row)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
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
