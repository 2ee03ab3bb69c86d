// Package app is the root Bubble Tea model for the gateway dashboard.
package app

import (
	"context"
	"sort"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/danneforslund/zappagateway/internal/session"
	"github.com/danneforslund/zappagateway/internal/tui/client"
	"github.com/danneforslund/zappagateway/internal/tui/theme"
	"github.com/danneforslund/zappagateway/internal/tui/views/sessions"
	"github.com/danneforslund/zappagateway/internal/tui/views/statusbar"
)

// Model is the root Bubble Tea model.
type Model struct {
	ws     *client.WSClient
	ctx    context.Context
	cancel context.CancelFunc

	keys   KeyMap
	width  int
	height int

	// Session state, keyed by discovery port.
	sessions map[int]session.View
	order    []int // sorted ports

	selectedIdx int

	// Sub-views.
	statusBar statusbar.Model
	table     sessions.Model

	connected bool
}

// New creates the root model.
func New(ws *client.WSClient) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		ws:        ws,
		ctx:       ctx,
		cancel:    cancel,
		keys:      DefaultKeyMap(),
		sessions:  make(map[int]session.View),
		statusBar: statusbar.New(),
		table:     sessions.New(),
	}
}

// Init starts the WebSocket connection.
func (m Model) Init() tea.Cmd {
	return m.ws.Listen(m.ctx)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.table.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case client.WSConnectedMsg:
		m.connected = true
		m.statusBar.Connected = true
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSDisconnectedMsg:
		m.connected = false
		m.statusBar.Connected = false
		return m, m.ws.Listen(m.ctx)

	case client.WSSnapshotMsg:
		m.sessions = make(map[int]session.View)
		for _, v := range msg.Payload.Sessions {
			m.sessions[v.Port] = v
		}
		m.statusBar.Gateway = msg.Payload.Gateway
		m.rebuild()
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSDeltaMsg:
		for _, v := range msg.Payload.Updates {
			m.sessions[v.Port] = v
		}
		m.rebuild()
		return m, m.ws.ReadLoop(m.ctx)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Down):
		if len(m.order) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.order)
			m.table.Selected = m.selectedIdx
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.order) > 0 {
			m.selectedIdx = (m.selectedIdx - 1 + len(m.order)) % len(m.order)
			m.table.Selected = m.selectedIdx
		}
		return m, nil
	}

	return m, nil
}

// View renders the full dashboard.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	sections := []string{
		m.statusBar.View(),
		m.table.View(),
		theme.StyleDimmed.Render("  j/k:navigate  q:quit"),
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// rebuild re-sorts the port order and refreshes the sub-views.
func (m *Model) rebuild() {
	m.order = make([]int, 0, len(m.sessions))
	for port := range m.sessions {
		m.order = append(m.order, port)
	}
	sort.Ints(m.order)

	if m.selectedIdx >= len(m.order) && len(m.order) > 0 {
		m.selectedIdx = len(m.order) - 1
	}

	rows := make([]session.View, 0, len(m.order))
	listening, accepted := 0, 0
	for _, port := range m.order {
		v := m.sessions[port]
		rows = append(rows, v)
		switch v.State {
		case "accepted":
			accepted++
		default:
			listening++
		}
	}
	m.table.Sessions = rows
	m.table.Selected = m.selectedIdx
	m.statusBar.SetCounts(listening, accepted)
}
