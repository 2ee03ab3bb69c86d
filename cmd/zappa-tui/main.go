package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/danneforslund/zappagateway/internal/tui/app"
	"github.com/danneforslund/zappagateway/internal/tui/client"
)

func main() {
	wsURL := flag.String("url", "ws://127.0.0.1:8555/ws", "WebSocket URL of the gateway status endpoint")
	flag.Parse()

	ws := client.NewWSClient(*wsURL)

	m := app.New(ws)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
