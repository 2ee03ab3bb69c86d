// Package client maintains the dashboard's WebSocket connection to the
// gateway's status endpoint and translates protocol messages into Bubble
// Tea messages.
package client

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/danneforslund/zappagateway/internal/status"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	writeTimeout       = 10 * time.Second
	pongTimeout        = 60 * time.Second
	pingInterval       = 30 * time.Second
)

// wsMessage mirrors status.Message with a raw payload for two-phase decode.
type wsMessage struct {
	Type    status.MessageType `json:"type"`
	Payload json.RawMessage    `json:"payload"`
}

// WSClient manages the WebSocket connection to the gateway.
type WSClient struct {
	url string

	mu      sync.Mutex
	writeMu sync.Mutex // serialises conn writes (pings)
	conn    *websocket.Conn
	pingCtx context.CancelFunc // cancels the active ping goroutine
}

// NewWSClient creates a client that connects to the given WebSocket URL.
func NewWSClient(url string) *WSClient {
	return &WSClient{url: url}
}

// --- Bubble Tea messages ---

// WSConnectedMsg is sent when the WebSocket connects.
type WSConnectedMsg struct{}

// WSDisconnectedMsg is sent when the connection drops.
type WSDisconnectedMsg struct{ Err error }

// WSSnapshotMsg delivers a full session snapshot.
type WSSnapshotMsg struct{ Payload status.SnapshotPayload }

// WSDeltaMsg delivers incremental session updates.
type WSDeltaMsg struct{ Payload status.DeltaPayload }

// Listen returns a Bubble Tea command that connects and reports readiness.
// It retries with backoff until connected or the context ends.
func (c *WSClient) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		delay := reconnectBaseDelay
		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
			if err != nil {
				log.Printf("ws dial error: %v (retry in %v)", err, delay)
				time.Sleep(delay)
				delay = min(delay*2, reconnectMaxDelay)
				continue
			}

			// Cancel any previous ping goroutine.
			c.mu.Lock()
			if c.pingCtx != nil {
				c.pingCtx()
			}
			pingCtx, pingCancel := context.WithCancel(ctx)
			c.conn = conn
			c.pingCtx = pingCancel
			c.mu.Unlock()

			go c.pingLoop(pingCtx, conn)

			return WSConnectedMsg{}
		}
	}
}

// ReadLoop returns a Bubble Tea command that reads messages from the
// connection. It should be started after receiving WSConnectedMsg and
// restarted after each delivered message.
func (c *WSClient) ReadLoop(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return WSDisconnectedMsg{}
		}

		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongTimeout))
			return nil
		})
		conn.SetReadDeadline(time.Now().Add(pongTimeout))

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				c.mu.Lock()
				if c.conn == conn {
					c.conn = nil
				}
				c.mu.Unlock()
				conn.Close()
				return WSDisconnectedMsg{Err: err}
			}

			var msg wsMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}

			teaMsg := dispatch(msg)
			if teaMsg != nil {
				return teaMsg
			}
		}
	}
}

// pingLoop sends periodic pings on the given connection. It exits when the
// context is cancelled or the connection changes.
func (c *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			cc := c.conn
			c.mu.Unlock()
			if cc != conn {
				return
			}
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func dispatch(msg wsMessage) tea.Msg {
	switch msg.Type {
	case status.MsgSnapshot:
		var p status.SnapshotPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return WSSnapshotMsg{Payload: p}
		}
	case status.MsgDelta:
		var p status.DeltaPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return WSDeltaMsg{Payload: p}
		}
	}
	return nil
}
