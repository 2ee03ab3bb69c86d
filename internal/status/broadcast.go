package status

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/danneforslund/zappagateway/internal/session"
	"github.com/gorilla/websocket"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Broadcaster pushes session snapshots and deltas to WebSocket clients. It
// observes the registry by polling: the relay core never calls into the
// status layer, so diagnostics cannot perturb relay behavior.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	registry *session.Registry
	proc     *processStats

	throttle         time.Duration
	snapshotInterval time.Duration

	// last is touched only by the Run loop.
	last map[int]session.View
}

func NewBroadcaster(registry *session.Registry, throttle, snapshotInterval time.Duration) *Broadcaster {
	return &Broadcaster{
		clients:          make(map[*client]bool),
		registry:         registry,
		proc:             newProcessStats(),
		throttle:         throttle,
		snapshotInterval: snapshotInterval,
		last:             make(map[int]session.View),
	}
}

// AddClient registers a connection and immediately sends it a full snapshot.
func (b *Broadcaster) AddClient(conn *websocket.Conn) *client {
	c := newClient(conn)

	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	data, _ := json.Marshal(Message{Type: MsgSnapshot, Payload: b.snapshotPayload()})
	select {
	case c.send <- data:
	default:
		// Client too slow for its own hello, drop the snapshot
	}

	return c
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Run flushes deltas on the throttle period and a full snapshot on the
// snapshot interval until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	delta := time.NewTicker(b.throttle)
	defer delta.Stop()
	snapshot := time.NewTicker(b.snapshotInterval)
	defer snapshot.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-delta.C:
			b.flushDelta()
		case <-snapshot.C:
			b.broadcast(Message{Type: MsgSnapshot, Payload: b.snapshotPayload()})
		}
	}
}

func (b *Broadcaster) snapshotPayload() SnapshotPayload {
	return SnapshotPayload{
		Sessions: b.registry.Snapshot(),
		Gateway:  b.proc.stats(),
	}
}

// flushDelta diffs the registry against the previous flush and broadcasts
// only the sessions that changed. View is comparable, so the diff is a
// plain == per port.
func (b *Broadcaster) flushDelta() {
	var updates []session.View
	for _, v := range b.registry.Snapshot() {
		if prev, ok := b.last[v.Port]; !ok || prev != v {
			updates = append(updates, v)
			b.last[v.Port] = v
		}
	}
	if len(updates) == 0 {
		return
	}
	b.broadcast(Message{Type: MsgDelta, Payload: DeltaPayload{Updates: updates}})
}

func (b *Broadcaster) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[status] broadcast marshal error: %v", err)
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			// Client can't keep up, disconnect it
			log.Printf("[status] ws client too slow, disconnecting")
			b.RemoveClient(c)
		}
	}
}
