package status

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/danneforslund/zappagateway/internal/session"
)

var loopback = net.IPv4(127, 0, 0, 1)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.ListenTCP("tcp4", &net.TCPAddr{IP: loopback})
	if err != nil {
		t.Fatalf("freePort: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func newTestSession(t *testing.T, reg *session.Registry) *session.Session {
	t.Helper()
	s, err := reg.Create(freePort(t), loopback)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

// testClient registers a bare client without a websocket connection so sent
// frames can be read straight off the send channel.
func testClient(b *Broadcaster, buffer int) *client {
	c := &client{send: make(chan []byte, buffer)}
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()
	return c
}

func recvDelta(t *testing.T, c *client) DeltaPayload {
	t.Helper()
	select {
	case data := <-c.send:
		var msg struct {
			Type    MessageType  `json:"type"`
			Payload DeltaPayload `json:"payload"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal delta: %v", err)
		}
		if msg.Type != MsgDelta {
			t.Fatalf("message type = %s, want %s", msg.Type, MsgDelta)
		}
		return msg.Payload
	case <-time.After(2 * time.Second):
		t.Fatal("no delta received")
		return DeltaPayload{}
	}
}

func TestFlushDeltaFirstSightSendsAllSessions(t *testing.T) {
	reg := session.NewRegistry(loopback)
	s1 := newTestSession(t, reg)
	s2 := newTestSession(t, reg)

	b := NewBroadcaster(reg, 250*time.Millisecond, 5*time.Second)
	c := testClient(b, 8)

	b.flushDelta()
	delta := recvDelta(t, c)
	if len(delta.Updates) != 2 {
		t.Fatalf("first delta carries %d sessions, want 2", len(delta.Updates))
	}
	ports := map[int]bool{delta.Updates[0].Port: true, delta.Updates[1].Port: true}
	if !ports[s1.Port] || !ports[s2.Port] {
		t.Errorf("delta ports = %v, want %d and %d", ports, s1.Port, s2.Port)
	}
}

func TestFlushDeltaSkipsUnchangedSessions(t *testing.T) {
	reg := session.NewRegistry(loopback)
	s1 := newTestSession(t, reg)
	newTestSession(t, reg)

	b := NewBroadcaster(reg, 250*time.Millisecond, 5*time.Second)
	c := testClient(b, 8)

	b.flushDelta()
	recvDelta(t, c)

	// Nothing changed: no frame at all.
	b.flushDelta()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected frame for unchanged registry: %s", data)
	default:
	}

	// One session changes: only it appears in the next delta.
	s1.AddBytesToClient(100)
	b.flushDelta()
	delta := recvDelta(t, c)
	if len(delta.Updates) != 1 || delta.Updates[0].Port != s1.Port {
		t.Errorf("delta = %+v, want single update for port %d", delta.Updates, s1.Port)
	}
	if delta.Updates[0].BytesToClient != 100 {
		t.Errorf("delta bytesToClient = %d, want 100", delta.Updates[0].BytesToClient)
	}
}

func TestBroadcastDisconnectsSlowClient(t *testing.T) {
	reg := session.NewRegistry(loopback)
	newTestSession(t, reg)

	b := NewBroadcaster(reg, 250*time.Millisecond, 5*time.Second)
	slow := testClient(b, 1)
	slow.send <- []byte("backlog")

	if b.ClientCount() != 1 {
		t.Fatalf("client count = %d, want 1", b.ClientCount())
	}
	b.broadcast(Message{Type: MsgSnapshot, Payload: b.snapshotPayload()})
	if b.ClientCount() != 0 {
		t.Errorf("slow client still registered after broadcast")
	}
}

func TestRemoveClientIsIdempotent(t *testing.T) {
	reg := session.NewRegistry(loopback)
	b := NewBroadcaster(reg, 250*time.Millisecond, 5*time.Second)
	c := testClient(b, 1)

	b.RemoveClient(c)
	b.RemoveClient(c)
	if b.ClientCount() != 0 {
		t.Errorf("client count = %d, want 0", b.ClientCount())
	}
}

func TestSnapshotPayloadIncludesGatewayStats(t *testing.T) {
	reg := session.NewRegistry(loopback)
	newTestSession(t, reg)

	b := NewBroadcaster(reg, 250*time.Millisecond, 5*time.Second)
	p := b.snapshotPayload()
	if len(p.Sessions) != 1 {
		t.Errorf("snapshot sessions = %d, want 1", len(p.Sessions))
	}
	if p.Gateway.PID == 0 {
		t.Error("snapshot gateway stats missing pid")
	}
}
