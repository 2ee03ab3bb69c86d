package session

import (
	"net"
	"testing"
)

// pipePair returns a connected conn pair standing in for device/client.
func pipePair() (net.Conn, net.Conn) {
	return net.Pipe()
}

func newBareSession(port int) *Session {
	return newSession(port, net.IPv4(192, 168, 1, 10), nil, nil)
}

func TestNewSessionStartsListening(t *testing.T) {
	s := newBareSession(51000)
	if got := s.State(); got != Listening {
		t.Errorf("new session state = %s, want listening", got)
	}
	if _, _, ok := s.Conns(); ok {
		t.Error("new session should have no connections")
	}
}

func TestActivateDeactivateCycle(t *testing.T) {
	s := newBareSession(51000)
	device, client := pipePair()

	if !s.Activate(device, client) {
		t.Fatal("Activate on Listening session returned false")
	}
	if got := s.State(); got != Accepted {
		t.Errorf("state after Activate = %s, want accepted", got)
	}
	d, c, ok := s.Conns()
	if !ok || d == nil || c == nil {
		t.Fatal("Conns after Activate should return both connections")
	}

	if !s.Deactivate() {
		t.Fatal("Deactivate on Accepted session returned false")
	}
	if got := s.State(); got != Listening {
		t.Errorf("state after Deactivate = %s, want listening", got)
	}
	if _, _, ok := s.Conns(); ok {
		t.Error("Conns after Deactivate should report no connections")
	}
}

func TestActivateRefusedWhileAccepted(t *testing.T) {
	s := newBareSession(51000)
	d1, c1 := pipePair()
	d2, c2 := pipePair()
	defer d2.Close()
	defer c2.Close()

	if !s.Activate(d1, c1) {
		t.Fatal("first Activate failed")
	}
	if s.Activate(d2, c2) {
		t.Error("second Activate on Accepted session should return false")
	}
}

func TestDeactivateIsSingleShot(t *testing.T) {
	s := newBareSession(51000)
	device, client := pipePair()
	s.Activate(device, client)

	if !s.Deactivate() {
		t.Fatal("first Deactivate returned false")
	}
	if s.Deactivate() {
		t.Error("second Deactivate should return false")
	}

	snap := s.Snapshot()
	if snap.Disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", snap.Disconnects)
	}
}

func TestDeactivateConnIgnoresStalePair(t *testing.T) {
	s := newBareSession(51000)
	d1, c1 := pipePair()
	s.Activate(d1, c1)
	s.Deactivate()

	d2, c2 := pipePair()
	if !s.Activate(d2, c2) {
		t.Fatal("re-Activate after Deactivate failed")
	}

	// A reset keyed to the old device connection must not touch the new pair.
	if s.DeactivateConn(d1) {
		t.Error("DeactivateConn with stale device conn returned true")
	}
	if got := s.State(); got != Accepted {
		t.Errorf("state after stale DeactivateConn = %s, want accepted", got)
	}
	if got := s.Snapshot().Disconnects; got != 1 {
		t.Errorf("disconnects = %d, want 1", got)
	}

	if !s.DeactivateConn(d2) {
		t.Error("DeactivateConn with current device conn returned false")
	}
	if got := s.State(); got != Listening {
		t.Errorf("state after current DeactivateConn = %s, want listening", got)
	}
}

func TestTryStartWorkerGating(t *testing.T) {
	tests := []struct {
		name  string
		state State
		role  Role
		want  bool
	}{
		{"AcceptWhileListening", Listening, RoleAccept, true},
		{"PumpToClientWhileListening", Listening, RoleForwardToClient, false},
		{"PumpToDeviceWhileListening", Listening, RoleForwardToDevice, false},
		{"AcceptWhileAccepted", Accepted, RoleAccept, false},
		{"PumpToClientWhileAccepted", Accepted, RoleForwardToClient, true},
		{"PumpToDeviceWhileAccepted", Accepted, RoleForwardToDevice, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newBareSession(51000)
			if tt.state == Accepted {
				device, client := pipePair()
				s.Activate(device, client)
			}
			if got := s.TryStartWorker(tt.role); got != tt.want {
				t.Errorf("TryStartWorker(%s) in %s = %v, want %v", tt.role, tt.state, got, tt.want)
			}
		})
	}
}

func TestTryStartWorkerRefusesDoubleAcquire(t *testing.T) {
	s := newBareSession(51000)

	if !s.TryStartWorker(RoleAccept) {
		t.Fatal("first acquire failed")
	}
	if s.TryStartWorker(RoleAccept) {
		t.Error("second acquire while worker running should return false")
	}

	s.FinishWorker(RoleAccept)
	if !s.TryStartWorker(RoleAccept) {
		t.Error("acquire after FinishWorker should succeed")
	}
}

func TestByteCounters(t *testing.T) {
	s := newBareSession(51000)
	s.AddBytesToClient(4096)
	s.AddBytesToClient(100)
	s.AddBytesToDevice(7)

	snap := s.Snapshot()
	if snap.BytesToClient != 4196 {
		t.Errorf("bytesToClient = %d, want 4196", snap.BytesToClient)
	}
	if snap.BytesToDevice != 7 {
		t.Errorf("bytesToDevice = %d, want 7", snap.BytesToDevice)
	}
}

func TestSnapshotFields(t *testing.T) {
	s := newBareSession(51000)
	snap := s.Snapshot()

	if snap.Port != 51000 {
		t.Errorf("port = %d, want 51000", snap.Port)
	}
	if snap.Peer != "192.168.1.10" {
		t.Errorf("peer = %q, want 192.168.1.10", snap.Peer)
	}
	if snap.State != "listening" {
		t.Errorf("state = %q, want listening", snap.State)
	}
	if snap.CreatedAt.IsZero() {
		t.Error("createdAt should be set")
	}
	if !snap.LastAcceptedAt.IsZero() {
		t.Error("lastAcceptedAt should be zero before first accept")
	}
}
