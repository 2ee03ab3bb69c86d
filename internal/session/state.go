package session

import (
	"encoding/json"
	"net"
	"sync"
	"time"
)

// State is the lifecycle state of a relay session. Sessions cycle between
// Listening and Accepted for the process lifetime; there is no destroyed
// state, a disconnect returns the session to Listening.
type State int

const (
	// Listening means the session is waiting for the IPTV-side device to
	// connect to its accept socket.
	Listening State = iota
	// Accepted means both the device and client connections are open and
	// the byte pumps are eligible to run.
	Accepted
)

var stateNames = map[State]string{
	Listening: "listening",
	Accepted:  "accepted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Role identifies one of the per-session worker roles the scheduler keeps
// alive. At most one worker runs per role at any time.
type Role int

const (
	// RoleAccept waits for the IPTV-side device connection and opens the
	// matching LAN-side client connection. Eligible only while Listening.
	RoleAccept Role = iota
	// RoleForwardToClient pumps bytes device -> client. Eligible only
	// while Accepted.
	RoleForwardToClient
	// RoleForwardToDevice pumps bytes client -> device. Eligible only
	// while Accepted.
	RoleForwardToDevice

	roleCount
)

var roleNames = map[Role]string{
	RoleAccept:          "accept",
	RoleForwardToClient: "forward-to-client",
	RoleForwardToDevice: "forward-to-device",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// Session tracks one client/device pairing keyed by the source port observed
// in the discovery datagram. The bound sockets are created once at session
// creation and never rebound; the TCP connection pair exists only while the
// session is Accepted.
type Session struct {
	// Port is the discovery source port, the session's identity key.
	Port int
	// Peer is the LAN-side address of the discovering client.
	Peer net.IP
	// MulticastConn is the IPTV-side UDP socket bound to (iptvAddr, Port),
	// used to re-emit discovery traffic.
	MulticastConn *net.UDPConn
	// Listener is the IPTV-side TCP accept socket bound to (iptvAddr, Port).
	Listener *net.TCPListener

	mu             sync.Mutex
	state          State
	deviceConn     net.Conn
	clientConn     net.Conn
	running        [roleCount]bool
	createdAt      time.Time
	lastAcceptedAt time.Time
	disconnects    int
	bytesToClient  uint64
	bytesToDevice  uint64
}

func newSession(port int, peer net.IP, mc *net.UDPConn, ln *net.TCPListener) *Session {
	return &Session{
		Port:          port,
		Peer:          peer,
		MulticastConn: mc,
		Listener:      ln,
		state:         Listening,
		createdAt:     time.Now(),
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TryStartWorker acquires the running flag for role if the role is eligible
// in the current state and no worker holds it. The eligibility check and the
// flag set happen under one lock so a second accept worker can never start
// for an already-Accepted session. The worker must release the flag with
// FinishWorker when it terminates.
func (s *Session) TryStartWorker(role Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[role] {
		return false
	}
	if role == RoleAccept {
		if s.state != Listening {
			return false
		}
	} else if s.state != Accepted {
		return false
	}
	s.running[role] = true
	return true
}

// FinishWorker releases the running flag for role. Called by the worker
// itself on exit; the scheduler only ever observes the flag.
func (s *Session) FinishWorker(role Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[role] = false
}

// WorkerRunning reports whether a worker currently holds the role's flag.
func (s *Session) WorkerRunning(role Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[role]
}

// Activate installs the connection pair and moves the session to Accepted.
// Returns false if the session is not Listening, in which case the caller
// still owns both connections and must close them.
func (s *Session) Activate(device, client net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Listening {
		return false
	}
	s.deviceConn = device
	s.clientConn = client
	s.state = Accepted
	s.lastAcceptedAt = time.Now()
	return true
}

// Deactivate closes both connections and returns the session to Listening.
// Close errors are ignored; the bound multicast and accept sockets are left
// untouched so the session can immediately take a new device connection.
// Returns false if the session was not Accepted, which makes concurrent
// resets from the two pumps collapse into one.
func (s *Session) Deactivate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Accepted {
		return false
	}
	s.deactivateLocked()
	return true
}

// DeactivateConn is Deactivate gated on the device connection the caller has
// been pumping. If the session was reset and re-accepted with a new pair in
// the meantime, the stale caller's reset is a no-op instead of tearing down
// the fresh connections.
func (s *Session) DeactivateConn(device net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Accepted || s.deviceConn != device {
		return false
	}
	s.deactivateLocked()
	return true
}

func (s *Session) deactivateLocked() {
	if s.deviceConn != nil {
		s.deviceConn.Close()
	}
	if s.clientConn != nil {
		s.clientConn.Close()
	}
	s.deviceConn = nil
	s.clientConn = nil
	s.state = Listening
	s.disconnects++
}

// Conns returns the connection pair, or ok=false if the session is not
// Accepted.
func (s *Session) Conns() (device, client net.Conn, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Accepted {
		return nil, nil, false
	}
	return s.deviceConn, s.clientConn, true
}

// AddBytesToClient accounts n relayed bytes in the device -> client direction.
func (s *Session) AddBytesToClient(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bytesToClient += uint64(n)
}

// AddBytesToDevice accounts n relayed bytes in the client -> device direction.
func (s *Session) AddBytesToDevice(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bytesToDevice += uint64(n)
}

// Close releases the session's bound sockets. Only used on process shutdown
// and in tests; the relay never closes sessions during normal operation.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deviceConn != nil {
		s.deviceConn.Close()
		s.deviceConn = nil
	}
	if s.clientConn != nil {
		s.clientConn.Close()
		s.clientConn = nil
	}
	if s.MulticastConn != nil {
		s.MulticastConn.Close()
	}
	if s.Listener != nil {
		s.Listener.Close()
	}
}

// View is an immutable snapshot of a session for the status layer. All
// fields are comparable so consecutive snapshots can be diffed with ==.
type View struct {
	Port           int       `json:"port"`
	Peer           string    `json:"peer"`
	State          string    `json:"state"`
	CreatedAt      time.Time `json:"createdAt"`
	LastAcceptedAt time.Time `json:"lastAcceptedAt,omitzero"`
	Disconnects    int       `json:"disconnects"`
	BytesToClient  uint64    `json:"bytesToClient"`
	BytesToDevice  uint64    `json:"bytesToDevice"`
}

// Snapshot returns a point-in-time view of the session.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Port:           s.Port,
		Peer:           s.Peer.String(),
		State:          s.state.String(),
		CreatedAt:      s.createdAt,
		LastAcceptedAt: s.lastAcceptedAt,
		Disconnects:    s.disconnects,
		BytesToClient:  s.bytesToClient,
		BytesToDevice:  s.bytesToDevice,
	}
}
