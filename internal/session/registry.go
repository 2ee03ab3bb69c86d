// Package session holds the per-port relay session state and the registry
// that maps discovery source ports to sessions. The registry only ever
// grows: sessions cycle between Listening and Accepted but are never
// removed, forming a hot pool bound to the discovery ports seen so far.
package session

import (
	"fmt"
	"net"
	"sort"
	"sync"
)

// Registry owns the session collection. The multicast relay is the only
// producer (append via Create); the scheduler and the bridge mutate existing
// sessions through their own methods.
type Registry struct {
	mu       sync.RWMutex
	iptvIP   net.IP
	sessions map[int]*Session
}

// NewRegistry creates an empty registry. New sessions bind their sockets to
// iptvIP and the discovery source port.
func NewRegistry(iptvIP net.IP) *Registry {
	return &Registry{
		iptvIP:   iptvIP,
		sessions: make(map[int]*Session),
	}
}

// FindByPort returns the session for a discovery source port.
func (r *Registry) FindByPort(port int) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[port]
	return s, ok
}

// Create binds the IPTV-side UDP and TCP sockets to (iptvIP, port) and
// inserts a new Listening session for the given peer. Creating a port that
// already has a session returns the existing one, so duplicate discovery
// datagrams stay idempotent. The sockets are bound outside the lock; if two
// creators race, the loser releases its sockets and adopts the winner's
// session.
func (r *Registry) Create(port int, peer net.IP) (*Session, error) {
	if existing, ok := r.FindByPort(port); ok {
		return existing, nil
	}

	mc, err := net.ListenUDP("udp4", &net.UDPAddr{IP: r.iptvIP, Port: port})
	if err != nil {
		return nil, fmt.Errorf("bind udp %s:%d: %w", r.iptvIP, port, err)
	}
	ln, err := net.ListenTCP("tcp4", &net.TCPAddr{IP: r.iptvIP, Port: port})
	if err != nil {
		mc.Close()
		return nil, fmt.Errorf("bind tcp %s:%d: %w", r.iptvIP, port, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[port]; ok {
		mc.Close()
		ln.Close()
		return existing, nil
	}
	s := newSession(port, peer, mc, ln)
	r.sessions[port] = s
	return s, nil
}

// All returns the current sessions in unspecified order. The slice is a
// snapshot; iterating it is safe while the relay appends new sessions.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		result = append(result, s)
	}
	return result
}

// Len returns the number of sessions ever created.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns views of all sessions sorted by port.
func (r *Registry) Snapshot() []View {
	sessions := r.All()
	views := make([]View, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, s.Snapshot())
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Port < views[j].Port })
	return views
}
