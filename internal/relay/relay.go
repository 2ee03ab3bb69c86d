// Package relay owns the LAN-side multicast listener and re-originates
// discovery datagrams on the IPTV segment. Each datagram is forwarded
// byte-identical from an IPTV-side socket bound to the datagram's source
// port, so the device sees the discovery as if the client lived on its
// own segment.
package relay

import (
	"fmt"
	"log"
	"net"
	"sync/atomic"

	"golang.org/x/net/ipv4"

	"github.com/danneforslund/zappagateway/internal/session"
)

const (
	// GroupAddr is the fixed discovery multicast group.
	GroupAddr = "239.16.16.195"
	// GroupPort is the fixed discovery UDP port.
	GroupPort = 5555
)

// Relay joins the discovery group on the LAN interface and forwards each
// received datagram through the matching session's IPTV-side socket.
type Relay struct {
	registry    *session.Registry
	conn        *net.UDPConn
	pconn       *ipv4.PacketConn
	forwardAddr *net.UDPAddr
	bufSize     int
	running     atomic.Bool
}

// New binds the discovery port, joins the multicast group on the interface
// owning lanIP, and returns a relay forwarding toward the group on the IPTV
// segment. A join failure here is fatal to the caller; the relay never
// rebinds.
func New(lanIP net.IP, registry *session.Registry, bufSize int) (*Relay, error) {
	ifi, err := multicastInterface(lanIP)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: GroupPort})
	if err != nil {
		return nil, fmt.Errorf("bind discovery port %d: %w", GroupPort, err)
	}

	group := net.ParseIP(GroupAddr)
	pconn := ipv4.NewPacketConn(conn)
	if err := pconn.JoinGroup(ifi, &net.UDPAddr{IP: group}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("join %s on %s: %w", GroupAddr, ifi.Name, err)
	}
	log.Printf("[relay] joined %s:%d on %s", GroupAddr, GroupPort, ifi.Name)

	return &Relay{
		registry:    registry,
		conn:        conn,
		pconn:       pconn,
		forwardAddr: &net.UDPAddr{IP: group, Port: GroupPort},
		bufSize:     bufSize,
	}, nil
}

// TryStart acquires the single multicast-listen worker slot. The worker
// must call Finish when it terminates.
func (r *Relay) TryStart() bool {
	return r.running.CompareAndSwap(false, true)
}

// Finish releases the multicast-listen worker slot.
func (r *Relay) Finish() {
	r.running.Store(false)
}

// ReceiveOnce blocks for a single discovery datagram, resolves or creates
// the session for its source port, and re-emits the payload on the IPTV
// side. Errors are not fatal: the worker ends and the scheduler spawns a
// replacement on the next tick.
func (r *Relay) ReceiveOnce() error {
	buf := make([]byte, r.bufSize)
	n, _, src, err := r.pconn.ReadFrom(buf)
	if err != nil {
		return fmt.Errorf("multicast read: %w", err)
	}
	udp, ok := src.(*net.UDPAddr)
	if !ok {
		return fmt.Errorf("multicast read: unexpected source address %v", src)
	}
	return r.forward(buf[:n], udp)
}

// forward looks up the session for the datagram's source port, creating and
// registering one on first sight, then sends the unmodified payload to the
// discovery group from the session's IPTV-side socket.
func (r *Relay) forward(payload []byte, src *net.UDPAddr) error {
	s, ok := r.registry.FindByPort(src.Port)
	if !ok {
		var err error
		s, err = r.registry.Create(src.Port, src.IP)
		if err != nil {
			return fmt.Errorf("create session for %s: %w", src, err)
		}
		log.Printf("[relay] new session: port=%d peer=%s", src.Port, src.IP)
	}
	if _, err := s.MulticastConn.WriteToUDP(payload, r.forwardAddr); err != nil {
		return fmt.Errorf("forward %d bytes for port %d: %w", len(payload), src.Port, err)
	}
	return nil
}

// Close releases the LAN-side discovery socket.
func (r *Relay) Close() error {
	return r.conn.Close()
}

// multicastInterface returns the up, multicast-capable, non-loopback
// interface that owns ip.
func multicastInterface(ip net.IP) (*net.Interface, error) {
	ifs, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	const want = net.FlagUp | net.FlagMulticast
	for i := range ifs {
		ifi := &ifs[i]
		if ifi.Flags&want != want || ifi.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if ok && ipNet.IP.Equal(ip) {
				return ifi, nil
			}
		}
	}
	return nil, fmt.Errorf("no multicast interface with address %s", ip)
}
