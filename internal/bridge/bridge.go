// Package bridge runs the per-session TCP workers: accepting the IPTV-side
// device connection, dialing the matching LAN-side client connection, and
// pumping bytes in both directions until either side closes.
//
// The relay is byte-transparent: payloads are never inspected, reframed, or
// buffered beyond the fixed read size. Pumps impose no read deadlines, so a
// peer that stalls without closing keeps its pump blocked until the
// connection drops; the scheduler cannot preempt it.
package bridge

import (
	"errors"
	"io"
	"log"
	"net"

	"github.com/danneforslund/zappagateway/internal/session"
)

// Direction identifies one of the two byte pumps of an Accepted session.
type Direction int

const (
	// DeviceToClient pumps bytes from the IPTV-side device to the LAN-side
	// client.
	DeviceToClient Direction = iota
	// ClientToDevice pumps bytes from the LAN-side client to the IPTV-side
	// device.
	ClientToDevice
)

func (d Direction) String() string {
	if d == DeviceToClient {
		return "device->client"
	}
	return "client->device"
}

func (d Direction) role() session.Role {
	if d == DeviceToClient {
		return session.RoleForwardToClient
	}
	return session.RoleForwardToDevice
}

// Bridge holds the relay buffer size shared by all pump workers.
type Bridge struct {
	bufSize int
}

// New returns a bridge whose pumps read up to bufSize bytes per operation.
func New(bufSize int) *Bridge {
	return &Bridge{bufSize: bufSize}
}

// RunAccept is the worker body for a Listening session: it blocks on the
// session's accept socket, then dials back to the client at
// (peer, sourcePort). If the dial fails the just-accepted device connection
// is closed so the next accept starts clean instead of leaking a half-open
// pair. The caller must have acquired RoleAccept; the flag is released on
// return.
func (b *Bridge) RunAccept(s *session.Session) {
	defer s.FinishWorker(session.RoleAccept)

	device, err := s.Listener.Accept()
	if err != nil {
		log.Printf("[bridge] accept port %d: %v", s.Port, err)
		return
	}

	client, err := net.DialTCP("tcp4", nil, &net.TCPAddr{IP: s.Peer, Port: s.Port})
	if err != nil {
		device.Close()
		log.Printf("[bridge] dial %s:%d: %v", s.Peer, s.Port, err)
		return
	}

	if !s.Activate(device, client) {
		device.Close()
		client.Close()
		return
	}
	log.Printf("[bridge] session accepted: port=%d device=%s", s.Port, device.RemoteAddr())
}

// RunPump relays bytes in one direction until EOF or an I/O error, then
// resets the session to Listening. Bytes are written exactly as read, in
// order, with no re-chunking beyond the buffer size. The caller must have
// acquired the direction's role; the flag is released on return.
func (b *Bridge) RunPump(s *session.Session, dir Direction) {
	defer s.FinishWorker(dir.role())

	device, client, ok := s.Conns()
	if !ok {
		return
	}
	src, dst := device, client
	if dir == ClientToDevice {
		src, dst = client, device
	}

	buf := make([]byte, b.bufSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				b.reset(s, device, dir, werr)
				return
			}
			if dir == DeviceToClient {
				s.AddBytesToClient(n)
			} else {
				s.AddBytesToDevice(n)
			}
		}
		if err != nil {
			b.reset(s, device, dir, err)
			return
		}
	}
}

// reset closes both connections and returns the session to Listening. The
// reset is gated on the device connection this pump was started with, which
// collapses concurrent resets from the two pumps into one and makes a stale
// pump's late error harmless after the session has been re-accepted with a
// new connection pair.
func (b *Bridge) reset(s *session.Session, device net.Conn, dir Direction, err error) {
	if !s.DeactivateConn(device) {
		return
	}
	if errors.Is(err, io.EOF) {
		log.Printf("[bridge] session reset: port=%d dir=%s peer closed", s.Port, dir)
		return
	}
	log.Printf("[bridge] session reset: port=%d dir=%s: %v", s.Port, dir, err)
}
