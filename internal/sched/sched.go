// Package sched drives the gateway: a fixed-period control loop that keeps
// exactly one worker running per active role. The loop is also the sole
// retry mechanism; a worker that ends for any reason is replaced on the
// next tick based on current session state, with no retry counters or
// backoff.
package sched

import (
	"context"
	"log"
	"time"

	"github.com/danneforslund/zappagateway/internal/bridge"
	"github.com/danneforslund/zappagateway/internal/session"
)

// MulticastWorker is the slice of the relay the scheduler drives: a single
// worker slot around a blocking receive-and-forward of one datagram.
type MulticastWorker interface {
	TryStart() bool
	Finish()
	ReceiveOnce() error
}

// Scheduler spawns replacement workers on a fixed tick. Worker termination
// is observed only through the per-role flags the workers clear on exit;
// outcomes never reach the scheduler directly.
type Scheduler struct {
	registry *session.Registry
	relay    MulticastWorker
	bridge   *bridge.Bridge
	tick     time.Duration
}

// New creates a scheduler ticking at the given period.
func New(registry *session.Registry, relay MulticastWorker, b *bridge.Bridge, tick time.Duration) *Scheduler {
	return &Scheduler{
		registry: registry,
		relay:    relay,
		bridge:   b,
		tick:     tick,
	}
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	log.Printf("[sched] started (tick=%s)", s.tick)
	s.Tick()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sched] stopped")
			return nil
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick ensures one outstanding multicast-listen worker, then walks the
// registry and spawns whichever per-session role is eligible and idle:
// accept for Listening sessions, the two pumps for Accepted ones. The
// eligibility gate lives in TryStartWorker, so running a tick while a
// role's worker is still executing spawns nothing.
func (s *Scheduler) Tick() {
	if s.relay.TryStart() {
		go func() {
			defer s.relay.Finish()
			if err := s.relay.ReceiveOnce(); err != nil {
				log.Printf("[relay] %v", err)
			}
		}()
	}

	for _, sess := range s.registry.All() {
		if sess.TryStartWorker(session.RoleAccept) {
			go s.bridge.RunAccept(sess)
		}
		if sess.TryStartWorker(session.RoleForwardToClient) {
			go s.bridge.RunPump(sess, bridge.DeviceToClient)
		}
		if sess.TryStartWorker(session.RoleForwardToDevice) {
			go s.bridge.RunPump(sess, bridge.ClientToDevice)
		}
	}
}
