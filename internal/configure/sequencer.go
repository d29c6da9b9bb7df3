// Package configure assigns monotonic serials to outgoing configures,
// tracks which serial a client has most recently acked, and enforces the
// per-configure timeout. Role-level commit/lifecycle logic lives in
// package surface, which holds one Sequencer per configurable surface.
package configure

import (
	"time"

	"github.com/axiomwm/axiom/internal/axiomerr"
	"github.com/axiomwm/axiom/internal/geom"
	"github.com/axiomwm/axiom/internal/ids"
)

// States is an opaque bitmask of toplevel/layer-surface states attached to
// a configure (maximized, fullscreen, activated, ...). The Sequencer never
// interprets the bits; package surface defines the named constants.
type States uint32

// Configure is one proposed size/state pair sent to a client.
type Configure struct {
	Serial        uint32
	Size          geom.Size
	States        States
	TimestampSent time.Time
	Deadline      time.Time
}

// SerialSource hands out globally monotonic serials across every surface:
// no two configures anywhere in the compositor ever share a serial, and
// ordering that serial alone imposes is enough to detect stale acks.
type SerialSource struct {
	next uint32
}

func (s *SerialSource) next1() uint32 {
	s.next++
	return s.next
}

// Sequencer tracks the in-flight and most recently acked configure for a
// single surface. One Sequencer exists per toplevel/popup/layer-surface.
type Sequencer struct {
	surface ids.SurfaceID
	serials *SerialSource
	timeout time.Duration

	inFlight   []Configure // queued oldest-first; ack consumes the matching serial and everything older
	lastAcked  uint32
	hasAcked   bool
	lastSentAt time.Time
}

// NewSequencer constructs a Sequencer for a surface. serials must be
// shared across every surface in the compositor so that serials stay
// globally monotonic; callers typically hold one SerialSource in the
// owning Manager and pass it to every Sequencer they create.
func NewSequencer(surf ids.SurfaceID, serials *SerialSource, timeout time.Duration) *Sequencer {
	return &Sequencer{surface: surf, serials: serials, timeout: timeout}
}

// NewSerialSource constructs the shared serial counter; exactly one
// instance should exist per compositor.
func NewSerialSource() *SerialSource { return &SerialSource{} }

// SendConfigure assigns a fresh serial, records the deadline, and queues
// the configure. Returns the assigned Configure.
func (s *Sequencer) SendConfigure(now time.Time, size geom.Size, states States) Configure {
	c := Configure{
		Serial:        s.serials.next1(),
		Size:          size,
		States:        states,
		TimestampSent: now,
		Deadline:      now.Add(s.timeout),
	}
	s.inFlight = append(s.inFlight, c)
	s.lastSentAt = now
	return c
}

// AckConfigure validates and applies a client's ack. If the client acks a
// non-latest serial, only that serial's geometry takes effect; older
// pending configures (sent before it) are discarded, and configures sent
// after it remain pending. A serial the sequencer never sent is a
// protocol violation.
func (s *Sequencer) AckConfigure(serial uint32) (Configure, error) {
	idx := -1
	for i, c := range s.inFlight {
		if c.Serial == serial {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Configure{}, axiomerr.New(axiomerr.ProtocolViolation, 0, s.surface, "ack of unknown or already-consumed serial")
	}
	acked := s.inFlight[idx]
	// Drop the acked configure and everything sent before it; keep
	// anything sent after it, since it may still be awaiting its own ack.
	s.inFlight = append([]Configure{}, s.inFlight[idx+1:]...)
	s.lastAcked = acked.Serial
	s.hasAcked = true
	return acked, nil
}

// LastAcked returns the most recently acked configure's serial, and
// whether any ack has ever been received.
func (s *Sequencer) LastAcked() (uint32, bool) {
	return s.lastAcked, s.hasAcked
}

// Pending reports whether any configure is awaiting an ack.
func (s *Sequencer) Pending() bool {
	return len(s.inFlight) > 0
}

// Oldest returns the earliest unacked configure, used for timeout checks.
func (s *Sequencer) Oldest() (Configure, bool) {
	if len(s.inFlight) == 0 {
		return Configure{}, false
	}
	return s.inFlight[0], true
}

// Expired reports whether the oldest unacked configure's deadline has
// passed as of now. Spec.md §4.2 "Timeout": the scheduler must observe
// this on its very next tick and force-unmap the surface.
func (s *Sequencer) Expired(now time.Time) bool {
	c, ok := s.Oldest()
	if !ok {
		return false
	}
	return now.After(c.Deadline)
}

// Reset clears in-flight state, e.g. when a surface is force-unmapped or
// destroyed.
func (s *Sequencer) Reset() {
	s.inFlight = nil
	s.hasAcked = false
	s.lastAcked = 0
}
