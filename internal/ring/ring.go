// Package ring implements the fixed-capacity byte ring that accumulates
// partial frames for a single Connection (spec §3, §4.2). A ring is only
// ever touched by the listener goroutine that owns the connection; it
// carries no internal locking, matching the concurrency invariant in
// spec §4.2 ("Put and decode cannot interleave on the same ring").
package ring

import (
	"eventwire/pkg/event"
	"eventwire/pkg/packet"
	"eventwire/pkg/wire"

	"eventwire/pkg/logging"
)

// DefaultCapacity is the recommended minimum capacity from spec §3 (at
// least 64 KiB, to accommodate the largest frame an implementation will
// accept).
const DefaultCapacity = 64 * 1024

// Ring is a fixed-capacity byte accumulator for one connection's incoming
// stream. Unlike the SEDNL original, which loses one byte of capacity to
// distinguish full-from-empty, this ring tracks `used` explicitly, so the
// full advertised capacity is usable.
type Ring struct {
	buf      []byte
	capacity int
	used     int
}

// New allocates a ring of the given capacity.
func New(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{buf: make([]byte, capacity), capacity: capacity}
}

// Used returns the number of bytes currently buffered.
func (r *Ring) Used() int { return r.used }

// Capacity returns the ring's fixed capacity.
func (r *Ring) Capacity() int { return r.capacity }

// Put appends b to the ring. It is all-or-nothing: if the ring cannot
// hold used+len(b) bytes, Put returns false and leaves the ring
// unchanged (spec invariant #5).
func (r *Ring) Put(b []byte) bool {
	if r.used+len(b) > r.capacity {
		return false
	}
	copy(r.buf[r.used:], b)
	r.used += len(b)
	return true
}

// consume drops the first n bytes, shifting the remainder to the front.
func (r *Ring) consume(n int) {
	if n <= 0 {
		return
	}
	copy(r.buf, r.buf[n:r.used])
	r.used -= n
}

// DecodeResult reports the outcome of TryDecode.
type DecodeResult int

const (
	// DecodeNone means no complete frame is available yet.
	DecodeNone DecodeResult = iota
	// DecodeOK means ev holds a freshly decoded event.
	DecodeOK
	// DecodeCorrupt means a malformed frame was found, logged and
	// dropped; the ring has already advanced past it.
	DecodeCorrupt
)

// TryDecode attempts to extract one complete frame from the front of the
// ring. Strict controls whether the decoded packet body is also run
// through packet.IsValid before being surfaced (spec §9 Open Question 1 /
// SPEC_FULL §4's Connection.StrictDecode opt-in); when strict validation
// fails the frame is treated exactly like a corrupt one.
func (r *Ring) TryDecode(strict bool) (ev event.Event, result DecodeResult) {
	if r.used < wire.HeaderLen {
		return event.Event{}, DecodeNone
	}
	frameLen, _ := wire.PeekLen(r.buf[:r.used])
	if frameLen < wire.MinFrameLen {
		// A length this small can never hold a NUL terminator: the frame
		// is corrupt as soon as its header is legible. We can't trust
		// frameLen to tell us how much to skip, so drop just the header
		// and let resync happen on whatever follows.
		logging.Warn("frame_corrupt", "reason", "length_too_small", "len", frameLen)
		r.consume(wire.HeaderLen)
		return event.Event{}, DecodeCorrupt
	}
	if r.used < int(frameLen) {
		return event.Event{}, DecodeNone
	}

	body := r.buf[wire.HeaderLen:frameLen]
	name, packetBytes, ok := wire.SplitBody(body)
	if !ok {
		logging.Warn("frame_corrupt", "reason", "missing_name_terminator", "len", frameLen)
		r.consume(int(frameLen))
		return event.Event{}, DecodeCorrupt
	}
	if name == "" {
		logging.Warn("frame_corrupt", "reason", "empty_name", "len", frameLen)
		r.consume(int(frameLen))
		return event.Event{}, DecodeCorrupt
	}

	pkt := packet.FromBytes(append([]byte(nil), packetBytes...))

	if strict && !pkt.IsValid() {
		logging.Warn("frame_corrupt", "reason", "invalid_packet", "name", name)
		r.consume(int(frameLen))
		return event.Event{}, DecodeCorrupt
	}

	r.consume(int(frameLen))
	return event.Event{Name: name, Packet: pkt}, DecodeOK
}
