package packet

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/valyala/bytebufferpool"

	"eventwire/pkg/errs"
)

const (
	// MaxArrayLen is the largest element count write_array will accept
	// (an ArrayT header carries a 2-byte big-endian length).
	MaxArrayLen = 65535
	// MaxObjectLen is the largest field count write_object will accept
	// (an Object header carries a 1-byte length).
	MaxObjectLen = 255
)

// Packet is an ordered sequence of (Tag, Value) items backed by one byte
// buffer. The zero value is an empty, valid packet. A Packet obtained from
// New() is bytebufferpool-backed and should be returned with Release()
// once it is no longer needed (e.g. after the frame it was copied into has
// been written), mirroring pkg/ingest/queue's pooled Item discipline.
type Packet struct {
	buf *bytebufferpool.ByteBuffer
	// owned is false for packets built directly over caller-provided
	// bytes (e.g. a frame body sliced out of a ring buffer); Release is
	// then a no-op since there is nothing to return to the pool.
	owned bool
}

// New returns an empty Packet backed by a pooled buffer.
func New() *Packet {
	return &Packet{buf: bytebufferpool.Get(), owned: true}
}

// FromBytes wraps an existing byte slice as a read-only Packet. The slice
// is not copied; callers must not mutate it while the Packet is in use.
// This is how the frame decoder hands a packet body to a consumer without
// an extra copy beyond the one already made when the frame left the ring.
func FromBytes(b []byte) *Packet {
	bb := &bytebufferpool.ByteBuffer{B: b}
	return &Packet{buf: bb, owned: false}
}

// Release returns the backing buffer to the pool. Safe to call multiple
// times; a no-op on non-owned packets.
func (p *Packet) Release() {
	if p.owned && p.buf != nil {
		bytebufferpool.Put(p.buf)
		p.buf = nil
		p.owned = false
	}
}

// Bytes returns the packet's internal buffer. Do not retain beyond the
// packet's lifetime.
func (p *Packet) Bytes() []byte {
	if p.buf == nil {
		return nil
	}
	return p.buf.B
}

// Len returns the number of bytes in the packet's buffer.
func (p *Packet) Len() int {
	if p.buf == nil {
		return 0
	}
	return len(p.buf.B)
}

// NetworkLength returns the u16 frame length a caller would use to hand-roll
// a frame without the listener: 2 (length field) + 1 (NUL) + len(name) +
// len(packet bytes). Mirrors SEDNL's Packet::get_network_length.
func (p *Packet) NetworkLength(name string) uint16 {
	return uint16(2 + len(name) + 1 + p.Len())
}

func (p *Packet) ensure() {
	if p.buf == nil {
		p.buf = bytebufferpool.Get()
		p.owned = true
	}
}

func (p *Packet) appendTag(t Tag) {
	p.ensure()
	p.buf.B = append(p.buf.B, byte(t))
}

// --- scalar writers -------------------------------------------------

func WriteInt8(p *Packet, v int8) *Packet {
	p.appendTag(TagInt8)
	p.buf.B = append(p.buf.B, byte(v))
	return p
}

func WriteUInt8(p *Packet, v uint8) *Packet {
	p.appendTag(TagUInt8)
	p.buf.B = append(p.buf.B, v)
	return p
}

func WriteInt16(p *Packet, v int16) *Packet {
	p.appendTag(TagInt16)
	p.buf.B = binary.BigEndian.AppendUint16(p.buf.B, uint16(v))
	return p
}

func WriteUInt16(p *Packet, v uint16) *Packet {
	p.appendTag(TagUInt16)
	p.buf.B = binary.BigEndian.AppendUint16(p.buf.B, v)
	return p
}

func WriteInt32(p *Packet, v int32) *Packet {
	p.appendTag(TagInt32)
	p.buf.B = binary.BigEndian.AppendUint32(p.buf.B, uint32(v))
	return p
}

func WriteUInt32(p *Packet, v uint32) *Packet {
	p.appendTag(TagUInt32)
	p.buf.B = binary.BigEndian.AppendUint32(p.buf.B, v)
	return p
}

func WriteInt64(p *Packet, v int64) *Packet {
	p.appendTag(TagInt64)
	p.buf.B = binary.BigEndian.AppendUint64(p.buf.B, uint64(v))
	return p
}

func WriteUInt64(p *Packet, v uint64) *Packet {
	p.appendTag(TagUInt64)
	p.buf.B = binary.BigEndian.AppendUint64(p.buf.B, v)
	return p
}

func WriteFloat32(p *Packet, v float32) *Packet {
	p.appendTag(TagFloat32)
	p.buf.B = binary.BigEndian.AppendUint32(p.buf.B, math.Float32bits(v))
	return p
}

func WriteFloat64(p *Packet, v float64) *Packet {
	p.appendTag(TagFloat64)
	p.buf.B = binary.BigEndian.AppendUint64(p.buf.B, math.Float64bits(v))
	return p
}

// WriteString appends a NUL-terminated string. s must not itself contain a
// NUL byte; callers constructing names/strings from untrusted bytes should
// validate that separately.
func WriteString(p *Packet, s string) *Packet {
	p.appendTag(TagString)
	p.buf.B = append(p.buf.B, s...)
	p.buf.B = append(p.buf.B, 0)
	return p
}

// --- arrays -----------------------------------------------------------

// WriteArrayInt8 and friends append Tag(ArrayT) ‖ u16-be(len) ‖ values,
// without a per-element tag. Fails ErrArrayTooBig when len(seq) > MaxArrayLen.

func WriteArrayInt8(p *Packet, seq []int8) (*Packet, error) {
	if len(seq) > MaxArrayLen {
		return p, errs.ErrArrayTooBig
	}
	p.appendTag(TagArrayInt8)
	p.buf.B = binary.BigEndian.AppendUint16(p.buf.B, uint16(len(seq)))
	for _, v := range seq {
		p.buf.B = append(p.buf.B, byte(v))
	}
	return p, nil
}

func WriteArrayUInt8(p *Packet, seq []uint8) (*Packet, error) {
	if len(seq) > MaxArrayLen {
		return p, errs.ErrArrayTooBig
	}
	p.appendTag(TagArrayUInt8)
	p.buf.B = binary.BigEndian.AppendUint16(p.buf.B, uint16(len(seq)))
	p.buf.B = append(p.buf.B, seq...)
	return p, nil
}

func WriteArrayInt16(p *Packet, seq []int16) (*Packet, error) {
	if len(seq) > MaxArrayLen {
		return p, errs.ErrArrayTooBig
	}
	p.appendTag(TagArrayInt16)
	p.buf.B = binary.BigEndian.AppendUint16(p.buf.B, uint16(len(seq)))
	for _, v := range seq {
		p.buf.B = binary.BigEndian.AppendUint16(p.buf.B, uint16(v))
	}
	return p, nil
}

func WriteArrayUInt16(p *Packet, seq []uint16) (*Packet, error) {
	if len(seq) > MaxArrayLen {
		return p, errs.ErrArrayTooBig
	}
	p.appendTag(TagArrayUInt16)
	p.buf.B = binary.BigEndian.AppendUint16(p.buf.B, uint16(len(seq)))
	for _, v := range seq {
		p.buf.B = binary.BigEndian.AppendUint16(p.buf.B, v)
	}
	return p, nil
}

func WriteArrayInt32(p *Packet, seq []int32) (*Packet, error) {
	if len(seq) > MaxArrayLen {
		return p, errs.ErrArrayTooBig
	}
	p.appendTag(TagArrayInt32)
	p.buf.B = binary.BigEndian.AppendUint16(p.buf.B, uint16(len(seq)))
	for _, v := range seq {
		p.buf.B = binary.BigEndian.AppendUint32(p.buf.B, uint32(v))
	}
	return p, nil
}

func WriteArrayUInt32(p *Packet, seq []uint32) (*Packet, error) {
	if len(seq) > MaxArrayLen {
		return p, errs.ErrArrayTooBig
	}
	p.appendTag(TagArrayUInt32)
	p.buf.B = binary.BigEndian.AppendUint16(p.buf.B, uint16(len(seq)))
	for _, v := range seq {
		p.buf.B = binary.BigEndian.AppendUint32(p.buf.B, v)
	}
	return p, nil
}

func WriteArrayInt64(p *Packet, seq []int64) (*Packet, error) {
	if len(seq) > MaxArrayLen {
		return p, errs.ErrArrayTooBig
	}
	p.appendTag(TagArrayInt64)
	p.buf.B = binary.BigEndian.AppendUint16(p.buf.B, uint16(len(seq)))
	for _, v := range seq {
		p.buf.B = binary.BigEndian.AppendUint64(p.buf.B, uint64(v))
	}
	return p, nil
}

func WriteArrayUInt64(p *Packet, seq []uint64) (*Packet, error) {
	if len(seq) > MaxArrayLen {
		return p, errs.ErrArrayTooBig
	}
	p.appendTag(TagArrayUInt64)
	p.buf.B = binary.BigEndian.AppendUint16(p.buf.B, uint16(len(seq)))
	for _, v := range seq {
		p.buf.B = binary.BigEndian.AppendUint64(p.buf.B, v)
	}
	return p, nil
}

func WriteArrayFloat32(p *Packet, seq []float32) (*Packet, error) {
	if len(seq) > MaxArrayLen {
		return p, errs.ErrArrayTooBig
	}
	p.appendTag(TagArrayFloat32)
	p.buf.B = binary.BigEndian.AppendUint16(p.buf.B, uint16(len(seq)))
	for _, v := range seq {
		p.buf.B = binary.BigEndian.AppendUint32(p.buf.B, math.Float32bits(v))
	}
	return p, nil
}

func WriteArrayFloat64(p *Packet, seq []float64) (*Packet, error) {
	if len(seq) > MaxArrayLen {
		return p, errs.ErrArrayTooBig
	}
	p.appendTag(TagArrayFloat64)
	p.buf.B = binary.BigEndian.AppendUint16(p.buf.B, uint16(len(seq)))
	for _, v := range seq {
		p.buf.B = binary.BigEndian.AppendUint64(p.buf.B, math.Float64bits(v))
	}
	return p, nil
}

// --- objects ------------------------------------------------------------

// WriteObjectHeader appends Tag(Object) ‖ u8(n). Callers then append
// exactly n items with the normal Write* calls. n must be in [1, 255].
func WriteObjectHeader(p *Packet, n int) (*Packet, error) {
	if n <= 0 {
		return p, errs.ErrEmptyObject
	}
	if n > MaxObjectLen {
		return p, errs.ErrObjectTooLarge
	}
	p.appendTag(TagObject)
	p.buf.B = append(p.buf.B, byte(n))
	return p, nil
}

// IsValid walks the buffer, verifying every tag is known and that item
// sizes exactly tile the buffer (spec invariant #3).
func (p *Packet) IsValid() bool {
	return validSlice(p.Bytes())
}

func validSlice(data []byte) bool {
	i := 0
	n := len(data)
	for i < n {
		t := Tag(data[i])
		i++
		if size, ok := scalarSize(t); ok {
			i += size
			continue
		}
		switch {
		case t == TagString:
			start := i
			for i < n && data[i] != 0 {
				i++
			}
			if i == n {
				return false
			}
			_ = start
			i++ // consume the NUL
		case t == TagObject:
			if i >= n {
				return false
			}
			count := int(data[i])
			i++
			if count < 1 || count > MaxObjectLen {
				return false
			}
			// Recursively validate exactly `count` sub-items by walking
			// them in place; reuse this same loop by slicing.
			consumed, ok := validItems(data[i:], count)
			if !ok {
				return false
			}
			i += consumed
		case isArrayTag(t):
			elemSize, _ := arrayElemSize(t)
			if i+2 > n {
				return false
			}
			length := int(binary.BigEndian.Uint16(data[i : i+2]))
			i += 2
			need := length * elemSize
			if i+need > n {
				return false
			}
			i += need
		default:
			return false
		}
	}
	return i == n
}

// validItems walks exactly `count` items starting at data[0] and returns
// how many bytes were consumed, or ok=false if the buffer runs out or an
// item is malformed before count items are seen.
func validItems(data []byte, count int) (int, bool) {
	i := 0
	n := len(data)
	for k := 0; k < count; k++ {
		if i >= n {
			return i, false
		}
		t := Tag(data[i])
		i++
		if size, ok := scalarSize(t); ok {
			if i+size > n {
				return i, false
			}
			i += size
			continue
		}
		switch {
		case t == TagString:
			for i < n && data[i] != 0 {
				i++
			}
			if i == n {
				return i, false
			}
			i++
		case t == TagObject:
			if i >= n {
				return i, false
			}
			sub := int(data[i])
			i++
			if sub < 1 || sub > MaxObjectLen {
				return i, false
			}
			consumed, ok := validItems(data[i:], sub)
			if !ok {
				return i, false
			}
			i += consumed
		case isArrayTag(t):
			elemSize, _ := arrayElemSize(t)
			if i+2 > n {
				return i, false
			}
			length := int(binary.BigEndian.Uint16(data[i : i+2]))
			i += 2
			need := length * elemSize
			if i+need > n {
				return i, false
			}
			i += need
		default:
			return i, false
		}
	}
	return i, true
}

// Clone returns a deep, owned copy of the packet, backed by a pooled
// buffer, for a packet that must outlive the bytes it wraps.
func (p *Packet) Clone() *Packet {
	np := New()
	np.buf.B = append(np.buf.B[:0], p.Bytes()...)
	return np
}

func (t Tag) expectedErr() error {
	switch t {
	case TagInt8:
		return errs.ErrInt8Expected
	case TagInt16:
		return errs.ErrInt16Expected
	case TagInt32:
		return errs.ErrInt32Expected
	case TagInt64:
		return errs.ErrInt64Expected
	case TagUInt8:
		return errs.ErrUInt8Expected
	case TagUInt16:
		return errs.ErrUInt16Expected
	case TagUInt32:
		return errs.ErrUInt32Expected
	case TagUInt64:
		return errs.ErrUInt64Expected
	case TagFloat32:
		return errs.ErrFloat32Expected
	case TagFloat64:
		return errs.ErrFloat64Expected
	case TagString:
		return errs.ErrStringExpected
	case TagObject:
		return errs.ErrObjectExpected
	default:
		return fmt.Errorf("%w: %s", errs.ErrUnknownTag, t)
	}
}
