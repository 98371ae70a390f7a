package packet

import (
	"encoding/binary"
	"math"

	"eventwire/pkg/errs"
)

// Reader is a cursor over a Packet's buffer. It never copies the
// underlying bytes; String/array reads return views or freshly built
// slices as noted per method.
type Reader struct {
	data []byte
	pos  int
}

// NewReader returns a cursor positioned at the start of p.
func NewReader(p *Packet) *Reader {
	return &Reader{data: p.Bytes()}
}

// PeekTag returns the tag of the next item without consuming it, or
// ErrEndOfStream if the reader is exhausted.
func (r *Reader) PeekTag() (Tag, error) {
	if r.pos >= len(r.data) {
		return TagUnknown, errs.ErrEndOfStream
	}
	return Tag(r.data[r.pos]), nil
}

// Remaining reports whether the reader has any bytes left.
func (r *Reader) Remaining() bool {
	return r.pos < len(r.data)
}

func (r *Reader) expect(want Tag) error {
	got, err := r.PeekTag()
	if err != nil {
		return err
	}
	if got != want {
		return want.expectedErr()
	}
	r.pos++
	return nil
}

func (r *Reader) need(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, errs.ErrEndOfStream
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func ReadInt8(r *Reader) (int8, error) {
	if err := r.expect(TagInt8); err != nil {
		return 0, err
	}
	b, err := r.need(1)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

// ReadChar accepts either Int8 or UInt8 on the wire (spec §4.1: "a char is
// read/written as Int8 or UInt8, both accepted on read").
func ReadChar(r *Reader) (byte, error) {
	t, err := r.PeekTag()
	if err != nil {
		return 0, err
	}
	if t != TagInt8 && t != TagUInt8 {
		return 0, errs.ErrInt8Expected
	}
	r.pos++
	b, err := r.need(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func ReadUInt8(r *Reader) (uint8, error) {
	if err := r.expect(TagUInt8); err != nil {
		return 0, err
	}
	b, err := r.need(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func ReadInt16(r *Reader) (int16, error) {
	if err := r.expect(TagInt16); err != nil {
		return 0, err
	}
	b, err := r.need(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

func ReadUInt16(r *Reader) (uint16, error) {
	if err := r.expect(TagUInt16); err != nil {
		return 0, err
	}
	b, err := r.need(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func ReadInt32(r *Reader) (int32, error) {
	if err := r.expect(TagInt32); err != nil {
		return 0, err
	}
	b, err := r.need(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func ReadUInt32(r *Reader) (uint32, error) {
	if err := r.expect(TagUInt32); err != nil {
		return 0, err
	}
	b, err := r.need(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func ReadInt64(r *Reader) (int64, error) {
	if err := r.expect(TagInt64); err != nil {
		return 0, err
	}
	b, err := r.need(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func ReadUInt64(r *Reader) (uint64, error) {
	if err := r.expect(TagUInt64); err != nil {
		return 0, err
	}
	b, err := r.need(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func ReadFloat32(r *Reader) (float32, error) {
	if err := r.expect(TagFloat32); err != nil {
		return 0, err
	}
	b, err := r.need(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

func ReadFloat64(r *Reader) (float64, error) {
	if err := r.expect(TagFloat64); err != nil {
		return 0, err
	}
	b, err := r.need(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// ReadString consumes a NUL-terminated string and returns it without the
// terminator.
func ReadString(r *Reader) (string, error) {
	if err := r.expect(TagString); err != nil {
		return "", err
	}
	start := r.pos
	for r.pos < len(r.data) && r.data[r.pos] != 0 {
		r.pos++
	}
	if r.pos >= len(r.data) {
		return "", errs.ErrEndOfStream
	}
	s := string(r.data[start:r.pos])
	r.pos++ // consume NUL
	return s, nil
}

// ReadObjectHeader requires the next tag to be Object and the embedded
// count to equal want (spec: WrongSizedObject otherwise).
func ReadObjectHeader(r *Reader, want int) error {
	if err := r.expect(TagObject); err != nil {
		return err
	}
	b, err := r.need(1)
	if err != nil {
		return err
	}
	if int(b[0]) != want {
		return errs.ErrWrongSizedObject
	}
	return nil
}

func readArrayHeader(r *Reader, want Tag) (int, error) {
	got, err := r.PeekTag()
	if err != nil {
		return 0, err
	}
	if got != want {
		return 0, errs.ErrArrayExpected
	}
	r.pos++
	b, err := r.need(2)
	if err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint16(b)), nil
}

func ReadArrayInt8(r *Reader) ([]int8, error) {
	n, err := readArrayHeader(r, TagArrayInt8)
	if err != nil {
		return nil, err
	}
	b, err := r.need(n)
	if err != nil {
		return nil, err
	}
	out := make([]int8, n)
	for i, v := range b {
		out[i] = int8(v)
	}
	return out, nil
}

func ReadArrayUInt8(r *Reader) ([]uint8, error) {
	n, err := readArrayHeader(r, TagArrayUInt8)
	if err != nil {
		return nil, err
	}
	b, err := r.need(n)
	if err != nil {
		return nil, err
	}
	out := make([]uint8, n)
	copy(out, b)
	return out, nil
}

func ReadArrayInt16(r *Reader) ([]int16, error) {
	n, err := readArrayHeader(r, TagArrayInt16)
	if err != nil {
		return nil, err
	}
	b, err := r.need(n * 2)
	if err != nil {
		return nil, err
	}
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(binary.BigEndian.Uint16(b[i*2:]))
	}
	return out, nil
}

func ReadArrayUInt16(r *Reader) ([]uint16, error) {
	n, err := readArrayHeader(r, TagArrayUInt16)
	if err != nil {
		return nil, err
	}
	b, err := r.need(n * 2)
	if err != nil {
		return nil, err
	}
	out := make([]uint16, n)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(b[i*2:])
	}
	return out, nil
}

func ReadArrayInt32(r *Reader) ([]int32, error) {
	n, err := readArrayHeader(r, TagArrayInt32)
	if err != nil {
		return nil, err
	}
	b, err := r.need(n * 4)
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(binary.BigEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

func ReadArrayUInt32(r *Reader) ([]uint32, error) {
	n, err := readArrayHeader(r, TagArrayUInt32)
	if err != nil {
		return nil, err
	}
	b, err := r.need(n * 4)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.BigEndian.Uint32(b[i*4:])
	}
	return out, nil
}

func ReadArrayInt64(r *Reader) ([]int64, error) {
	n, err := readArrayHeader(r, TagArrayInt64)
	if err != nil {
		return nil, err
	}
	b, err := r.need(n * 8)
	if err != nil {
		return nil, err
	}
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(binary.BigEndian.Uint64(b[i*8:]))
	}
	return out, nil
}

func ReadArrayUInt64(r *Reader) ([]uint64, error) {
	n, err := readArrayHeader(r, TagArrayUInt64)
	if err != nil {
		return nil, err
	}
	b, err := r.need(n * 8)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.BigEndian.Uint64(b[i*8:])
	}
	return out, nil
}

func ReadArrayFloat32(r *Reader) ([]float32, error) {
	n, err := readArrayHeader(r, TagArrayFloat32)
	if err != nil {
		return nil, err
	}
	b, err := r.need(n * 4)
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.BigEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

func ReadArrayFloat64(r *Reader) ([]float64, error) {
	n, err := readArrayHeader(r, TagArrayFloat64)
	if err != nil {
		return nil, err
	}
	b, err := r.need(n * 8)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.BigEndian.Uint64(b[i*8:]))
	}
	return out, nil
}
