package packet

// Field is a single value paired with the writer that knows how to append
// it; Make uses these to build a Packet from a flat argument list the way
// SEDNL's chained operator<< does, without needing Go operator overloads.
type Field struct {
	write func(*Packet) error
}

func Int8Field(v int8) Field     { return Field{func(p *Packet) error { WriteInt8(p, v); return nil }} }
func UInt8Field(v uint8) Field   { return Field{func(p *Packet) error { WriteUInt8(p, v); return nil }} }
func Int16Field(v int16) Field   { return Field{func(p *Packet) error { WriteInt16(p, v); return nil }} }
func UInt16Field(v uint16) Field { return Field{func(p *Packet) error { WriteUInt16(p, v); return nil }} }
func Int32Field(v int32) Field   { return Field{func(p *Packet) error { WriteInt32(p, v); return nil }} }
func UInt32Field(v uint32) Field { return Field{func(p *Packet) error { WriteUInt32(p, v); return nil }} }
func Int64Field(v int64) Field   { return Field{func(p *Packet) error { WriteInt64(p, v); return nil }} }
func UInt64Field(v uint64) Field { return Field{func(p *Packet) error { WriteUInt64(p, v); return nil }} }
func Float32Field(v float32) Field {
	return Field{func(p *Packet) error { WriteFloat32(p, v); return nil }}
}
func Float64Field(v float64) Field {
	return Field{func(p *Packet) error { WriteFloat64(p, v); return nil }}
}
func StringField(v string) Field { return Field{func(p *Packet) error { WriteString(p, v); return nil }} }

func ArrayInt8Field(v []int8) Field {
	return Field{func(p *Packet) error { _, err := WriteArrayInt8(p, v); return err }}
}
func ArrayUInt8Field(v []uint8) Field {
	return Field{func(p *Packet) error { _, err := WriteArrayUInt8(p, v); return err }}
}
func ArrayInt16Field(v []int16) Field {
	return Field{func(p *Packet) error { _, err := WriteArrayInt16(p, v); return err }}
}
func ArrayUInt16Field(v []uint16) Field {
	return Field{func(p *Packet) error { _, err := WriteArrayUInt16(p, v); return err }}
}
func ArrayInt32Field(v []int32) Field {
	return Field{func(p *Packet) error { _, err := WriteArrayInt32(p, v); return err }}
}
func ArrayUInt32Field(v []uint32) Field {
	return Field{func(p *Packet) error { _, err := WriteArrayUInt32(p, v); return err }}
}
func ArrayInt64Field(v []int64) Field {
	return Field{func(p *Packet) error { _, err := WriteArrayInt64(p, v); return err }}
}
func ArrayUInt64Field(v []uint64) Field {
	return Field{func(p *Packet) error { _, err := WriteArrayUInt64(p, v); return err }}
}
func ArrayFloat32Field(v []float32) Field {
	return Field{func(p *Packet) error { _, err := WriteArrayFloat32(p, v); return err }}
}
func ArrayFloat64Field(v []float64) Field {
	return Field{func(p *Packet) error { _, err := WriteArrayFloat64(p, v); return err }}
}

// Make builds a new Packet by writing each field in order, the Go
// equivalent of SEDNL's chained `Packet() << a << b << c`. It stops and
// returns the first error encountered (e.g. ErrArrayTooBig).
func Make(fields ...Field) (*Packet, error) {
	p := New()
	for _, f := range fields {
		if err := f.write(p); err != nil {
			p.Release()
			return nil, err
		}
	}
	return p, nil
}

// Serializable is implemented by user types that want struct-to-packet
// mapping with pre/post hooks (spec §6's "object serialization helper
// with pre/post-serialize hooks", restored from SEDNL's Serializer.hpp).
// BeforeSerialize runs before ToFields is consulted by the caller;
// AfterDeserialize runs after FromReader has populated the receiver.
type Serializable interface {
	BeforeSerialize()
	ToFields() []Field
	FromReader(r *Reader) error
	AfterDeserialize()
}

// MakeObject serializes v as an Object item appended to p: BeforeSerialize
// is invoked, then ToFields()'s fields are written inside a WriteObjectHeader
// framed by their count.
func MakeObject(p *Packet, v Serializable) error {
	v.BeforeSerialize()
	fields := v.ToFields()
	if _, err := WriteObjectHeader(p, len(fields)); err != nil {
		return err
	}
	for _, f := range fields {
		if err := f.write(p); err != nil {
			return err
		}
	}
	return nil
}

// ReadObject reads an Object of exactly v's expected field count (as
// reported by a zero-value ToFields() call is not possible generically,
// so callers pass the expected count) and lets v populate itself via
// FromReader, then runs AfterDeserialize.
func ReadObject(r *Reader, wantFields int, v Serializable) error {
	if err := ReadObjectHeader(r, wantFields); err != nil {
		return err
	}
	if err := v.FromReader(r); err != nil {
		return err
	}
	v.AfterDeserialize()
	return nil
}
