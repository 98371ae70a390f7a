package packet

import "testing"

func TestScalarRoundTrip(t *testing.T) {
	p := New()
	defer p.Release()

	WriteString(p, "Hello")
	WriteInt8(p, 42)
	WriteInt16(p, 2)
	WriteInt32(p, 3)
	WriteInt64(p, 4)
	WriteUInt8(p, 42)
	WriteUInt16(p, 2)
	WriteUInt32(p, 3)
	WriteUInt64(p, 4)
	WriteFloat32(p, 42.0)
	WriteFloat64(p, 3.14)

	if !p.IsValid() {
		t.Fatalf("packet should be valid")
	}

	r := NewReader(p)

	if s, err := ReadString(r); err != nil || s != "Hello" {
		t.Fatalf("string: got %q, %v", s, err)
	}
	if v, err := ReadInt8(r); err != nil || v != 42 {
		t.Fatalf("int8: got %d, %v", v, err)
	}
	if v, err := ReadInt16(r); err != nil || v != 2 {
		t.Fatalf("int16: got %d, %v", v, err)
	}
	if v, err := ReadInt32(r); err != nil || v != 3 {
		t.Fatalf("int32: got %d, %v", v, err)
	}
	if v, err := ReadInt64(r); err != nil || v != 4 {
		t.Fatalf("int64: got %d, %v", v, err)
	}
	if v, err := ReadUInt8(r); err != nil || v != 42 {
		t.Fatalf("uint8: got %d, %v", v, err)
	}
	if v, err := ReadUInt16(r); err != nil || v != 2 {
		t.Fatalf("uint16: got %d, %v", v, err)
	}
	if v, err := ReadUInt32(r); err != nil || v != 3 {
		t.Fatalf("uint32: got %d, %v", v, err)
	}
	if v, err := ReadUInt64(r); err != nil || v != 4 {
		t.Fatalf("uint64: got %d, %v", v, err)
	}
	if v, err := ReadFloat32(r); err != nil || v != 42.0 {
		t.Fatalf("float32: got %v, %v", v, err)
	}
	if v, err := ReadFloat64(r); err != nil || v != 3.14 {
		t.Fatalf("float64: got %v, %v", v, err)
	}
	if r.Remaining() {
		t.Fatalf("reader should be exhausted")
	}
}

func TestArrayRoundTrip(t *testing.T) {
	p := New()
	defer p.Release()

	in8 := []int8{1, 2}
	u8 := []uint8{1, 2}
	in16 := []int16{1, 2}
	u16 := []uint16{1, 2}
	in32 := []int32{1, 2}
	u32 := []uint32{1, 2}
	in64 := []int64{1, 2}
	u64 := []uint64{1, 2}
	f32 := []float32{1, 2}
	f64 := []float64{1, 2}

	if _, err := WriteArrayInt8(p, in8); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteArrayUInt8(p, u8); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteArrayInt16(p, in16); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteArrayUInt16(p, u16); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteArrayInt32(p, in32); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteArrayUInt32(p, u32); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteArrayInt64(p, in64); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteArrayUInt64(p, u64); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteArrayFloat32(p, f32); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteArrayFloat64(p, f64); err != nil {
		t.Fatal(err)
	}

	if !p.IsValid() {
		t.Fatalf("packet should be valid")
	}

	r := NewReader(p)
	if got, err := ReadArrayInt8(r); err != nil || len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("int8 array: %v %v", got, err)
	}
	if got, err := ReadArrayUInt8(r); err != nil || len(got) != 2 {
		t.Fatalf("uint8 array: %v %v", got, err)
	}
	if got, err := ReadArrayInt16(r); err != nil || len(got) != 2 {
		t.Fatalf("int16 array: %v %v", got, err)
	}
	if got, err := ReadArrayUInt16(r); err != nil || len(got) != 2 {
		t.Fatalf("uint16 array: %v %v", got, err)
	}
	if got, err := ReadArrayInt32(r); err != nil || len(got) != 2 {
		t.Fatalf("int32 array: %v %v", got, err)
	}
	if got, err := ReadArrayUInt32(r); err != nil || len(got) != 2 {
		t.Fatalf("uint32 array: %v %v", got, err)
	}
	if got, err := ReadArrayInt64(r); err != nil || len(got) != 2 {
		t.Fatalf("int64 array: %v %v", got, err)
	}
	if got, err := ReadArrayUInt64(r); err != nil || len(got) != 2 {
		t.Fatalf("uint64 array: %v %v", got, err)
	}
	if got, err := ReadArrayFloat32(r); err != nil || len(got) != 2 {
		t.Fatalf("float32 array: %v %v", got, err)
	}
	if got, err := ReadArrayFloat64(r); err != nil || len(got) != 2 {
		t.Fatalf("float64 array: %v %v", got, err)
	}
}

func TestArrayTooBig(t *testing.T) {
	p := New()
	defer p.Release()
	big := make([]uint8, MaxArrayLen+1)
	if _, err := WriteArrayUInt8(p, big); err == nil {
		t.Fatalf("expected ErrArrayTooBig")
	}
}

func TestObjectRoundTrip(t *testing.T) {
	p := New()
	defer p.Release()

	if _, err := WriteObjectHeader(p, 2); err != nil {
		t.Fatal(err)
	}
	WriteString(p, "inner")
	WriteInt32(p, 7)

	if !p.IsValid() {
		t.Fatalf("object packet should be valid")
	}

	r := NewReader(p)
	if err := ReadObjectHeader(r, 2); err != nil {
		t.Fatal(err)
	}
	if s, err := ReadString(r); err != nil || s != "inner" {
		t.Fatalf("object field 1: %q %v", s, err)
	}
	if v, err := ReadInt32(r); err != nil || v != 7 {
		t.Fatalf("object field 2: %d %v", v, err)
	}
}

func TestObjectWrongSize(t *testing.T) {
	p := New()
	defer p.Release()
	if _, err := WriteObjectHeader(p, 1); err != nil {
		t.Fatal(err)
	}
	WriteInt8(p, 1)

	r := NewReader(p)
	if err := ReadObjectHeader(r, 2); err == nil {
		t.Fatalf("expected WrongSizedObject")
	}
}

func TestEmptyObjectRejected(t *testing.T) {
	p := New()
	defer p.Release()
	if _, err := WriteObjectHeader(p, 0); err == nil {
		t.Fatalf("expected ErrEmptyObject")
	}
}

func TestValidityDetectsUnknownTag(t *testing.T) {
	p := New()
	defer p.Release()
	WriteString(p, "hi")
	WriteInt32(p, 3)
	WriteFloat64(p, 3.14)

	if !p.IsValid() {
		t.Fatalf("packet should start valid")
	}

	// The last item is a Float64: 1 tag byte + 8 value bytes. Clobber its
	// tag byte with a value that isn't a defined tag.
	b := p.Bytes()
	b[len(b)-9] = 0x7f
	if validSlice(b) {
		t.Fatalf("mutated buffer should be invalid")
	}
}

func TestChainedWriteMatchesMake(t *testing.T) {
	chained := New()
	defer chained.Release()
	WriteString(chained, "world")
	WriteInt32(chained, 42)

	made, err := Make(StringField("world"), Int32Field(42))
	if err != nil {
		t.Fatal(err)
	}
	defer made.Release()

	if string(chained.Bytes()) != string(made.Bytes()) {
		t.Fatalf("Make output should match chained writes")
	}
}
