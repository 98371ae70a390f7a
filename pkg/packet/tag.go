// Package packet implements the self-describing tagged binary codec used
// both on the wire and for user-visible event payloads.
package packet

// Tag identifies the low-level binary representation of a value stored in
// a Packet. Values match the wire protocol exactly (spec §6); they are not
// an internal implementation detail and must never be renumbered.
type Tag byte

const (
	TagUnknown Tag = 0x00

	TagInt8  Tag = 0x01
	TagInt16 Tag = 0x02
	TagInt32 Tag = 0x03
	TagInt64 Tag = 0x04

	TagUInt8  Tag = 0x05
	TagUInt16 Tag = 0x06
	TagUInt32 Tag = 0x07
	TagUInt64 Tag = 0x08

	TagFloat32 Tag = 0x10
	TagFloat64 Tag = 0x11

	TagString Tag = 0x20
	TagObject Tag = 0x40

	TagArrayInt8    Tag = 0x81
	TagArrayInt16   Tag = 0x82
	TagArrayInt32   Tag = 0x83
	TagArrayInt64   Tag = 0x84
	TagArrayUInt8   Tag = 0x85
	TagArrayUInt16  Tag = 0x86
	TagArrayUInt32  Tag = 0x87
	TagArrayUInt64  Tag = 0x88
	TagArrayFloat32 Tag = 0x90
	TagArrayFloat64 Tag = 0x91
)

// String renders a tag for logging and error messages.
func (t Tag) String() string {
	switch t {
	case TagUnknown:
		return "Unknown"
	case TagInt8:
		return "Int8"
	case TagInt16:
		return "Int16"
	case TagInt32:
		return "Int32"
	case TagInt64:
		return "Int64"
	case TagUInt8:
		return "UInt8"
	case TagUInt16:
		return "UInt16"
	case TagUInt32:
		return "UInt32"
	case TagUInt64:
		return "UInt64"
	case TagFloat32:
		return "Float32"
	case TagFloat64:
		return "Float64"
	case TagString:
		return "String"
	case TagObject:
		return "Object"
	case TagArrayInt8:
		return "ArrayInt8"
	case TagArrayInt16:
		return "ArrayInt16"
	case TagArrayInt32:
		return "ArrayInt32"
	case TagArrayInt64:
		return "ArrayInt64"
	case TagArrayUInt8:
		return "ArrayUInt8"
	case TagArrayUInt16:
		return "ArrayUInt16"
	case TagArrayUInt32:
		return "ArrayUInt32"
	case TagArrayUInt64:
		return "ArrayUInt64"
	case TagArrayFloat32:
		return "ArrayFloat32"
	case TagArrayFloat64:
		return "ArrayFloat64"
	default:
		return "Invalid"
	}
}

// scalarSize returns the fixed wire size of a scalar tag's value, or 0 if
// the tag isn't a fixed-size scalar (String/Object/Array all need special
// handling).
func scalarSize(t Tag) (int, bool) {
	switch t {
	case TagInt8, TagUInt8:
		return 1, true
	case TagInt16, TagUInt16:
		return 2, true
	case TagInt32, TagUInt32, TagFloat32:
		return 4, true
	case TagInt64, TagUInt64, TagFloat64:
		return 8, true
	default:
		return 0, false
	}
}

// arrayElemSize returns the per-element size for an ArrayT tag.
func arrayElemSize(t Tag) (int, bool) {
	switch t {
	case TagArrayInt8, TagArrayUInt8:
		return 1, true
	case TagArrayInt16, TagArrayUInt16:
		return 2, true
	case TagArrayInt32, TagArrayUInt32, TagArrayFloat32:
		return 4, true
	case TagArrayInt64, TagArrayUInt64, TagArrayFloat64:
		return 8, true
	default:
		return 0, false
	}
}

func isArrayTag(t Tag) bool {
	_, ok := arrayElemSize(t)
	return ok
}
