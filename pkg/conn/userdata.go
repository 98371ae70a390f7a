package conn

import "eventwire/pkg/errs"

// DataKind tags which variant of UserData is currently stored. The zero
// value, KindNone, means no value has been set.
type DataKind int

const (
	KindNone DataKind = iota
	KindI8
	KindI32
	KindI64
	KindF32
	KindF64
	KindPtr
	KindStr
)

// UserData is the tagged slot a caller can stash arbitrary per-connection
// state in (spec §3 "UserData"/GLOSSARY). Go has no discriminated union,
// so this plays that role with one field per variant and a Kind tag,
// mirroring the original's boost::variant-backed UserData class.
type UserData struct {
	kind DataKind
	i8   int8
	i32  int32
	i64  int64
	f32  float32
	f64  float64
	str  string
	ptr  interface{}
}

// Kind reports which variant is currently held.
func (u *UserData) Kind() DataKind { return u.kind }

// Reset clears the slot back to KindNone.
func (u *UserData) Reset() { *u = UserData{} }

// Set* assigns the slot to the given variant. Once non-None, a set for a
// different variant fails with ErrUserDataWrongTypeGiven rather than
// silently overwriting the stored kind; Reset (or a same-kind Set) is the
// only way to change what's held, matching the original's set_user_data
// overloads, which throw TypeException(UserDataWrongTypeGiven) when
// m_data_type is already set to a different variant.

func (u *UserData) SetI8(v int8) error {
	if u.kind != KindNone && u.kind != KindI8 {
		return errs.ErrUserDataWrongTypeGiven
	}
	*u = UserData{kind: KindI8, i8: v}
	return nil
}

func (u *UserData) SetI32(v int32) error {
	if u.kind != KindNone && u.kind != KindI32 {
		return errs.ErrUserDataWrongTypeGiven
	}
	*u = UserData{kind: KindI32, i32: v}
	return nil
}

func (u *UserData) SetI64(v int64) error {
	if u.kind != KindNone && u.kind != KindI64 {
		return errs.ErrUserDataWrongTypeGiven
	}
	*u = UserData{kind: KindI64, i64: v}
	return nil
}

func (u *UserData) SetF32(v float32) error {
	if u.kind != KindNone && u.kind != KindF32 {
		return errs.ErrUserDataWrongTypeGiven
	}
	*u = UserData{kind: KindF32, f32: v}
	return nil
}

func (u *UserData) SetF64(v float64) error {
	if u.kind != KindNone && u.kind != KindF64 {
		return errs.ErrUserDataWrongTypeGiven
	}
	*u = UserData{kind: KindF64, f64: v}
	return nil
}

func (u *UserData) SetStr(v string) error {
	if u.kind != KindNone && u.kind != KindStr {
		return errs.ErrUserDataWrongTypeGiven
	}
	*u = UserData{kind: KindStr, str: v}
	return nil
}

func (u *UserData) SetPtr(v interface{}) error {
	if u.kind != KindNone && u.kind != KindPtr {
		return errs.ErrUserDataWrongTypeGiven
	}
	*u = UserData{kind: KindPtr, ptr: v}
	return nil
}

func (u *UserData) GetI8() (int8, error) {
	if u.kind != KindI8 {
		return 0, errs.ErrUserDataWrongTypeAsked
	}
	return u.i8, nil
}

func (u *UserData) GetI32() (int32, error) {
	if u.kind != KindI32 {
		return 0, errs.ErrUserDataWrongTypeAsked
	}
	return u.i32, nil
}

func (u *UserData) GetI64() (int64, error) {
	if u.kind != KindI64 {
		return 0, errs.ErrUserDataWrongTypeAsked
	}
	return u.i64, nil
}

func (u *UserData) GetF32() (float32, error) {
	if u.kind != KindF32 {
		return 0, errs.ErrUserDataWrongTypeAsked
	}
	return u.f32, nil
}

func (u *UserData) GetF64() (float64, error) {
	if u.kind != KindF64 {
		return 0, errs.ErrUserDataWrongTypeAsked
	}
	return u.f64, nil
}

func (u *UserData) GetStr() (string, error) {
	if u.kind != KindStr {
		return "", errs.ErrUserDataWrongTypeAsked
	}
	return u.str, nil
}

func (u *UserData) GetPtr() (interface{}, error) {
	if u.kind != KindPtr {
		return nil, errs.ErrUserDataWrongTypeAsked
	}
	return u.ptr, nil
}
