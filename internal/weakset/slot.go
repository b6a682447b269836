package weakset

import (
	"reflect"
	"unsafe"
	"weak"
)

// slot is one row of a Set. The zero slot is a tombstone.
//
// The weak pointer is taken on the first byte of the referent so that a
// single slot type can track values of any pointer type; typ restores the
// original pointer type on resolution. typ never keeps the referent alive.
type slot struct {
	ptr weak.Pointer[byte]
	typ reflect.Type
}

// makeSlot builds a live slot weakly referencing v.
func makeSlot(v any) (slot, error) {
	if v == nil {
		return slot{}, ErrNilValue
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return slot{}, ErrNotPointer
	}
	if rv.IsNil() {
		return slot{}, ErrNilValue
	}
	// Zero-sized values all share one address that is never collected.
	if rv.Type().Elem().Size() == 0 {
		return slot{}, ErrNotPointer
	}

	return slot{
		ptr: weak.Make((*byte)(rv.UnsafePointer())),
		typ: rv.Type(),
	}, nil
}

// empty reports whether the slot is a tombstone.
func (s slot) empty() bool {
	return s.typ == nil
}

// alive reports whether the referent has not been reclaimed yet.
func (s slot) alive() bool {
	return s.ptr.Value() != nil
}

// resolve returns the referent boxed in its original pointer type, or false
// once the garbage collector has reclaimed it.
func (s slot) resolve() (any, bool) {
	p := s.ptr.Value()
	if p == nil {
		return nil, false
	}
	return reflect.NewAt(s.typ.Elem(), unsafe.Pointer(p)).Interface(), true
}
