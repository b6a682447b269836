package weakset

import "errors"

var (
	// ErrNilValue is returned when a nil value (or a typed nil pointer) is stored.
	ErrNilValue = errors.New("weakset: value must not be nil")

	// ErrNotPointer is returned when the value is not a pointer to a
	// non-zero-sized object and therefore cannot be weakly referenced.
	ErrNotPointer = errors.New("weakset: value must be a pointer to a non-zero-sized object")
)
