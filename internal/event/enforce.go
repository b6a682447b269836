package event

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
)

// Enforcer is the hook a bus runs before every mutating or dispatching
// call. Returning an error rejects the call before the registry is touched.
type Enforcer interface {
	Enforce() error
}

// EnforcerFunc is a function adapter for Enforcer.
type EnforcerFunc func() error

// Enforce implements the Enforcer interface.
func (f EnforcerFunc) Enforce() error {
	return f()
}

// NoEnforcement accepts every call. It is the default.
type NoEnforcement struct{}

// Enforce implements the Enforcer interface.
func (NoEnforcement) Enforce() error {
	return nil
}

// OwnerGoroutine returns an Enforcer bound to the calling goroutine. Calls
// made from any other goroutine fail with ErrPreconditionViolation.
func OwnerGoroutine() Enforcer {
	return ownerEnforcer{owner: goroutineID()}
}

type ownerEnforcer struct {
	owner uint64
}

func (o ownerEnforcer) Enforce() error {
	if id := goroutineID(); id != o.owner {
		return fmt.Errorf("%w: called from goroutine %d, owned by goroutine %d",
			ErrPreconditionViolation, id, o.owner)
	}
	return nil
}

// goroutineID parses the current goroutine's id from its stack header,
// which has the form "goroutine 123 [running]:".
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
