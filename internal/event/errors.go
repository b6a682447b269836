package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for the event bus.
var (
	// ErrNilHandler is returned when a nil handler is registered or
	// unregistered.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrInvalidHandler is returned when a handler cannot be weakly
	// referenced, e.g. because it is not a pointer.
	ErrInvalidHandler = errors.New("invalid handler")

	// ErrPreconditionViolation is returned when the bus is used outside the
	// execution discipline its Enforcer requires.
	ErrPreconditionViolation = errors.New("bus precondition violated")
)

// HandlerError wraps an error returned by a handler during a post.
type HandlerError struct {
	// Bus is the identifier of the bus that was posting.
	Bus string

	// HandlerID is the identity key of the failing handler.
	HandlerID int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("bus %q: handler %d: %v", e.Bus, e.HandlerID, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// EnforcementError wraps an Enforcer failure.
type EnforcementError struct {
	// Bus is the identifier of the bus that rejected the call.
	Bus string

	// Err is the error reported by the Enforcer.
	Err error
}

// Error implements the error interface.
func (e *EnforcementError) Error() string {
	return fmt.Sprintf("bus %q: %v", e.Bus, e.Err)
}

// Unwrap returns the underlying error.
func (e *EnforcementError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match EnforcementError with ErrPreconditionViolation.
func (e *EnforcementError) Is(target error) bool {
	return target == ErrPreconditionViolation
}
