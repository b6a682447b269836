package script

import (
	"errors"
	"fmt"
)

// Errors for script handlers.
var (
	// ErrClosed is returned when delivering to a closed handler.
	ErrClosed = errors.New("script handler is closed")

	// ErrNoCallback is returned when a script does not define on_event.
	ErrNoCallback = errors.New("script does not define on_event")

	// ErrBadInterest is returned when the interest global is not a number.
	ErrBadInterest = errors.New("script interest must be a number")
)

// ScriptError reports a failure inside a named script.
type ScriptError struct {
	Script string
	Err    error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("script %s: %v", e.Script, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}
