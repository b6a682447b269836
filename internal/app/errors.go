package app

import (
	"errors"
	"fmt"
)

var (
	// ErrQuit ends Run without an error.
	ErrQuit = errors.New("quit requested")

	ErrAlreadyRunning = errors.New("application already running")
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("bad arguments")
)

// InitError names the component New failed to start.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string { return fmt.Sprintf("init %s: %v", e.Component, e.Err) }
func (e *InitError) Unwrap() error { return e.Err }

// CommandError is a console command failure; the loop prints it and
// keeps reading.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string { return fmt.Sprintf("%s: %v", e.Command, e.Err) }
func (e *CommandError) Unwrap() error { return e.Err }
