package app

import (
	"errors"
	"testing"
)

func TestInitError(t *testing.T) {
	cause := errors.New("disk on fire")
	err := &InitError{Component: "scripts", Err: cause}

	if err.Error() != "init scripts: disk on fire" {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected InitError to unwrap to its cause")
	}
}

func TestCommandError(t *testing.T) {
	err := &CommandError{Command: "alert", Err: ErrUsage}

	if err.Error() != "alert: bad arguments" {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if !errors.Is(err, ErrUsage) {
		t.Error("expected CommandError to unwrap to ErrUsage")
	}
}
