package config

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrUnsupportedFormat = errors.New("unsupported config format")
)

// ParseError wraps a decoder failure with the file it came from.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("config: decode %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError names the offending key, e.g. "bus.enforcement". It
// matches ErrInvalidConfig under errors.Is.
type ValidationError struct {
	Path    string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s %s, got %v", e.Path, e.Message, e.Value)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidConfig }
