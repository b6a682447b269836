package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. WEAKBUS_BUS_IDENTIFIER.
const EnvPrefix = "WEAKBUS_"

// Format is a config file encoding.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Load builds a Config from the defaults, the file at path, and the
// environment, in that order, and validates the result. An empty path or a
// missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile decodes the file at path over c.
func (c *Config) loadFile(path string) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // File doesn't exist, not an error
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := c.Decode(format, data); err != nil {
		return &ParseError{Path: path, Err: err}
	}
	return nil
}

// Decode overlays data in the given format onto c. Keys absent from data
// keep their current values.
func (c *Config) Decode(format Format, data []byte) error {
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(c)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// ApplyEnv overlays WEAKBUS_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	return nil
}
