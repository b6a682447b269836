package config

import (
	"fmt"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Enforcement selects how a bus guards against cross-goroutine use.
type Enforcement string

// Enforcement modes.
const (
	// EnforceNone trusts the caller to stay on one goroutine.
	EnforceNone Enforcement = "none"
	// EnforceOwner rejects calls from any goroutine but the bus owner.
	EnforceOwner Enforcement = "owner"
	// EnforceLocked serializes every call through a mutex.
	EnforceLocked Enforcement = "locked"
)

// Config is the complete weakbus configuration.
type Config struct {
	Bus     BusConfig     `toml:"bus" yaml:"bus" envPrefix:"BUS_"`
	Logging LoggingConfig `toml:"logging" yaml:"logging" envPrefix:"LOG_"`
	Tracing TracingConfig `toml:"tracing" yaml:"tracing" envPrefix:"TRACING_"`
	Scripts ScriptsConfig `toml:"scripts" yaml:"scripts" envPrefix:"SCRIPTS_"`
	Watch   WatchConfig   `toml:"watch" yaml:"watch" envPrefix:"WATCH_"`
}

// BusConfig configures the event bus.
type BusConfig struct {
	Identifier      string      `toml:"identifier" yaml:"identifier" env:"IDENTIFIER"`
	InitialCapacity int         `toml:"initial_capacity" yaml:"initial_capacity" env:"INITIAL_CAPACITY"`
	Enforcement     Enforcement `toml:"enforcement" yaml:"enforcement" env:"ENFORCEMENT"`
}

// LoggingConfig configures the slog logger.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level" env:"LEVEL"`
	Format string `toml:"format" yaml:"format" env:"FORMAT"`
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Enabled     bool   `toml:"enabled" yaml:"enabled" env:"ENABLED"`
	Endpoint    string `toml:"endpoint" yaml:"endpoint" env:"ENDPOINT"`
	ServiceName string `toml:"service_name" yaml:"service_name" env:"SERVICE_NAME"`
	Insecure    bool   `toml:"insecure" yaml:"insecure" env:"INSECURE"`
}

// ScriptsConfig configures Lua handler scripts.
type ScriptsConfig struct {
	Dir     string   `toml:"dir" yaml:"dir" env:"DIR"`
	Timeout Duration `toml:"timeout" yaml:"timeout" env:"TIMEOUT"`
}

// WatchConfig configures live reload of the config file.
type WatchConfig struct {
	Enabled  bool     `toml:"enabled" yaml:"enabled" env:"ENABLED"`
	Debounce Duration `toml:"debounce" yaml:"debounce" env:"DEBOUNCE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Bus: BusConfig{
			Identifier:      "default",
			InitialCapacity: 10,
			Enforcement:     EnforceOwner,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Endpoint:    "localhost:4318",
			ServiceName: "weakbus",
			Insecure:    true,
		},
		Scripts: ScriptsConfig{
			Timeout: Duration(2 * time.Second),
		},
		Watch: WatchConfig{
			Debounce: Duration(250 * time.Millisecond),
		},
	}
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
	modes      = []Enforcement{EnforceNone, EnforceOwner, EnforceLocked}
)

// Validate checks every setting and returns the first failure as a
// *ValidationError.
func (c *Config) Validate() error {
	switch {
	case c.Bus.Identifier == "":
		return &ValidationError{Path: "bus.identifier", Message: "must not be empty", Value: c.Bus.Identifier}
	case c.Bus.InitialCapacity < 0:
		return &ValidationError{Path: "bus.initial_capacity", Message: "must not be negative", Value: c.Bus.InitialCapacity}
	case !slices.Contains(modes, c.Bus.Enforcement):
		return &ValidationError{Path: "bus.enforcement", Message: "must be none, owner or locked", Value: c.Bus.Enforcement}
	case !slices.Contains(logLevels, c.Logging.Level):
		return &ValidationError{Path: "logging.level", Message: "must be debug, info, warn or error", Value: c.Logging.Level}
	case !slices.Contains(logFormats, c.Logging.Format):
		return &ValidationError{Path: "logging.format", Message: "must be text or json", Value: c.Logging.Format}
	case c.Tracing.Enabled && c.Tracing.Endpoint == "":
		return &ValidationError{Path: "tracing.endpoint", Message: "required when tracing is enabled", Value: c.Tracing.Endpoint}
	case c.Scripts.Timeout < 0:
		return &ValidationError{Path: "scripts.timeout", Message: "must not be negative", Value: c.Scripts.Timeout}
	case c.Watch.Debounce < 0:
		return &ValidationError{Path: "watch.debounce", Message: "must not be negative", Value: c.Watch.Debounce}
	}
	return nil
}

// Duration is a time.Duration written as a string such as "250ms" in
// config files and environment variables.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}
