package event

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/weakbus/internal/weakset"
)

// DefaultIdentifier names a bus created without WithIdentifier.
const DefaultIdentifier = "default"

// tracerName is the instrumentation scope used for bus spans.
const tracerName = "github.com/dshills/weakbus/internal/event"

// BusOption configures a Bus.
type BusOption func(*busConfig)

// busConfig contains configuration for the event bus.
type busConfig struct {
	// identifier names the bus in logs, errors and spans.
	identifier string

	// initialCapacity is the handler capacity reserved up front.
	initialCapacity int

	// enforcer guards every mutating or dispatching call.
	enforcer Enforcer

	// logger receives diagnostics.
	logger *slog.Logger

	// tracer starts a span per post.
	tracer trace.Tracer
}

// defaultBusConfig returns sensible default configuration.
func defaultBusConfig() busConfig {
	return busConfig{
		identifier:      DefaultIdentifier,
		initialCapacity: weakset.DefaultCapacity,
		enforcer:        NoEnforcement{},
		logger:          slog.New(slog.DiscardHandler),
		tracer:          otel.Tracer(tracerName),
	}
}

// WithIdentifier sets the diagnostic name of the bus.
func WithIdentifier(id string) BusOption {
	return func(c *busConfig) {
		if id != "" {
			c.identifier = id
		}
	}
}

// WithInitialCapacity reserves room for n handlers.
func WithInitialCapacity(n int) BusOption {
	return func(c *busConfig) {
		if n >= 0 {
			c.initialCapacity = n
		}
	}
}

// WithEnforcer installs the hook run before every mutating or dispatching
// call.
func WithEnforcer(e Enforcer) BusOption {
	return func(c *busConfig) {
		if e != nil {
			c.enforcer = e
		}
	}
}

// WithLogger sets the logger for bus diagnostics.
func WithLogger(l *slog.Logger) BusOption {
	return func(c *busConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer sets the tracer used for post spans.
func WithTracer(t trace.Tracer) BusOption {
	return func(c *busConfig) {
		if t != nil {
			c.tracer = t
		}
	}
}
