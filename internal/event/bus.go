package event

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/weakbus/internal/weakset"
)

// Dispatcher is the behavior shared by Bus and SyncBus.
type Dispatcher interface {
	// Registration
	Register(handler Handler) error
	Unregister(handler Handler) error
	HandlersCount() int
	HandlersClear() error
	Collect() error

	// Posting
	Post(event Event) error
	PostContext(ctx context.Context, event Event) error

	// Status
	Stats() Stats
	Identifier() string
}

// Bus delivers events to weakly held handlers whose interest flags
// intersect the event's flags.
//
// Bus has no internal locking. All calls must come from one goroutine, or
// be serialized by the caller; see OwnerGoroutine and SyncBus.
type Bus struct {
	identifier string
	handlers   *weakset.Set[Handler]

	enforcer Enforcer
	logger   *slog.Logger
	tracer   trace.Tracer

	// Stats
	eventsPosted  atomic.Uint64
	deliveries    atomic.Uint64
	filtered      atomic.Uint64
	handlerErrors atomic.Uint64
	compactions   atomic.Uint64
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...BusOption) *Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &Bus{
		identifier: config.identifier,
		handlers:   weakset.NewWithCapacity[Handler](config.initialCapacity),
		enforcer:   config.enforcer,
		logger:     config.logger.With("bus", config.identifier),
		tracer:     config.tracer,
	}
}

// Identifier returns the diagnostic name of the bus.
func (b *Bus) Identifier() string {
	return b.identifier
}

// String implements fmt.Stringer.
func (b *Bus) String() string {
	return fmt.Sprintf("[Bus %q]", b.identifier)
}

// Register adds a weak reference to handler under handler.ID(), replacing
// any handler previously registered under the same key.
func (b *Bus) Register(handler Handler) error {
	if isNil(handler) {
		return ErrNilHandler
	}
	if err := b.Enforce(); err != nil {
		return err
	}

	id := handler.ID()
	if err := b.handlers.Put(id, handler); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHandler, err)
	}

	b.logger.Debug("handler registered", "handler", id, "flags", handler.InterestFlags())
	return nil
}

// Unregister removes the handler registered under handler.ID(). Removing a
// handler that is not registered is a no-op.
func (b *Bus) Unregister(handler Handler) error {
	if isNil(handler) {
		return ErrNilHandler
	}
	if err := b.Enforce(); err != nil {
		return err
	}

	id := handler.ID()
	b.handlers.Remove(id)

	b.logger.Debug("handler unregistered", "handler", id)
	return nil
}

// Post delivers event to every live handler whose interest flags intersect
// event.Flags(). Posting a nil event does nothing.
//
// Handlers run in ascending ID order on the calling goroutine. The first
// handler error stops the pass and is returned as a *HandlerError; later
// handlers do not see the event. Handler panics are not recovered.
func (b *Bus) Post(event Event) error {
	return b.PostContext(context.Background(), event)
}

// PostContext is Post with a parent context for the post span.
func (b *Bus) PostContext(ctx context.Context, event Event) (err error) {
	if isNil(event) {
		return nil
	}
	if err := b.Enforce(); err != nil {
		return err
	}

	flags := event.Flags()
	_, span := b.tracer.Start(ctx, "bus.post", trace.WithAttributes(
		attribute.String("bus.identifier", b.identifier),
		attribute.Int64("event.flags", int64(flags)),
	))
	defer span.End()

	b.eventsPosted.Add(1)

	var delivered, filtered int
	defer func() {
		b.deliveries.Add(uint64(delivered))
		b.filtered.Add(uint64(filtered))
		span.SetAttributes(
			attribute.Int("bus.delivered", delivered),
			attribute.Int("bus.filtered", filtered),
		)

		if b.handlers.CompactIfGarbage() {
			b.compactions.Add(1)
			b.logger.Debug("handlers compacted")
		}
	}()

	err = b.handlers.ForEach(func(h Handler) error {
		if !flags.Has(h.InterestFlags()) {
			filtered++
			return nil
		}

		delivered++
		if herr := h.Update(event); herr != nil {
			return &HandlerError{Bus: b.identifier, HandlerID: h.ID(), Err: herr}
		}
		return nil
	})

	if err != nil {
		b.handlerErrors.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.logger.Warn("post aborted by handler", "flags", flags, "error", err)
	}
	return err
}

// HandlersCount returns the number of live handlers. Handlers that have
// been garbage collected are dropped before counting.
func (b *Bus) HandlersCount() int {
	return b.handlers.Len()
}

// HandlersClear drops every registration immediately.
func (b *Bus) HandlersClear() error {
	if err := b.Enforce(); err != nil {
		return err
	}
	b.handlers.Clear()
	return nil
}

// Collect drops registrations whose handler has been garbage collected or
// unregistered, without delivering anything.
func (b *Bus) Collect() error {
	if err := b.Enforce(); err != nil {
		return err
	}
	b.handlers.Optimize()
	return nil
}

// Lookup returns the live handler registered under id.
func (b *Bus) Lookup(id int) (Handler, bool) {
	return b.handlers.Get(id)
}

// Enforce runs the configured Enforcer. A failure is returned as an
// *EnforcementError, which matches ErrPreconditionViolation.
func (b *Bus) Enforce() error {
	if err := b.enforcer.Enforce(); err != nil {
		return &EnforcementError{Bus: b.identifier, Err: err}
	}
	return nil
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	return Stats{
		EventsPosted:  b.eventsPosted.Load(),
		Deliveries:    b.deliveries.Load(),
		Filtered:      b.filtered.Load(),
		HandlerErrors: b.handlerErrors.Load(),
		Compactions:   b.compactions.Load(),
	}
}

// isNil reports whether v is nil or an interface holding a nil pointer.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
