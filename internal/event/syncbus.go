package event

import (
	"context"
	"sync"
)

// SyncBus is a Bus guarded by a mutex, safe for concurrent use.
//
// Registration, posting and compaction are mutually exclusive. Handlers run
// with the lock held and must not call back into the same SyncBus.
type SyncBus struct {
	mu  sync.Mutex
	bus *Bus
}

// NewSyncBus creates a new concurrent-safe bus with the given options.
func NewSyncBus(opts ...BusOption) *SyncBus {
	return &SyncBus{bus: NewBus(opts...)}
}

// Identifier returns the diagnostic name of the bus.
func (s *SyncBus) Identifier() string {
	return s.bus.Identifier()
}

// String implements fmt.Stringer.
func (s *SyncBus) String() string {
	return s.bus.String()
}

// Register adds a weak reference to handler.
func (s *SyncBus) Register(handler Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.Register(handler)
}

// Unregister removes the handler registered under handler.ID().
func (s *SyncBus) Unregister(handler Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.Unregister(handler)
}

// Post delivers event to every interested live handler.
func (s *SyncBus) Post(event Event) error {
	return s.PostContext(context.Background(), event)
}

// PostContext is Post with a parent context for the post span.
func (s *SyncBus) PostContext(ctx context.Context, event Event) error {
	if isNil(event) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.PostContext(ctx, event)
}

// HandlersCount returns the number of live handlers.
func (s *SyncBus) HandlersCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.HandlersCount()
}

// HandlersClear drops every registration.
func (s *SyncBus) HandlersClear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.HandlersClear()
}

// Collect drops registrations whose handler has been garbage collected.
func (s *SyncBus) Collect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.Collect()
}

// Lookup returns the live handler registered under id.
func (s *SyncBus) Lookup(id int) (Handler, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.Lookup(id)
}

// Stats returns current bus statistics.
func (s *SyncBus) Stats() Stats {
	return s.bus.Stats()
}

var (
	_ Dispatcher = (*Bus)(nil)
	_ Dispatcher = (*SyncBus)(nil)
)
