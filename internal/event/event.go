package event

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Message is a general-purpose event carrying a payload.
type Message struct {
	// ID uniquely identifies this message.
	ID uuid.UUID

	// Kind holds the categories the message belongs to.
	Kind Flags

	// Source identifies the component that posted the message.
	Source string

	// Payload contains the message-specific data.
	Payload any

	// Timestamp is when the message was created.
	Timestamp time.Time
}

// NewMessage creates a message with a fresh ID.
func NewMessage(kind Flags, payload any, source string) *Message {
	return &Message{
		ID:        uuid.New(),
		Kind:      kind,
		Source:    source,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Flags implements the Event interface.
func (m *Message) Flags() Flags {
	return m.Kind
}

// lastID backs NextID.
var lastID atomic.Int64

// NextID returns a process-unique handler identity key.
func NextID() int {
	return int(lastID.Add(1))
}

// FuncHandler adapts a function to the Handler interface.
//
// The bus holds FuncHandlers weakly like any other handler, so the caller
// must keep the returned pointer reachable for as long as it should receive
// events.
type FuncHandler struct {
	id    int
	flags Flags
	fn    func(Event) error
}

// NewFuncHandler creates a handler with a fresh identity key.
func NewFuncHandler(flags Flags, fn func(Event) error) *FuncHandler {
	return &FuncHandler{
		id:    NextID(),
		flags: flags,
		fn:    fn,
	}
}

// Update implements the Handler interface.
func (h *FuncHandler) Update(event Event) error {
	return h.fn(event)
}

// InterestFlags implements the Handler interface.
func (h *FuncHandler) InterestFlags() Flags {
	return h.flags
}

// ID implements the Handler interface.
func (h *FuncHandler) ID() int {
	return h.id
}
