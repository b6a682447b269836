package event

import (
	"fmt"
	"strings"
)

// Flags is a bitmask of event categories. A handler receives an event when
// the event's flags and the handler's interest flags share at least one bit.
type Flags uint32

// Reserved flag values. Bits below FlagAlert are free for application use.
const (
	// FlagAll matches every event.
	FlagAll Flags = 0xFFFFFFFF

	// FlagSetting marks configuration changes.
	FlagSetting Flags = 0x04000000

	// FlagDialog marks dialog traffic.
	FlagDialog Flags = 0x02000000

	// FlagAlert marks alerts.
	FlagAlert Flags = 0x01000000
)

// Has reports whether f and other share at least one bit.
func (f Flags) Has(other Flags) bool {
	return f&other != 0
}

// Flags lets a bare flag value be posted as an event.
func (f Flags) Flags() Flags {
	return f
}

// String returns a human-readable flag set.
func (f Flags) String() string {
	switch f {
	case 0:
		return "none"
	case FlagAll:
		return "all"
	}

	var parts []string
	rest := f
	for _, named := range []struct {
		flag Flags
		name string
	}{
		{FlagSetting, "setting"},
		{FlagDialog, "dialog"},
		{FlagAlert, "alert"},
	} {
		if rest&named.flag != 0 {
			parts = append(parts, named.name)
			rest &^= named.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("%#x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// Event is anything that can be posted on a bus.
type Event interface {
	// Flags returns the categories the event belongs to.
	Flags() Flags
}

// Handler receives events from a bus.
//
// A bus only holds a weak reference to a registered handler. The handler
// stays registered for as long as something else keeps it alive; once it
// is garbage collected it silently stops receiving events. Handlers must be
// pointers to non-zero-sized values.
type Handler interface {
	// Update delivers an event. A non-nil error aborts the current post.
	Update(event Event) error

	// InterestFlags returns the categories the handler wants to receive.
	InterestFlags() Flags

	// ID returns the handler's identity key. It must stay stable while the
	// handler is registered and must not collide with another live handler
	// on the same bus; a collision replaces the earlier registration.
	ID() int
}

// Stats contains bus statistics.
type Stats struct {
	// EventsPosted is the number of non-nil events posted.
	EventsPosted uint64

	// Deliveries is the number of handler Update calls.
	Deliveries uint64

	// Filtered is the number of live handlers skipped for lack of a
	// common flag.
	Filtered uint64

	// HandlerErrors is the number of posts aborted by a handler error.
	HandlerErrors uint64

	// Compactions is the number of post-dispatch compactions.
	Compactions uint64
}
