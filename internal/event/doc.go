// Package event provides a publish/subscribe bus whose subscribers are held
// through weak references.
//
// Registering a handler never keeps it alive. A handler receives events for
// as long as the application holds it somewhere else; once the garbage
// collector reclaims it, the bus notices on the next post and drops the
// registration without an explicit Unregister.
//
// # Architecture
//
//	                    ┌──────────────────────────────────────────┐
//	                    │                   Bus                    │
//	                    │  - Enforcer hook on every call           │
//	                    │  - Flag-filtered delivery                │
//	                    │  - Post-dispatch compaction              │
//	                    └──────────────────────────────────────────┘
//	                                      │
//	                                      ▼
//	                    ┌──────────────────────────────────────────┐
//	                    │          weakset.Set[Handler]            │
//	                    │  - keyed by Handler.ID(), ascending      │
//	                    │  - weak slots, lazy tombstones           │
//	                    └──────────────────────────────────────────┘
//
// # Flags
//
// Every event reports a Flags bitmask and every handler declares interest
// flags. A handler receives an event when the two intersect:
//
//	FlagAll      0xFFFFFFFF  every category
//	FlagSetting  0x04000000  configuration changes
//	FlagDialog   0x02000000  dialog traffic
//	FlagAlert    0x01000000  alerts
//
// Lower bits are free for application categories.
//
// # Basic Usage
//
//	bus := event.NewBus(event.WithIdentifier("ui"))
//
//	// The caller owns the handler; the bus only watches it.
//	alerts := event.NewFuncHandler(event.FlagAlert, func(e event.Event) error {
//	    fmt.Println("alert:", e.(*event.Message).Payload)
//	    return nil
//	})
//	if err := bus.Register(alerts); err != nil {
//	    log.Fatal(err)
//	}
//
//	err := bus.Post(event.NewMessage(event.FlagAlert, "disk full", "monitor"))
//
// # Failure Semantics
//
// Delivery is not isolated between handlers. The first handler that returns
// an error stops the pass; Post returns it wrapped in a *HandlerError and
// the remaining handlers do not see the event. Panics propagate to the
// poster. Handlers that were garbage collected are skipped silently.
//
// # Thread Safety
//
// Bus has no internal locking and expects a single owner goroutine. Install
// OwnerGoroutine() with WithEnforcer to catch misuse, or use SyncBus when
// several goroutines need to share one bus.
package event
