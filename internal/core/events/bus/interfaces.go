package bus

import "time"

// TypeAny subscribes a handler to every event type. Used by the journal and
// the debug stream, which mirror the whole frame's output.
const TypeAny = "*"

// EventBus is a synchronous, in-process pub/sub bus.
//
// Delivery happens in the caller's goroutine, in subscription order per type.
// The frame pipeline publishes from a single goroutine, so handlers observe
// events in pipeline order: physics contacts first, then zone transitions,
// then fence crossings. Handler errors are joined and returned, never
// swallowed; publishers on the frame path log them and continue.
type EventBus interface {
	// Publish delivers the event to all subscribers of event.Type() and to
	// TypeAny subscribers.
	Publish(event Event) error
	// PublishBatch publishes events in order and aggregates errors.
	PublishBatch(events ...Event) error
	// Subscribe registers a handler for one event type (or TypeAny).
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels a subscription. Safe to call with nil.
	Unsubscribe(sub Subscription) error
}

// Event is an immutable message describing something that happened during a
// frame. Data carries the producer's payload struct and must be treated as
// read-only.
type Event interface {
	Type() string
	Frame() uint64
	Timestamp() time.Time
	Data() any
}

// EventHandler is invoked once per delivered event.
type EventHandler func(event Event) error

// Subscription is a handle to a registered handler.
type Subscription interface {
	ID() string
	EventType() string
	Cancel() error
}
