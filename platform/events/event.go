// Package events is the in-process event bus the modules use to react to
// each other's state changes without importing one another.
package events

import (
	"context"
	"time"
)

// Event is anything published on the bus. The name selects subscribers.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// Subjected events name the entity they are about, e.g. a lead id. The bus
// adds it to handler failure logs so a failed timeline write can be traced
// back to its lead.
type Subjected interface {
	Subject() string
}

// BaseEvent carries the UTC timestamp shared by all events.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent stamps an event with the current time.
func NewBaseEvent() BaseEvent { return NewBaseEventAt(time.Now()) }

// NewBaseEventAt stamps an event with at. Services pass their own clock so
// event time matches the committed record.
func NewBaseEventAt(at time.Time) BaseEvent { return BaseEvent{Timestamp: at.UTC()} }

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error { return f(ctx, event) }

// Publisher is all a producer needs. Producers never learn whether anyone
// is listening.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Bus is the full bus as seen by the composition root.
type Bus interface {
	Publisher
	// PublishSync runs handlers inline and returns their joined errors.
	PublishSync(ctx context.Context, event Event) error
	// Subscribe attaches handler to events whose EventName equals eventName.
	Subscribe(eventName string, handler Handler)
}

// logAttrs describes event for the bus's own log lines.
func logAttrs(event Event) []any {
	attrs := []any{"event", event.EventName()}
	if s, ok := event.(Subjected); ok && s.Subject() != "" {
		attrs = append(attrs, "subject", s.Subject())
	}
	return attrs
}
