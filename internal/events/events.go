package events

import (
	"context"
	"time"
)

// StreamNotify is the pub/sub channel carrying notifier lifecycle events.
const StreamNotify = "events:notify"

// Event types
const (
	EventTaskCreated     = "task_created"
	EventDigestDelivered = "digest_delivered"
	EventDeliverySnoozed = "delivery_snoozed"
)

type Event struct {
	Type    string         `json:"type"`
	At      time.Time      `json:"at"`
	Payload map[string]any `json:"payload"`
}

func New(eventType string, payload map[string]any) Event {
	return Event{Type: eventType, At: time.Now().UTC(), Payload: payload}
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}

// Discard drops every event. Used when no broker is wired.
type Discard struct{}

func (Discard) Publish(context.Context, string, Event) error { return nil }
