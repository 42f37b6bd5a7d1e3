package event

import (
	"context"
	"time"
)

// Topics published by the server.
const (
	// TopicSettingsUpdated carries a settings.AppConfig snapshot.
	TopicSettingsUpdated = "settings.updated"
	// TopicChatCompleted carries a history.Entry.
	TopicChatCompleted = "chat.completed"
)

// Event represents a typed message on the event bus.
type Event struct {
	Topic     string
	Source    string // Component that emitted the event
	Timestamp time.Time
	Payload   any // Type depends on topic
}

// New returns an Event stamped with the current time.
func New(topic, source string, payload any) Event {
	return Event{Topic: topic, Source: source, Timestamp: time.Now(), Payload: payload}
}

// Handler processes events from the bus.
type Handler func(ctx context.Context, event Event)

// Publisher emits events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber registers handlers for a topic.
type Subscriber interface {
	Subscribe(topic string, handler Handler) (unsubscribe func())
}
