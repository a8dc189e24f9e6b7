// Package events publishes user activity (signups, chats, points) for
// downstream consumers such as analytics. Publishing is best-effort: a broker
// outage must never fail a user request.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeUserSignedUp   = "user.signed_up"
	TypeChatCompleted  = "chat.completed"
	TypePointsAwarded  = "points.awarded"
	TypeLessonFinished = "lesson.completed"
)

// Event is the JSON envelope written to the topic.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	UserID     string         `json:"userId,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// New stamps an event with a fresh UUID and the current time.
func New(eventType, userID string, payload map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher hands events to a transport. Publish must not block on the network.
type Publisher interface {
	Publish(ctx context.Context, e Event)
	Close() error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
func (Nop) Close() error                   { return nil }
