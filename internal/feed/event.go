package feed

import (
	"context"
	"time"
)

// EventType names a change on the feed.
type EventType string

const (
	EventRoundCreated      EventType = "round.created"
	EventRoundStarted      EventType = "round.started"
	EventRoundCompleted    EventType = "round.completed"
	EventRoundEscalated    EventType = "round.escalated"
	EventRoundResumed      EventType = "round.resumed"
	EventVisitRecorded     EventType = "visit.recorded"
	EventCheckpointChanged EventType = "checkpoint.changed"
	EventIncidentReported  EventType = "incident.reported"
	EventProgressUpdated   EventType = "progress.updated"
)

// Event is a change notification keyed by round id. CheckpointChanged
// events carry no round id; they are keyed by client.
type Event struct {
	Type         EventType `json:"type"`
	TenantID     string    `json:"tenant_id"`
	RoundID      string    `json:"round_id,omitempty"`
	ClientID     string    `json:"client_id,omitempty"`
	CheckpointID string    `json:"checkpoint_id,omitempty"`
	At           time.Time `json:"at"`
}

// Publisher emits change events.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Bus is a publisher whose events can be forwarded to local consumers.
type Bus interface {
	Publisher
	StartForwarder(ctx context.Context, onEvent func(Event)) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
