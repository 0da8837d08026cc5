package activity

import "time"

// Type represents the type of activity event
type Type string

const (
	TypeRoundCreated          Type = "round_created"
	TypeRoundStarted          Type = "round_started"
	TypeRoundCompleted        Type = "round_completed"
	TypeRoundEscalated        Type = "round_escalated"
	TypeRoundResumed          Type = "round_resumed"
	TypeVisitRecorded         Type = "visit_recorded"
	TypeIncidentReported      Type = "incident_reported"
	TypeIncidentUpdated       Type = "incident_updated"
	TypeCheckpointDeactivated Type = "checkpoint_deactivated"
)

// Entry represents an event in the round audit log
type Entry struct {
	ID         int64     `json:"id"`
	TenantID   string    `json:"tenant_id"`
	RoundID    *string   `json:"round_id,omitempty"`
	OperatorID *string   `json:"operator_id,omitempty"`
	Type       Type      `json:"type"`
	Summary    string    `json:"summary"`
	Details    string    `json:"details,omitempty"` // JSON string
	CreatedAt  time.Time `json:"created_at"`
}

// ListOptions provides filtering options for listing activity.
type ListOptions struct {
	RoundID    *string
	OperatorID *string
	Type       *Type
	Limit      int
	Offset     int
}
