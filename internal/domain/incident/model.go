package incident

import (
	"time"

	"github.com/rpggio/patrol/internal/spatial"
)

// Severity ranks an incident.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Status represents the workflow state of an incident.
type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
)

// Incident is an anomaly raised during a round or independently of one.
// Reporting an incident never changes the round's status.
type Incident struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id"`
	RoundID     *string        `json:"round_id,omitempty"`
	ClientID    *string        `json:"client_id,omitempty"`
	Severity    Severity       `json:"severity"`
	Status      Status         `json:"status"`
	Description string         `json:"description"`
	Location    *spatial.Point `json:"location,omitempty"`
	PhotoRef    *string        `json:"photo_ref,omitempty"`
	ReportedBy  string         `json:"reported_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
}
