package round

import (
	"time"

	"github.com/rpggio/patrol/internal/spatial"
)

// Status represents the lifecycle state of a round.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusIncident  Status = "incident"
)

// VehicleMode is how the operator travels during a round.
type VehicleMode string

const (
	ModeCar        VehicleMode = "car"
	ModeMotorcycle VehicleMode = "motorcycle"
	ModeOnFoot     VehicleMode = "on_foot"
)

// Valid reports whether m is a known mode.
func (m VehicleMode) Valid() bool {
	switch m {
	case ModeCar, ModeMotorcycle, ModeOnFoot:
		return true
	}
	return false
}

// UsesVehicle reports whether the mode needs a vehicle and odometer readings.
func (m VehicleMode) UsesVehicle() bool {
	return m == ModeCar || m == ModeMotorcycle
}

// VehicleBinding is the vehicle chosen at activation.
type VehicleBinding struct {
	VehicleID string      `json:"vehicle_id,omitempty"`
	Mode      VehicleMode `json:"mode"`
}

// Round is one patrol assignment.
type Round struct {
	ID                 string          `json:"id"`
	TenantID           string          `json:"tenant_id"`
	TemplateID         *string         `json:"template_id,omitempty"`
	ClientID           *string         `json:"client_id,omitempty"`
	Status             Status          `json:"status"`
	AssignedOperator   *string         `json:"assigned_operator,omitempty"`
	Vehicle            *VehicleBinding `json:"vehicle,omitempty"`
	StartOdometer      *float64        `json:"start_odometer,omitempty"`
	EndOdometer        *float64        `json:"end_odometer,omitempty"`
	StartOdometerPhoto *string         `json:"start_odometer_photo,omitempty"`
	StartLocation      *spatial.Point  `json:"start_location,omitempty"`
	EndLocation        *spatial.Point  `json:"end_location,omitempty"`
	EscalationReason   *string         `json:"escalation_reason,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	StartedAt          *time.Time      `json:"started_at,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	Version            int64           `json:"version"`
}

// IsAdHoc reports whether the round is bound to a single client instead of a template.
func (r *Round) IsAdHoc() bool {
	return r.TemplateID == nil
}

// AssignedTo reports whether operatorID holds the round.
func (r *Round) AssignedTo(operatorID string) bool {
	return r.AssignedOperator != nil && *r.AssignedOperator == operatorID
}

// Activation is the claim-time write: operator, vehicle binding, odometer
// evidence and start location, applied with the pending → active move.
type Activation struct {
	OperatorID         string
	Vehicle            VehicleBinding
	StartOdometer      *float64
	StartOdometerPhoto *string
	StartLocation      *spatial.Point
	StartedAt          time.Time
}

// Scope is the set of clients a round is responsible for, in template order.
type Scope struct {
	RoundID   string   `json:"round_id"`
	ClientIDs []string `json:"client_ids"`
}

// Includes reports whether clientID is in scope.
func (s Scope) Includes(clientID string) bool {
	for _, id := range s.ClientIDs {
		if id == clientID {
			return true
		}
	}
	return false
}
