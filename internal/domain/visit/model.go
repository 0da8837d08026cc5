package visit

import (
	"time"

	"github.com/rpggio/patrol/internal/spatial"
)

// Source is how the checkpoint code was captured.
type Source string

const (
	SourceScan   Source = "scan"
	SourceManual Source = "manual"
)

// Visit is evidence that an operator reached a checkpoint during a round.
// Visits are never mutated.
type Visit struct {
	ID              string         `json:"id"`
	TenantID        string         `json:"tenant_id"`
	RoundID         string         `json:"round_id"`
	CheckpointID    string         `json:"checkpoint_id"`
	ClientID        string         `json:"client_id"`
	OperatorID      string         `json:"operator_id"`
	Source          Source         `json:"source"`
	PhotoRef        *string        `json:"photo_ref,omitempty"`
	Location        *spatial.Point `json:"location,omitempty"`
	DistanceMeters  *float64       `json:"distance_meters,omitempty"`
	OutsideGeofence bool           `json:"outside_geofence"`
	VisitedAt       time.Time      `json:"visited_at"`
}

// Result reports the stored visit. Duplicate is set when the checkpoint
// had already been visited in the round and nothing new was written.
type Result struct {
	Visit     *Visit `json:"visit"`
	Duplicate bool   `json:"duplicate"`
}
