package mcp

import (
	"time"

	"github.com/rpggio/patrol/internal/domain/checkpoint"
	"github.com/rpggio/patrol/internal/domain/incident"
	"github.com/rpggio/patrol/internal/domain/progress"
	"github.com/rpggio/patrol/internal/domain/round"
	"github.com/rpggio/patrol/internal/domain/template"
	"github.com/rpggio/patrol/internal/domain/visit"
	"github.com/rpggio/patrol/internal/spatial"
	"github.com/rpggio/patrol/internal/storage"
)

type CreateClientParams struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

type CreateCheckpointParams struct {
	ClientID   string         `json:"client_id"`
	Name       string         `json:"name"`
	Location   *spatial.Point `json:"location,omitempty"`
	ManualCode string         `json:"manual_code,omitempty"`
}

type ListCheckpointsParams struct {
	ClientID        string `json:"client_id"`
	IncludeInactive bool   `json:"include_inactive,omitempty"`
}

type IDParams struct {
	ID string `json:"id"`
}

type CreateTemplateParams struct {
	Name              string             `json:"name"`
	ShiftType         template.ShiftType `json:"shift_type"`
	SignatureRequired bool               `json:"signature_required,omitempty"`
	ClientIDs         []string           `json:"client_ids"`
}

type CopyTemplateParams struct {
	ID                string              `json:"id"`
	Name              *string             `json:"name,omitempty"`
	ShiftType         *template.ShiftType `json:"shift_type,omitempty"`
	SignatureRequired *bool               `json:"signature_required,omitempty"`
	ClientIDs         []string            `json:"client_ids,omitempty"`
	RetireSource      bool                `json:"retire_source,omitempty"`
}

type ListTemplatesParams struct {
	IncludeInactive bool `json:"include_inactive,omitempty"`
}

type CreateRoundParams struct {
	TemplateID       *string `json:"template_id,omitempty"`
	ClientID         *string `json:"client_id,omitempty"`
	AssignedOperator *string `json:"assigned_operator,omitempty"`
}

type StartRoundParams struct {
	RoundID            string            `json:"round_id"`
	VehicleMode        round.VehicleMode `json:"vehicle_mode"`
	VehicleID          string            `json:"vehicle_id,omitempty"`
	StartOdometer      *float64          `json:"start_odometer,omitempty"`
	StartOdometerPhoto *string           `json:"start_odometer_photo,omitempty"`
	StartLocation      *spatial.Point    `json:"start_location,omitempty"`
}

type CompleteRoundParams struct {
	RoundID     string         `json:"round_id"`
	EndOdometer *float64       `json:"end_odometer,omitempty"`
	EndLocation *spatial.Point `json:"end_location,omitempty"`
}

type EscalateRoundParams struct {
	RoundID string `json:"round_id"`
	Reason  string `json:"reason,omitempty"`
}

type RoundIDParams struct {
	RoundID string `json:"round_id"`
}

type RecordVisitParams struct {
	RoundID      string         `json:"round_id"`
	CheckpointID string         `json:"checkpoint_id"`
	Source       visit.Source   `json:"source,omitempty"`
	PhotoRef     *string        `json:"photo_ref,omitempty"`
	Location     *spatial.Point `json:"location,omitempty"`
}

type RecordVisitByCodeParams struct {
	RoundID  string         `json:"round_id"`
	Code     string         `json:"code"`
	Source   visit.Source   `json:"source,omitempty"`
	PhotoRef *string        `json:"photo_ref,omitempty"`
	Location *spatial.Point `json:"location,omitempty"`
}

type ReportIncidentParams struct {
	RoundID     *string           `json:"round_id,omitempty"`
	ClientID    *string           `json:"client_id,omitempty"`
	Severity    incident.Severity `json:"severity"`
	Description string            `json:"description"`
	Location    *spatial.Point    `json:"location,omitempty"`
	PhotoRef    *string           `json:"photo_ref,omitempty"`
}

type UpdateIncidentStatusParams struct {
	ID     string          `json:"id"`
	Status incident.Status `json:"status"`
}

type RoundActivityParams struct {
	RoundID string `json:"round_id"`
	Limit   int    `json:"limit,omitempty"`
}

type ListActivityParams struct {
	OperatorID string `json:"operator_id,omitempty"`
	Type       string `json:"type,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

type RequestUploadParams struct {
	Kind        storage.Kind `json:"kind"`
	ContentType string       `json:"content_type"`
}

type EvidenceURLParams struct {
	Ref string `json:"ref"`
}

type DecodeCheckpointImageParams struct {
	// Image is the base64-encoded PNG or JPEG frame.
	Image string `json:"image"`
}

type RoundDetailResponse struct {
	Round    *round.Round            `json:"round"`
	Progress *progress.RoundProgress `json:"progress,omitempty"`
}

type VisitResponse struct {
	Visit     *visit.Visit `json:"visit"`
	Duplicate bool         `json:"duplicate"`
}

type ActivityEntryResponse struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"type"`
	OperatorID string    `json:"operator_id,omitempty"`
	RoundID    string    `json:"round_id,omitempty"`
	Summary    string    `json:"summary"`
	Details    string    `json:"details,omitempty"`
}

type DecodeResponse struct {
	Code       string                 `json:"code"`
	Checkpoint *checkpoint.Checkpoint `json:"checkpoint"`
}

type EvidenceURLResponse struct {
	URL string `json:"url"`
}
