package template

import "time"

// ShiftType is the shift a template is scheduled for.
type ShiftType string

const (
	ShiftDay   ShiftType = "day"
	ShiftNight ShiftType = "night"
	ShiftFull  ShiftType = "full"
)

// Template is an ordered list of clients a round should cover. Templates
// are never edited in place; edits produce a copy.
type Template struct {
	ID                string    `json:"id"`
	TenantID          string    `json:"tenant_id"`
	Name              string    `json:"name"`
	ShiftType         ShiftType `json:"shift_type"`
	SignatureRequired bool      `json:"signature_required"`
	Active            bool      `json:"active"`
	ClientIDs         []string  `json:"client_ids"`
	CopiedFrom        *string   `json:"copied_from,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
