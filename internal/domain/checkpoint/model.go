package checkpoint

import (
	"time"

	"github.com/rpggio/patrol/internal/spatial"
)

// Checkpoint is a physical point at a client site.
type Checkpoint struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	ClientID   string         `json:"client_id"`
	Name       string         `json:"name"`
	Location   *spatial.Point `json:"location,omitempty"`
	ManualCode string         `json:"manual_code"`
	Active     bool           `json:"active"`
	CreatedAt  time.Time      `json:"created_at"`
}
