package checkpoint

import (
	"context"

	"github.com/rpggio/patrol/internal/domain/activity"
)

// Repository provides persistence for checkpoints.
type Repository interface {
	Create(ctx context.Context, tenantID string, cp *Checkpoint) error
	Get(ctx context.Context, tenantID, id string) (*Checkpoint, error)
	FindActiveByCode(ctx context.Context, tenantID, code string) ([]Checkpoint, error)
	ListByClient(ctx context.Context, tenantID, clientID string, includeInactive bool) ([]Checkpoint, error)
	ListActiveByClients(ctx context.Context, tenantID string, clientIDs []string) ([]Checkpoint, error)
	Deactivate(ctx context.Context, tenantID, id string) error
	CodeRetainedByVisits(ctx context.Context, tenantID, code string) (bool, error)
}

// ActivityLogger records audit entries.
type ActivityLogger interface {
	LogActivity(ctx context.Context, tenantID string, entry *activity.Entry) error
}
