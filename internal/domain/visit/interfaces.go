package visit

import (
	"context"

	"github.com/rpggio/patrol/internal/domain/activity"
	"github.com/rpggio/patrol/internal/domain/checkpoint"
	"github.com/rpggio/patrol/internal/domain/round"
)

// Repository provides persistence for visits.
type Repository interface {
	// Insert stores v unless the round already has a visit for the
	// checkpoint; inserted reports which happened.
	Insert(ctx context.Context, tenantID string, v *Visit) (inserted bool, err error)
	GetByCheckpoint(ctx context.Context, tenantID, roundID, checkpointID string) (*Visit, error)
	ListByRound(ctx context.Context, tenantID, roundID string) ([]Visit, error)
	VisitedByRound(ctx context.Context, tenantID, roundID string) ([]string, error)
	VisitedByClient(ctx context.Context, tenantID, roundID, clientID string) ([]string, error)
}

// RoundSource reads rounds and their scope.
type RoundSource interface {
	Get(ctx context.Context, tenantID, id string) (*round.Round, error)
}

// ScopeSource resolves a loaded round's scope.
type ScopeSource interface {
	ScopeOf(ctx context.Context, tenantID string, r *round.Round) (round.Scope, error)
}

// CheckpointSource reads and resolves checkpoints.
type CheckpointSource interface {
	Get(ctx context.Context, tenantID, id string) (*checkpoint.Checkpoint, error)
	ResolveCode(ctx context.Context, tenantID, code string) (*checkpoint.Checkpoint, error)
}

// ActivityLogger records audit entries.
type ActivityLogger interface {
	LogActivity(ctx context.Context, tenantID string, entry *activity.Entry) error
}
