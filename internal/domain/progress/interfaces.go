package progress

import (
	"context"

	"github.com/rpggio/patrol/internal/domain/checkpoint"
)

// ScopeSource resolves the ordered client ids a round covers.
type ScopeSource interface {
	ClientIDs(ctx context.Context, tenantID, roundID string) ([]string, error)
}

// CheckpointSource lists the currently active checkpoints of clients.
type CheckpointSource interface {
	ListActiveByClients(ctx context.Context, tenantID string, clientIDs []string) ([]checkpoint.Checkpoint, error)
}

// VisitSource lists distinct visited checkpoint ids of a round.
type VisitSource interface {
	VisitedByRound(ctx context.Context, tenantID, roundID string) ([]string, error)
	VisitedByClient(ctx context.Context, tenantID, roundID, clientID string) ([]string, error)
}
