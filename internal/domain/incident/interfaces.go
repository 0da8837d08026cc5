package incident

import (
	"context"

	"github.com/rpggio/patrol/internal/domain/activity"
	"github.com/rpggio/patrol/internal/domain/round"
)

// Repository provides persistence for incidents.
type Repository interface {
	Create(ctx context.Context, tenantID string, inc *Incident) error
	Get(ctx context.Context, tenantID, id string) (*Incident, error)
	UpdateStatus(ctx context.Context, tenantID string, inc *Incident, expected Status) error
	ListByRound(ctx context.Context, tenantID, roundID string) ([]Incident, error)
}

// RoundSource reads rounds.
type RoundSource interface {
	Get(ctx context.Context, tenantID, id string) (*round.Round, error)
}

// ActivityLogger records audit entries.
type ActivityLogger interface {
	LogActivity(ctx context.Context, tenantID string, entry *activity.Entry) error
}
