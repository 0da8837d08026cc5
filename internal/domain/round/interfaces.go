package round

import (
	"context"

	"github.com/rpggio/patrol/internal/domain/activity"
	"github.com/rpggio/patrol/internal/domain/progress"
	"github.com/rpggio/patrol/internal/domain/template"
)

// Repository provides persistence for rounds.
type Repository interface {
	Create(ctx context.Context, tenantID string, r *Round) error
	Get(ctx context.Context, tenantID, id string) (*Round, error)
	ListClaimable(ctx context.Context, tenantID, operatorID string) ([]Round, error)
	// Claim atomically assigns and activates a pending round that is
	// unassigned or pre-assigned to the operator.
	Claim(ctx context.Context, tenantID, id string, act Activation) (*Round, error)
	// Update writes r if the stored version still equals expectedVersion.
	Update(ctx context.Context, tenantID string, r *Round, expectedVersion int64) error
}

// TemplateSource reads round templates.
type TemplateSource interface {
	Get(ctx context.Context, tenantID, id string) (*template.Template, error)
}

// ProgressEvaluator re-derives progress from the store.
type ProgressEvaluator interface {
	Evaluate(ctx context.Context, tenantID, roundID string) (*progress.RoundProgress, error)
}

// ActivityLogger records audit entries.
type ActivityLogger interface {
	LogActivity(ctx context.Context, tenantID string, entry *activity.Entry) error
}
