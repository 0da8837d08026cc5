package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Resolver maps a code to exactly one active checkpoint.
type Resolver struct {
	repo   Repository
	logger *slog.Logger
}

// NewResolver creates a resolver over repo.
func NewResolver(repo Repository, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{repo: repo, logger: logger}
}

// Resolve returns the active checkpoint whose manual code equals code.
func (r *Resolver) Resolve(ctx context.Context, tenantID, code string) (*Checkpoint, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrMalformedCode
	}

	matches, err := r.repo.FindActiveByCode(ctx, tenantID, code)
	if err != nil {
		return nil, fmt.Errorf("resolving checkpoint code: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, ErrCheckpointNotFound
	case 1:
		return &matches[0], nil
	default:
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.ID)
		}
		r.logger.Error("data integrity fault: duplicate active checkpoint code",
			"tenant_id", tenantID,
			"code", code,
			"checkpoint_ids", ids,
		)
		return nil, ErrAmbiguousCode
	}
}
