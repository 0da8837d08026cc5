package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/patrol/internal/domain/activity"
	"github.com/rpggio/patrol/internal/domain/client"
	"github.com/rpggio/patrol/internal/feed"
	"github.com/rpggio/patrol/internal/repository"
	"github.com/rpggio/patrol/internal/spatial"
)

const maxGenerateAttempts = 5

// Service handles checkpoint authoring and code resolution.
type Service struct {
	repo       Repository
	resolver   *Resolver
	publisher  feed.Publisher
	activities ActivityLogger
	logger     *slog.Logger
}

// NewService creates a new checkpoint service.
func NewService(repo Repository, publisher feed.Publisher, activities ActivityLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if publisher == nil {
		publisher = feed.Nop{}
	}
	return &Service{
		repo:       repo,
		resolver:   NewResolver(repo, logger),
		publisher:  publisher,
		activities: activities,
		logger:     logger,
	}
}

// CreateRequest defines checkpoint creation inputs.
type CreateRequest struct {
	ClientID   string
	Name       string
	Location   *spatial.Point
	ManualCode string
}

// Create creates an active checkpoint. A code is generated when none is given.
func (s *Service) Create(ctx context.Context, tenantID string, req CreateRequest) (*Checkpoint, error) {
	if strings.TrimSpace(req.ClientID) == "" || strings.TrimSpace(req.Name) == "" {
		return nil, ErrInvalidInput
	}
	if req.Location != nil {
		if err := req.Location.Validate(); err != nil {
			return nil, ErrInvalidInput
		}
	}

	cp := &Checkpoint{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		ClientID:  req.ClientID,
		Name:      strings.TrimSpace(req.Name),
		Location:  req.Location,
		Active:    true,
		CreatedAt: time.Now(),
	}

	if req.ManualCode != "" {
		if err := ValidateCode(req.ManualCode); err != nil {
			return nil, err
		}
		cp.ManualCode = req.ManualCode
		if err := s.insert(ctx, tenantID, cp); err != nil {
			return nil, err
		}
		s.publishChange(ctx, tenantID, cp)
		return cp, nil
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return nil, fmt.Errorf("generating checkpoint code: %w", err)
		}
		cp.ManualCode = code
		err = s.insert(ctx, tenantID, cp)
		if errors.Is(err, ErrCodeInUse) || errors.Is(err, ErrCodeRetained) {
			continue
		}
		if err != nil {
			return nil, err
		}
		s.publishChange(ctx, tenantID, cp)
		return cp, nil
	}
	return nil, fmt.Errorf("generating checkpoint code: %w", ErrCodeInUse)
}

// publishChange tells progress consumers the client's active set moved.
func (s *Service) publishChange(ctx context.Context, tenantID string, cp *Checkpoint) {
	if err := s.publisher.Publish(ctx, feed.Event{
		Type:         feed.EventCheckpointChanged,
		TenantID:     tenantID,
		ClientID:     cp.ClientID,
		CheckpointID: cp.ID,
		At:           time.Now(),
	}); err != nil {
		s.logger.Warn("failed to publish checkpoint change", "checkpoint_id", cp.ID, "error", err)
	}
}

func (s *Service) insert(ctx context.Context, tenantID string, cp *Checkpoint) error {
	retained, err := s.repo.CodeRetainedByVisits(ctx, tenantID, cp.ManualCode)
	if err != nil {
		return fmt.Errorf("checking retired codes: %w", err)
	}
	if retained {
		return ErrCodeRetained
	}

	if err := s.repo.Create(ctx, tenantID, cp); err != nil {
		switch {
		case errors.Is(err, repository.ErrUniqueViolation):
			return ErrCodeInUse
		case errors.Is(err, repository.ErrForeignKeyViolation):
			return client.ErrClientNotFound
		}
		return fmt.Errorf("creating checkpoint: %w", err)
	}
	return nil
}

// Get fetches a checkpoint by ID, active or not.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*Checkpoint, error) {
	cp, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("getting checkpoint: %w", err)
	}
	return cp, nil
}

// ListByClient returns the client's checkpoints.
func (s *Service) ListByClient(ctx context.Context, tenantID, clientID string, includeInactive bool) ([]Checkpoint, error) {
	return s.repo.ListByClient(ctx, tenantID, clientID, includeInactive)
}

// Deactivate retires a checkpoint and notifies progress consumers.
func (s *Service) Deactivate(ctx context.Context, tenantID, id string) (*Checkpoint, error) {
	cp, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !cp.Active {
		return cp, nil
	}

	if err := s.repo.Deactivate(ctx, tenantID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("deactivating checkpoint: %w", err)
	}
	cp.Active = false
	s.publishChange(ctx, tenantID, cp)

	if s.activities != nil {
		_ = s.activities.LogActivity(ctx, tenantID, &activity.Entry{
			Type:    activity.TypeCheckpointDeactivated,
			Summary: fmt.Sprintf("checkpoint %q deactivated", cp.Name),
			Details: activity.Details(map[string]string{"checkpoint_id": cp.ID, "client_id": cp.ClientID}),
		})
	}

	return cp, nil
}

// ResolveCode validates the shape of code and resolves it to an active
// checkpoint. Malformed codes never reach the store.
func (s *Service) ResolveCode(ctx context.Context, tenantID, code string) (*Checkpoint, error) {
	if err := ValidateCode(code); err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, tenantID, code)
}
