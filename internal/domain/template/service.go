package template

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/patrol/internal/domain/client"
	"github.com/rpggio/patrol/internal/repository"
)

// Service handles round template operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new template service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateRequest defines template creation inputs.
type CreateRequest struct {
	Name              string
	ShiftType         ShiftType
	SignatureRequired bool
	ClientIDs         []string
}

// Create creates an active template.
func (s *Service) Create(ctx context.Context, tenantID string, req CreateRequest) (*Template, error) {
	if err := ValidateCreateInput(req); err != nil {
		return nil, err
	}

	tmpl := &Template{
		ID:                uuid.NewString(),
		TenantID:          tenantID,
		Name:              strings.TrimSpace(req.Name),
		ShiftType:         req.ShiftType,
		SignatureRequired: req.SignatureRequired,
		Active:            true,
		ClientIDs:         append([]string(nil), req.ClientIDs...),
		CreatedAt:         time.Now(),
	}
	if err := s.create(ctx, tenantID, tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// CopyRequest describes an edited copy of a template. Nil fields keep
// the source's value.
type CopyRequest struct {
	Name              *string
	ShiftType         *ShiftType
	SignatureRequired *bool
	ClientIDs         []string
	RetireSource      bool
}

// Copy creates a new template from sourceID with the requested edits.
// Rounds referencing the source keep their original scope.
func (s *Service) Copy(ctx context.Context, tenantID, sourceID string, req CopyRequest) (*Template, error) {
	src, err := s.Get(ctx, tenantID, sourceID)
	if err != nil {
		return nil, err
	}

	create := CreateRequest{
		Name:              src.Name,
		ShiftType:         src.ShiftType,
		SignatureRequired: src.SignatureRequired,
		ClientIDs:         src.ClientIDs,
	}
	if req.Name != nil {
		create.Name = *req.Name
	}
	if req.ShiftType != nil {
		create.ShiftType = *req.ShiftType
	}
	if req.SignatureRequired != nil {
		create.SignatureRequired = *req.SignatureRequired
	}
	if req.ClientIDs != nil {
		create.ClientIDs = req.ClientIDs
	}

	if err := ValidateCreateInput(create); err != nil {
		return nil, err
	}

	tmpl := &Template{
		ID:                uuid.NewString(),
		TenantID:          tenantID,
		Name:              strings.TrimSpace(create.Name),
		ShiftType:         create.ShiftType,
		SignatureRequired: create.SignatureRequired,
		Active:            true,
		ClientIDs:         append([]string(nil), create.ClientIDs...),
		CopiedFrom:        &src.ID,
		CreatedAt:         time.Now(),
	}
	if err := s.create(ctx, tenantID, tmpl); err != nil {
		return nil, err
	}

	if req.RetireSource && src.Active {
		if err := s.repo.Deactivate(ctx, tenantID, src.ID); err != nil {
			return nil, fmt.Errorf("retiring source template: %w", err)
		}
	}

	return tmpl, nil
}

func (s *Service) create(ctx context.Context, tenantID string, tmpl *Template) error {
	if err := s.repo.Create(ctx, tenantID, tmpl); err != nil {
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			return client.ErrClientNotFound
		}
		return fmt.Errorf("creating template: %w", err)
	}
	return nil
}

// Get fetches a template by ID.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*Template, error) {
	tmpl, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("getting template: %w", err)
	}
	return tmpl, nil
}

// List returns the tenant's templates.
func (s *Service) List(ctx context.Context, tenantID string, includeInactive bool) ([]Template, error) {
	return s.repo.List(ctx, tenantID, includeInactive)
}

// Deactivate retires a template. Existing rounds are unaffected.
func (s *Service) Deactivate(ctx context.Context, tenantID, id string) error {
	if err := s.repo.Deactivate(ctx, tenantID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTemplateNotFound
		}
		return fmt.Errorf("deactivating template: %w", err)
	}
	return nil
}
