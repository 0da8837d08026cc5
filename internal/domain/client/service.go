package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/patrol/internal/repository"
)

// Service handles client operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new client service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateRequest defines client creation inputs.
type CreateRequest struct {
	ID      string
	Name    string
	Address string
}

// Create creates a new client.
func (s *Service) Create(ctx context.Context, tenantID string, req CreateRequest) (*Client, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrInvalidInput
	}

	id := req.ID
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}

	c := &Client{
		ID:        id,
		TenantID:  tenantID,
		Name:      strings.TrimSpace(req.Name),
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, tenantID, c); err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	return c, nil
}

// Get fetches a client by ID.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*Client, error) {
	c, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("getting client: %w", err)
	}
	return c, nil
}

// List returns the tenant's clients.
func (s *Service) List(ctx context.Context, tenantID string) ([]Client, error) {
	return s.repo.List(ctx, tenantID)
}
