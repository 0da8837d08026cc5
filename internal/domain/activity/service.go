package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const defaultListLimit = 100

// Service handles activity log operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// LogActivity logs an activity entry with the current timestamp if missing.
func (s *Service) LogActivity(ctx context.Context, tenantID string, entry *Entry) error {
	if entry == nil || entry.Type == "" || strings.TrimSpace(entry.Summary) == "" {
		return ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := s.repo.Log(ctx, tenantID, entry); err != nil {
		return fmt.Errorf("logging activity: %w", err)
	}
	return nil
}

// ListRoundActivity returns the audit trail of a round, newest first.
func (s *Service) ListRoundActivity(ctx context.Context, tenantID, roundID string, limit int) ([]Entry, error) {
	if strings.TrimSpace(roundID) == "" {
		return nil, ErrInvalidInput
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.List(ctx, tenantID, ListOptions{RoundID: &roundID, Limit: limit})
}

// GetRecentActivity lists activity entries with filtering.
func (s *Service) GetRecentActivity(ctx context.Context, tenantID string, opts ListOptions) ([]Entry, error) {
	return s.repo.List(ctx, tenantID, opts)
}

// Details encodes v as the JSON details payload of an entry.
func Details(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}
