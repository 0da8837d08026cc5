package incident

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/patrol/internal/domain/activity"
	"github.com/rpggio/patrol/internal/feed"
	"github.com/rpggio/patrol/internal/repository"
	"github.com/rpggio/patrol/internal/spatial"
)

// Service handles incident reporting and triage.
type Service struct {
	repo       Repository
	rounds     RoundSource
	publisher  feed.Publisher
	activities ActivityLogger
	logger     *slog.Logger
}

// NewService creates a new incident service.
func NewService(repo Repository, rounds RoundSource, publisher feed.Publisher, activities ActivityLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if publisher == nil {
		publisher = feed.Nop{}
	}
	return &Service{repo: repo, rounds: rounds, publisher: publisher, activities: activities, logger: logger}
}

// ReportRequest defines incident report inputs.
type ReportRequest struct {
	RoundID     *string
	ClientID    *string
	Severity    Severity
	Description string
	Location    *spatial.Point
	PhotoRef    *string
	ReportedBy  string
}

// Report opens an incident. A linked round must exist; its status is left unchanged.
func (s *Service) Report(ctx context.Context, tenantID string, req ReportRequest) (*Incident, error) {
	if err := ValidateReportInput(req); err != nil {
		return nil, err
	}

	now := time.Now()
	inc := &Incident{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		ClientID:    req.ClientID,
		Severity:    req.Severity,
		Status:      StatusOpen,
		Description: strings.TrimSpace(req.Description),
		Location:    req.Location,
		PhotoRef:    req.PhotoRef,
		ReportedBy:  req.ReportedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if req.RoundID != nil && *req.RoundID != "" {
		r, err := s.rounds.Get(ctx, tenantID, *req.RoundID)
		if err != nil {
			return nil, err
		}
		inc.RoundID = &r.ID
		if inc.ClientID == nil && r.ClientID != nil {
			inc.ClientID = r.ClientID
		}
	}

	if err := s.repo.Create(ctx, tenantID, inc); err != nil {
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			return nil, ErrInvalidInput
		}
		return nil, fmt.Errorf("creating incident: %w", err)
	}

	if inc.RoundID != nil {
		if err := s.publisher.Publish(ctx, feed.Event{
			Type:     feed.EventIncidentReported,
			TenantID: tenantID,
			RoundID:  *inc.RoundID,
			At:       now,
		}); err != nil {
			s.logger.Warn("failed to publish incident", "incident_id", inc.ID, "error", err)
		}
	}
	if s.activities != nil {
		_ = s.activities.LogActivity(ctx, tenantID, &activity.Entry{
			RoundID:    inc.RoundID,
			OperatorID: &inc.ReportedBy,
			Type:       activity.TypeIncidentReported,
			Summary:    fmt.Sprintf("%s incident reported", inc.Severity),
			Details:    activity.Details(map[string]string{"incident_id": inc.ID}),
		})
	}

	return inc, nil
}

// Get fetches an incident by ID.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*Incident, error) {
	inc, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrIncidentNotFound
		}
		return nil, fmt.Errorf("getting incident: %w", err)
	}
	return inc, nil
}

// UpdateStatus moves an incident along open → investigating → resolved.
func (s *Service) UpdateStatus(ctx context.Context, tenantID, id string, to Status, operatorID string) (*Incident, error) {
	inc, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(inc.Status, to); err != nil {
		return nil, err
	}

	from := inc.Status
	now := time.Now()
	inc.Status = to
	inc.UpdatedAt = now
	if to == StatusResolved {
		inc.ResolvedAt = &now
	}

	if err := s.repo.UpdateStatus(ctx, tenantID, inc, from); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrIncidentNotFound
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("updating incident: %w", err)
	}

	if s.activities != nil {
		entry := &activity.Entry{
			RoundID: inc.RoundID,
			Type:    activity.TypeIncidentUpdated,
			Summary: fmt.Sprintf("incident %s -> %s", from, to),
			Details: activity.Details(map[string]string{"incident_id": inc.ID}),
		}
		if operatorID != "" {
			entry.OperatorID = &operatorID
		}
		_ = s.activities.LogActivity(ctx, tenantID, entry)
	}

	return inc, nil
}

// ListByRound returns incidents linked to a round.
func (s *Service) ListByRound(ctx context.Context, tenantID, roundID string) ([]Incident, error) {
	return s.repo.ListByRound(ctx, tenantID, roundID)
}
