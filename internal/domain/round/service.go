package round

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/patrol/internal/domain/activity"
	"github.com/rpggio/patrol/internal/domain/template"
	"github.com/rpggio/patrol/internal/feed"
	"github.com/rpggio/patrol/internal/repository"
	"github.com/rpggio/patrol/internal/spatial"
)

// Policy holds deployment-level location requirements.
type Policy struct {
	RequireStartLocation      bool
	RequireVehicleEndLocation bool
}

// Service drives rounds through their lifecycle.
type Service struct {
	repo       Repository
	templates  TemplateSource
	progress   ProgressEvaluator
	publisher  feed.Publisher
	activities ActivityLogger
	policy     Policy
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new round service.
func NewService(
	repo Repository,
	templates TemplateSource,
	progress ProgressEvaluator,
	publisher feed.Publisher,
	activities ActivityLogger,
	policy Policy,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if publisher == nil {
		publisher = feed.Nop{}
	}
	return &Service{
		repo:       repo,
		templates:  templates,
		progress:   progress,
		publisher:  publisher,
		activities: activities,
		policy:     policy,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateRequest creates a round from a template or for a single client.
type CreateRequest struct {
	TemplateID       *string
	ClientID         *string
	AssignedOperator *string
}

// Create creates a pending round.
func (s *Service) Create(ctx context.Context, tenantID string, req CreateRequest) (*Round, error) {
	hasTemplate := req.TemplateID != nil && strings.TrimSpace(*req.TemplateID) != ""
	hasClient := req.ClientID != nil && strings.TrimSpace(*req.ClientID) != ""
	if hasTemplate == hasClient {
		return nil, ErrInvalidInput
	}

	r := &Round{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Status:    StatusPending,
		CreatedAt: s.now(),
	}
	if hasTemplate {
		tmpl, err := s.templates.Get(ctx, tenantID, *req.TemplateID)
		if err != nil {
			return nil, err
		}
		if !tmpl.Active {
			return nil, template.ErrTemplateInactive
		}
		r.TemplateID = &tmpl.ID
	} else {
		r.ClientID = req.ClientID
	}
	if req.AssignedOperator != nil && strings.TrimSpace(*req.AssignedOperator) != "" {
		r.AssignedOperator = req.AssignedOperator
	}

	if err := s.repo.Create(ctx, tenantID, r); err != nil {
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			return nil, ErrInvalidInput
		}
		return nil, fmt.Errorf("creating round: %w", err)
	}

	s.emit(ctx, feed.EventRoundCreated, r)
	s.logActivity(ctx, tenantID, r, "", activity.TypeRoundCreated, "round created", nil)
	return r, nil
}

// Get fetches a round by ID.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*Round, error) {
	return getRound(ctx, s.repo, tenantID, id)
}

// ListClaimable returns pending rounds the operator may start.
func (s *Service) ListClaimable(ctx context.Context, tenantID, operatorID string) ([]Round, error) {
	rounds, err := s.repo.ListClaimable(ctx, tenantID, operatorID)
	if err != nil {
		return nil, fmt.Errorf("listing claimable rounds: %w", err)
	}
	return rounds, nil
}

// StartRequest claims and activates a round.
type StartRequest struct {
	RoundID            string
	OperatorID         string
	Vehicle            VehicleBinding
	StartOdometer      *float64
	StartOdometerPhoto *string
	StartLocation      *spatial.Point
}

// Start claims a pending round for the operator and activates it in one
// conditional write. A lost claim is reported, never retried.
func (s *Service) Start(ctx context.Context, tenantID string, req StartRequest) (*Round, error) {
	if err := ValidateStart(tenantID, req, s.policy); err != nil {
		return nil, err
	}

	act := Activation{
		OperatorID:    req.OperatorID,
		Vehicle:       req.Vehicle,
		StartLocation: req.StartLocation,
		StartedAt:     s.now(),
	}
	if req.Vehicle.Mode.UsesVehicle() {
		act.StartOdometer = req.StartOdometer
		act.StartOdometerPhoto = req.StartOdometerPhoto
	} else {
		act.Vehicle.VehicleID = ""
	}

	r, err := s.repo.Claim(ctx, tenantID, req.RoundID, act)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrRoundNotFound
		case errors.Is(err, repository.ErrAlreadyClaimed):
			s.logger.Info("round claim lost", "round_id", req.RoundID, "operator_id", req.OperatorID)
			return nil, ErrAlreadyClaimed
		case errors.Is(err, repository.ErrStateMismatch):
			return nil, ErrNotPending
		}
		return nil, fmt.Errorf("claiming round: %w", err)
	}

	s.emit(ctx, feed.EventRoundStarted, r)
	s.logActivity(ctx, tenantID, r, req.OperatorID, activity.TypeRoundStarted, "round started", map[string]any{
		"vehicle":        r.Vehicle,
		"start_odometer": r.StartOdometer,
	})
	return r, nil
}

// CompleteRequest finishes an active round.
type CompleteRequest struct {
	RoundID     string
	OperatorID  string
	EndOdometer *float64
	EndLocation *spatial.Point
}

// Complete moves an active round to completed once every in-scope client
// is complete, re-deriving progress from the store.
func (s *Service) Complete(ctx context.Context, tenantID string, req CompleteRequest) (*Round, error) {
	r, err := s.loadForTransition(ctx, tenantID, req.RoundID, req.OperatorID, StatusCompleted)
	if err != nil {
		return nil, err
	}
	if err := ValidateComplete(r, req, s.policy); err != nil {
		return nil, err
	}

	p, err := s.progress.Evaluate(ctx, tenantID, r.ID)
	if err != nil {
		return nil, fmt.Errorf("evaluating round progress: %w", err)
	}
	if !p.Complete() {
		return nil, &OutstandingError{Clients: p.Outstanding()}
	}

	expected := r.Version
	now := s.now()
	r.Status = StatusCompleted
	r.CompletedAt = &now
	r.EndLocation = req.EndLocation
	if r.Vehicle != nil && r.Vehicle.Mode.UsesVehicle() {
		r.EndOdometer = req.EndOdometer
	}
	if err := s.update(ctx, tenantID, r, expected); err != nil {
		return nil, err
	}

	s.emit(ctx, feed.EventRoundCompleted, r)
	s.logActivity(ctx, tenantID, r, req.OperatorID, activity.TypeRoundCompleted, "round completed", map[string]any{
		"end_odometer": r.EndOdometer,
		"checkpoints":  p.Completed,
	})
	return r, nil
}

// Escalate moves an active round to incident. Recorded visits are kept.
func (s *Service) Escalate(ctx context.Context, tenantID, roundID, operatorID, reason string) (*Round, error) {
	r, err := s.loadForTransition(ctx, tenantID, roundID, operatorID, StatusIncident)
	if err != nil {
		return nil, err
	}

	expected := r.Version
	r.Status = StatusIncident
	if reason = strings.TrimSpace(reason); reason != "" {
		r.EscalationReason = &reason
	}
	if err := s.update(ctx, tenantID, r, expected); err != nil {
		return nil, err
	}

	s.emit(ctx, feed.EventRoundEscalated, r)
	s.logActivity(ctx, tenantID, r, operatorID, activity.TypeRoundEscalated, "round escalated", map[string]any{"reason": reason})
	return r, nil
}

// Resume moves a round under incident back to active.
func (s *Service) Resume(ctx context.Context, tenantID, roundID, operatorID string) (*Round, error) {
	r, err := s.loadForTransition(ctx, tenantID, roundID, operatorID, StatusActive)
	if err != nil {
		return nil, err
	}

	expected := r.Version
	r.Status = StatusActive
	if err := s.update(ctx, tenantID, r, expected); err != nil {
		return nil, err
	}

	s.emit(ctx, feed.EventRoundResumed, r)
	s.logActivity(ctx, tenantID, r, operatorID, activity.TypeRoundResumed, "round resumed", nil)
	return r, nil
}

func (s *Service) loadForTransition(ctx context.Context, tenantID, roundID, operatorID string, to Status) (*Round, error) {
	r, err := getRound(ctx, s.repo, tenantID, roundID)
	if err != nil {
		return nil, err
	}
	if !r.AssignedTo(operatorID) {
		return nil, ErrNotAssignedOperator
	}
	if err := ValidateTransition(r.Status, to); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) update(ctx context.Context, tenantID string, r *Round, expectedVersion int64) error {
	r.Version = expectedVersion + 1
	if err := s.repo.Update(ctx, tenantID, r, expectedVersion); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrRoundNotFound
		case errors.Is(err, repository.ErrConflict):
			return ErrConflict
		}
		return fmt.Errorf("updating round: %w", err)
	}
	return nil
}

func (s *Service) emit(ctx context.Context, typ feed.EventType, r *Round) {
	evt := feed.Event{Type: typ, TenantID: r.TenantID, RoundID: r.ID, At: s.now()}
	if r.ClientID != nil {
		evt.ClientID = *r.ClientID
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("failed to publish round event", "type", typ, "round_id", r.ID, "error", err)
	}
}

func (s *Service) logActivity(ctx context.Context, tenantID string, r *Round, operatorID string, typ activity.Type, summary string, details any) {
	if s.activities == nil {
		return
	}
	entry := &activity.Entry{
		RoundID: &r.ID,
		Type:    typ,
		Summary: summary,
	}
	if operatorID != "" {
		entry.OperatorID = &operatorID
	}
	if details != nil {
		entry.Details = activity.Details(details)
	}
	_ = s.activities.LogActivity(ctx, tenantID, entry)
}

func getRound(ctx context.Context, repo Repository, tenantID, id string) (*Round, error) {
	r, err := repo.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("getting round: %w", err)
	}
	return r, nil
}
