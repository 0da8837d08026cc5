package visit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/patrol/internal/domain/activity"
	"github.com/rpggio/patrol/internal/domain/checkpoint"
	"github.com/rpggio/patrol/internal/domain/round"
	"github.com/rpggio/patrol/internal/feed"
	"github.com/rpggio/patrol/internal/spatial"
)

// Service records checkpoint visits.
type Service struct {
	repo           Repository
	rounds         RoundSource
	scopes         ScopeSource
	checkpoints    CheckpointSource
	publisher      feed.Publisher
	activities     ActivityLogger
	geofenceMeters float64
	logger         *slog.Logger
	now            func() time.Time
}

// NewService creates a visit service. Visits farther than geofenceMeters
// from their checkpoint are flagged; zero disables the check.
func NewService(
	repo Repository,
	rounds RoundSource,
	scopes ScopeSource,
	checkpoints CheckpointSource,
	publisher feed.Publisher,
	activities ActivityLogger,
	geofenceMeters float64,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if publisher == nil {
		publisher = feed.Nop{}
	}
	return &Service{
		repo:           repo,
		rounds:         rounds,
		scopes:         scopes,
		checkpoints:    checkpoints,
		publisher:      publisher,
		activities:     activities,
		geofenceMeters: geofenceMeters,
		logger:         logger,
		now:            time.Now,
	}
}

// RecordRequest records a visit to a resolved checkpoint.
type RecordRequest struct {
	RoundID      string
	CheckpointID string
	OperatorID   string
	Source       Source
	PhotoRef     *string
	Location     *spatial.Point
}

// CodeRequest records a visit from a scanned or typed code.
type CodeRequest struct {
	RoundID    string
	Code       string
	OperatorID string
	Source     Source
	PhotoRef   *string
	Location   *spatial.Point
}

// RecordCode validates and resolves code, then records the visit. Camera
// and manual input share this path.
func (s *Service) RecordCode(ctx context.Context, tenantID string, req CodeRequest) (*Result, error) {
	cp, err := s.checkpoints.ResolveCode(ctx, tenantID, req.Code)
	if err != nil {
		return nil, err
	}
	return s.record(ctx, tenantID, RecordRequest{
		RoundID:      req.RoundID,
		CheckpointID: cp.ID,
		OperatorID:   req.OperatorID,
		Source:       req.Source,
		PhotoRef:     req.PhotoRef,
		Location:     req.Location,
	}, cp)
}

// Record appends a visit for a resolved checkpoint. Re-visits within the
// same round are accepted without writing or emitting anything.
func (s *Service) Record(ctx context.Context, tenantID string, req RecordRequest) (*Result, error) {
	if strings.TrimSpace(req.CheckpointID) == "" {
		return nil, ErrInvalidInput
	}
	cp, err := s.checkpoints.Get(ctx, tenantID, req.CheckpointID)
	if err != nil {
		return nil, err
	}
	if !cp.Active {
		return nil, checkpoint.ErrCheckpointNotFound
	}
	return s.record(ctx, tenantID, req, cp)
}

func (s *Service) record(ctx context.Context, tenantID string, req RecordRequest, cp *checkpoint.Checkpoint) (*Result, error) {
	if strings.TrimSpace(req.RoundID) == "" || strings.TrimSpace(req.OperatorID) == "" {
		return nil, ErrInvalidInput
	}
	if req.Source != SourceScan && req.Source != SourceManual {
		return nil, ErrInvalidInput
	}
	if req.Location != nil {
		if err := req.Location.Validate(); err != nil {
			return nil, ErrInvalidInput
		}
	}

	r, err := s.rounds.Get(ctx, tenantID, req.RoundID)
	if err != nil {
		return nil, err
	}
	if !round.AcceptsVisits(r.Status) {
		return nil, round.ErrRoundNotActive
	}
	if !r.AssignedTo(req.OperatorID) {
		return nil, round.ErrNotAssignedOperator
	}

	sc, err := s.scopes.ScopeOf(ctx, tenantID, r)
	if err != nil {
		return nil, fmt.Errorf("resolving round scope: %w", err)
	}
	if !sc.Includes(cp.ClientID) {
		s.logger.Info("rejecting out of scope visit",
			"round_id", r.ID,
			"checkpoint_id", cp.ID,
			"client_id", cp.ClientID,
		)
		return nil, ErrOutOfScope
	}

	v := &Visit{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		RoundID:      r.ID,
		CheckpointID: cp.ID,
		ClientID:     cp.ClientID,
		OperatorID:   req.OperatorID,
		Source:       req.Source,
		PhotoRef:     req.PhotoRef,
		Location:     req.Location,
		VisitedAt:    s.now(),
	}
	if req.Location != nil && cp.Location != nil {
		d := spatial.DistanceMeters(*req.Location, *cp.Location)
		v.DistanceMeters = &d
		v.OutsideGeofence = !spatial.Within(*req.Location, *cp.Location, s.geofenceMeters)
	}

	inserted, err := s.repo.Insert(ctx, tenantID, v)
	if err != nil {
		return nil, fmt.Errorf("recording visit: %w", err)
	}
	if !inserted {
		existing, err := s.repo.GetByCheckpoint(ctx, tenantID, r.ID, cp.ID)
		if err != nil {
			return nil, fmt.Errorf("loading existing visit: %w", err)
		}
		return &Result{Visit: existing, Duplicate: true}, nil
	}

	if v.OutsideGeofence {
		s.logger.Warn("visit recorded outside geofence",
			"round_id", r.ID,
			"checkpoint_id", cp.ID,
			"distance_meters", *v.DistanceMeters,
		)
	}

	if err := s.publisher.Publish(ctx, feed.Event{
		Type:         feed.EventVisitRecorded,
		TenantID:     tenantID,
		RoundID:      r.ID,
		ClientID:     cp.ClientID,
		CheckpointID: cp.ID,
		At:           v.VisitedAt,
	}); err != nil {
		s.logger.Warn("failed to publish visit", "round_id", r.ID, "error", err)
	}

	if s.activities != nil {
		_ = s.activities.LogActivity(ctx, tenantID, &activity.Entry{
			RoundID:    &r.ID,
			OperatorID: &req.OperatorID,
			Type:       activity.TypeVisitRecorded,
			Summary:    fmt.Sprintf("checkpoint %q visited", cp.Name),
			Details: activity.Details(map[string]any{
				"checkpoint_id":    cp.ID,
				"source":           v.Source,
				"distance_meters":  v.DistanceMeters,
				"outside_geofence": v.OutsideGeofence,
			}),
		})
	}

	return &Result{Visit: v}, nil
}

// ListByRound returns the round's visits in visit order.
func (s *Service) ListByRound(ctx context.Context, tenantID, roundID string) ([]Visit, error) {
	return s.repo.ListByRound(ctx, tenantID, roundID)
}
