package mocks

import (
	"context"

	"github.com/rpggio/patrol/internal/domain/activity"
	"github.com/rpggio/patrol/internal/domain/checkpoint"
	"github.com/rpggio/patrol/internal/domain/client"
	"github.com/rpggio/patrol/internal/domain/incident"
	"github.com/rpggio/patrol/internal/domain/progress"
	"github.com/rpggio/patrol/internal/domain/round"
	"github.com/rpggio/patrol/internal/domain/template"
	"github.com/rpggio/patrol/internal/domain/visit"
	"github.com/rpggio/patrol/internal/feed"
	"github.com/stretchr/testify/mock"
)

// ClientRepository is a mock for client.Repository.
type ClientRepository struct {
	mock.Mock
}

func (m *ClientRepository) Create(ctx context.Context, tenantID string, c *client.Client) error {
	args := m.Called(ctx, tenantID, c)
	return args.Error(0)
}

func (m *ClientRepository) Get(ctx context.Context, tenantID, id string) (*client.Client, error) {
	args := m.Called(ctx, tenantID, id)
	if c, ok := args.Get(0).(*client.Client); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ClientRepository) List(ctx context.Context, tenantID string) ([]client.Client, error) {
	args := m.Called(ctx, tenantID)
	if list, ok := args.Get(0).([]client.Client); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// CheckpointRepository is a mock for checkpoint.Repository.
type CheckpointRepository struct {
	mock.Mock
}

func (m *CheckpointRepository) Create(ctx context.Context, tenantID string, cp *checkpoint.Checkpoint) error {
	args := m.Called(ctx, tenantID, cp)
	return args.Error(0)
}

func (m *CheckpointRepository) Get(ctx context.Context, tenantID, id string) (*checkpoint.Checkpoint, error) {
	args := m.Called(ctx, tenantID, id)
	if cp, ok := args.Get(0).(*checkpoint.Checkpoint); ok {
		return cp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CheckpointRepository) FindActiveByCode(ctx context.Context, tenantID, code string) ([]checkpoint.Checkpoint, error) {
	args := m.Called(ctx, tenantID, code)
	if list, ok := args.Get(0).([]checkpoint.Checkpoint); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CheckpointRepository) ListByClient(ctx context.Context, tenantID, clientID string, includeInactive bool) ([]checkpoint.Checkpoint, error) {
	args := m.Called(ctx, tenantID, clientID, includeInactive)
	if list, ok := args.Get(0).([]checkpoint.Checkpoint); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CheckpointRepository) ListActiveByClients(ctx context.Context, tenantID string, clientIDs []string) ([]checkpoint.Checkpoint, error) {
	args := m.Called(ctx, tenantID, clientIDs)
	if list, ok := args.Get(0).([]checkpoint.Checkpoint); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CheckpointRepository) Deactivate(ctx context.Context, tenantID, id string) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *CheckpointRepository) CodeRetainedByVisits(ctx context.Context, tenantID, code string) (bool, error) {
	args := m.Called(ctx, tenantID, code)
	return args.Bool(0), args.Error(1)
}

// TemplateRepository is a mock for template.Repository.
type TemplateRepository struct {
	mock.Mock
}

func (m *TemplateRepository) Create(ctx context.Context, tenantID string, tmpl *template.Template) error {
	args := m.Called(ctx, tenantID, tmpl)
	return args.Error(0)
}

func (m *TemplateRepository) Get(ctx context.Context, tenantID, id string) (*template.Template, error) {
	args := m.Called(ctx, tenantID, id)
	if tmpl, ok := args.Get(0).(*template.Template); ok {
		return tmpl, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TemplateRepository) List(ctx context.Context, tenantID string, includeInactive bool) ([]template.Template, error) {
	args := m.Called(ctx, tenantID, includeInactive)
	if list, ok := args.Get(0).([]template.Template); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TemplateRepository) Deactivate(ctx context.Context, tenantID, id string) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// RoundRepository is a mock for round.Repository.
type RoundRepository struct {
	mock.Mock
}

func (m *RoundRepository) Create(ctx context.Context, tenantID string, r *round.Round) error {
	args := m.Called(ctx, tenantID, r)
	return args.Error(0)
}

func (m *RoundRepository) Get(ctx context.Context, tenantID, id string) (*round.Round, error) {
	args := m.Called(ctx, tenantID, id)
	if r, ok := args.Get(0).(*round.Round); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoundRepository) ListClaimable(ctx context.Context, tenantID, operatorID string) ([]round.Round, error) {
	args := m.Called(ctx, tenantID, operatorID)
	if list, ok := args.Get(0).([]round.Round); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoundRepository) Claim(ctx context.Context, tenantID, id string, act round.Activation) (*round.Round, error) {
	args := m.Called(ctx, tenantID, id, act)
	if r, ok := args.Get(0).(*round.Round); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoundRepository) Update(ctx context.Context, tenantID string, r *round.Round, expectedVersion int64) error {
	args := m.Called(ctx, tenantID, r, expectedVersion)
	return args.Error(0)
}

// VisitRepository is a mock for visit.Repository.
type VisitRepository struct {
	mock.Mock
}

func (m *VisitRepository) Insert(ctx context.Context, tenantID string, v *visit.Visit) (bool, error) {
	args := m.Called(ctx, tenantID, v)
	return args.Bool(0), args.Error(1)
}

func (m *VisitRepository) GetByCheckpoint(ctx context.Context, tenantID, roundID, checkpointID string) (*visit.Visit, error) {
	args := m.Called(ctx, tenantID, roundID, checkpointID)
	if v, ok := args.Get(0).(*visit.Visit); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *VisitRepository) ListByRound(ctx context.Context, tenantID, roundID string) ([]visit.Visit, error) {
	args := m.Called(ctx, tenantID, roundID)
	if list, ok := args.Get(0).([]visit.Visit); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *VisitRepository) VisitedByRound(ctx context.Context, tenantID, roundID string) ([]string, error) {
	args := m.Called(ctx, tenantID, roundID)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *VisitRepository) VisitedByClient(ctx context.Context, tenantID, roundID, clientID string) ([]string, error) {
	args := m.Called(ctx, tenantID, roundID, clientID)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

// IncidentRepository is a mock for incident.Repository.
type IncidentRepository struct {
	mock.Mock
}

func (m *IncidentRepository) Create(ctx context.Context, tenantID string, inc *incident.Incident) error {
	args := m.Called(ctx, tenantID, inc)
	return args.Error(0)
}

func (m *IncidentRepository) Get(ctx context.Context, tenantID, id string) (*incident.Incident, error) {
	args := m.Called(ctx, tenantID, id)
	if inc, ok := args.Get(0).(*incident.Incident); ok {
		return inc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *IncidentRepository) UpdateStatus(ctx context.Context, tenantID string, inc *incident.Incident, expected incident.Status) error {
	args := m.Called(ctx, tenantID, inc, expected)
	return args.Error(0)
}

func (m *IncidentRepository) ListByRound(ctx context.Context, tenantID, roundID string) ([]incident.Incident, error) {
	args := m.Called(ctx, tenantID, roundID)
	if list, ok := args.Get(0).([]incident.Incident); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, tenantID string, entry *activity.Entry) error {
	args := m.Called(ctx, tenantID, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, tenantID string, opts activity.ListOptions) ([]activity.Entry, error) {
	args := m.Called(ctx, tenantID, opts)
	if list, ok := args.Get(0).([]activity.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ProgressEvaluator is a mock for round.ProgressEvaluator.
type ProgressEvaluator struct {
	mock.Mock
}

func (m *ProgressEvaluator) Evaluate(ctx context.Context, tenantID, roundID string) (*progress.RoundProgress, error) {
	args := m.Called(ctx, tenantID, roundID)
	if p, ok := args.Get(0).(*progress.RoundProgress); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// Publisher is a mock for feed.Publisher.
type Publisher struct {
	mock.Mock
}

func (m *Publisher) Publish(ctx context.Context, evt feed.Event) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}
