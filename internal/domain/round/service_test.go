package round_test

import (
	"context"
	"testing"

	"github.com/rpggio/patrol/internal/domain/progress"
	"github.com/rpggio/patrol/internal/domain/round"
	"github.com/rpggio/patrol/internal/domain/template"
	"github.com/rpggio/patrol/internal/feed"
	"github.com/rpggio/patrol/internal/repository"
	"github.com/rpggio/patrol/internal/repository/mocks"
	"github.com/rpggio/patrol/internal/spatial"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const tenantID = "tenant1"

func ptr[T any](v T) *T { return &v }

type fixture struct {
	repo      *mocks.RoundRepository
	templates *mocks.TemplateRepository
	progress  *mocks.ProgressEvaluator
	publisher *mocks.Publisher
	svc       *round.Service
}

func newFixture(policy round.Policy) *fixture {
	f := &fixture{
		repo:      &mocks.RoundRepository{},
		templates: &mocks.TemplateRepository{},
		progress:  &mocks.ProgressEvaluator{},
		publisher: &mocks.Publisher{},
	}
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.svc = round.NewService(f.repo, f.templates, f.progress, f.publisher, nil, policy, nil)
	return f
}

func activeRound(operator string) *round.Round {
	return &round.Round{
		ID:               "r1",
		TenantID:         tenantID,
		TemplateID:       ptr("t1"),
		Status:           round.StatusActive,
		AssignedOperator: ptr(operator),
		Vehicle:          &round.VehicleBinding{Mode: round.ModeOnFoot},
		Version:          1,
	}
}

func publishedTypes(p *mocks.Publisher) []feed.EventType {
	var out []feed.EventType
	for _, call := range p.Calls {
		if call.Method == "Publish" {
			out = append(out, call.Arguments.Get(1).(feed.Event).Type)
		}
	}
	return out
}

func TestRoundService_CreateFromTemplate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(round.Policy{})
	f.templates.On("Get", ctx, tenantID, "t1").Return(&template.Template{ID: "t1", Active: true, ClientIDs: []string{"a"}}, nil)
	f.repo.On("Create", ctx, tenantID, mock.MatchedBy(func(r *round.Round) bool {
		return r.Status == round.StatusPending && r.TemplateID != nil && r.ClientID == nil && r.AssignedOperator == nil
	})).Return(nil)

	r, err := f.svc.Create(ctx, tenantID, round.CreateRequest{TemplateID: ptr("t1")})
	require.NoError(t, err)
	require.False(t, r.IsAdHoc())
	require.Equal(t, []feed.EventType{feed.EventRoundCreated}, publishedTypes(f.publisher))
}

func TestRoundService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(round.Policy{})

	_, err := f.svc.Create(ctx, tenantID, round.CreateRequest{})
	require.ErrorIs(t, err, round.ErrInvalidInput)

	_, err = f.svc.Create(ctx, tenantID, round.CreateRequest{TemplateID: ptr("t1"), ClientID: ptr("c1")})
	require.ErrorIs(t, err, round.ErrInvalidInput)

	f.templates.On("Get", ctx, tenantID, "old").Return(&template.Template{ID: "old", Active: false}, nil)
	_, err = f.svc.Create(ctx, tenantID, round.CreateRequest{TemplateID: ptr("old")})
	require.ErrorIs(t, err, template.ErrTemplateInactive)
}

func TestRoundService_StartOnFoot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(round.Policy{})
	f.repo.On("Claim", ctx, tenantID, "r1", mock.MatchedBy(func(act round.Activation) bool {
		return act.OperatorID == "op1" && act.Vehicle.Mode == round.ModeOnFoot &&
			act.StartOdometer == nil && !act.StartedAt.IsZero()
	})).Return(activeRound("op1"), nil)

	r, err := f.svc.Start(ctx, tenantID, round.StartRequest{
		RoundID:       "r1",
		OperatorID:    "op1",
		Vehicle:       round.VehicleBinding{Mode: round.ModeOnFoot},
		StartOdometer: ptr(5.0),
	})
	require.NoError(t, err)
	require.Equal(t, round.StatusActive, r.Status)
	require.Equal(t, []feed.EventType{feed.EventRoundStarted}, publishedTypes(f.publisher))
}

func TestRoundService_StartVehicleRequiresOdometerBeforeWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(round.Policy{})

	_, err := f.svc.Start(ctx, tenantID, round.StartRequest{
		RoundID:    "r1",
		OperatorID: "op1",
		Vehicle:    round.VehicleBinding{VehicleID: "v1", Mode: round.ModeCar},
	})
	require.ErrorIs(t, err, round.ErrValidationFailed)
	f.repo.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRoundService_StartClaimFailures(t *testing.T) {
	ctx := context.Background()
	req := round.StartRequest{RoundID: "r1", OperatorID: "op2", Vehicle: round.VehicleBinding{Mode: round.ModeOnFoot}}

	cases := []struct {
		repoErr error
		want    error
	}{
		{repository.ErrAlreadyClaimed, round.ErrAlreadyClaimed},
		{repository.ErrStateMismatch, round.ErrNotPending},
		{repository.ErrNotFound, round.ErrRoundNotFound},
	}
	for _, tc := range cases {
		f := newFixture(round.Policy{})
		f.repo.On("Claim", ctx, tenantID, "r1", mock.Anything).Return((*round.Round)(nil), tc.repoErr)

		_, err := f.svc.Start(ctx, tenantID, req)
		require.ErrorIs(t, err, tc.want)
		require.Empty(t, publishedTypes(f.publisher))
		f.repo.AssertNumberOfCalls(t, "Claim", 1)
	}
}

func TestRoundService_CompleteBlockedByOutstandingCheckpoints(t *testing.T) {
	ctx := context.Background()
	f := newFixture(round.Policy{})
	f.repo.On("Get", ctx, tenantID, "r1").Return(activeRound("op1"), nil)
	f.progress.On("Evaluate", ctx, tenantID, "r1").Return(&progress.RoundProgress{
		RoundID: "r1",
		Clients: []progress.ClientProgress{
			{ClientID: "A", Total: 2, Completed: 2},
			{ClientID: "B", Total: 1, Completed: 0},
		},
		Total:     3,
		Completed: 2,
	}, nil)

	_, err := f.svc.Complete(ctx, tenantID, round.CompleteRequest{RoundID: "r1", OperatorID: "op1"})
	require.ErrorIs(t, err, round.ErrCheckpointsOutstanding)

	var outstanding *round.OutstandingError
	require.ErrorAs(t, err, &outstanding)
	require.Len(t, outstanding.Clients, 1)
	require.Equal(t, "B", outstanding.Clients[0].ClientID)
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRoundService_CompleteWhenAllClientsDone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(round.Policy{})
	f.repo.On("Get", ctx, tenantID, "r1").Return(activeRound("op1"), nil)
	f.progress.On("Evaluate", ctx, tenantID, "r1").Return(&progress.RoundProgress{
		RoundID: "r1",
		Clients: []progress.ClientProgress{
			{ClientID: "A", Total: 2, Completed: 2},
			{ClientID: "B", Total: 1, Completed: 1},
			{ClientID: "EMPTY", Total: 0, Completed: 0},
		},
		Total:     3,
		Completed: 3,
	}, nil)
	f.repo.On("Update", ctx, tenantID, mock.MatchedBy(func(r *round.Round) bool {
		return r.Status == round.StatusCompleted && r.CompletedAt != nil && r.Version == 2
	}), int64(1)).Return(nil)

	r, err := f.svc.Complete(ctx, tenantID, round.CompleteRequest{RoundID: "r1", OperatorID: "op1"})
	require.NoError(t, err)
	require.Equal(t, round.StatusCompleted, r.Status)
	require.Equal(t, []feed.EventType{feed.EventRoundCompleted}, publishedTypes(f.publisher))
}

func TestRoundService_CompleteVehicleOdometer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(round.Policy{RequireVehicleEndLocation: true})

	r := activeRound("op1")
	r.Vehicle = &round.VehicleBinding{VehicleID: "v1", Mode: round.ModeCar}
	r.StartOdometer = ptr(1000.0)
	f.repo.On("Get", ctx, tenantID, "r1").Return(r, nil)
	f.progress.On("Evaluate", ctx, tenantID, "r1").Return(&progress.RoundProgress{RoundID: "r1"}, nil)
	f.repo.On("Update", ctx, tenantID, mock.Anything, int64(1)).Return(nil)

	loc := &spatial.Point{Lat: -23.55, Lng: -46.63}
	_, err := f.svc.Complete(ctx, tenantID, round.CompleteRequest{RoundID: "r1", OperatorID: "op1", EndOdometer: ptr(950.0), EndLocation: loc})
	require.ErrorIs(t, err, round.ErrValidationFailed)
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	done, err := f.svc.Complete(ctx, tenantID, round.CompleteRequest{RoundID: "r1", OperatorID: "op1", EndOdometer: ptr(1200.0), EndLocation: loc})
	require.NoError(t, err)
	require.Equal(t, 1200.0, *done.EndOdometer)
	require.Equal(t, loc, done.EndLocation)
}

func TestRoundService_TransitionsRequireAssignedOperator(t *testing.T) {
	ctx := context.Background()
	f := newFixture(round.Policy{})
	f.repo.On("Get", ctx, tenantID, "r1").Return(activeRound("op1"), nil)

	_, err := f.svc.Complete(ctx, tenantID, round.CompleteRequest{RoundID: "r1", OperatorID: "intruder"})
	require.ErrorIs(t, err, round.ErrNotAssignedOperator)
	_, err = f.svc.Escalate(ctx, tenantID, "r1", "intruder", "smoke")
	require.ErrorIs(t, err, round.ErrNotAssignedOperator)
}

func TestRoundService_IllegalTransitions(t *testing.T) {
	ctx := context.Background()

	f := newFixture(round.Policy{})
	r := activeRound("op1")
	r.Status = round.StatusCompleted
	f.repo.On("Get", ctx, tenantID, "r1").Return(r, nil)

	_, err := f.svc.Escalate(ctx, tenantID, "r1", "op1", "")
	require.ErrorIs(t, err, round.ErrIllegalTransition)
	_, err = f.svc.Resume(ctx, tenantID, "r1", "op1")
	require.ErrorIs(t, err, round.ErrIllegalTransition)
	_, err = f.svc.Complete(ctx, tenantID, round.CompleteRequest{RoundID: "r1", OperatorID: "op1"})
	require.ErrorIs(t, err, round.ErrIllegalTransition)

	f = newFixture(round.Policy{})
	f.repo.On("Get", ctx, tenantID, "r1").Return(activeRound("op1"), nil)
	_, err = f.svc.Resume(ctx, tenantID, "r1", "op1")
	require.ErrorIs(t, err, round.ErrIllegalTransition)
}

func TestRoundService_EscalateAndResume(t *testing.T) {
	ctx := context.Background()
	f := newFixture(round.Policy{})

	r := activeRound("op1")
	f.repo.On("Get", ctx, tenantID, "r1").Return(r, nil).Once()
	f.repo.On("Update", ctx, tenantID, mock.Anything, int64(1)).Return(nil).Once()

	escalated, err := f.svc.Escalate(ctx, tenantID, "r1", "op1", " gate forced ")
	require.NoError(t, err)
	require.Equal(t, round.StatusIncident, escalated.Status)
	require.Equal(t, "gate forced", *escalated.EscalationReason)
	require.Equal(t, int64(2), escalated.Version)

	f.repo.On("Get", ctx, tenantID, "r1").Return(escalated, nil).Once()
	f.repo.On("Update", ctx, tenantID, mock.Anything, int64(2)).Return(nil).Once()

	resumed, err := f.svc.Resume(ctx, tenantID, "r1", "op1")
	require.NoError(t, err)
	require.Equal(t, round.StatusActive, resumed.Status)
	require.Equal(t, []feed.EventType{feed.EventRoundEscalated, feed.EventRoundResumed}, publishedTypes(f.publisher))
}

func TestRoundService_ConcurrentUpdateConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(round.Policy{})
	f.repo.On("Get", ctx, tenantID, "r1").Return(activeRound("op1"), nil)
	f.repo.On("Update", ctx, tenantID, mock.Anything, int64(1)).Return(repository.ErrConflict)

	_, err := f.svc.Escalate(ctx, tenantID, "r1", "op1", "")
	require.ErrorIs(t, err, round.ErrConflict)
	require.Empty(t, publishedTypes(f.publisher))
}

func TestScopeResolver(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.RoundRepository{}
	templates := &mocks.TemplateRepository{}
	repo.On("Get", ctx, tenantID, "adhoc").Return(&round.Round{ID: "adhoc", ClientID: ptr("c9")}, nil)
	repo.On("Get", ctx, tenantID, "templated").Return(&round.Round{ID: "templated", TemplateID: ptr("t1")}, nil)
	repo.On("Get", ctx, tenantID, "missing").Return((*round.Round)(nil), repository.ErrNotFound)
	templates.On("Get", ctx, tenantID, "t1").Return(&template.Template{ID: "t1", ClientIDs: []string{"a", "b"}}, nil)

	resolver := round.NewScopeResolver(repo, templates)

	ids, err := resolver.ClientIDs(ctx, tenantID, "adhoc")
	require.NoError(t, err)
	require.Equal(t, []string{"c9"}, ids)

	sc, err := resolver.Scope(ctx, tenantID, "templated")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, sc.ClientIDs)
	require.True(t, sc.Includes("a"))

	_, err = resolver.Scope(ctx, tenantID, "missing")
	require.ErrorIs(t, err, round.ErrRoundNotFound)
}
