package visit_test

import (
	"context"
	"testing"

	"github.com/rpggio/patrol/internal/domain/checkpoint"
	"github.com/rpggio/patrol/internal/domain/round"
	"github.com/rpggio/patrol/internal/domain/template"
	"github.com/rpggio/patrol/internal/domain/visit"
	"github.com/rpggio/patrol/internal/feed"
	"github.com/rpggio/patrol/internal/repository/mocks"
	"github.com/rpggio/patrol/internal/spatial"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const tenantID = "tenant1"

type fixture struct {
	visits      *mocks.VisitRepository
	rounds      *mocks.RoundRepository
	templates   *mocks.TemplateRepository
	checkpoints *mocks.CheckpointRepository
	publisher   *mocks.Publisher
	svc         *visit.Service
}

var gate = spatial.Point{Lat: -23.5505, Lng: -46.6333}

func newFixture(t *testing.T, status round.Status) *fixture {
	t.Helper()
	f := &fixture{
		visits:      &mocks.VisitRepository{},
		rounds:      &mocks.RoundRepository{},
		templates:   &mocks.TemplateRepository{},
		checkpoints: &mocks.CheckpointRepository{},
		publisher:   &mocks.Publisher{},
	}
	templateID := "t1"
	operator := "op1"
	f.rounds.On("Get", mock.Anything, tenantID, "r1").Return(&round.Round{
		ID:               "r1",
		TenantID:         tenantID,
		TemplateID:       &templateID,
		Status:           status,
		AssignedOperator: &operator,
	}, nil).Maybe()
	f.templates.On("Get", mock.Anything, tenantID, "t1").
		Return(&template.Template{ID: "t1", ClientIDs: []string{"A", "B"}}, nil).Maybe()

	inScope := checkpoint.Checkpoint{ID: "a1", ClientID: "A", Name: "North gate", ManualCode: "123456789", Active: true, Location: &gate}
	outOfScope := checkpoint.Checkpoint{ID: "z1", ClientID: "Z", Name: "Elsewhere", ManualCode: "999999999", Active: true}
	f.checkpoints.On("Get", mock.Anything, tenantID, "a1").Return(&inScope, nil).Maybe()
	f.checkpoints.On("Get", mock.Anything, tenantID, "z1").Return(&outOfScope, nil).Maybe()
	f.checkpoints.On("FindActiveByCode", mock.Anything, tenantID, "123456789").Return([]checkpoint.Checkpoint{inScope}, nil).Maybe()
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	checkpoints := checkpoint.NewService(f.checkpoints, nil, nil, nil)
	scopes := round.NewScopeResolver(f.rounds, f.templates)
	f.svc = visit.NewService(f.visits, f.rounds, scopes, checkpoints, f.publisher, nil, 50, nil)
	return f
}

func (f *fixture) published() []feed.Event {
	var out []feed.Event
	for _, call := range f.publisher.Calls {
		out = append(out, call.Arguments.Get(1).(feed.Event))
	}
	return out
}

func TestVisitService_RecordsNewVisit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, round.StatusActive)
	f.visits.On("Insert", ctx, tenantID, mock.MatchedBy(func(v *visit.Visit) bool {
		return v.RoundID == "r1" && v.CheckpointID == "a1" && v.ClientID == "A" && v.Source == visit.SourceScan
	})).Return(true, nil)

	near := spatial.Point{Lat: -23.5506, Lng: -46.6334}
	res, err := f.svc.Record(ctx, tenantID, visit.RecordRequest{
		RoundID:      "r1",
		CheckpointID: "a1",
		OperatorID:   "op1",
		Source:       visit.SourceScan,
		Location:     &near,
	})
	require.NoError(t, err)
	require.False(t, res.Duplicate)
	require.NotNil(t, res.Visit.DistanceMeters)
	require.Less(t, *res.Visit.DistanceMeters, 50.0)
	require.False(t, res.Visit.OutsideGeofence)

	events := f.published()
	require.Len(t, events, 1)
	require.Equal(t, feed.EventVisitRecorded, events[0].Type)
	require.Equal(t, "A", events[0].ClientID)
	require.Equal(t, "a1", events[0].CheckpointID)
}

func TestVisitService_RescanIsSilentNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, round.StatusActive)
	existing := &visit.Visit{ID: "v-original", RoundID: "r1", CheckpointID: "a1"}
	f.visits.On("Insert", ctx, tenantID, mock.Anything).Return(false, nil)
	f.visits.On("GetByCheckpoint", ctx, tenantID, "r1", "a1").Return(existing, nil)

	res, err := f.svc.Record(ctx, tenantID, visit.RecordRequest{RoundID: "r1", CheckpointID: "a1", OperatorID: "op1", Source: visit.SourceManual})
	require.NoError(t, err)
	require.True(t, res.Duplicate)
	require.Equal(t, "v-original", res.Visit.ID)
	require.Empty(t, f.published())
}

func TestVisitService_OutOfScopeRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, round.StatusActive)

	_, err := f.svc.Record(ctx, tenantID, visit.RecordRequest{RoundID: "r1", CheckpointID: "z1", OperatorID: "op1", Source: visit.SourceScan})
	require.ErrorIs(t, err, visit.ErrOutOfScope)
	f.visits.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
}

func TestVisitService_RoundStatus(t *testing.T) {
	ctx := context.Background()

	for _, status := range []round.Status{round.StatusPending, round.StatusCompleted} {
		f := newFixture(t, status)
		_, err := f.svc.Record(ctx, tenantID, visit.RecordRequest{RoundID: "r1", CheckpointID: "a1", OperatorID: "op1", Source: visit.SourceScan})
		require.ErrorIs(t, err, round.ErrRoundNotActive, string(status))
	}

	f := newFixture(t, round.StatusIncident)
	f.visits.On("Insert", ctx, tenantID, mock.Anything).Return(true, nil)
	_, err := f.svc.Record(ctx, tenantID, visit.RecordRequest{RoundID: "r1", CheckpointID: "a1", OperatorID: "op1", Source: visit.SourceScan})
	require.NoError(t, err)
}

func TestVisitService_RequiresAssignedOperator(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, round.StatusActive)

	_, err := f.svc.Record(ctx, tenantID, visit.RecordRequest{RoundID: "r1", CheckpointID: "a1", OperatorID: "op2", Source: visit.SourceScan})
	require.ErrorIs(t, err, round.ErrNotAssignedOperator)
}

func TestVisitService_FlagsVisitOutsideGeofence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, round.StatusActive)
	f.visits.On("Insert", ctx, tenantID, mock.Anything).Return(true, nil)

	far := spatial.Point{Lat: -23.5605, Lng: -46.6333}
	res, err := f.svc.Record(ctx, tenantID, visit.RecordRequest{RoundID: "r1", CheckpointID: "a1", OperatorID: "op1", Source: visit.SourceScan, Location: &far})
	require.NoError(t, err)
	require.True(t, res.Visit.OutsideGeofence)
	require.Greater(t, *res.Visit.DistanceMeters, 1000.0)
}

func TestVisitService_RecordCodeSharesResolvePath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, round.StatusActive)
	f.visits.On("Insert", ctx, tenantID, mock.Anything).Return(true, nil)

	scanned, err := f.svc.RecordCode(ctx, tenantID, visit.CodeRequest{RoundID: "r1", Code: "123456789", OperatorID: "op1", Source: visit.SourceScan})
	require.NoError(t, err)
	require.Equal(t, "a1", scanned.Visit.CheckpointID)

	typed, err := f.svc.RecordCode(ctx, tenantID, visit.CodeRequest{RoundID: "r1", Code: checkpoint.SanitizeManualEntry("123-456-789"), OperatorID: "op1", Source: visit.SourceManual})
	require.NoError(t, err)
	require.Equal(t, scanned.Visit.CheckpointID, typed.Visit.CheckpointID)
}

func TestVisitService_RecordCodeMalformedNeverResolves(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, round.StatusActive)

	_, err := f.svc.RecordCode(ctx, tenantID, visit.CodeRequest{RoundID: "r1", Code: "12345", OperatorID: "op1", Source: visit.SourceManual})
	require.ErrorIs(t, err, checkpoint.ErrMalformedCode)
	f.checkpoints.AssertNotCalled(t, "FindActiveByCode", mock.Anything, mock.Anything, mock.Anything)
	f.rounds.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestVisitService_InvalidSource(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, round.StatusActive)

	_, err := f.svc.Record(ctx, tenantID, visit.RecordRequest{RoundID: "r1", CheckpointID: "a1", OperatorID: "op1", Source: "telepathy"})
	require.ErrorIs(t, err, visit.ErrInvalidInput)
}
