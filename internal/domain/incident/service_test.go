package incident_test

import (
	"context"
	"testing"

	"github.com/rpggio/patrol/internal/domain/activity"
	"github.com/rpggio/patrol/internal/domain/incident"
	"github.com/rpggio/patrol/internal/domain/round"
	"github.com/rpggio/patrol/internal/repository"
	"github.com/rpggio/patrol/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const tenantID = "tenant1"

func TestIncidentService_ReportLinkedToActiveRound(t *testing.T) {
	ctx := context.Background()
	roundID := "r1"
	clientID := "c1"

	repo := &mocks.IncidentRepository{}
	rounds := &mocks.RoundRepository{}
	publisher := &mocks.Publisher{}
	activities := &mocks.ActivityRepository{}

	rounds.On("Get", ctx, tenantID, roundID).Return(&round.Round{ID: roundID, ClientID: &clientID, Status: round.StatusActive}, nil)
	repo.On("Create", ctx, tenantID, mock.MatchedBy(func(inc *incident.Incident) bool {
		return inc.Status == incident.StatusOpen && inc.RoundID != nil && *inc.ClientID == clientID
	})).Return(nil)
	publisher.On("Publish", ctx, mock.Anything).Return(nil)
	activities.On("Log", ctx, tenantID, mock.MatchedBy(func(e *activity.Entry) bool {
		return e.Type == activity.TypeIncidentReported
	})).Return(nil)

	svc := incident.NewService(repo, rounds, publisher, activity.NewService(activities, nil), nil)
	inc, err := svc.Report(ctx, tenantID, incident.ReportRequest{
		RoundID:     &roundID,
		Severity:    incident.SeverityHigh,
		Description: "fence cut near loading bay",
		ReportedBy:  "op1",
	})
	require.NoError(t, err)
	require.Equal(t, incident.StatusOpen, inc.Status)
	rounds.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	publisher.AssertExpectations(t)
	activities.AssertExpectations(t)
}

func TestIncidentService_ReportValidation(t *testing.T) {
	svc := incident.NewService(&mocks.IncidentRepository{}, &mocks.RoundRepository{}, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Report(ctx, tenantID, incident.ReportRequest{Severity: "apocalyptic", Description: "x", ReportedBy: "op1"})
	require.ErrorIs(t, err, incident.ErrInvalidInput)
	_, err = svc.Report(ctx, tenantID, incident.ReportRequest{Severity: incident.SeverityLow, ReportedBy: "op1"})
	require.ErrorIs(t, err, incident.ErrInvalidInput)
}

func TestIncidentService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.IncidentRepository{}
	repo.On("Get", ctx, tenantID, "i1").Return(&incident.Incident{ID: "i1", Status: incident.StatusOpen}, nil).Once()
	repo.On("UpdateStatus", ctx, tenantID, mock.Anything, incident.StatusOpen).Return(nil).Once()

	svc := incident.NewService(repo, &mocks.RoundRepository{}, nil, nil, nil)
	inc, err := svc.UpdateStatus(ctx, tenantID, "i1", incident.StatusInvestigating, "op1")
	require.NoError(t, err)
	require.Equal(t, incident.StatusInvestigating, inc.Status)
	require.Nil(t, inc.ResolvedAt)

	repo.On("Get", ctx, tenantID, "i1").Return(inc, nil).Once()
	repo.On("UpdateStatus", ctx, tenantID, mock.Anything, incident.StatusInvestigating).Return(nil).Once()
	inc, err = svc.UpdateStatus(ctx, tenantID, "i1", incident.StatusResolved, "op1")
	require.NoError(t, err)
	require.NotNil(t, inc.ResolvedAt)

	repo.On("Get", ctx, tenantID, "i1").Return(inc, nil).Once()
	_, err = svc.UpdateStatus(ctx, tenantID, "i1", incident.StatusOpen, "op1")
	require.ErrorIs(t, err, incident.ErrInvalidTransition)
}

func TestIncidentService_GetNotFound(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.IncidentRepository{}
	repo.On("Get", ctx, tenantID, "nope").Return((*incident.Incident)(nil), repository.ErrNotFound)

	svc := incident.NewService(repo, &mocks.RoundRepository{}, nil, nil, nil)
	_, err := svc.Get(ctx, tenantID, "nope")
	require.ErrorIs(t, err, incident.ErrIncidentNotFound)
}

func TestValidateTransition(t *testing.T) {
	require.NoError(t, incident.ValidateTransition(incident.StatusOpen, incident.StatusInvestigating))
	require.NoError(t, incident.ValidateTransition(incident.StatusOpen, incident.StatusResolved))
	require.NoError(t, incident.ValidateTransition(incident.StatusInvestigating, incident.StatusResolved))
	require.ErrorIs(t, incident.ValidateTransition(incident.StatusResolved, incident.StatusOpen), incident.ErrInvalidTransition)
	require.ErrorIs(t, incident.ValidateTransition(incident.StatusInvestigating, incident.StatusOpen), incident.ErrInvalidTransition)
}
