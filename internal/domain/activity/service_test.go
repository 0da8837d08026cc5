package activity_test

import (
	"context"
	"testing"

	"github.com/rpggio/patrol/internal/domain/activity"
	"github.com/rpggio/patrol/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestActivityService_LogAndList(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant1"
	roundID := "round1"

	repo := &mocks.ActivityRepository{}
	entry := &activity.Entry{
		RoundID: &roundID,
		Type:    activity.TypeRoundStarted,
		Summary: "round started",
	}

	repo.On("Log", ctx, tenantID, entry).Return(nil)
	repo.On("List", ctx, tenantID, mock.MatchedBy(func(opts activity.ListOptions) bool {
		return opts.RoundID != nil && *opts.RoundID == roundID && opts.Limit == 100
	})).Return([]activity.Entry{*entry}, nil)

	svc := activity.NewService(repo, nil)
	require.NoError(t, svc.LogActivity(ctx, tenantID, entry))
	require.False(t, entry.CreatedAt.IsZero())

	entries, err := svc.ListRoundActivity(ctx, tenantID, roundID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestActivityService_RejectsEmptyEntry(t *testing.T) {
	svc := activity.NewService(&mocks.ActivityRepository{}, nil)
	require.ErrorIs(t, svc.LogActivity(context.Background(), "tenant1", nil), activity.ErrInvalidInput)
	require.ErrorIs(t, svc.LogActivity(context.Background(), "tenant1", &activity.Entry{Type: activity.TypeRoundStarted}), activity.ErrInvalidInput)

	_, err := svc.ListRoundActivity(context.Background(), "tenant1", "", 10)
	require.ErrorIs(t, err, activity.ErrInvalidInput)
}

func TestDetails(t *testing.T) {
	require.JSONEq(t, `{"odometer":1000}`, activity.Details(map[string]any{"odometer": 1000}))
}
