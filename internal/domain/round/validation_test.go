package round_test

import (
	"testing"

	"github.com/rpggio/patrol/internal/domain/round"
	"github.com/rpggio/patrol/internal/spatial"
	"github.com/stretchr/testify/require"
)

func TestValidateTransition(t *testing.T) {
	statuses := []round.Status{round.StatusPending, round.StatusActive, round.StatusCompleted, round.StatusIncident}
	allowed := map[[2]round.Status]bool{
		{round.StatusPending, round.StatusActive}:   true,
		{round.StatusActive, round.StatusCompleted}: true,
		{round.StatusActive, round.StatusIncident}:  true,
		{round.StatusIncident, round.StatusActive}:  true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			err := round.ValidateTransition(from, to)
			if allowed[[2]round.Status{from, to}] {
				require.NoError(t, err, "%s -> %s", from, to)
			} else {
				require.ErrorIs(t, err, round.ErrIllegalTransition, "%s -> %s", from, to)
			}
		}
	}
}

func TestAcceptsVisits(t *testing.T) {
	require.True(t, round.AcceptsVisits(round.StatusActive))
	require.True(t, round.AcceptsVisits(round.StatusIncident))
	require.False(t, round.AcceptsVisits(round.StatusPending))
	require.False(t, round.AcceptsVisits(round.StatusCompleted))
}

func TestValidateStart(t *testing.T) {
	odo := 1000.0
	photo := "evidence/" + tenantID + "/odometer/odo.jpg"

	t.Run("on foot needs nothing", func(t *testing.T) {
		err := round.ValidateStart(tenantID, round.StartRequest{
			OperatorID: "op1",
			Vehicle:    round.VehicleBinding{Mode: round.ModeOnFoot},
		}, round.Policy{})
		require.NoError(t, err)
	})

	t.Run("vehicle requires id, odometer and photo", func(t *testing.T) {
		err := round.ValidateStart(tenantID, round.StartRequest{
			OperatorID: "op1",
			Vehicle:    round.VehicleBinding{Mode: round.ModeCar},
		}, round.Policy{})
		require.ErrorIs(t, err, round.ErrValidationFailed)

		var verr *round.ValidationError
		require.ErrorAs(t, err, &verr)
		fields := map[string]bool{}
		for _, f := range verr.Fields {
			fields[f.Field] = true
		}
		require.True(t, fields["vehicle.vehicle_id"])
		require.True(t, fields["start_odometer"])
		require.True(t, fields["start_odometer_photo"])
	})

	t.Run("complete vehicle binding", func(t *testing.T) {
		err := round.ValidateStart(tenantID, round.StartRequest{
			OperatorID:         "op1",
			Vehicle:            round.VehicleBinding{VehicleID: "v1", Mode: round.ModeMotorcycle},
			StartOdometer:      &odo,
			StartOdometerPhoto: &photo,
		}, round.Policy{})
		require.NoError(t, err)
	})

	t.Run("photo must be an odometer upload of the tenant", func(t *testing.T) {
		for _, ref := range []string{
			"s3://bucket/odo.jpg",
			"evidence/other/odometer/odo.jpg",
			"evidence/" + tenantID + "/incident/odo.jpg",
			"evidence/" + tenantID + "/odometer/",
		} {
			err := round.ValidateStart(tenantID, round.StartRequest{
				OperatorID:         "op1",
				Vehicle:            round.VehicleBinding{VehicleID: "v1", Mode: round.ModeCar},
				StartOdometer:      &odo,
				StartOdometerPhoto: &ref,
			}, round.Policy{})
			var verr *round.ValidationError
			require.ErrorAs(t, err, &verr, ref)
			require.Len(t, verr.Fields, 1)
			require.Equal(t, "start_odometer_photo", verr.Fields[0].Field)
		}
	})

	t.Run("unknown mode", func(t *testing.T) {
		err := round.ValidateStart(tenantID, round.StartRequest{OperatorID: "op1", Vehicle: round.VehicleBinding{Mode: "bicycle"}}, round.Policy{})
		require.ErrorIs(t, err, round.ErrValidationFailed)
	})

	t.Run("start location required by policy", func(t *testing.T) {
		req := round.StartRequest{OperatorID: "op1", Vehicle: round.VehicleBinding{Mode: round.ModeOnFoot}}
		require.ErrorIs(t, round.ValidateStart(tenantID, req, round.Policy{RequireStartLocation: true}), round.ErrValidationFailed)

		req.StartLocation = &spatial.Point{Lat: 10, Lng: 10}
		require.NoError(t, round.ValidateStart(tenantID, req, round.Policy{RequireStartLocation: true}))
	})
}

func TestValidateComplete_Odometer(t *testing.T) {
	start := 1000.0
	r := &round.Round{
		Vehicle:       &round.VehicleBinding{VehicleID: "v1", Mode: round.ModeCar},
		StartOdometer: &start,
	}
	loc := &spatial.Point{Lat: 1, Lng: 1}
	policy := round.Policy{RequireVehicleEndLocation: true}

	lower := 950.0
	require.ErrorIs(t, round.ValidateComplete(r, round.CompleteRequest{EndOdometer: &lower, EndLocation: loc}, policy), round.ErrValidationFailed)

	equal := 1000.0
	require.NoError(t, round.ValidateComplete(r, round.CompleteRequest{EndOdometer: &equal, EndLocation: loc}, policy))

	higher := 1200.0
	require.NoError(t, round.ValidateComplete(r, round.CompleteRequest{EndOdometer: &higher, EndLocation: loc}, policy))
	require.ErrorIs(t, round.ValidateComplete(r, round.CompleteRequest{EndOdometer: &higher}, policy), round.ErrValidationFailed)
	require.ErrorIs(t, round.ValidateComplete(r, round.CompleteRequest{EndLocation: loc}, policy), round.ErrValidationFailed)
}

func TestScopeIncludes(t *testing.T) {
	sc := round.Scope{RoundID: "r1", ClientIDs: []string{"a", "b"}}
	require.True(t, sc.Includes("b"))
	require.False(t, sc.Includes("c"))
}
