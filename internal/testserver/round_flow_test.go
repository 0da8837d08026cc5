package testserver

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rpggio/patrol/internal/domain/checkpoint"
	"github.com/rpggio/patrol/internal/domain/client"
	"github.com/rpggio/patrol/internal/domain/incident"
	"github.com/rpggio/patrol/internal/domain/progress"
	"github.com/rpggio/patrol/internal/domain/round"
	"github.com/rpggio/patrol/internal/domain/template"
	"github.com/rpggio/patrol/internal/mcp"
	"github.com/rpggio/patrol/internal/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	dispatcher = "key-dispatch"
	alice      = "key-alice"
	bob        = "key-bob"
)

type fixture struct {
	ts          *TestServer
	clientA     client.Client
	clientB     client.Client
	checkpoints []checkpoint.Checkpoint
	template    template.Template
}

// setup creates two clients with three checkpoints between them and a
// template covering both.
func setup(t *testing.T, opts Options) *fixture {
	t.Helper()
	ts := New(t, "acme", opts)
	ts.AddAPIKey(t, dispatcher, "")
	ts.AddAPIKey(t, alice, "alice")
	ts.AddAPIKey(t, bob, "bob")

	f := &fixture{ts: ts}
	ts.MustCall(t, dispatcher, "create_client", mcp.CreateClientParams{Name: "Harbor Depot"}, &f.clientA)
	ts.MustCall(t, dispatcher, "create_client", mcp.CreateClientParams{Name: "North Plaza"}, &f.clientB)

	for _, p := range []mcp.CreateCheckpointParams{
		{ClientID: f.clientA.ID, Name: "Gate"},
		{ClientID: f.clientA.ID, Name: "Loading dock"},
		{ClientID: f.clientB.ID, Name: "Lobby"},
	} {
		var cp checkpoint.Checkpoint
		ts.MustCall(t, dispatcher, "create_checkpoint", p, &cp)
		require.True(t, checkpoint.IsCodeShaped(cp.ManualCode))
		f.checkpoints = append(f.checkpoints, cp)
	}

	ts.MustCall(t, dispatcher, "create_template", mcp.CreateTemplateParams{
		Name:      "Night route",
		ShiftType: template.ShiftNight,
		ClientIDs: []string{f.clientA.ID, f.clientB.ID},
	}, &f.template)
	return f
}

func (f *fixture) newRound(t *testing.T) round.Round {
	t.Helper()
	var r round.Round
	f.ts.MustCall(t, dispatcher, "create_round", mcp.CreateRoundParams{TemplateID: &f.template.ID}, &r)
	require.Equal(t, round.StatusPending, r.Status)
	return r
}

func TestRoundFlow_ClaimVisitComplete(t *testing.T) {
	f := setup(t, Options{})
	ts := f.ts
	r := f.newRound(t)

	var claimable []round.Round
	ts.MustCall(t, alice, "list_claimable_rounds", nil, &claimable)
	require.Len(t, claimable, 1)

	var started round.Round
	ts.MustCall(t, alice, "start_round", mcp.StartRoundParams{
		RoundID:     r.ID,
		VehicleMode: round.ModeOnFoot,
	}, &started)
	assert.Equal(t, round.StatusActive, started.Status)
	require.NotNil(t, started.AssignedOperator)
	assert.Equal(t, "alice", *started.AssignedOperator)

	// Bob lost the claim and cannot act on the round.
	rpcErr := ts.Call(t, bob, "start_round", mcp.StartRoundParams{RoundID: r.ID, VehicleMode: round.ModeOnFoot}, nil)
	assert.Equal(t, "ALREADY_CLAIMED", ErrorCode(rpcErr))
	rpcErr = ts.Call(t, bob, "record_visit", mcp.RecordVisitParams{RoundID: r.ID, CheckpointID: f.checkpoints[0].ID}, nil)
	assert.Equal(t, "NOT_ASSIGNED_OPERATOR", ErrorCode(rpcErr))

	var v mcp.VisitResponse
	ts.MustCall(t, alice, "record_visit_by_code", mcp.RecordVisitByCodeParams{RoundID: r.ID, Code: f.checkpoints[0].ManualCode}, &v)
	assert.False(t, v.Duplicate)
	assert.Equal(t, f.clientA.ID, v.Visit.ClientID)

	ts.MustCall(t, alice, "record_visit_by_code", mcp.RecordVisitByCodeParams{RoundID: r.ID, Code: f.checkpoints[0].ManualCode}, &v)
	assert.True(t, v.Duplicate)

	rpcErr = ts.Call(t, alice, "complete_round", mcp.CompleteRoundParams{RoundID: r.ID}, nil)
	require.Equal(t, "CHECKPOINTS_OUTSTANDING", ErrorCode(rpcErr))

	for _, cp := range f.checkpoints[1:] {
		ts.MustCall(t, alice, "record_visit", mcp.RecordVisitParams{RoundID: r.ID, CheckpointID: cp.ID}, &v)
		assert.False(t, v.Duplicate)
	}

	var p progress.RoundProgress
	ts.MustCall(t, alice, "get_round_progress", mcp.RoundIDParams{RoundID: r.ID}, &p)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, 3, p.Completed)
	assert.True(t, p.Complete())

	var completed round.Round
	ts.MustCall(t, alice, "complete_round", mcp.CompleteRoundParams{RoundID: r.ID}, &completed)
	assert.Equal(t, round.StatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	rpcErr = ts.Call(t, alice, "record_visit", mcp.RecordVisitParams{RoundID: r.ID, CheckpointID: f.checkpoints[0].ID}, nil)
	assert.Equal(t, "ROUND_NOT_ACTIVE", ErrorCode(rpcErr))

	var entries []mcp.ActivityEntryResponse
	ts.MustCall(t, dispatcher, "get_round_activity", mcp.RoundActivityParams{RoundID: r.ID}, &entries)
	assert.NotEmpty(t, entries)

	ts.MustCall(t, dispatcher, "list_activity", mcp.ListActivityParams{OperatorID: "alice", Type: "visit_recorded"}, &entries)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, "alice", e.OperatorID)
		assert.Equal(t, r.ID, e.RoundID)
	}
}

func TestRoundFlow_DeactivatedCheckpointLeavesScope(t *testing.T) {
	f := setup(t, Options{})
	ts := f.ts
	r := f.newRound(t)
	ts.MustCall(t, alice, "start_round", mcp.StartRoundParams{RoundID: r.ID, VehicleMode: round.ModeOnFoot}, nil)

	var p progress.RoundProgress
	ts.MustCall(t, alice, "get_round_progress", mcp.RoundIDParams{RoundID: r.ID}, &p)
	require.Equal(t, 3, p.Total)

	ts.MustCall(t, dispatcher, "deactivate_checkpoint", mcp.IDParams{ID: f.checkpoints[2].ID}, nil)

	ts.MustCall(t, alice, "get_round_progress", mcp.RoundIDParams{RoundID: r.ID}, &p)
	assert.Equal(t, 2, p.Total)

	rpcErr := ts.Call(t, alice, "record_visit_by_code", mcp.RecordVisitByCodeParams{RoundID: r.ID, Code: f.checkpoints[2].ManualCode}, nil)
	assert.Equal(t, "CHECKPOINT_NOT_FOUND", ErrorCode(rpcErr))

	for _, cp := range f.checkpoints[:2] {
		ts.MustCall(t, alice, "record_visit", mcp.RecordVisitParams{RoundID: r.ID, CheckpointID: cp.ID}, nil)
	}
	ts.MustCall(t, alice, "complete_round", mcp.CompleteRoundParams{RoundID: r.ID}, nil)
}

func TestRoundFlow_NewCheckpointJoinsLiveProgress(t *testing.T) {
	f := setup(t, Options{})
	ts := f.ts
	r := f.newRound(t)
	ts.MustCall(t, alice, "start_round", mcp.StartRoundParams{RoundID: r.ID, VehicleMode: round.ModeOnFoot}, nil)

	for _, cp := range f.checkpoints {
		ts.MustCall(t, alice, "record_visit", mcp.RecordVisitParams{RoundID: r.ID, CheckpointID: cp.ID}, nil)
	}
	var p progress.RoundProgress
	ts.MustCall(t, alice, "get_round_progress", mcp.RoundIDParams{RoundID: r.ID}, &p)
	require.Equal(t, 3, p.Total)
	require.True(t, p.Complete())

	var added checkpoint.Checkpoint
	ts.MustCall(t, dispatcher, "create_checkpoint", mcp.CreateCheckpointParams{ClientID: f.clientB.ID, Name: "Parking"}, &added)

	ts.MustCall(t, alice, "get_round_progress", mcp.RoundIDParams{RoundID: r.ID}, &p)
	assert.Equal(t, 4, p.Total)
	assert.Equal(t, 3, p.Completed)
	assert.False(t, p.Complete())

	rpcErr := ts.Call(t, alice, "complete_round", mcp.CompleteRoundParams{RoundID: r.ID}, nil)
	require.Equal(t, "CHECKPOINTS_OUTSTANDING", ErrorCode(rpcErr))

	ts.MustCall(t, alice, "record_visit", mcp.RecordVisitParams{RoundID: r.ID, CheckpointID: added.ID}, nil)
	ts.MustCall(t, alice, "complete_round", mcp.CompleteRoundParams{RoundID: r.ID}, nil)
}

func TestRoundFlow_VehicleValidation(t *testing.T) {
	f := setup(t, Options{Policy: round.Policy{RequireVehicleEndLocation: true}})
	ts := f.ts
	r := f.newRound(t)

	rpcErr := ts.Call(t, alice, "start_round", mcp.StartRoundParams{RoundID: r.ID, VehicleMode: round.ModeCar}, nil)
	require.Equal(t, "VALIDATION_FAILED", ErrorCode(rpcErr))

	// A rejected start leaves the round claimable.
	var claimable []round.Round
	ts.MustCall(t, bob, "list_claimable_rounds", nil, &claimable)
	require.Len(t, claimable, 1)

	start := 1200.0
	foreign := "evidence/globex/odometer/start.jpg"
	rpcErr = ts.Call(t, bob, "start_round", mcp.StartRoundParams{
		RoundID:            r.ID,
		VehicleMode:        round.ModeCar,
		VehicleID:          "VAN-7",
		StartOdometer:      &start,
		StartOdometerPhoto: &foreign,
	}, nil)
	require.Equal(t, "VALIDATION_FAILED", ErrorCode(rpcErr))

	photo := "evidence/acme/odometer/start.jpg"
	ts.MustCall(t, bob, "start_round", mcp.StartRoundParams{
		RoundID:            r.ID,
		VehicleMode:        round.ModeCar,
		VehicleID:          "VAN-7",
		StartOdometer:      &start,
		StartOdometerPhoto: &photo,
	}, nil)

	for _, cp := range f.checkpoints {
		ts.MustCall(t, bob, "record_visit", mcp.RecordVisitParams{RoundID: r.ID, CheckpointID: cp.ID}, nil)
	}

	lower := 1100.0
	rpcErr = ts.Call(t, bob, "complete_round", mcp.CompleteRoundParams{RoundID: r.ID, EndOdometer: &lower}, nil)
	require.Equal(t, "VALIDATION_FAILED", ErrorCode(rpcErr))

	end := 1234.5
	var completed round.Round
	ts.MustCall(t, bob, "complete_round", mcp.CompleteRoundParams{
		RoundID:     r.ID,
		EndOdometer: &end,
		EndLocation: pointPtr(-33.45, -70.66),
	}, &completed)
	require.NotNil(t, completed.EndOdometer)
	assert.Equal(t, end, *completed.EndOdometer)
}

func TestRoundFlow_IncidentKeepsRoundOperating(t *testing.T) {
	f := setup(t, Options{})
	ts := f.ts
	r := f.newRound(t)
	ts.MustCall(t, alice, "start_round", mcp.StartRoundParams{RoundID: r.ID, VehicleMode: round.ModeOnFoot}, nil)

	var escalated round.Round
	ts.MustCall(t, alice, "escalate_round", mcp.EscalateRoundParams{RoundID: r.ID, Reason: "fence breach"}, &escalated)
	assert.Equal(t, round.StatusIncident, escalated.Status)

	var inc incident.Incident
	ts.MustCall(t, alice, "report_incident", mcp.ReportIncidentParams{
		RoundID:     &r.ID,
		Severity:    incident.SeverityHigh,
		Description: "Fence cut near gate",
	}, &inc)
	assert.Equal(t, "alice", inc.ReportedBy)

	ts.MustCall(t, alice, "record_visit", mcp.RecordVisitParams{RoundID: r.ID, CheckpointID: f.checkpoints[0].ID}, nil)

	var resumed round.Round
	ts.MustCall(t, alice, "resume_round", mcp.RoundIDParams{RoundID: r.ID}, &resumed)
	assert.Equal(t, round.StatusActive, resumed.Status)

	rpcErr := ts.Call(t, alice, "resume_round", mcp.RoundIDParams{RoundID: r.ID}, nil)
	assert.Equal(t, "ILLEGAL_TRANSITION", ErrorCode(rpcErr))
}

func TestRoundFlow_TenantIsolation(t *testing.T) {
	f := setup(t, Options{})
	ts := f.ts
	r := f.newRound(t)
	require.NoError(t, ts.APIKeys.Create(context.Background(), "key-other", "globex", "carol", "test"))

	rpcErr := ts.Call(t, "key-other", "get_round", mcp.RoundIDParams{RoundID: r.ID}, nil)
	assert.Equal(t, "ROUND_NOT_FOUND", ErrorCode(rpcErr))

	var claimable []round.Round
	ts.MustCall(t, "key-other", "list_claimable_rounds", nil, &claimable)
	assert.Empty(t, claimable)
}

func TestRoundFlow_EventStream(t *testing.T) {
	f := setup(t, Options{})
	ts := f.ts
	r := f.newRound(t)
	ts.MustCall(t, alice, "start_round", mcp.StartRoundParams{RoundID: r.ID, VehicleMode: round.ModeOnFoot}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.Server.URL+"/rounds/"+r.ID+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+dispatcher)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ts.MustCall(t, alice, "record_visit", mcp.RecordVisitParams{RoundID: r.ID, CheckpointID: f.checkpoints[0].ID}, nil)

	reader := bufio.NewReader(resp.Body)
	seen := map[string]bool{}
	for !seen["event: visit.recorded"] || !seen["event: progress.updated"] {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		seen[strings.TrimSpace(line)] = true
	}
}

func pointPtr(lat, lng float64) *spatial.Point {
	return &spatial.Point{Lat: lat, Lng: lng}
}
