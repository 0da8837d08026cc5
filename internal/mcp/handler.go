package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/patrol/internal/domain/activity"
	"github.com/rpggio/patrol/internal/domain/checkpoint"
	"github.com/rpggio/patrol/internal/domain/client"
	"github.com/rpggio/patrol/internal/domain/incident"
	"github.com/rpggio/patrol/internal/domain/progress"
	"github.com/rpggio/patrol/internal/domain/round"
	"github.com/rpggio/patrol/internal/domain/template"
	"github.com/rpggio/patrol/internal/domain/visit"
	"github.com/rpggio/patrol/internal/scan"
	"github.com/rpggio/patrol/internal/storage"
)

// ErrOperatorRequired indicates a call that acts on behalf of an operator
// arrived without an operator identity.
var ErrOperatorRequired = errors.New("operator identity required")

// ErrUnknownMethod indicates a method outside the tool catalog.
var ErrUnknownMethod = errors.New("unknown method")

// ErrInvalidParams indicates tool arguments that could not be decoded.
var ErrInvalidParams = errors.New("invalid params")

// ClientService defines client operations needed by MCP.
type ClientService interface {
	Create(ctx context.Context, tenantID string, req client.CreateRequest) (*client.Client, error)
	List(ctx context.Context, tenantID string) ([]client.Client, error)
}

// CheckpointService defines checkpoint operations needed by MCP.
type CheckpointService interface {
	Create(ctx context.Context, tenantID string, req checkpoint.CreateRequest) (*checkpoint.Checkpoint, error)
	ListByClient(ctx context.Context, tenantID, clientID string, includeInactive bool) ([]checkpoint.Checkpoint, error)
	Deactivate(ctx context.Context, tenantID, id string) (*checkpoint.Checkpoint, error)
	ResolveCode(ctx context.Context, tenantID, code string) (*checkpoint.Checkpoint, error)
}

// TemplateService defines template operations needed by MCP.
type TemplateService interface {
	Create(ctx context.Context, tenantID string, req template.CreateRequest) (*template.Template, error)
	Copy(ctx context.Context, tenantID, sourceID string, req template.CopyRequest) (*template.Template, error)
	List(ctx context.Context, tenantID string, includeInactive bool) ([]template.Template, error)
	Deactivate(ctx context.Context, tenantID, id string) error
}

// RoundService defines round operations needed by MCP.
type RoundService interface {
	Create(ctx context.Context, tenantID string, req round.CreateRequest) (*round.Round, error)
	Get(ctx context.Context, tenantID, id string) (*round.Round, error)
	ListClaimable(ctx context.Context, tenantID, operatorID string) ([]round.Round, error)
	Start(ctx context.Context, tenantID string, req round.StartRequest) (*round.Round, error)
	Complete(ctx context.Context, tenantID string, req round.CompleteRequest) (*round.Round, error)
	Escalate(ctx context.Context, tenantID, roundID, operatorID, reason string) (*round.Round, error)
	Resume(ctx context.Context, tenantID, roundID, operatorID string) (*round.Round, error)
}

// VisitService defines visit operations needed by MCP.
type VisitService interface {
	Record(ctx context.Context, tenantID string, req visit.RecordRequest) (*visit.Result, error)
	RecordCode(ctx context.Context, tenantID string, req visit.CodeRequest) (*visit.Result, error)
	ListByRound(ctx context.Context, tenantID, roundID string) ([]visit.Visit, error)
}

// ProgressService defines progress reads needed by MCP.
type ProgressService interface {
	Progress(ctx context.Context, tenantID, roundID string) (*progress.RoundProgress, error)
}

// IncidentService defines incident operations needed by MCP.
type IncidentService interface {
	Report(ctx context.Context, tenantID string, req incident.ReportRequest) (*incident.Incident, error)
	UpdateStatus(ctx context.Context, tenantID, id string, to incident.Status, operatorID string) (*incident.Incident, error)
	ListByRound(ctx context.Context, tenantID, roundID string) ([]incident.Incident, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	ListRoundActivity(ctx context.Context, tenantID, roundID string, limit int) ([]activity.Entry, error)
	GetRecentActivity(ctx context.Context, tenantID string, opts activity.ListOptions) ([]activity.Entry, error)
}

// EvidenceService defines photo evidence operations needed by MCP.
type EvidenceService interface {
	NewUpload(ctx context.Context, tenantID string, kind storage.Kind, contentType string) (*storage.UploadTicket, error)
	DownloadURL(ctx context.Context, tenantID, ref string) (string, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Clients     ClientService
	Checkpoints CheckpointService
	Templates   TemplateService
	Rounds      RoundService
	Visits      VisitService
	Progress    ProgressService
	Incidents   IncidentService
	Activity    ActivityService
	Evidence    EvidenceService
	Decoder     scan.Decoder
}

// Handler dispatches MCP commands.
type Handler struct {
	svc Services
}

// NewHandler creates a new MCP handler.
func NewHandler(svc Services) *Handler {
	return &Handler{svc: svc}
}

// Handle dispatches MCP requests to domain services. Errors are returned
// as *APIError when they map to a stable code.
func (h *Handler) Handle(ctx context.Context, tenantID, operatorID, method string, params json.RawMessage) (any, error) {
	result, err := h.dispatch(ctx, tenantID, operatorID, method, params)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func (h *Handler) dispatch(ctx context.Context, tenantID, operatorID, method string, params json.RawMessage) (any, error) {
	switch method {
	case "create_client":
		var req CreateClientParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.svc.Clients.Create(ctx, tenantID, client.CreateRequest{
			ID:      req.ID,
			Name:    req.Name,
			Address: req.Address,
		})
	case "list_clients":
		return h.svc.Clients.List(ctx, tenantID)
	case "create_checkpoint":
		var req CreateCheckpointParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.svc.Checkpoints.Create(ctx, tenantID, checkpoint.CreateRequest{
			ClientID:   req.ClientID,
			Name:       req.Name,
			Location:   req.Location,
			ManualCode: req.ManualCode,
		})
	case "list_checkpoints":
		var req ListCheckpointsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.svc.Checkpoints.ListByClient(ctx, tenantID, req.ClientID, req.IncludeInactive)
	case "deactivate_checkpoint":
		var req IDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.svc.Checkpoints.Deactivate(ctx, tenantID, req.ID)
	case "create_template":
		var req CreateTemplateParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.svc.Templates.Create(ctx, tenantID, template.CreateRequest{
			Name:              req.Name,
			ShiftType:         req.ShiftType,
			SignatureRequired: req.SignatureRequired,
			ClientIDs:         req.ClientIDs,
		})
	case "copy_template":
		var req CopyTemplateParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.svc.Templates.Copy(ctx, tenantID, req.ID, template.CopyRequest{
			Name:              req.Name,
			ShiftType:         req.ShiftType,
			SignatureRequired: req.SignatureRequired,
			ClientIDs:         req.ClientIDs,
			RetireSource:      req.RetireSource,
		})
	case "list_templates":
		var req ListTemplatesParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.svc.Templates.List(ctx, tenantID, req.IncludeInactive)
	case "deactivate_template":
		var req IDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.svc.Templates.Deactivate(ctx, tenantID, req.ID); err != nil {
			return nil, err
		}
		return map[string]string{"status": "inactive"}, nil
	case "create_round":
		var req CreateRoundParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.svc.Rounds.Create(ctx, tenantID, round.CreateRequest{
			TemplateID:       req.TemplateID,
			ClientID:         req.ClientID,
			AssignedOperator: req.AssignedOperator,
		})
	case "list_claimable_rounds":
		if operatorID == "" {
			return nil, ErrOperatorRequired
		}
		return h.svc.Rounds.ListClaimable(ctx, tenantID, operatorID)
	case "get_round":
		var req RoundIDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		r, err := h.svc.Rounds.Get(ctx, tenantID, req.RoundID)
		if err != nil {
			return nil, err
		}
		resp := RoundDetailResponse{Round: r}
		if r.Status != round.StatusPending {
			p, err := h.svc.Progress.Progress(ctx, tenantID, r.ID)
			if err != nil {
				return nil, err
			}
			resp.Progress = p
		}
		return resp, nil
	case "start_round":
		var req StartRoundParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if operatorID == "" {
			return nil, ErrOperatorRequired
		}
		return h.svc.Rounds.Start(ctx, tenantID, round.StartRequest{
			RoundID:            req.RoundID,
			OperatorID:         operatorID,
			Vehicle:            round.VehicleBinding{VehicleID: req.VehicleID, Mode: req.VehicleMode},
			StartOdometer:      req.StartOdometer,
			StartOdometerPhoto: req.StartOdometerPhoto,
			StartLocation:      req.StartLocation,
		})
	case "complete_round":
		var req CompleteRoundParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if operatorID == "" {
			return nil, ErrOperatorRequired
		}
		return h.svc.Rounds.Complete(ctx, tenantID, round.CompleteRequest{
			RoundID:     req.RoundID,
			OperatorID:  operatorID,
			EndOdometer: req.EndOdometer,
			EndLocation: req.EndLocation,
		})
	case "escalate_round":
		var req EscalateRoundParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if operatorID == "" {
			return nil, ErrOperatorRequired
		}
		return h.svc.Rounds.Escalate(ctx, tenantID, req.RoundID, operatorID, req.Reason)
	case "resume_round":
		var req RoundIDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if operatorID == "" {
			return nil, ErrOperatorRequired
		}
		return h.svc.Rounds.Resume(ctx, tenantID, req.RoundID, operatorID)
	case "record_visit":
		var req RecordVisitParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if operatorID == "" {
			return nil, ErrOperatorRequired
		}
		if req.Source == "" {
			req.Source = visit.SourceManual
		}
		res, err := h.svc.Visits.Record(ctx, tenantID, visit.RecordRequest{
			RoundID:      req.RoundID,
			CheckpointID: req.CheckpointID,
			OperatorID:   operatorID,
			Source:       req.Source,
			PhotoRef:     req.PhotoRef,
			Location:     req.Location,
		})
		if err != nil {
			return nil, err
		}
		return VisitResponse{Visit: res.Visit, Duplicate: res.Duplicate}, nil
	case "record_visit_by_code":
		var req RecordVisitByCodeParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if operatorID == "" {
			return nil, ErrOperatorRequired
		}
		if req.Source == "" {
			req.Source = visit.SourceScan
		}
		res, err := h.svc.Visits.RecordCode(ctx, tenantID, visit.CodeRequest{
			RoundID:    req.RoundID,
			Code:       req.Code,
			OperatorID: operatorID,
			Source:     req.Source,
			PhotoRef:   req.PhotoRef,
			Location:   req.Location,
		})
		if err != nil {
			return nil, err
		}
		return VisitResponse{Visit: res.Visit, Duplicate: res.Duplicate}, nil
	case "list_visits":
		var req RoundIDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.svc.Visits.ListByRound(ctx, tenantID, req.RoundID)
	case "get_round_progress":
		var req RoundIDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.svc.Progress.Progress(ctx, tenantID, req.RoundID)
	case "report_incident":
		var req ReportIncidentParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if operatorID == "" {
			return nil, ErrOperatorRequired
		}
		return h.svc.Incidents.Report(ctx, tenantID, incident.ReportRequest{
			RoundID:     req.RoundID,
			ClientID:    req.ClientID,
			Severity:    req.Severity,
			Description: req.Description,
			Location:    req.Location,
			PhotoRef:    req.PhotoRef,
			ReportedBy:  operatorID,
		})
	case "update_incident_status":
		var req UpdateIncidentStatusParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.svc.Incidents.UpdateStatus(ctx, tenantID, req.ID, req.Status, operatorID)
	case "list_incidents":
		var req RoundIDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.svc.Incidents.ListByRound(ctx, tenantID, req.RoundID)
	case "get_round_activity":
		var req RoundActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		entries, err := h.svc.Activity.ListRoundActivity(ctx, tenantID, req.RoundID, req.Limit)
		if err != nil {
			return nil, err
		}
		return activityResponse(entries), nil
	case "list_activity":
		var req ListActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		opts := activity.ListOptions{Limit: req.Limit, Offset: req.Offset}
		if req.Limit <= 0 || req.Limit > maxActivityPage {
			opts.Limit = maxActivityPage
		}
		if req.OperatorID != "" {
			opts.OperatorID = &req.OperatorID
		}
		if req.Type != "" {
			typ := activity.Type(req.Type)
			opts.Type = &typ
		}
		entries, err := h.svc.Activity.GetRecentActivity(ctx, tenantID, opts)
		if err != nil {
			return nil, err
		}
		return activityResponse(entries), nil
	case "request_upload":
		var req RequestUploadParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if h.svc.Evidence == nil {
			return nil, storage.ErrDisabled
		}
		return h.svc.Evidence.NewUpload(ctx, tenantID, req.Kind, req.ContentType)
	case "get_evidence_url":
		var req EvidenceURLParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if h.svc.Evidence == nil {
			return nil, storage.ErrDisabled
		}
		url, err := h.svc.Evidence.DownloadURL(ctx, tenantID, req.Ref)
		if err != nil {
			return nil, err
		}
		return EvidenceURLResponse{URL: url}, nil
	case "decode_checkpoint_image":
		var req DecodeCheckpointImageParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.decodeCheckpointImage(ctx, tenantID, req.Image)
	case "tools/list":
		return ToolsListResult{Tools: Tools()}, nil

	case "tools/call":
		var req ToolCallParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if strings.HasPrefix(req.Name, "tools/") {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, req.Name)
		}
		args, err := json.Marshal(req.Arguments)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		return h.dispatch(ctx, tenantID, operatorID, req.Name, args)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

// decodeCheckpointImage reads a QR code from an uploaded frame and
// resolves it like any scanned code.
func (h *Handler) decodeCheckpointImage(ctx context.Context, tenantID, encoded string) (*DecodeResponse, error) {
	if h.svc.Decoder == nil {
		return nil, scan.ErrNoCode
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: image is not base64", ErrInvalidParams)
	}
	code, err := scan.DecodeImage(data, h.svc.Decoder)
	if err != nil {
		return nil, err
	}
	cp, err := h.svc.Checkpoints.ResolveCode(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}
	return &DecodeResponse{Code: code, Checkpoint: cp}, nil
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}

const maxActivityPage = 200

func activityResponse(entries []activity.Entry) []ActivityEntryResponse {
	resp := make([]ActivityEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, ActivityEntryResponse{
			Timestamp:  entry.CreatedAt,
			Type:       string(entry.Type),
			OperatorID: stringValue(entry.OperatorID),
			RoundID:    stringValue(entry.RoundID),
			Summary:    entry.Summary,
			Details:    entry.Details,
		})
	}
	return resp
}

func stringValue(val *string) string {
	if val == nil {
		return ""
	}
	return *val
}
