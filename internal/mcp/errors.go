package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/patrol/internal/domain/activity"
	"github.com/rpggio/patrol/internal/domain/checkpoint"
	"github.com/rpggio/patrol/internal/domain/client"
	"github.com/rpggio/patrol/internal/domain/incident"
	"github.com/rpggio/patrol/internal/domain/round"
	"github.com/rpggio/patrol/internal/domain/template"
	"github.com/rpggio/patrol/internal/domain/visit"
	"github.com/rpggio/patrol/internal/scan"
	"github.com/rpggio/patrol/internal/storage"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

// OutstandingClient is the per-client detail of CHECKPOINTS_OUTSTANDING.
type OutstandingClient struct {
	ClientID  string `json:"client_id"`
	Remaining int    `json:"remaining"`
	Total     int    `json:"total"`
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var verr *round.ValidationError
	if errors.As(err, &verr) {
		return &APIError{Code: "VALIDATION_FAILED", Message: "round validation failed", Details: verr.Fields, RecoveryHint: "Fix the listed fields and retry"}
	}
	var outstanding *round.OutstandingError
	if errors.As(err, &outstanding) {
		details := make([]OutstandingClient, 0, len(outstanding.Clients))
		for _, c := range outstanding.Clients {
			details = append(details, OutstandingClient{ClientID: c.ClientID, Remaining: c.Remaining(), Total: c.Total})
		}
		return &APIError{Code: "CHECKPOINTS_OUTSTANDING", Message: "round has outstanding checkpoints", Details: details, RecoveryHint: "Visit the remaining checkpoints or escalate the round"}
	}

	switch {
	case errors.Is(err, checkpoint.ErrMalformedCode):
		return &APIError{Code: "MALFORMED_CODE", Message: "checkpoint code must be exactly 9 digits", RecoveryHint: "Re-enter the code printed on the checkpoint"}
	case errors.Is(err, checkpoint.ErrCheckpointNotFound):
		return &APIError{Code: "CHECKPOINT_NOT_FOUND", Message: "no active checkpoint matches", RecoveryHint: "Check the code or the checkpoint id"}
	case errors.Is(err, checkpoint.ErrAmbiguousCode):
		return &APIError{Code: "AMBIGUOUS_CODE", Message: "code matches more than one active checkpoint", RecoveryHint: "Report the duplicate code to a supervisor"}
	case errors.Is(err, checkpoint.ErrCodeInUse):
		return &APIError{Code: "CODE_IN_USE", Message: "checkpoint code already in use", RecoveryHint: "Omit manual_code to generate one"}
	case errors.Is(err, checkpoint.ErrCodeRetained):
		return &APIError{Code: "CODE_RETAINED", Message: "code belongs to a retired checkpoint with visits", RecoveryHint: "Choose another code"}
	case errors.Is(err, round.ErrAlreadyClaimed):
		return &APIError{Code: "ALREADY_CLAIMED", Message: "round already claimed by another operator", RecoveryHint: "Pick another claimable round"}
	case errors.Is(err, round.ErrNotPending):
		return &APIError{Code: "NOT_PENDING", Message: "round is not pending", RecoveryHint: "Refresh the round"}
	case errors.Is(err, round.ErrIllegalTransition):
		return &APIError{Code: "ILLEGAL_TRANSITION", Message: "illegal round state transition", RecoveryHint: "Check the round status"}
	case errors.Is(err, round.ErrNotAssignedOperator):
		return &APIError{Code: "NOT_ASSIGNED_OPERATOR", Message: "operator is not assigned to this round"}
	case errors.Is(err, round.ErrRoundNotActive):
		return &APIError{Code: "ROUND_NOT_ACTIVE", Message: "round does not accept visits", RecoveryHint: "Start or resume the round first"}
	case errors.Is(err, round.ErrConflict):
		return &APIError{Code: "CONFLICT", Message: "round modified concurrently", RecoveryHint: "Reload the round and retry"}
	case errors.Is(err, round.ErrRoundNotFound):
		return &APIError{Code: "ROUND_NOT_FOUND", Message: "round not found", RecoveryHint: "Check ID spelling"}
	case errors.Is(err, visit.ErrOutOfScope):
		return &APIError{Code: "OUT_OF_SCOPE", Message: "checkpoint is outside the round's scope"}
	case errors.Is(err, scan.ErrDeviceUnavailable):
		return &APIError{Code: "DEVICE_UNAVAILABLE", Message: "camera unavailable", Details: map[string]string{"reason": string(scan.ReasonOf(err))}, RecoveryHint: "Enter the code manually"}
	case errors.Is(err, scan.ErrNoCode):
		return &APIError{Code: "NO_CODE", Message: "no readable code in image", RecoveryHint: "Retake the photo or enter the code manually"}
	case errors.Is(err, client.ErrClientNotFound):
		return &APIError{Code: "CLIENT_NOT_FOUND", Message: "client not found", RecoveryHint: "Check ID spelling"}
	case errors.Is(err, template.ErrTemplateNotFound):
		return &APIError{Code: "TEMPLATE_NOT_FOUND", Message: "template not found", RecoveryHint: "Check ID spelling"}
	case errors.Is(err, template.ErrTemplateInactive):
		return &APIError{Code: "TEMPLATE_INACTIVE", Message: "template is inactive", RecoveryHint: "Use the active copy"}
	case errors.Is(err, incident.ErrIncidentNotFound):
		return &APIError{Code: "INCIDENT_NOT_FOUND", Message: "incident not found", RecoveryHint: "Check ID spelling"}
	case errors.Is(err, incident.ErrInvalidTransition):
		return &APIError{Code: "ILLEGAL_TRANSITION", Message: "illegal incident status transition", RecoveryHint: "Check the incident status"}
	case errors.Is(err, storage.ErrDisabled):
		return &APIError{Code: "EVIDENCE_DISABLED", Message: "evidence storage is not configured"}
	case errors.Is(err, ErrUnknownMethod):
		return &APIError{Code: "UNKNOWN_METHOD", Message: err.Error(), RecoveryHint: "List tools for the supported methods"}
	case errors.Is(err, ErrOperatorRequired):
		return &APIError{Code: "OPERATOR_REQUIRED", Message: "operator identity required", RecoveryHint: "Authenticate with an operator API key"}
	case errors.Is(err, storage.ErrUnsupportedContentType),
		errors.Is(err, storage.ErrInvalidKind),
		errors.Is(err, storage.ErrInvalidRef),
		errors.Is(err, scan.ErrInvalidImage),
		errors.Is(err, client.ErrInvalidInput),
		errors.Is(err, checkpoint.ErrInvalidInput),
		errors.Is(err, template.ErrInvalidInput),
		errors.Is(err, round.ErrInvalidInput),
		errors.Is(err, visit.ErrInvalidInput),
		errors.Is(err, incident.ErrInvalidInput),
		errors.Is(err, activity.ErrInvalidInput),
		errors.Is(err, ErrInvalidParams):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	default:
		return nil
	}
}
