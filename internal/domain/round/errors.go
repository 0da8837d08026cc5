package round

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/patrol/internal/domain/progress"
)

var (
	// ErrRoundNotFound indicates the round doesn't exist.
	ErrRoundNotFound = errors.New("round not found")
	// ErrAlreadyClaimed indicates another operator won the claim.
	ErrAlreadyClaimed = errors.New("round already claimed by another operator")
	// ErrNotPending indicates the round can no longer be started.
	ErrNotPending = errors.New("round is not pending")
	// ErrIllegalTransition indicates the lifecycle does not permit the move.
	ErrIllegalTransition = errors.New("illegal round state transition")
	// ErrNotAssignedOperator indicates the requester does not hold the round.
	ErrNotAssignedOperator = errors.New("operator is not assigned to this round")
	// ErrCheckpointsOutstanding indicates in-scope checkpoints still lack visits.
	ErrCheckpointsOutstanding = errors.New("round has outstanding checkpoints")
	// ErrRoundNotActive indicates the round does not accept visits.
	ErrRoundNotActive = errors.New("round is not active")
	// ErrValidationFailed indicates invalid transition inputs.
	ErrValidationFailed = errors.New("round validation failed")
	// ErrConflict indicates the round changed since it was read.
	ErrConflict = errors.New("round modified concurrently")
	// ErrInvalidInput indicates invalid round creation input.
	ErrInvalidInput = errors.New("invalid round input")
)

// FieldError is a single validation failure.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError carries field-level reasons and wraps ErrValidationFailed.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// OutstandingError lists the clients blocking completion and wraps
// ErrCheckpointsOutstanding.
type OutstandingError struct {
	Clients []progress.ClientProgress
}

func (e *OutstandingError) Error() string {
	remaining := 0
	for _, c := range e.Clients {
		remaining += c.Remaining()
	}
	return fmt.Sprintf("%s: %d checkpoints across %d clients", ErrCheckpointsOutstanding, remaining, len(e.Clients))
}

func (e *OutstandingError) Unwrap() error {
	return ErrCheckpointsOutstanding
}
