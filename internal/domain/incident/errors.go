package incident

import "errors"

var (
	// ErrIncidentNotFound indicates the incident doesn't exist.
	ErrIncidentNotFound = errors.New("incident not found")
	// ErrInvalidTransition indicates an invalid incident status change.
	ErrInvalidTransition = errors.New("invalid incident status transition")
	// ErrInvalidInput indicates invalid incident input.
	ErrInvalidInput = errors.New("invalid incident input")
)
