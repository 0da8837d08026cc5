package checkpoint

import "errors"

var (
	// ErrMalformedCode indicates a code that is not exactly nine digits.
	ErrMalformedCode = errors.New("malformed checkpoint code")
	// ErrCheckpointNotFound indicates no active checkpoint carries the code or id.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	// ErrAmbiguousCode indicates more than one active checkpoint carries the code.
	ErrAmbiguousCode = errors.New("checkpoint code matches more than one active checkpoint")
	// ErrCodeInUse indicates the code belongs to another active checkpoint.
	ErrCodeInUse = errors.New("checkpoint code already in use")
	// ErrCodeRetained indicates the code belongs to a retired checkpoint that visits still reference.
	ErrCodeRetained = errors.New("checkpoint code retained by historical visits")
	// ErrInvalidInput indicates invalid checkpoint input.
	ErrInvalidInput = errors.New("invalid checkpoint input")
)
