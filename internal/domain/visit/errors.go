package visit

import "errors"

var (
	// ErrOutOfScope indicates the checkpoint's client is not covered by the round.
	ErrOutOfScope = errors.New("checkpoint is outside the round's scope")
	// ErrInvalidInput indicates invalid visit input.
	ErrInvalidInput = errors.New("invalid visit input")
)
