package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an optimistic concurrency check fails
	ErrConflict = errors.New("conflict: entity was modified by another session")

	// ErrForeignKeyViolation is returned when a foreign key constraint fails
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrUniqueViolation is returned when a uniqueness constraint fails
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrAlreadyClaimed is returned when a conditional claim loses to another operator
	ErrAlreadyClaimed = errors.New("already claimed by another operator")

	// ErrStateMismatch is returned when a conditional write finds the entity in another state
	ErrStateMismatch = errors.New("entity is not in the expected state")
)
