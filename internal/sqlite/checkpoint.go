package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/patrol/internal/domain/checkpoint"
	"github.com/rpggio/patrol/internal/repository"
)

const checkpointColumns = `id, tenant_id, client_id, name, lat, lng, manual_code, active, created_at`

// CheckpointRepository implements checkpoint.Repository for SQLite
type CheckpointRepository struct {
	db *DB
}

// NewCheckpointRepository creates a new CheckpointRepository
func NewCheckpointRepository(db *DB) *CheckpointRepository {
	return &CheckpointRepository{db: db}
}

// Create inserts a checkpoint. The partial unique index on active codes
// surfaces as repository.ErrUniqueViolation.
func (r *CheckpointRepository) Create(ctx context.Context, tenantID string, cp *checkpoint.Checkpoint) error {
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	lat, lng := pointArgs(cp.Location)

	query := `
		INSERT INTO checkpoints (id, tenant_id, client_id, name, lat, lng, manual_code, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		cp.ID,
		tenantID,
		cp.ClientID,
		cp.Name,
		lat,
		lng,
		cp.ManualCode,
		cp.Active,
		cp.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if isUniqueViolation(err) {
			return repository.ErrUniqueViolation
		}
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}

	cp.TenantID = tenantID
	return nil
}

// Get retrieves a checkpoint by ID regardless of its active flag
func (r *CheckpointRepository) Get(ctx context.Context, tenantID, id string) (*checkpoint.Checkpoint, error) {
	query := `SELECT ` + checkpointColumns + ` FROM checkpoints WHERE id = ? AND tenant_id = ?`

	cp, err := scanCheckpoint(r.db.QueryRowContext(ctx, query, id, tenantID))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	return cp, nil
}

// FindActiveByCode returns every active checkpoint carrying code. More
// than one result means the uniqueness invariant was broken.
func (r *CheckpointRepository) FindActiveByCode(ctx context.Context, tenantID, code string) ([]checkpoint.Checkpoint, error) {
	query := `SELECT ` + checkpointColumns + `
		FROM checkpoints
		WHERE tenant_id = ? AND manual_code = ? AND active = 1`
	return r.query(ctx, "find checkpoints by code", query, tenantID, code)
}

// ListByClient returns a client's checkpoints ordered by name
func (r *CheckpointRepository) ListByClient(ctx context.Context, tenantID, clientID string, includeInactive bool) ([]checkpoint.Checkpoint, error) {
	query := `SELECT ` + checkpointColumns + `
		FROM checkpoints
		WHERE tenant_id = ? AND client_id = ?`
	if !includeInactive {
		query += " AND active = 1"
	}
	query += " ORDER BY name ASC"
	return r.query(ctx, "list checkpoints", query, tenantID, clientID)
}

// ListActiveByClients returns the active checkpoints of all given clients
func (r *CheckpointRepository) ListActiveByClients(ctx context.Context, tenantID string, clientIDs []string) ([]checkpoint.Checkpoint, error) {
	if len(clientIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + checkpointColumns + `
		FROM checkpoints
		WHERE tenant_id = ? AND active = 1 AND client_id IN (` + placeholders(len(clientIDs)) + `)`

	args := make([]any, 0, len(clientIDs)+1)
	args = append(args, tenantID)
	for _, id := range clientIDs {
		args = append(args, id)
	}
	return r.query(ctx, "list active checkpoints", query, args...)
}

// Deactivate retires a checkpoint
func (r *CheckpointRepository) Deactivate(ctx context.Context, tenantID, id string) error {
	query := `
		UPDATE checkpoints
		SET active = 0, deactivated_at = ?
		WHERE id = ? AND tenant_id = ?
	`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to deactivate checkpoint: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CodeRetainedByVisits reports whether a retired checkpoint with code is
// still referenced by a visit.
func (r *CheckpointRepository) CodeRetainedByVisits(ctx context.Context, tenantID, code string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM checkpoints c
			JOIN checkpoint_visits v ON v.checkpoint_id = c.id
			WHERE c.tenant_id = ? AND c.manual_code = ? AND c.active = 0
		)
	`

	var retained bool
	if err := r.db.QueryRowContext(ctx, query, tenantID, code).Scan(&retained); err != nil {
		return false, fmt.Errorf("failed to check retained code: %w", err)
	}
	return retained, nil
}

func (r *CheckpointRepository) query(ctx context.Context, op, query string, args ...any) ([]checkpoint.Checkpoint, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var checkpoints []checkpoint.Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, *cp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkpoint rows: %w", err)
	}

	return checkpoints, nil
}

func scanCheckpoint(row rowScanner) (*checkpoint.Checkpoint, error) {
	var cp checkpoint.Checkpoint
	var lat, lng sql.NullFloat64
	err := row.Scan(
		&cp.ID,
		&cp.TenantID,
		&cp.ClientID,
		&cp.Name,
		&lat,
		&lng,
		&cp.ManualCode,
		&cp.Active,
		&cp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	cp.Location = pointFrom(lat, lng)
	return &cp, nil
}
