package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/patrol/internal/domain/visit"
	"github.com/rpggio/patrol/internal/repository"
)

const visitColumns = `
	id, tenant_id, round_id, checkpoint_id, client_id, operator_id, source,
	photo_ref, lat, lng, distance_meters, outside_geofence, visited_at`

// VisitRepository implements visit.Repository for SQLite
type VisitRepository struct {
	db *DB
}

// NewVisitRepository creates a new VisitRepository
func NewVisitRepository(db *DB) *VisitRepository {
	return &VisitRepository{db: db}
}

// Insert stores a visit unless the round already has one for the checkpoint.
// The (round_id, checkpoint_id) constraint makes repeated scans a no-op.
func (r *VisitRepository) Insert(ctx context.Context, tenantID string, v *visit.Visit) (bool, error) {
	lat, lng := pointArgs(v.Location)

	query := `
		INSERT INTO checkpoint_visits (` + visitColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (round_id, checkpoint_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		v.ID,
		tenantID,
		v.RoundID,
		v.CheckpointID,
		v.ClientID,
		v.OperatorID,
		v.Source,
		v.PhotoRef,
		lat,
		lng,
		v.DistanceMeters,
		v.OutsideGeofence,
		v.VisitedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, repository.ErrForeignKeyViolation
		}
		return false, fmt.Errorf("failed to insert visit: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	v.TenantID = tenantID
	return rowsAffected == 1, nil
}

// GetByCheckpoint retrieves the visit of a checkpoint within a round
func (r *VisitRepository) GetByCheckpoint(ctx context.Context, tenantID, roundID, checkpointID string) (*visit.Visit, error) {
	query := `SELECT ` + visitColumns + `
		FROM checkpoint_visits
		WHERE tenant_id = ? AND round_id = ? AND checkpoint_id = ?`

	v, err := scanVisit(r.db.QueryRowContext(ctx, query, tenantID, roundID, checkpointID))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return v, nil
}

// ListByRound returns a round's visits in the order they were made
func (r *VisitRepository) ListByRound(ctx context.Context, tenantID, roundID string) ([]visit.Visit, error) {
	query := `SELECT ` + visitColumns + `
		FROM checkpoint_visits
		WHERE tenant_id = ? AND round_id = ?
		ORDER BY visited_at ASC`

	rows, err := r.db.QueryContext(ctx, query, tenantID, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	defer rows.Close()

	var visits []visit.Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		visits = append(visits, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating visit rows: %w", err)
	}

	return visits, nil
}

// VisitedByRound returns the distinct checkpoint ids visited in a round
func (r *VisitRepository) VisitedByRound(ctx context.Context, tenantID, roundID string) ([]string, error) {
	return r.checkpointIDs(ctx,
		`SELECT DISTINCT checkpoint_id FROM checkpoint_visits WHERE tenant_id = ? AND round_id = ?`,
		tenantID, roundID)
}

// VisitedByClient returns the distinct checkpoint ids of one client visited in a round
func (r *VisitRepository) VisitedByClient(ctx context.Context, tenantID, roundID, clientID string) ([]string, error) {
	return r.checkpointIDs(ctx,
		`SELECT DISTINCT checkpoint_id FROM checkpoint_visits WHERE tenant_id = ? AND round_id = ? AND client_id = ?`,
		tenantID, roundID, clientID)
}

func (r *VisitRepository) checkpointIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list visited checkpoints: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating visited checkpoints: %w", err)
	}
	return ids, nil
}

func scanVisit(row rowScanner) (*visit.Visit, error) {
	var v visit.Visit
	var photo sql.NullString
	var lat, lng, distance sql.NullFloat64
	err := row.Scan(
		&v.ID,
		&v.TenantID,
		&v.RoundID,
		&v.CheckpointID,
		&v.ClientID,
		&v.OperatorID,
		&v.Source,
		&photo,
		&lat,
		&lng,
		&distance,
		&v.OutsideGeofence,
		&v.VisitedAt,
	)
	if err != nil {
		return nil, err
	}
	v.PhotoRef = stringPtr(photo)
	v.Location = pointFrom(lat, lng)
	v.DistanceMeters = floatPtr(distance)
	return &v, nil
}
