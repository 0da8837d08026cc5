package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/patrol/internal/domain/round"
	"github.com/rpggio/patrol/internal/repository"
)

const roundColumns = `
	id, tenant_id, template_id, client_id, status, assigned_operator,
	vehicle_id, vehicle_mode, start_odometer, end_odometer, start_odometer_photo,
	start_lat, start_lng, end_lat, end_lng, escalation_reason,
	created_at, started_at, completed_at, version`

// RoundRepository implements round.Repository for SQLite
type RoundRepository struct {
	db *DB
}

// NewRoundRepository creates a new RoundRepository
func NewRoundRepository(db *DB) *RoundRepository {
	return &RoundRepository{db: db}
}

// Create inserts a new round
func (r *RoundRepository) Create(ctx context.Context, tenantID string, rd *round.Round) error {
	if rd.CreatedAt.IsZero() {
		rd.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO rounds (id, tenant_id, template_id, client_id, status, assigned_operator, created_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		rd.ID,
		tenantID,
		rd.TemplateID,
		rd.ClientID,
		rd.Status,
		rd.AssignedOperator,
		rd.CreatedAt,
		rd.Version,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create round: %w", err)
	}

	rd.TenantID = tenantID
	return nil
}

// Get retrieves a round by ID
func (r *RoundRepository) Get(ctx context.Context, tenantID, id string) (*round.Round, error) {
	return r.get(ctx, r.db, tenantID, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *RoundRepository) get(ctx context.Context, q queryRower, tenantID, id string) (*round.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE id = ? AND tenant_id = ?`

	rd, err := scanRound(q.QueryRowContext(ctx, query, id, tenantID))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return rd, nil
}

// ListClaimable returns pending rounds that are unassigned or pre-assigned to operatorID
func (r *RoundRepository) ListClaimable(ctx context.Context, tenantID, operatorID string) ([]round.Round, error) {
	query := `SELECT ` + roundColumns + `
		FROM rounds
		WHERE tenant_id = ? AND status = 'pending'
		  AND (assigned_operator IS NULL OR assigned_operator = ?)
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, tenantID, operatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list claimable rounds: %w", err)
	}
	defer rows.Close()

	var rounds []round.Round
	for rows.Next() {
		rd, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, *rd)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating round rows: %w", err)
	}

	return rounds, nil
}

// Claim moves a pending round to active in a single conditional UPDATE.
// Of concurrent claimers exactly one sees a row change; the rest get
// ErrAlreadyClaimed when another operator holds the round, or
// ErrStateMismatch when it is no longer pending.
func (r *RoundRepository) Claim(ctx context.Context, tenantID, id string, act round.Activation) (*round.Round, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	startLat, startLng := pointArgs(act.StartLocation)
	var vehicleID, vehicleMode any
	if act.Vehicle.VehicleID != "" {
		vehicleID = act.Vehicle.VehicleID
	}
	if act.Vehicle.Mode != "" {
		vehicleMode = string(act.Vehicle.Mode)
	}

	query := `
		UPDATE rounds
		SET status = 'active', assigned_operator = ?, vehicle_id = ?, vehicle_mode = ?,
		    start_odometer = ?, start_odometer_photo = ?, start_lat = ?, start_lng = ?,
		    started_at = ?, version = version + 1
		WHERE id = ? AND tenant_id = ? AND status = 'pending'
		  AND (assigned_operator IS NULL OR assigned_operator = ?)
	`
	result, err := tx.ExecContext(ctx, query,
		act.OperatorID,
		vehicleID,
		vehicleMode,
		act.StartOdometer,
		act.StartOdometerPhoto,
		startLat,
		startLng,
		act.StartedAt,
		id,
		tenantID,
		act.OperatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to claim round: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var status string
		var assigned sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT status, assigned_operator FROM rounds WHERE id = ? AND tenant_id = ?`,
			id, tenantID).Scan(&status, &assigned)
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to classify claim failure: %w", err)
		}
		if assigned.Valid && assigned.String != act.OperatorID {
			return nil, repository.ErrAlreadyClaimed
		}
		return nil, repository.ErrStateMismatch
	}

	rd, err := r.get(ctx, tx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return rd, nil
}

// Update writes the mutable round fields with optimistic concurrency control
func (r *RoundRepository) Update(ctx context.Context, tenantID string, rd *round.Round, expectedVersion int64) error {
	endLat, endLng := pointArgs(rd.EndLocation)

	query := `
		UPDATE rounds
		SET status = ?, assigned_operator = ?, end_odometer = ?, end_lat = ?, end_lng = ?,
		    escalation_reason = ?, completed_at = ?, version = ?
		WHERE id = ? AND tenant_id = ? AND version = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		rd.Status,
		rd.AssignedOperator,
		rd.EndOdometer,
		endLat,
		endLng,
		rd.EscalationReason,
		rd.CompletedAt,
		rd.Version,
		rd.ID,
		tenantID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update round: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var exists bool
		checkQuery := `SELECT EXISTS(SELECT 1 FROM rounds WHERE id = ? AND tenant_id = ?)`
		if err := r.db.QueryRowContext(ctx, checkQuery, rd.ID, tenantID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check round existence: %w", err)
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}

	return nil
}

func scanRound(row rowScanner) (*round.Round, error) {
	var rd round.Round
	var (
		templateID, clientID, assigned sql.NullString
		vehicleID, vehicleMode, photo  sql.NullString
		escalation                     sql.NullString
		startOdo, endOdo               sql.NullFloat64
		startLat, startLng             sql.NullFloat64
		endLat, endLng                 sql.NullFloat64
		startedAt, completedAt         sql.NullTime
	)
	err := row.Scan(
		&rd.ID,
		&rd.TenantID,
		&templateID,
		&clientID,
		&rd.Status,
		&assigned,
		&vehicleID,
		&vehicleMode,
		&startOdo,
		&endOdo,
		&photo,
		&startLat,
		&startLng,
		&endLat,
		&endLng,
		&escalation,
		&rd.CreatedAt,
		&startedAt,
		&completedAt,
		&rd.Version,
	)
	if err != nil {
		return nil, err
	}

	rd.TemplateID = stringPtr(templateID)
	rd.ClientID = stringPtr(clientID)
	rd.AssignedOperator = stringPtr(assigned)
	if vehicleMode.Valid {
		rd.Vehicle = &round.VehicleBinding{VehicleID: vehicleID.String, Mode: round.VehicleMode(vehicleMode.String)}
	}
	rd.StartOdometer = floatPtr(startOdo)
	rd.EndOdometer = floatPtr(endOdo)
	rd.StartOdometerPhoto = stringPtr(photo)
	rd.StartLocation = pointFrom(startLat, startLng)
	rd.EndLocation = pointFrom(endLat, endLng)
	rd.EscalationReason = stringPtr(escalation)
	rd.StartedAt = timePtr(startedAt)
	rd.CompletedAt = timePtr(completedAt)
	return &rd, nil
}
