package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/patrol/internal/domain/incident"
	"github.com/rpggio/patrol/internal/repository"
)

const incidentColumns = `
	id, tenant_id, round_id, client_id, severity, status, description,
	lat, lng, photo_ref, reported_by, created_at, updated_at, resolved_at`

// IncidentRepository implements incident.Repository for SQLite
type IncidentRepository struct {
	db *DB
}

// NewIncidentRepository creates a new IncidentRepository
func NewIncidentRepository(db *DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// Create inserts a new incident
func (r *IncidentRepository) Create(ctx context.Context, tenantID string, inc *incident.Incident) error {
	now := time.Now()
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = now
	}
	if inc.UpdatedAt.IsZero() {
		inc.UpdatedAt = inc.CreatedAt
	}
	lat, lng := pointArgs(inc.Location)

	query := `
		INSERT INTO incidents (` + incidentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		inc.ID,
		tenantID,
		inc.RoundID,
		inc.ClientID,
		inc.Severity,
		inc.Status,
		inc.Description,
		lat,
		lng,
		inc.PhotoRef,
		inc.ReportedBy,
		inc.CreatedAt,
		inc.UpdatedAt,
		inc.ResolvedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create incident: %w", err)
	}

	inc.TenantID = tenantID
	return nil
}

// Get retrieves an incident by ID
func (r *IncidentRepository) Get(ctx context.Context, tenantID, id string) (*incident.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = ? AND tenant_id = ?`

	inc, err := scanIncident(r.db.QueryRowContext(ctx, query, id, tenantID))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get incident: %w", err)
	}
	return inc, nil
}

// UpdateStatus writes a status change if the stored status still equals expected
func (r *IncidentRepository) UpdateStatus(ctx context.Context, tenantID string, inc *incident.Incident, expected incident.Status) error {
	query := `
		UPDATE incidents
		SET status = ?, updated_at = ?, resolved_at = ?
		WHERE id = ? AND tenant_id = ? AND status = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		inc.Status,
		inc.UpdatedAt,
		inc.ResolvedAt,
		inc.ID,
		tenantID,
		expected,
	)
	if err != nil {
		return fmt.Errorf("failed to update incident: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var exists bool
		checkQuery := `SELECT EXISTS(SELECT 1 FROM incidents WHERE id = ? AND tenant_id = ?)`
		if err := r.db.QueryRowContext(ctx, checkQuery, inc.ID, tenantID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check incident existence: %w", err)
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}

	return nil
}

// ListByRound returns a round's incidents, newest first
func (r *IncidentRepository) ListByRound(ctx context.Context, tenantID, roundID string) ([]incident.Incident, error) {
	query := `SELECT ` + incidentColumns + `
		FROM incidents
		WHERE tenant_id = ? AND round_id = ?
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, tenantID, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	var incidents []incident.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}
		incidents = append(incidents, *inc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating incident rows: %w", err)
	}

	return incidents, nil
}

func scanIncident(row rowScanner) (*incident.Incident, error) {
	var inc incident.Incident
	var roundID, clientID, photo sql.NullString
	var lat, lng sql.NullFloat64
	var resolvedAt sql.NullTime
	err := row.Scan(
		&inc.ID,
		&inc.TenantID,
		&roundID,
		&clientID,
		&inc.Severity,
		&inc.Status,
		&inc.Description,
		&lat,
		&lng,
		&photo,
		&inc.ReportedBy,
		&inc.CreatedAt,
		&inc.UpdatedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	inc.RoundID = stringPtr(roundID)
	inc.ClientID = stringPtr(clientID)
	inc.Location = pointFrom(lat, lng)
	inc.PhotoRef = stringPtr(photo)
	inc.ResolvedAt = timePtr(resolvedAt)
	return &inc, nil
}
