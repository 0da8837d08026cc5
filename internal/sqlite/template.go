package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/patrol/internal/domain/template"
	"github.com/rpggio/patrol/internal/repository"
)

// TemplateRepository implements template.Repository for SQLite
type TemplateRepository struct {
	db *DB
}

// NewTemplateRepository creates a new TemplateRepository
func NewTemplateRepository(db *DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create inserts a template together with its ordered client list
func (r *TemplateRepository) Create(ctx context.Context, tenantID string, tmpl *template.Template) error {
	if tmpl.CreatedAt.IsZero() {
		tmpl.CreatedAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO round_templates (id, tenant_id, name, shift_type, signature_required, active, copied_from, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		tmpl.ID,
		tenantID,
		tmpl.Name,
		tmpl.ShiftType,
		tmpl.SignatureRequired,
		tmpl.Active,
		tmpl.CopiedFrom,
		tmpl.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create template: %w", err)
	}

	for i, clientID := range tmpl.ClientIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO template_clients (template_id, client_id, position) VALUES (?, ?, ?)`,
			tmpl.ID, clientID, i)
		if err != nil {
			if isForeignKeyViolation(err) {
				return repository.ErrForeignKeyViolation
			}
			return fmt.Errorf("failed to add template client: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	tmpl.TenantID = tenantID
	return nil
}

// Get retrieves a template and its client list
func (r *TemplateRepository) Get(ctx context.Context, tenantID, id string) (*template.Template, error) {
	query := `
		SELECT id, tenant_id, name, shift_type, signature_required, active, copied_from, created_at
		FROM round_templates
		WHERE id = ? AND tenant_id = ?
	`

	tmpl, err := scanTemplate(r.db.QueryRowContext(ctx, query, id, tenantID))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	tmpl.ClientIDs, err = r.clientIDs(ctx, tmpl.ID)
	if err != nil {
		return nil, err
	}
	return tmpl, nil
}

// List returns a tenant's templates, newest first
func (r *TemplateRepository) List(ctx context.Context, tenantID string, includeInactive bool) ([]template.Template, error) {
	query := `
		SELECT id, tenant_id, name, shift_type, signature_required, active, copied_from, created_at
		FROM round_templates
		WHERE tenant_id = ?
	`
	if !includeInactive {
		query += " AND active = 1"
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	var templates []template.Template
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, *tmpl)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("error iterating template rows: %w", err)
	}

	// Client lists are read after the cursor closes; the pool holds one connection.
	for i := range templates {
		ids, err := r.clientIDs(ctx, templates[i].ID)
		if err != nil {
			return nil, err
		}
		templates[i].ClientIDs = ids
	}

	return templates, nil
}

// Deactivate marks a template inactive
func (r *TemplateRepository) Deactivate(ctx context.Context, tenantID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE round_templates SET active = 0 WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to deactivate template: %w", err)
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

func (r *TemplateRepository) clientIDs(ctx context.Context, templateID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT client_id FROM template_clients WHERE template_id = ? ORDER BY position ASC`, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get template clients: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan template client: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating template clients: %w", err)
	}
	return ids, nil
}

func scanTemplate(row rowScanner) (*template.Template, error) {
	var tmpl template.Template
	var copiedFrom sql.NullString
	err := row.Scan(
		&tmpl.ID,
		&tmpl.TenantID,
		&tmpl.Name,
		&tmpl.ShiftType,
		&tmpl.SignatureRequired,
		&tmpl.Active,
		&copiedFrom,
		&tmpl.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	tmpl.CopiedFrom = stringPtr(copiedFrom)
	return &tmpl, nil
}
