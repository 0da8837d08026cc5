package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/patrol/internal/domain/client"
	"github.com/rpggio/patrol/internal/repository"
)

// ClientRepository implements client.Repository for SQLite
type ClientRepository struct {
	db *DB
}

// NewClientRepository creates a new ClientRepository
func NewClientRepository(db *DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// Create inserts a new client
func (r *ClientRepository) Create(ctx context.Context, tenantID string, c *client.Client) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO clients (id, tenant_id, name, address, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, c.ID, tenantID, c.Name, c.Address, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrUniqueViolation
		}
		return fmt.Errorf("failed to create client: %w", err)
	}

	c.TenantID = tenantID
	return nil
}

// Get retrieves a client by ID
func (r *ClientRepository) Get(ctx context.Context, tenantID, id string) (*client.Client, error) {
	query := `
		SELECT id, tenant_id, name, address, created_at
		FROM clients
		WHERE id = ? AND tenant_id = ?
	`

	var c client.Client
	var address sql.NullString
	err := r.db.QueryRowContext(ctx, query, id, tenantID).Scan(
		&c.ID,
		&c.TenantID,
		&c.Name,
		&address,
		&c.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	c.Address = address.String

	return &c, nil
}

// List returns all clients of a tenant ordered by name
func (r *ClientRepository) List(ctx context.Context, tenantID string) ([]client.Client, error) {
	query := `
		SELECT id, tenant_id, name, address, created_at
		FROM clients
		WHERE tenant_id = ?
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []client.Client
	for rows.Next() {
		var c client.Client
		var address sql.NullString
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &address, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		c.Address = address.String
		clients = append(clients, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating client rows: %w", err)
	}

	return clients, nil
}
