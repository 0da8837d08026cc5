package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/patrol/internal/repository"
)

// APIKeyRepository stores hashed API keys and the principal each one maps to.
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Create stores the hash of token for a tenant and optional operator
func (r *APIKeyRepository) Create(ctx context.Context, token, tenantID, operatorID, description string) error {
	var operator any
	if operatorID != "" {
		operator = operatorID
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, tenant_id, operator_id, created_at, description) VALUES (?, ?, ?, ?, ?)`,
		HashToken(token), tenantID, operator, time.Now(), description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrUniqueViolation
		}
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// ResolvePrincipal returns the tenant and operator a token belongs to and stamps its last use
func (r *APIKeyRepository) ResolvePrincipal(ctx context.Context, token string) (tenantID, operatorID string, err error) {
	hash := HashToken(token)

	var operator sql.NullString
	err = r.db.QueryRowContext(ctx,
		`SELECT tenant_id, operator_id FROM api_keys WHERE key_hash = ?`, hash,
	).Scan(&tenantID, &operator)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", repository.ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve api key: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, time.Now(), hash); err != nil {
		return "", "", fmt.Errorf("failed to touch api key: %w", err)
	}

	return tenantID, operator.String, nil
}

// HashToken returns the stored form of an API key
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
