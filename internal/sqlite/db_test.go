package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func insertClient(t *testing.T, db *DB, id, tenantID string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO clients (id, tenant_id, name, created_at) VALUES (?, ?, ?, ?)`,
		id, tenantID, "Client "+id, time.Now())
	require.NoError(t, err)
}

func insertCheckpoint(t *testing.T, db *DB, id, tenantID, clientID, code string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO checkpoints (id, tenant_id, client_id, name, manual_code, active, created_at) VALUES (?, ?, ?, ?, ?, 1, ?)`,
		id, tenantID, clientID, "Checkpoint "+id, code, time.Now())
	require.NoError(t, err)
}

func insertAdHocRound(t *testing.T, db *DB, id, tenantID, clientID string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO rounds (id, tenant_id, client_id, status, created_at) VALUES (?, ?, ?, 'pending', ?)`,
		id, tenantID, clientID, time.Now())
	require.NoError(t, err)
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	tables := []string{
		"clients",
		"checkpoints",
		"round_templates",
		"template_clients",
		"rounds",
		"checkpoint_visits",
		"incidents",
		"activity_log",
		"api_keys",
	}

	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}
}

// TestForeignKeys verifies that foreign key constraints are enabled
func TestForeignKeys(t *testing.T) {
	db := NewTestDB(t)

	var enabled int
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled)
	require.NoError(t, err)
	require.Equal(t, 1, enabled, "foreign keys not enabled")
}

func TestCheckpointsTable_CodeConstraints(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertClient(t, db, "c1", "tenant1")
	insertCheckpoint(t, db, "cp1", "tenant1", "c1", "123456789")

	// Wrong length
	_, err := db.ExecContext(ctx,
		`INSERT INTO checkpoints (id, tenant_id, client_id, name, manual_code) VALUES (?, ?, ?, ?, ?)`,
		"cp2", "tenant1", "c1", "Short", "1234")
	require.Error(t, err)

	// Duplicate active code
	_, err = db.ExecContext(ctx,
		`INSERT INTO checkpoints (id, tenant_id, client_id, name, manual_code) VALUES (?, ?, ?, ?, ?)`,
		"cp3", "tenant1", "c1", "Dup", "123456789")
	require.Error(t, err)
	require.True(t, isUniqueViolation(err))

	// Same code is allowed once the first holder is retired
	_, err = db.ExecContext(ctx, `UPDATE checkpoints SET active = 0 WHERE id = ?`, "cp1")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO checkpoints (id, tenant_id, client_id, name, manual_code) VALUES (?, ?, ?, ?, ?)`,
		"cp3", "tenant1", "c1", "Reuse", "123456789")
	require.NoError(t, err)
}

func TestRoundsTable_TemplateOrClient(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertClient(t, db, "c1", "tenant1")
	_, err := db.ExecContext(ctx,
		`INSERT INTO round_templates (id, tenant_id, name, shift_type) VALUES (?, ?, ?, ?)`,
		"t1", "tenant1", "Night", "night")
	require.NoError(t, err)

	// Neither
	_, err = db.ExecContext(ctx, `INSERT INTO rounds (id, tenant_id, status) VALUES (?, ?, 'pending')`, "r1", "tenant1")
	require.Error(t, err)

	// Both
	_, err = db.ExecContext(ctx,
		`INSERT INTO rounds (id, tenant_id, template_id, client_id, status) VALUES (?, ?, ?, ?, 'pending')`,
		"r2", "tenant1", "t1", "c1")
	require.Error(t, err)

	// Invalid status
	_, err = db.ExecContext(ctx,
		`INSERT INTO rounds (id, tenant_id, client_id, status) VALUES (?, ?, ?, 'paused')`,
		"r3", "tenant1", "c1")
	require.Error(t, err)
}
