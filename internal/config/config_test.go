package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PATROL_CONFIG_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "patrol.db", cfg.DB.Path)
	require.Equal(t, 8*time.Second, cfg.Scan.AcquireTimeout)
	require.True(t, cfg.Rounds.RequireVehicleEndLocation)
	require.Empty(t, cfg.Redis.Addr)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patrol.yaml")
	content := `
server:
  port: 9090
db:
  path: /var/lib/patrol/patrol.db
scan:
  acquire_timeout: 5s
  max_failures: 2
rounds:
  geofence_radius_meters: 75
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("PATROL_CONFIG_PATH", path)
	t.Setenv("PATROL_SERVER_PORT", "7070")
	t.Setenv("PATROL_REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "/var/lib/patrol/patrol.db", cfg.DB.Path)
	require.Equal(t, 5*time.Second, cfg.Scan.AcquireTimeout)
	require.Equal(t, 2, cfg.Scan.MaxFailures)
	require.Equal(t, 75.0, cfg.Rounds.GeofenceRadiusMeters)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.Equal(t, 250*time.Millisecond, cfg.Scan.FrameInterval)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("PATROL_CONFIG_PATH", "")
	t.Setenv("PATROL_SERVER_PORT", "eighty")

	_, err := Load()
	require.Error(t, err)
}
