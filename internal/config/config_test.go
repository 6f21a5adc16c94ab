package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Engine.ConsensusThreshold)
	assert.Equal(t, int64(5), cfg.Engine.MaxSubmissionsPerOracle)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := []byte(`
server:
  port: 9000
engine:
  consensus_threshold: 5
  admin_address: file-admin
logging:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, doc, 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("ADMIN_ADDRESS", "env-admin")

	cfg, err := Load()
	require.NoError(t, err)

	// Environment wins over the file, the file wins over defaults.
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "env-admin", cfg.Engine.AdminAddress)
	assert.Equal(t, 5, cfg.Engine.ConsensusThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)

	params := cfg.EngineParams()
	assert.Equal(t, "env-admin", params.AdminAddress)
	assert.Equal(t, 5, params.ConsensusThreshold)
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("SERVER_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))
	t.Setenv("CONFIG_PATH", path)

	_, err := Load()
	require.Error(t, err)
}
