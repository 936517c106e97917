package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsUsable(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 120*time.Second, cfg.Flow.IdleTimeout)
	assert.Equal(t, ":5555", cfg.Publish.TCPBusListen)
	assert.Equal(t, "alerts.jsonl", cfg.Alerts.JSONLPath)
	assert.False(t, cfg.Storage.Enabled)
}

func TestLoadFillsMissingFieldsOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nidcore.yaml")
	contents := `
flow:
  idle_timeout: 30s
storage:
  enabled: true
  host: db.internal
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Flow.IdleTimeout)
	assert.True(t, cfg.Storage.Enabled)
	assert.Equal(t, "db.internal", cfg.Storage.Host)
	assert.Equal(t, 10, cfg.Storage.PoolSize)
	assert.Equal(t, ":5555", cfg.Publish.TCPBusListen)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/nidcore.yaml")
	assert.Error(t, err)
}
