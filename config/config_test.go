package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesTomlValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
view_distance = 16
compression_threshold = 512
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.ViewDistance)
	assert.Equal(t, 512, cfg.CompressionThreshold)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, ":25565", cfg.ListenAddress)
	assert.Equal(t, 256, cfg.CompressionThreshold)
}

func TestEnvironmentOverridesTomlValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`view_distance = 16`), 0o644))

	t.Setenv("HYPERION_VIEW_DISTANCE", "4")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.ViewDistance)
}

func TestTickWorkersDefaultsToGOMAXPROCS(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Greater(t, cfg.TickWorkers, 0)
}
