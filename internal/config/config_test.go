package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "haversine", cfg.DistanceProvider)
	assert.Equal(t, 10*time.Second, cfg.DistanceTimeout)

	start, end, err := cfg.Workday()
	require.NoError(t, err)
	assert.Equal(t, 8*60, start.Minutes())
	assert.Equal(t, 17*60, end.Minutes())
}

func TestLoadYAMLThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\ntimezone: UTC\nworkday_start: \"07:00\"\nlocker: redis\n"), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TIMEZONE", "")
	t.Setenv("PORT", "")
	t.Setenv("LOCKER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "07:00", cfg.WorkdayStart)
	assert.Equal(t, "memory", cfg.Locker)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cfg := Default()
	cfg.Timezone = "UTC"
	require.NoError(t, cfg.Validate())

	cfg.DistanceProvider = "ors"
	assert.Error(t, cfg.Validate(), "ors without an api key")

	cfg = Default()
	cfg.Timezone = "UTC"
	cfg.WorkdayStart = "18:00"
	assert.Error(t, cfg.Validate(), "work day ends before it starts")

	cfg = Default()
	cfg.Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Timezone = "UTC"
	cfg.RecalcCron = "every evening"
	assert.Error(t, cfg.Validate(), "unparseable sweep schedule")
}
