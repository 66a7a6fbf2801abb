package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runDBTool(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func setupDBToolEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("TIMEZONE", "Australia/Sydney")
	t.Setenv("DISTANCE_PROVIDER", "haversine")
	t.Setenv("DISTANCE_CACHE", "memory")
	t.Setenv("LOCKER", "memory")
	t.Setenv("NOTIFIER", "inline")
	return filepath.Join(t.TempDir(), "dbtool.db")
}

func TestMigrateSeedRecalc(t *testing.T) {
	dbPath := setupDBToolEnv(t)
	seed := filepath.Join("..", "..", "data", "seeds", "seed.json")

	out, err := runDBTool(t, "--database-url", dbPath, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema ready (sqlite)")

	out, err = runDBTool(t, "--database-url", dbPath, "seed", "-f", seed)
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded from")

	// Seeding twice replaces rows instead of failing on duplicate ids.
	_, err = runDBTool(t, "--database-url", dbPath, "seed", "-f", seed)
	require.NoError(t, err)

	out, err = runDBTool(t, "--database-url", dbPath, "recalc", "--owner", "tradie-sam", "--date", "2026-10-19")
	require.NoError(t, err)
	assert.Contains(t, out, "Switchboard upgrade")
	assert.Contains(t, out, "min /")
}

func TestOptimizeUsesOwnerBase(t *testing.T) {
	dbPath := setupDBToolEnv(t)
	seed := filepath.Join("..", "..", "data", "seeds", "seed.json")

	_, err := runDBTool(t, "--database-url", dbPath, "seed", "-f", seed)
	require.NoError(t, err)

	out, err := runDBTool(t, "--database-url", dbPath, "optimize", "--owner", "tradie-sam", "--date", "2026-10-19")
	require.NoError(t, err)
	assert.Contains(t, out, "EV charger install")
	assert.Contains(t, out, "Switchboard upgrade")

	// tradie-jo has no base in the seed file.
	_, err = runDBTool(t, "--database-url", dbPath, "optimize", "--owner", "tradie-jo", "--date", "2026-10-19")
	assert.ErrorContains(t, err, "no base location")

	_, err = runDBTool(t, "--database-url", dbPath, "optimize", "--owner", "tradie-jo", "--date", "2026-10-19", "--start", "-33.75,151.15")
	assert.NoError(t, err)
}

func TestRecalcRequiresFlags(t *testing.T) {
	dbPath := setupDBToolEnv(t)

	_, err := runDBTool(t, "--database-url", dbPath, "recalc", "--owner", "tradie-sam")
	assert.Error(t, err)

	_, err = runDBTool(t, "--database-url", dbPath, "recalc", "--owner", "tradie-sam", "--date", "19/10/2026")
	assert.ErrorContains(t, err, "YYYY-MM-DD")
}

func TestParseLatLng(t *testing.T) {
	c, err := parseLatLng("-33.8, 151.2")
	require.NoError(t, err)
	assert.InDelta(t, -33.8, c.Lat, 1e-9)
	assert.InDelta(t, 151.2, c.Lng, 1e-9)

	_, err = parseLatLng("151.2")
	assert.Error(t, err)
	_, err = parseLatLng("-95,10")
	assert.Error(t, err)
}
