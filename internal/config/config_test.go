package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/royale-backend/internal/engine"
	"github.com/DoyleJ11/royale-backend/internal/ring"
)

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, time.Second, c.DamageInterval)
	assert.Equal(t, 1500.0, c.ArenaRadius)
	assert.Equal(t, ring.DefaultTable().Len(), c.Table.Len())
	assert.NoError(t, c.Defaults.Validate())
	assert.Equal(t, engine.DefaultPlayerLimit, c.PlayerLimit)
	assert.False(t, c.Bounds().IsZero())
}

func TestLoad_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ring.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"phase": 1, "wait_seconds": 10, "shrink_seconds": 5, "damage_per_second": 1, "end_radius": 100}
	]`), 0o600))

	t.Setenv("RING_CONFIG", path)
	t.Setenv("ARENA_RADIUS", "400")
	t.Setenv("ARENA_HALF_SIZE", "0")
	t.Setenv("DAMAGE_INTERVAL", "500ms")
	t.Setenv("TEAM_SIZE", "2")
	t.Setenv("MAX_PLAYERS", "8")
	t.Setenv("TRACK_LAST_PLAYER", "false")

	c, err := Load(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Table.Len())
	assert.Equal(t, 400.0, c.ArenaRadius)
	assert.True(t, c.Bounds().IsZero())
	assert.Equal(t, 500*time.Millisecond, c.DamageInterval)
	assert.Equal(t, engine.Settings{MinPlayers: 2, MaxPlayers: 8, TeamSize: 2}, c.Defaults)
}

func TestLoad_CollectsEveryProblem(t *testing.T) {
	t.Setenv("TICK_INTERVAL", "soon")
	t.Setenv("ARENA_RADIUS", "wide")
	t.Setenv("TEAM_SIZE", "0")
	t.Setenv("RING_CONFIG", filepath.Join(t.TempDir(), "nope.json"))

	_, err := Load(noEnvFile(t))
	var cfgErr *engine.ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.GreaterOrEqual(t, len(multierr.Errors(cfgErr.Err)), 4)
}

func TestLoad_PlayerLimit(t *testing.T) {
	t.Setenv("MAX_PLAYERS", "150")
	_, err := Load(noEnvFile(t))
	var cfgErr *engine.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	t.Setenv("MAX_PLAYERS_LIMIT", "200")
	c, err := Load(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, 200, c.PlayerLimit)
	assert.Equal(t, 150, c.Defaults.MaxPlayers)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_FORMAT=console\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("LOG_FORMAT") })

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "console", c.LogFormat)
}
