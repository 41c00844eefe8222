package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/emergence/internal/conflict"
)

func TestLoadReturnsDefaultsWithNoEnvOverrides(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), cfg.TickIntervalMs)
	assert.Equal(t, 22, cfg.WorldRadius)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("EMERGENCE_TICK_INTERVAL_MS", "250")
	t.Setenv("EMERGENCE_WORLD_RADIUS", "10")
	t.Setenv("EMERGENCE_CONFLICT_STRATEGY", "equal_split")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(250), cfg.TickIntervalMs)
	assert.Equal(t, 10, cfg.WorldRadius)
	assert.Equal(t, conflict.EqualSplit, cfg.ConflictStrategy)
}

func TestLoadRejectsTickIntervalBelowMinimum(t *testing.T) {
	t.Setenv("EMERGENCE_TICK_INTERVAL_MS", "50")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownConflictStrategy(t *testing.T) {
	t.Setenv("EMERGENCE_CONFLICT_STRATEGY", "bogus")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveWorldRadius(t *testing.T) {
	t.Setenv("EMERGENCE_WORLD_RADIUS", "0")
	_, err := Load()
	assert.Error(t, err)
}
