// Package config loads simulation parameters from environment
// variables, following the donor's flat-struct-built-in-main style: no
// config file format or flag library, just os.Getenv plus strconv with
// sane defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/talgya/emergence/internal/agents"
	"github.com/talgya/emergence/internal/conflict"
	"github.com/talgya/emergence/internal/operator"
	"github.com/talgya/emergence/internal/world"
)

// Config holds every tunable the process needs at startup.
type Config struct {
	WorldSeed      int64
	WorldRadius    int
	TickIntervalMs uint64
	MaxTicks       uint64
	MaxRealTimeSec uint64
	DataDir        string
	APIPort        int
	AdminKey       string
	AnthropicKey   string
	DecisionDeadlineMs uint64
	ConflictStrategy   conflict.Strategy
	Vitals             agents.VitalsConfig
}

// Default returns the configuration used when no environment override
// is present: a moderate-size world, a 1s tick, no bound on ticks or
// wall-clock time, first-come-first-served conflict resolution.
func Default() Config {
	return Config{
		WorldSeed:          42,
		WorldRadius:        22,
		TickIntervalMs:     1000,
		MaxTicks:           0,
		MaxRealTimeSec:     0,
		DataDir:            "data",
		APIPort:            8080,
		DecisionDeadlineMs: 2000,
		ConflictStrategy:   conflict.FirstComeFirstServed,
		Vitals:             agents.DefaultVitalsConfig(),
	}
}

// Load builds a Config from Default overridden by any EMERGENCE_* env
// vars present, and validates the result. A parse failure is reported
// to the caller rather than calling os.Exit itself, so cmd/worldsim can
// decide how to abort (it does, per the donor's main() pattern).
func Load() (Config, error) {
	cfg := Default()

	for _, key := range []string{"EMERGENCE_WORLD_SEED", "EMERGENCE_WORLD_RADIUS", "EMERGENCE_API_PORT"} {
		if raw := os.Getenv(key); raw != "" {
			if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
				return Config{}, fmt.Errorf("config: %s: %w", key, err)
			}
		}
	}
	for _, key := range []string{"EMERGENCE_TICK_INTERVAL_MS", "EMERGENCE_MAX_TICKS", "EMERGENCE_MAX_REAL_TIME_SEC", "EMERGENCE_DECISION_DEADLINE_MS"} {
		if raw := os.Getenv(key); raw != "" {
			if _, err := strconv.ParseUint(raw, 10, 64); err != nil {
				return Config{}, fmt.Errorf("config: %s: %w", key, err)
			}
		}
	}

	if v, ok := getenvInt64("EMERGENCE_WORLD_SEED"); ok {
		cfg.WorldSeed = v
	}
	if v, ok := getenvInt("EMERGENCE_WORLD_RADIUS"); ok {
		if v <= 0 {
			return Config{}, fmt.Errorf("config: EMERGENCE_WORLD_RADIUS must be positive, got %d", v)
		}
		cfg.WorldRadius = v
	}
	if v, ok := getenvUint64("EMERGENCE_TICK_INTERVAL_MS"); ok {
		if v < 100 {
			return Config{}, fmt.Errorf("config: EMERGENCE_TICK_INTERVAL_MS must be >= 100, got %d", v)
		}
		cfg.TickIntervalMs = v
	}
	if v, ok := getenvUint64("EMERGENCE_MAX_TICKS"); ok {
		cfg.MaxTicks = v
	}
	if v, ok := getenvUint64("EMERGENCE_MAX_REAL_TIME_SEC"); ok {
		cfg.MaxRealTimeSec = v
	}
	if v := os.Getenv("EMERGENCE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v, ok := getenvInt("EMERGENCE_API_PORT"); ok {
		if v <= 0 || v > 65535 {
			return Config{}, fmt.Errorf("config: EMERGENCE_API_PORT must be a valid port, got %d", v)
		}
		cfg.APIPort = v
	}
	if v, ok := getenvUint64("EMERGENCE_DECISION_DEADLINE_MS"); ok {
		if v == 0 {
			return Config{}, fmt.Errorf("config: EMERGENCE_DECISION_DEADLINE_MS must be positive")
		}
		cfg.DecisionDeadlineMs = v
	}
	cfg.AdminKey = os.Getenv("EMERGENCE_ADMIN_KEY")
	cfg.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")

	if v := os.Getenv("EMERGENCE_CONFLICT_STRATEGY"); v != "" {
		strategy, err := parseConflictStrategy(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		cfg.ConflictStrategy = strategy
	}

	return cfg, nil
}

// WorldGenConfig adapts this configuration to world.GenConfig.
func (c Config) WorldGenConfig() world.GenConfig {
	gen := world.DefaultGenConfig()
	gen.Seed = c.WorldSeed
	gen.Radius = c.WorldRadius
	return gen
}

// Bounds adapts this configuration to operator.Bounds.
func (c Config) Bounds() operator.Bounds {
	return operator.Bounds{MaxTicks: c.MaxTicks, MaxRealTimeSeconds: c.MaxRealTimeSec}
}

func parseConflictStrategy(v string) (conflict.Strategy, error) {
	switch v {
	case "first_come_first_served", "fcfs":
		return conflict.FirstComeFirstServed, nil
	case "equal_split":
		return conflict.EqualSplit, nil
	default:
		return 0, fmt.Errorf("unknown conflict strategy %q", v)
	}
}

func getenvInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getenvInt64(key string) (int64, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getenvUint64(key string) (uint64, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
