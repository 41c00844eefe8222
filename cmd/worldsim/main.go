// Command worldsim runs the Emergence simulation engine: generate a
// world, spawn a starting population, and drive the six-phase tick
// loop until the operator stops it, a bound is reached, or the
// population goes extinct.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talgya/emergence/internal/action"
	"github.com/talgya/emergence/internal/agents"
	"github.com/talgya/emergence/internal/api"
	"github.com/talgya/emergence/internal/config"
	"github.com/talgya/emergence/internal/decision"
	"github.com/talgya/emergence/internal/decisionsource/llmsource"
	"github.com/talgya/emergence/internal/environment"
	"github.com/talgya/emergence/internal/ledger"
	"github.com/talgya/emergence/internal/operator"
	"github.com/talgya/emergence/internal/persistence"
	"github.com/talgya/emergence/internal/tick"
	"github.com/talgya/emergence/internal/world"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("Emergence — deterministic multi-agent simulation engine")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration failed", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}

	store, err := persistence.Open(cfg.DataDir)
	if err != nil {
		slog.Error("failed to open persistence adapter", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("persistence opened", "dir", cfg.DataDir)

	decider := buildDecisionSource(cfg)
	if cfg.AdminKey == "" {
		slog.Warn("EMERGENCE_ADMIN_KEY not set, admin POST endpoints are disabled")
	}

	// The API server binds once; an operator restart swaps the engine and
	// registry it reports on without rebinding the listening socket.
	apiServer := &api.Server{Port: cfg.APIPort, AdminKey: cfg.AdminKey, Store: store}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	firstRun := true
	for {
		worldGraph, registry, journal, resolver := buildWorld(cfg, decider)
		op := operator.New(cfg.TickIntervalMs, cfg.Bounds())

		engine := tick.NewEngine(worldGraph, registry, journal, resolver, decider, op, store, environment.NewGenerator(cfg.WorldSeed))
		engine.DecisionDeadline = msToDuration(cfg.DecisionDeadlineMs)

		apiServer.Engine = engine
		apiServer.Agents = registry
		if firstRun {
			if err := apiServer.Start(); err != nil {
				slog.Error("failed to bind HTTP API", "error", err)
				os.Exit(1)
			}
			firstRun = false
		}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			select {
			case sig := <-sigCh:
				slog.Info("received signal, requesting stop", "signal", sig)
				op.RequestStop()
				cancel()
			case <-ctx.Done():
			}
		}()

		fmt.Printf("\nEmergence is alive: %d agents across %d locations.\n", registry.Count(), len(worldGraph.Locations))
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.APIPort)
		fmt.Println("Starting simulation... (Ctrl+C to stop)")

		ended := engine.Run(ctx)
		cancel()

		slog.Info("simulation ended", "reason", ended.Reason, "final_tick", ended.FinalTick)

		if !op.IsRestartRequested() {
			break
		}
		slog.Info("restart requested, regenerating world")
		cfg.WorldSeed++
	}

	fmt.Println("Simulation stopped.")
}

// buildWorld generates a fresh world graph from cfg and populates it
// with a starting agent per location, wiring the resolver that will
// process every tick's action requests against it.
func buildWorld(cfg config.Config, decider decision.DecisionSource) (*world.Graph, *agents.Registry, *ledger.Journal, *action.Resolver) {
	slog.Info("generating world...", "seed", cfg.WorldSeed, "radius", cfg.WorldRadius)
	worldGraph := world.Generate(cfg.WorldGenConfig())

	registry := agents.NewRegistry(cfg.WorldSeed, cfg.Vitals)
	for id := range worldGraph.Locations {
		registry.Spawn(0, id)
	}
	slog.Info("agents spawned", "count", registry.Count(), "locations", len(worldGraph.Locations))

	journal := ledger.NewJournal()
	resolver := &action.Resolver{
		World:    worldGraph,
		Agents:   registry,
		Ledger:   journal,
		Vitals:   cfg.Vitals,
		Strategy: cfg.ConflictStrategy,
	}
	return worldGraph, registry, journal, resolver
}

// buildDecisionSource prefers the Anthropic-backed source when a key is
// configured, falling back to the deterministic heuristic source.
func buildDecisionSource(cfg config.Config) decision.DecisionSource {
	if client := llmsource.New(cfg.AnthropicKey); client != nil {
		slog.Info("LLM decision source enabled (Haiku)")
		return client
	}
	slog.Info("ANTHROPIC_API_KEY not set, using heuristic decision source")
	return decision.NewHeuristicDecisionSource()
}

func msToDuration(ms uint64) time.Duration { return time.Duration(ms) * time.Millisecond }
