// Package tick drives the simulation forward one tick at a time: World
// Wake, Perception, Decision, Resolution, Persist, Reflection. It wires
// together the world graph, agent registry, ledger, conflict strategy,
// decision source, and operator control plane into a single deterministic
// step function, and publishes a tick-summary broadcast to observers.
package tick

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/talgya/emergence/internal/action"
	"github.com/talgya/emergence/internal/agents"
	"github.com/talgya/emergence/internal/decision"
	"github.com/talgya/emergence/internal/environment"
	"github.com/talgya/emergence/internal/ledger"
	"github.com/talgya/emergence/internal/operator"
	"github.com/talgya/emergence/internal/world"
)

// PersistenceAdapter is the contract the Persist phase writes through.
// Implementations back the hot store (per-tick snapshot, keyed by tick,
// idempotent) and the cold store (append-only event/ledger history).
type PersistenceAdapter interface {
	PutTickSnapshot(tick uint64, snapshot Snapshot) error
	AppendEvents(tick uint64, events []Event) error
	AppendLedger(tick uint64, entries []ledger.Entry) error
}

// Snapshot is the per-tick hot-state record: agents, locations, clock.
type Snapshot struct {
	Tick      uint64                        `json:"tick"`
	Clock     environment.Clock             `json:"clock"`
	Weather   environment.Weather           `json:"weather"`
	Agents    map[uuid.UUID]AgentView       `json:"agents"`
	Locations map[uuid.UUID]*world.Location `json:"locations"`
}

// AgentView is the read-only projection of an agent's identity and state
// captured into a Snapshot.
type AgentView struct {
	Agent *agents.Agent      `json:"agent"`
	State *agents.AgentState `json:"state"`
}

// Event is a notable occurrence emitted during a tick, broadcast to
// subscribers and appended to the cold store.
type Event struct {
	Tick     uint64    `json:"tick"`
	Category string    `json:"category"` // "death", "birth", "ledger_anomaly", "operator_event", ...
	Detail   string    `json:"detail"`
	AgentID  uuid.UUID `json:"agent_id,omitempty"`
}

// TickBroadcast is the bounded, lag-tolerant stream record published once
// per committed tick to observer subscribers.
type TickBroadcast struct {
	Tick            uint64                   `json:"tick"`
	Season          environment.Season       `json:"season"`
	Weather         environment.Weather      `json:"weather"`
	AgentsAlive     int                      `json:"agents_alive"`
	DeathsThisTick  int                      `json:"deaths_this_tick"`
	ActionsResolved int                      `json:"actions_resolved"`
	LedgerAnomalies int                      `json:"ledger_anomalies"`
	PhaseDurations  map[string]time.Duration `json:"phase_durations"`
}

// SimulationEnded is returned by Run when the tick loop stops, recording
// why.
type SimulationEnded struct {
	Reason    operator.EndReason
	FinalTick uint64
}

// Engine owns every live system and advances them together one tick at a
// time. Phases 1-4 run single-threaded against the engine's own state;
// Phase 3 fans out per-agent decision calls concurrently but treats
// Perception snapshots as read-only.
type Engine struct {
	World    *world.Graph
	Agents   *agents.Registry
	Ledger   *ledger.Journal
	Resolver *action.Resolver
	Decider  decision.DecisionSource
	Operator *operator.State
	Persist  PersistenceAdapter

	WeatherGen *environment.Generator

	// DecisionDeadline bounds how long Phase 3 waits for the decision
	// source before synthesizing NoAction for stragglers.
	DecisionDeadline time.Duration

	// Speed is a real-time multiplier applied to the operator's tick
	// interval: 1.0 runs at Operator.TickIntervalMs(), and 0 (or less)
	// skips the inter-tick sleep so ticks run back to back (distinct from
	// the operator pause, which blocks between ticks regardless of speed).
	// Interval is not read by Run; the loop's cadence always comes from
	// Operator.TickIntervalMs().
	Speed    float64
	Interval time.Duration

	tick          uint64
	nextSubmitSeq uint64

	subMu     sync.RWMutex
	subs      map[int]chan TickBroadcast
	nextSubID int
}

// NewEngine wires a fresh tick engine from its constituent systems. The
// caller populates World/Agents/Ledger/Resolver/Decider/Operator/Persist
// before the first call to Run or Step.
func NewEngine(worldGraph *world.Graph, registry *agents.Registry, journal *ledger.Journal, resolver *action.Resolver, decider decision.DecisionSource, op *operator.State, persist PersistenceAdapter, weatherGen *environment.Generator) *Engine {
	return &Engine{
		World:            worldGraph,
		Agents:           registry,
		Ledger:           journal,
		Resolver:         resolver,
		Decider:          decider,
		Operator:         op,
		Persist:          persist,
		WeatherGen:       weatherGen,
		DecisionDeadline: 500 * time.Millisecond,
		Speed:            1.0,
		Interval:         time.Second,
		subs:             map[int]chan TickBroadcast{},
	}
}

// CurrentTick returns the most recently completed tick number.
func (e *Engine) CurrentTick() uint64 { return e.tick }

// Subscribe returns a subscriber ID and a buffered channel receiving one
// TickBroadcast per committed tick. Laggard subscribers never block the
// producer: a full channel simply drops the broadcast.
func (e *Engine) Subscribe() (int, chan TickBroadcast) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	id := e.nextSubID
	e.nextSubID++
	ch := make(chan TickBroadcast, 256)
	e.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (e *Engine) Unsubscribe(id int) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if ch, ok := e.subs[id]; ok {
		close(ch)
		delete(e.subs, id)
	}
}

func (e *Engine) broadcast(b TickBroadcast) {
	e.subMu.RLock()
	defer e.subMu.RUnlock()
	for _, ch := range e.subs {
		select {
		case ch <- b:
		default:
		}
	}
}

// Run blocks, advancing one tick per Operator.TickIntervalMs()/Speed until the operator
// requests a stop, a configured bound is reached, or the population goes
// extinct, then returns the terminal SimulationEnded. An operator pause
// blocks between ticks on a resume notification; a stop completes the
// current tick, takes a final snapshot, and ends the run.
func (e *Engine) Run(ctx context.Context) SimulationEnded {
	slog.Info("tick engine started", "world_seed", e.World.Seed)

	for {
		e.Operator.WaitIfPaused(ctx.Done())
		select {
		case <-ctx.Done():
			e.Operator.SetEndReason(operator.EndOperatorStop)
			return SimulationEnded{Reason: e.Operator.EndReason(), FinalTick: e.tick}
		default:
		}

		start := time.Now()
		tick := e.Step(ctx)

		if e.Agents.Count() == 0 {
			e.Operator.SetEndReason(operator.EndExtinction)
		}
		if e.Operator.TickLimitReached(tick) {
			e.Operator.SetEndReason(operator.EndMaxTicksReached)
		}
		if e.Operator.TimeLimitReached() {
			e.Operator.SetEndReason(operator.EndMaxRealTimeReached)
		}
		if e.Operator.IsRestartRequested() {
			e.Operator.SetEndReason(operator.EndOperatorRestart)
		} else if e.Operator.IsStopRequested() {
			e.Operator.SetEndReason(operator.EndOperatorStop)
		}
		if e.Operator.EndReason() != operator.EndNone {
			slog.Info("tick engine stopped", "tick", tick, "reason", e.Operator.EndReason())
			return SimulationEnded{Reason: e.Operator.EndReason(), FinalTick: tick}
		}

		if e.Speed > 0 {
			elapsed := time.Since(start)
			interval := time.Duration(e.Operator.TickIntervalMs()) * time.Millisecond
			target := time.Duration(float64(interval) / e.Speed)
			if elapsed < target {
				time.Sleep(target - elapsed)
			}
		}
	}
}

// Step runs the complete six-phase cycle once and returns the tick
// number just processed. Exposed separately from Run so tests and
// headless callers can drive individual ticks.
func (e *Engine) Step(ctx context.Context) uint64 {
	e.tick++
	tick := e.tick
	durations := make(map[string]time.Duration, 6)

	start := time.Now()
	events, clock, weather := e.worldWake(tick)
	durations["world_wake"] = time.Since(start)

	start = time.Now()
	perceptions := e.perception(tick)
	durations["perception"] = time.Since(start)

	start = time.Now()
	requests := e.decide(ctx, tick, perceptions)
	durations["decide"] = time.Since(start)

	start = time.Now()
	results, deathEvents := e.resolution(tick, weather, requests)
	durations["resolution"] = time.Since(start)
	events = append(events, deathEvents...)

	start = time.Now()
	anomalyEvents := e.persist(tick, clock, weather, events)
	durations["persist"] = time.Since(start)
	events = append(events, anomalyEvents...)

	start = time.Now()
	e.reflection(tick)
	durations["reflection"] = time.Since(start)

	e.broadcast(TickBroadcast{
		Tick:            tick,
		Season:          clock.Season,
		Weather:         weather,
		AgentsAlive:     e.Agents.Count(),
		DeathsThisTick:  len(deathEvents),
		ActionsResolved: len(results),
		LedgerAnomalies: len(anomalyEvents),
		PhaseDurations:  durations,
	})
	return tick
}

// worldWake is Phase 1: advance the clock, roll weather, apply any
// operator-injected events, regenerate resource nodes (emitting
// Regeneration ledger entries for positive deltas), and decay structures.
func (e *Engine) worldWake(tick uint64) ([]Event, environment.Clock, environment.Weather) {
	clock := environment.DeriveClock(tick)
	weather, _ := e.WeatherGen.Next(tick)

	var events []Event
	for _, injected := range e.Operator.DrainInjectedEvents() {
		events = append(events, Event{Tick: tick, Category: "operator_event", Detail: injected.EventType + ": " + injected.Description})
	}

	for _, req := range e.Operator.DrainQueuedSpawns() {
		if _, ok := e.World.Locations[req.LocationID]; !ok {
			continue
		}
		for i := 0; i < req.Count; i++ {
			spawned := e.Agents.Spawn(tick, req.LocationID)
			events = append(events, Event{Tick: tick, Category: "spawn", Detail: "operator spawned " + spawned.Name, AgentID: spawned.ID})
		}
	}

	for _, delta := range e.World.RegenerateAll(environment.SeasonModifier(clock.Season)) {
		entry, err := ledger.NewBuilder(ledger.Regeneration, tick).
			From(uuid.Nil, ledger.EntityWorld).
			To(delta.LocationID, ledger.EntityLocation).
			Quantity(decimal.NewFromInt(int64(delta.Amount))).
			Resource(string(delta.Resource)).
			Reason("regeneration").
			Build()
		if err != nil {
			slog.Error("world wake produced an invalid regeneration entry", "tick", tick, "error", err)
			continue
		}
		e.Ledger.Append(entry)
	}

	e.decayStructures(tick)
	return events, clock, weather
}

// decayStructures ages down every structure's integrity by a fixed rate,
// emitting a Decay ledger entry (Structure->Void) when one crumbles away
// entirely, and removes it from its location.
func (e *Engine) decayStructures(tick uint64) {
	const decayPerTick = 1
	for _, loc := range e.World.Locations {
		for id, s := range loc.Structures {
			if s.Integrity <= decayPerTick {
				entry, err := ledger.NewBuilder(ledger.Decay, tick).
					From(id, ledger.EntityStructure).
					To(uuid.Nil, ledger.EntityVoid).
					Quantity(decimal.NewFromInt(1)).
					Resource("structure_integrity").
					Reason("collapsed").
					Build()
				if err == nil {
					e.Ledger.Append(entry)
				}
				delete(loc.Structures, id)
				continue
			}
			s.Integrity -= decayPerTick
		}
	}
}

// perception is Phase 2: build a defensively-copied Perception for every
// alive agent.
func (e *Engine) perception(tick uint64) map[uuid.UUID]decision.Perception {
	perceptions := make(map[uuid.UUID]decision.Perception)
	for _, id := range e.Agents.AliveIDs() {
		_, state, ok := e.Agents.Get(id)
		if !ok {
			continue
		}
		loc := e.World.Locations[state.Location]
		routes := e.World.Neighbors(state.Location)
		perceptions[id] = decision.BuildPerception(tick, id, state, loc, routes)
	}
	return perceptions
}

// decide is Phase 3: fan the perception set out to the DecisionSource
// concurrently, bounded by DecisionDeadline, synthesizing NoAction for
// anyone who doesn't answer in time. The DecisionSource itself owns the
// per-agent concurrency; this phase only enforces the deadline around a
// single call across the whole perception set.
func (e *Engine) decide(ctx context.Context, tick uint64, perceptions map[uuid.UUID]decision.Perception) []action.Request {
	deadline := e.DecisionDeadline
	if deadline <= 0 {
		deadline = 500 * time.Millisecond
	}
	dctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	done := make(chan map[uuid.UUID]action.Request, 1)
	go func() {
		done <- e.Decider.Decide(dctx, tick, perceptions)
	}()

	var decided map[uuid.UUID]action.Request
	select {
	case decided = <-done:
	case <-dctx.Done():
		decided = nil
	}

	complete := decision.SynthesizeMissing(tick, perceptions, decided)

	ids := make([]uuid.UUID, 0, len(complete))
	for id := range complete {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	requests := make([]action.Request, 0, len(ids))
	for _, id := range ids {
		req := complete[id]
		req.AgentID = id
		e.nextSubmitSeq++
		req.SubmittedAt = e.nextSubmitSeq
		requests = append(requests, req)
	}
	return requests
}

// resolution is Phase 4: resolve actions via the Resolver, apply vitals
// and death checks, and process deaths (inventory drop, structure
// orphaning, relationship notifications).
func (e *Engine) resolution(tick uint64, weather environment.Weather, requests []action.Request) ([]action.Result, []Event) {
	results := e.Resolver.ResolveTick(tick, weather, requests)

	var events []Event
	for _, id := range e.Agents.AliveIDs() {
		_, state, ok := e.Agents.Get(id)
		if !ok {
			continue
		}
		loc := e.World.Locations[state.Location]
		sheltered := loc != nil && len(loc.Structures) > 0
		e.Resolver.Vitals.ApplyTickVitals(state, sheltered)

		if cause := e.Resolver.Vitals.DeathCause(state); cause != agents.CauseNone {
			events = append(events, e.processDeath(tick, id, state, cause)...)
		}
	}
	return results, events
}

// processDeath drains a deceased agent's inventory into its location as
// Drop ledger entries, orphans any structures it owned, notifies every
// agent holding a relationship toward it, and removes it from the alive
// set.
func (e *Engine) processDeath(tick uint64, id uuid.UUID, state *agents.AgentState, cause agents.CauseOfDeath) []Event {
	var events []Event

	for res, qty := range state.Inventory {
		if qty == 0 {
			continue
		}
		entry, err := ledger.NewBuilder(ledger.Drop, tick).
			From(id, ledger.EntityAgent).
			To(state.Location, ledger.EntityLocation).
			Quantity(decimal.NewFromInt(int64(qty))).
			Resource(string(res)).
			Reason("death").
			Build()
		if err != nil {
			slog.Error("death processing produced an invalid drop entry", "tick", tick, "agent", id, "error", err)
			continue
		}
		e.Ledger.Append(entry)
	}
	state.Inventory = map[world.Resource]uint32{}

	if loc, ok := e.World.Locations[state.Location]; ok {
		loc.RemoveOccupant(id)
		for _, s := range loc.Structures {
			if s.Owner != nil && *s.Owner == id {
				s.Owner = nil
			}
		}
	}

	for _, otherID := range e.Agents.AliveIDs() {
		if otherID == id {
			continue
		}
		_, otherState, ok := e.Agents.Get(otherID)
		if !ok {
			continue
		}
		if _, has := otherState.Relationships[id]; has {
			otherState.AddMemory(tick, "a companion has died", 0.6)
			events = append(events, Event{Tick: tick, Category: "bereavement", Detail: "relationship loss", AgentID: otherID})
		}
	}

	e.Agents.Kill(id, tick, cause)
	events = append(events, Event{Tick: tick, Category: "death", Detail: cause.String(), AgentID: id})
	return events
}

// persist is Phase 5: run the conservation check, snapshot state, hand
// the tick record to the persistence adapter, and publish the events that
// occurred this tick. A conservation violation raises an event but never
// halts the simulation.
func (e *Engine) persist(tick uint64, clock environment.Clock, weather environment.Weather, events []Event) []Event {
	var anomalyEvents []Event
	if anomaly := e.Ledger.CheckConservation(tick); anomaly != nil {
		for _, imbalance := range anomaly.Imbalances {
			slog.Error("ledger conservation violated", "tick", tick, "resource", imbalance.Resource,
				"debit", imbalance.DebitTotal.String(), "credit", imbalance.CreditTotal.String())
			anomalyEvents = append(anomalyEvents, Event{Tick: tick, Category: "ledger_anomaly", Detail: imbalance.Resource})
		}
	}

	if e.Persist != nil {
		snapshot := e.buildSnapshot(tick, clock, weather)
		e.persistWithRetry(tick, "hot-store snapshot write", func() error {
			return e.Persist.PutTickSnapshot(tick, snapshot)
		})
		e.persistWithRetry(tick, "cold-store event append", func() error {
			return e.Persist.AppendEvents(tick, append(append([]Event{}, events...), anomalyEvents...))
		})
		e.persistWithRetry(tick, "cold-store ledger append", func() error {
			return e.Persist.AppendLedger(tick, e.Ledger.ForTick(tick))
		})
	}
	return anomalyEvents
}

// maxPersistRetries bounds the exponential backoff before a persistence
// failure is treated as terminal for the current tick.
const maxPersistRetries = 3

// persistWithRetry retries a single persistence write with exponential
// backoff (up to three attempts, waiting 50ms and then 100ms between
// them); if every attempt fails it raises a
// critical alert and pauses the simulation rather than silently losing
// the write, per the external-failures error-handling rule.
func (e *Engine) persistWithRetry(tick uint64, label string, write func() error) {
	backoff := 50 * time.Millisecond
	var err error
	for attempt := 1; attempt <= maxPersistRetries; attempt++ {
		if err = write(); err == nil {
			return
		}
		slog.Warn(label+" failed, retrying", "tick", tick, "attempt", attempt, "error", err)
		if attempt < maxPersistRetries {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	slog.Error(label+" failed after retries, pausing simulation", "tick", tick, "error", err)
	e.Operator.Pause()
}

func (e *Engine) buildSnapshot(tick uint64, clock environment.Clock, weather environment.Weather) Snapshot {
	agentViews := make(map[uuid.UUID]AgentView)
	for _, id := range e.Agents.AliveIDs() {
		a, state, ok := e.Agents.Get(id)
		if !ok {
			continue
		}
		agentViews[id] = AgentView{Agent: a, State: state}
	}
	return Snapshot{
		Tick:      tick,
		Clock:     clock,
		Weather:   weather,
		Agents:    agentViews,
		Locations: e.World.Locations,
	}
}

// reflection is Phase 6: pure bookkeeping. It must never mutate any
// agent-visible state consulted by the next tick's Perception phase.
func (e *Engine) reflection(tick uint64) {
	for _, id := range e.Agents.AliveIDs() {
		_, state, ok := e.Agents.Get(id)
		if !ok || len(state.Memories) < 45 {
			continue
		}
		// Compress toward the most salient memories once the stream
		// nears its cap, so AddMemory's own eviction keeps working with
		// headroom; this changes what survives into future ticks, never
		// what this tick already committed for Phase 2 to read.
		pruned := state.Memories[:0]
		for _, m := range state.Memories {
			if m.Importance >= 0.2 {
				pruned = append(pruned, m)
			}
		}
		state.Memories = pruned
	}
}
