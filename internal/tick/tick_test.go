package tick

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talgya/emergence/internal/action"
	"github.com/talgya/emergence/internal/agents"
	"github.com/talgya/emergence/internal/conflict"
	"github.com/talgya/emergence/internal/decision"
	"github.com/talgya/emergence/internal/environment"
	"github.com/talgya/emergence/internal/ledger"
	"github.com/talgya/emergence/internal/operator"
	"github.com/talgya/emergence/internal/world"
)

func newTestEngine(t *testing.T) (*Engine, *world.Graph, *agents.Registry, uuid.UUID) {
	t.Helper()
	g := world.NewGraph(1)
	locID := uuid.New()
	loc := &world.Location{
		ID: locID, Name: "Testhollow",
		ResourceNodes: map[world.Resource]*world.ResourceNode{},
		Structures:    map[uuid.UUID]*world.Structure{},
		Occupants:     map[uuid.UUID]bool{},
		DiscoveredBy:  map[uuid.UUID]bool{},
		Capacity:      20,
	}
	g.AddLocation(loc)

	reg := agents.NewRegistry(1, agents.DefaultVitalsConfig())
	journal := ledger.NewJournal()
	resolver := &action.Resolver{
		World: g, Agents: reg, Ledger: journal,
		Vitals: agents.DefaultVitalsConfig(), Strategy: conflict.FirstComeFirstServed,
	}
	op := operator.New(1000, operator.Bounds{})
	e := NewEngine(g, reg, journal, resolver, decision.StubDecisionSource{}, op, nil, environment.NewGenerator(1))
	return e, g, reg, locID
}

func TestStepAdvancesTickAndAppliesVitals(t *testing.T) {
	e, _, reg, loc := newTestEngine(t)
	a := reg.Spawn(0, loc)
	_, state, _ := reg.Get(a.ID)
	state.Hunger = 10

	tick := e.Step(context.Background())
	assert.Equal(t, uint64(1), tick)
	assert.Equal(t, uint32(15), state.Hunger) // HungerRate=5
	assert.Equal(t, uint32(1), state.Age)
}

func TestStepBroadcastsOneTickSummaryPerSubscriber(t *testing.T) {
	e, _, reg, loc := newTestEngine(t)
	reg.Spawn(0, loc)

	_, ch := e.Subscribe()
	e.Step(context.Background())

	select {
	case b := <-ch:
		assert.Equal(t, uint64(1), b.Tick)
		assert.Equal(t, 1, b.AgentsAlive)
	case <-time.After(time.Second):
		t.Fatal("no broadcast received")
	}
}

func TestStepProcessesDeathDrainsInventoryAndKillsAgent(t *testing.T) {
	e, g, reg, loc := newTestEngine(t)
	a := reg.Spawn(0, loc)
	_, state, _ := reg.Get(a.ID)
	state.Health = 10
	state.Hunger = 95 // +5 HungerRate this tick reaches the starvation threshold of 100
	state.Inventory[world.ResourceWood] = 5

	e.Step(context.Background())

	assert.False(t, reg.Alive(a.ID))
	agentRecord, _, _ := reg.Get(a.ID)
	require.NotNil(t, agentRecord.DiedAtTick)
	assert.Equal(t, agents.CauseStarvation, agentRecord.CauseOfDeath)

	var dropEntries []ledger.Entry
	for _, entry := range e.Ledger.ForTick(1) {
		if entry.Kind == ledger.Drop {
			dropEntries = append(dropEntries, entry)
		}
	}
	require.Len(t, dropEntries, 1)
	assert.Equal(t, loc, dropEntries[0].To.ID)
	assert.False(t, g.Locations[loc].Occupants[a.ID])
}

func TestStepNotifiesRelationshipsOnDeath(t *testing.T) {
	e, _, reg, loc := newTestEngine(t)
	deceased := reg.Spawn(0, loc)
	companion := reg.Spawn(0, loc)
	_, deceasedState, _ := reg.Get(deceased.ID)
	_, companionState, _ := reg.Get(companion.ID)
	deceasedState.Health = 10
	deceasedState.Hunger = 95
	companionState.RelationshipWith(deceased.ID).Affinity = 0.5

	e.Step(context.Background())

	require.NotEmpty(t, companionState.Memories)
	assert.Equal(t, "a companion has died", companionState.Memories[len(companionState.Memories)-1].Content)
}

// gatherDecisionSource always requests a full gather of ResourceWood for
// every agent it is asked about, to exercise the conflict path end to end.
type gatherDecisionSource struct{ quantity uint32 }

func (g gatherDecisionSource) Decide(_ context.Context, tick uint64, perceptions map[uuid.UUID]decision.Perception) map[uuid.UUID]action.Request {
	out := make(map[uuid.UUID]action.Request, len(perceptions))
	for id := range perceptions {
		out[id] = action.Request{AgentID: id, Kind: action.KindGather, Resource: world.ResourceWood, Quantity: g.quantity}
	}
	return out
}

func TestStepResolvesConflictingGatherRequestsDeterministically(t *testing.T) {
	e, g, reg, loc := newTestEngine(t)
	reg.Spawn(0, loc)
	reg.Spawn(0, loc)
	g.Locations[loc].ResourceNodes[world.ResourceWood] = &world.ResourceNode{
		Resource: world.ResourceWood, Available: 15, MaxCapacity: 100,
	}
	e.Decider = gatherDecisionSource{quantity: 10}

	e.Step(context.Background())

	total := uint32(0)
	for _, id := range reg.AliveIDs() {
		_, state, _ := reg.Get(id)
		total += state.Inventory[world.ResourceWood]
	}
	assert.Equal(t, uint32(15), total)
	assert.Equal(t, uint32(0), g.Locations[loc].ResourceNodes[world.ResourceWood].Available)
}

func TestStepEmitsRegenerationLedgerEntriesInWorldWake(t *testing.T) {
	e, g, reg, loc := newTestEngine(t)
	reg.Spawn(0, loc)
	g.Locations[loc].ResourceNodes[world.ResourceWood] = &world.ResourceNode{
		Resource: world.ResourceWood, Available: 10, MaxCapacity: 100, RegenPerTick: 5,
	}

	e.Step(context.Background())

	var regenEntries []ledger.Entry
	for _, entry := range e.Ledger.ForTick(1) {
		if entry.Kind == ledger.Regeneration {
			regenEntries = append(regenEntries, entry)
		}
	}
	require.Len(t, regenEntries, 1)
	assert.Equal(t, ledger.EntityWorld, regenEntries[0].From.Type)
	assert.Equal(t, ledger.EntityLocation, regenEntries[0].To.Type)
}

func TestRunStopsOnOperatorStopRequest(t *testing.T) {
	e, _, reg, loc := newTestEngine(t)
	reg.Spawn(0, loc)
	e.Operator = operator.New(100, operator.Bounds{})
	e.Operator.RequestStop()

	ended := e.Run(context.Background())
	assert.Equal(t, operator.EndOperatorStop, ended.Reason)
	assert.Equal(t, uint64(1), ended.FinalTick)
}

func TestRunStopsOnMaxTicksReached(t *testing.T) {
	e, _, reg, loc := newTestEngine(t)
	reg.Spawn(0, loc)
	e.Operator = operator.New(100, operator.Bounds{MaxTicks: 3})

	ended := e.Run(context.Background())
	assert.Equal(t, operator.EndMaxTicksReached, ended.Reason)
	assert.Equal(t, uint64(3), ended.FinalTick)
}

func TestRunStopsOnExtinction(t *testing.T) {
	e, _, reg, loc := newTestEngine(t)
	a := reg.Spawn(0, loc)
	_, state, _ := reg.Get(a.ID)
	state.Health = 10
	state.Hunger = 95
	e.Operator = operator.New(100, operator.Bounds{})

	ended := e.Run(context.Background())
	assert.Equal(t, operator.EndExtinction, ended.Reason)
}

// alwaysFailPersistence fails every write, to exercise the persist
// phase's retry-then-pause behavior.
type alwaysFailPersistence struct{ calls int }

func (p *alwaysFailPersistence) PutTickSnapshot(tick uint64, snapshot Snapshot) error {
	p.calls++
	return assert.AnError
}
func (p *alwaysFailPersistence) AppendEvents(tick uint64, events []Event) error { return nil }
func (p *alwaysFailPersistence) AppendLedger(tick uint64, entries []ledger.Entry) error { return nil }

func TestPersistPausesSimulationAfterExhaustingRetries(t *testing.T) {
	e, _, reg, loc := newTestEngine(t)
	reg.Spawn(0, loc)
	persist := &alwaysFailPersistence{}
	e.Persist = persist

	e.Step(context.Background())

	assert.Equal(t, maxPersistRetries, persist.calls)
	assert.True(t, e.Operator.IsPaused())
}

func TestRunStopsOnOperatorRestartRequest(t *testing.T) {
	e, _, reg, loc := newTestEngine(t)
	reg.Spawn(0, loc)
	e.Operator = operator.New(100, operator.Bounds{})
	e.Operator.RequestRestart()

	ended := e.Run(context.Background())
	assert.Equal(t, operator.EndOperatorRestart, ended.Reason)
}

func TestFormatTick(t *testing.T) {
	s := FormatTick(0)
	assert.Contains(t, s, "Spring")
}
