package action

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talgya/emergence/internal/agents"
	"github.com/talgya/emergence/internal/conflict"
	"github.com/talgya/emergence/internal/environment"
	"github.com/talgya/emergence/internal/ledger"
	"github.com/talgya/emergence/internal/world"
)

func newTestResolver(t *testing.T) (*Resolver, *world.Graph, *agents.Registry, uuid.UUID) {
	t.Helper()
	g := world.NewGraph(1)
	locID := uuid.New()
	loc := &world.Location{
		ID:            locID,
		Name:          "Testhollow",
		ResourceNodes: map[world.Resource]*world.ResourceNode{},
		Structures:    map[uuid.UUID]*world.Structure{},
		Occupants:     map[uuid.UUID]bool{},
		DiscoveredBy:  map[uuid.UUID]bool{},
		Capacity:      20,
	}
	g.AddLocation(loc)

	reg := agents.NewRegistry(1, agents.DefaultVitalsConfig())
	r := &Resolver{
		World:    g,
		Agents:   reg,
		Ledger:   ledger.NewJournal(),
		Vitals:   agents.DefaultVitalsConfig(),
		Strategy: conflict.FirstComeFirstServed,
	}
	return r, g, reg, locID
}

func TestResolveTickRejectsInsufficientEnergy(t *testing.T) {
	r, _, reg, loc := newTestResolver(t)
	a := reg.Spawn(0, loc)
	_, state, _ := reg.Get(a.ID)
	state.Energy = 5 // Build costs 25

	results := r.ResolveTick(1, environment.WeatherClear, []Request{
		{AgentID: a.ID, Kind: KindBuild, SubmittedAt: 1, StructureTyp: "hut"},
	})
	require.Len(t, results, 1)
	assert.False(t, results[0].Accepted)
	assert.Equal(t, RejectInsufficientEnergy, results[0].Reject)
}

func TestResolveHarvestDeductsEnergyAndRecordsLedger(t *testing.T) {
	r, g, reg, loc := newTestResolver(t)
	a := reg.Spawn(0, loc)
	_, state, _ := reg.Get(a.ID)
	state.Energy = 50

	g.Locations[loc].ResourceNodes[world.ResourceWood] = &world.ResourceNode{
		Resource: world.ResourceWood, Available: 30, MaxCapacity: 100,
	}

	results := r.ResolveTick(1, environment.WeatherClear, []Request{
		{AgentID: a.ID, Kind: KindGather, SubmittedAt: 1, Resource: world.ResourceWood, Quantity: 10},
	})
	require.Len(t, results, 1)
	assert.True(t, results[0].Accepted)
	assert.Equal(t, uint32(40), state.Energy) // 50 - 10 energy cost
	assert.Equal(t, uint32(10), state.Inventory[world.ResourceWood])
	assert.Equal(t, uint32(20), g.Locations[loc].ResourceNodes[world.ResourceWood].Available)

	entries := r.Ledger.ForTick(1)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.Gather, entries[0].Kind)
	assert.Equal(t, ledger.EntityLocation, entries[0].From.Type)
	assert.Equal(t, ledger.EntityAgent, entries[0].To.Type)
}

func TestResolveHarvestConflictSplitsUnderFCFS(t *testing.T) {
	r, g, reg, loc := newTestResolver(t)
	a := reg.Spawn(0, loc)
	b := reg.Spawn(0, loc)
	_, aState, _ := reg.Get(a.ID)
	_, bState, _ := reg.Get(b.ID)
	aState.Energy, bState.Energy = 50, 50

	g.Locations[loc].ResourceNodes[world.ResourceWood] = &world.ResourceNode{
		Resource: world.ResourceWood, Available: 15, MaxCapacity: 100,
	}

	// a submits first; FCFS serves a in full before b, leaving b only 5.
	results := r.ResolveTick(1, environment.WeatherClear, []Request{
		{AgentID: b.ID, Kind: KindGather, SubmittedAt: 2, Resource: world.ResourceWood, Quantity: 10},
		{AgentID: a.ID, Kind: KindGather, SubmittedAt: 1, Resource: world.ResourceWood, Quantity: 10},
	})
	require.Len(t, results, 2)
	assert.Equal(t, uint32(10), aState.Inventory[world.ResourceWood])
	assert.Equal(t, uint32(5), bState.Inventory[world.ResourceWood])
}

func TestResolveHarvestZeroGrantIsConflictLost(t *testing.T) {
	r, g, reg, loc := newTestResolver(t)
	a := reg.Spawn(0, loc)
	b := reg.Spawn(0, loc)
	_, aState, _ := reg.Get(a.ID)
	_, bState, _ := reg.Get(b.ID)
	aState.Energy, bState.Energy = 50, 50

	g.Locations[loc].ResourceNodes[world.ResourceWood] = &world.ResourceNode{
		Resource: world.ResourceWood, Available: 5, MaxCapacity: 100,
	}

	results := r.ResolveTick(1, environment.WeatherClear, []Request{
		{AgentID: a.ID, Kind: KindGather, SubmittedAt: 1, Resource: world.ResourceWood, Quantity: 5},
		{AgentID: b.ID, Kind: KindGather, SubmittedAt: 2, Resource: world.ResourceWood, Quantity: 5},
	})
	require.Len(t, results, 2)

	var bResult Result
	for _, res := range results {
		if res.AgentID == b.ID {
			bResult = res
		}
	}
	assert.False(t, bResult.Accepted)
	assert.Equal(t, RejectConflictLost, bResult.Reject)
}

func TestResolveEatConsumesInventoryAndReducesHunger(t *testing.T) {
	r, _, reg, loc := newTestResolver(t)
	a := reg.Spawn(0, loc)
	_, state, _ := reg.Get(a.ID)
	state.Energy = 50
	state.Hunger = 40
	state.Inventory[world.ResourceFoodBerry] = 2

	results := r.ResolveTick(1, environment.WeatherClear, []Request{
		{AgentID: a.ID, Kind: KindEat, SubmittedAt: 1, Resource: world.ResourceFoodBerry},
	})
	require.Len(t, results, 1)
	assert.True(t, results[0].Accepted)
	assert.Equal(t, uint32(1), state.Inventory[world.ResourceFoodBerry])
	assert.Equal(t, uint32(20), state.Hunger) // 40 - 20 hunger reduction

	entries := r.Ledger.ForTick(1)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.Consume, entries[0].Kind)
	assert.Equal(t, ledger.EntityVoid, entries[0].To.Type)
}

func TestResolveEatRejectsMissingInventory(t *testing.T) {
	r, _, reg, loc := newTestResolver(t)
	a := reg.Spawn(0, loc)
	_, state, _ := reg.Get(a.ID)
	state.Energy = 50

	results := r.ResolveTick(1, environment.WeatherClear, []Request{
		{AgentID: a.ID, Kind: KindEat, SubmittedAt: 1, Resource: world.ResourceFoodBerry},
	})
	require.Len(t, results, 1)
	assert.False(t, results[0].Accepted)
	assert.Equal(t, RejectInvalidTarget, results[0].Reject)
}

func TestResolveMoveUpdatesLocationAndOccupancy(t *testing.T) {
	r, g, reg, loc := newTestResolver(t)
	a := reg.Spawn(0, loc)
	_, state, _ := reg.Get(a.ID)
	state.Energy = 50
	require.NoError(t, g.Locations[loc].AddOccupant(a.ID))

	dest := uuid.New()
	destLoc := &world.Location{
		ID: dest, ResourceNodes: map[world.Resource]*world.ResourceNode{},
		Structures: map[uuid.UUID]*world.Structure{}, Occupants: map[uuid.UUID]bool{},
		DiscoveredBy: map[uuid.UUID]bool{}, Capacity: 20,
	}
	g.AddLocation(destLoc)
	g.AddRoute(&world.Route{ID: uuid.New(), FromID: loc, ToID: dest, BaseCost: 1.0})

	results := r.ResolveTick(1, environment.WeatherClear, []Request{
		{AgentID: a.ID, Kind: KindMove, SubmittedAt: 1, Destination: dest},
	})
	require.Len(t, results, 1)
	assert.True(t, results[0].Accepted)
	assert.Equal(t, dest, state.Location)
	assert.False(t, g.Locations[loc].Occupants[a.ID])
	assert.True(t, g.Locations[dest].Occupants[a.ID])
}

func TestResolveMoveRejectsUnreachableDestination(t *testing.T) {
	r, _, reg, loc := newTestResolver(t)
	a := reg.Spawn(0, loc)
	_, state, _ := reg.Get(a.ID)
	state.Energy = 50

	results := r.ResolveTick(1, environment.WeatherClear, []Request{
		{AgentID: a.ID, Kind: KindMove, SubmittedAt: 1, Destination: uuid.New()},
	})
	require.Len(t, results, 1)
	assert.False(t, results[0].Accepted)
	assert.Equal(t, RejectUnreachable, results[0].Reject)
}

func TestResolveBuildConsumesWoodAndRecordsLedger(t *testing.T) {
	r, g, reg, loc := newTestResolver(t)
	a := reg.Spawn(0, loc)
	_, state, _ := reg.Get(a.ID)
	state.Energy = 50
	state.Inventory[world.ResourceWood] = 20

	results := r.ResolveTick(5, environment.WeatherClear, []Request{
		{AgentID: a.ID, Kind: KindBuild, SubmittedAt: 1, StructureTyp: "granary"},
	})
	require.Len(t, results, 1)
	assert.True(t, results[0].Accepted)
	assert.Equal(t, uint32(10), state.Inventory[world.ResourceWood])
	assert.Len(t, g.Locations[loc].Structures, 1)

	entries := r.Ledger.ForTick(5)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.Build, entries[0].Kind)
}

func TestResolveCraftConsumesOreAndWoodAndRecordsBothLedgerEntries(t *testing.T) {
	r, _, reg, loc := newTestResolver(t)
	a := reg.Spawn(0, loc)
	_, state, _ := reg.Get(a.ID)
	state.Energy = 50
	state.Inventory[world.ResourceIronOre] = 5
	state.Inventory[world.ResourceWood] = 5

	results := r.ResolveTick(3, environment.WeatherClear, []Request{
		{AgentID: a.ID, Kind: KindCraft, SubmittedAt: 1},
	})
	require.Len(t, results, 1)
	assert.True(t, results[0].Accepted)
	assert.Equal(t, uint32(3), state.Inventory[world.ResourceIronOre])
	assert.Equal(t, uint32(4), state.Inventory[world.ResourceWood])

	entries := r.Ledger.ForTick(3)
	require.Len(t, entries, 2)
	var oreEntry, woodEntry *ledger.Entry
	for i := range entries {
		switch entries[i].Resource {
		case string(world.ResourceIronOre):
			oreEntry = &entries[i]
		case string(world.ResourceWood):
			woodEntry = &entries[i]
		}
	}
	require.NotNil(t, oreEntry)
	require.NotNil(t, woodEntry)
	assert.Equal(t, ledger.Consume, oreEntry.Kind)
	assert.Equal(t, ledger.Consume, woodEntry.Kind)
	assert.True(t, oreEntry.Quantity.Equal(decimalOf(2)))
	assert.True(t, woodEntry.Quantity.Equal(decimalOf(1)))
}

func TestResolveSmeltConsumesOreAndWoodAndRecordsBothLedgerEntries(t *testing.T) {
	r, _, reg, loc := newTestResolver(t)
	a := reg.Spawn(0, loc)
	_, state, _ := reg.Get(a.ID)
	state.Energy = 50
	state.Inventory[world.ResourceIronOre] = 5
	state.Inventory[world.ResourceWood] = 5

	results := r.ResolveTick(4, environment.WeatherClear, []Request{
		{AgentID: a.ID, Kind: KindSmelt, SubmittedAt: 1},
	})
	require.Len(t, results, 1)
	assert.True(t, results[0].Accepted)
	assert.Equal(t, uint32(3), state.Inventory[world.ResourceIronOre])
	assert.Equal(t, uint32(4), state.Inventory[world.ResourceWood])

	entries := r.Ledger.ForTick(4)
	require.Len(t, entries, 2)
	var oreEntry, woodEntry *ledger.Entry
	for i := range entries {
		switch entries[i].Resource {
		case string(world.ResourceIronOre):
			oreEntry = &entries[i]
		case string(world.ResourceWood):
			woodEntry = &entries[i]
		}
	}
	require.NotNil(t, oreEntry)
	require.NotNil(t, woodEntry)
	assert.Equal(t, ledger.Consume, oreEntry.Kind)
	assert.Equal(t, ledger.Consume, woodEntry.Kind)
	assert.True(t, oreEntry.Quantity.Equal(decimalOf(2)))
	assert.True(t, woodEntry.Quantity.Equal(decimalOf(1)))
}

func TestResolveTickOrdersBySubmittedAtRegardlessOfSliceOrder(t *testing.T) {
	r, g, reg, loc := newTestResolver(t)
	a := reg.Spawn(0, loc)
	b := reg.Spawn(0, loc)
	_, aState, _ := reg.Get(a.ID)
	_, bState, _ := reg.Get(b.ID)
	aState.Energy, bState.Energy = 50, 50
	g.Locations[loc].ResourceNodes[world.ResourceWood] = &world.ResourceNode{
		Resource: world.ResourceWood, Available: 10, MaxCapacity: 100,
	}

	// b submitted first (SubmittedAt: 1) but appears second in the slice.
	results := r.ResolveTick(1, environment.WeatherClear, []Request{
		{AgentID: a.ID, Kind: KindGather, SubmittedAt: 2, Resource: world.ResourceWood, Quantity: 6},
		{AgentID: b.ID, Kind: KindGather, SubmittedAt: 1, Resource: world.ResourceWood, Quantity: 6},
	})
	require.Len(t, results, 2)
	assert.Equal(t, b.ID, results[0].AgentID)
	assert.Equal(t, a.ID, results[1].AgentID)
}
