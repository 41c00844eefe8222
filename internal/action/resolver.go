package action

import (
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/talgya/emergence/internal/agents"
	"github.com/talgya/emergence/internal/conflict"
	"github.com/talgya/emergence/internal/environment"
	"github.com/talgya/emergence/internal/ledger"
	"github.com/talgya/emergence/internal/world"
)

// harvestKinds are the action kinds that draw from a location's resource
// nodes and therefore participate in conflict resolution when two or
// more agents target the same (location, resource) pair in one tick.
var harvestKinds = map[Kind]bool{
	KindGather:      true,
	KindMine:        true,
	KindFarmHarvest: true,
}

// Resolver executes Phase 4 (Resolution) against the world graph, agent
// registry, and ledger.
type Resolver struct {
	World    *world.Graph
	Agents   *agents.Registry
	Ledger   *ledger.Journal
	Vitals   agents.VitalsConfig
	Strategy conflict.Strategy
}

// ResolveTick validates and applies every request in the fixed
// deterministic order (submitted_at, then agent id), running conflict
// resolution first for contested harvests at the same (location,
// resource).
func (r *Resolver) ResolveTick(tick uint64, weather environment.Weather, requests []Request) []Result {
	ordered := make([]Request, len(requests))
	copy(ordered, requests)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].SubmittedAt != ordered[j].SubmittedAt {
			return ordered[i].SubmittedAt < ordered[j].SubmittedAt
		}
		return ordered[i].AgentID.String() < ordered[j].AgentID.String()
	})

	grants := r.resolveConflicts(ordered)

	results := make([]Result, 0, len(ordered))
	for _, req := range ordered {
		results = append(results, r.resolveOne(tick, weather, req, grants))
	}
	return results
}

type conflictKey struct {
	location uuid.UUID
	resource world.Resource
}

// resolveConflicts groups harvest-like requests by (location, resource)
// and runs the configured conflict strategy, returning the granted
// quantity keyed by agent id per conflict group. Every harvest request
// gets a group, contested or not; a group is absent only when its
// location has no node for that resource.
func (r *Resolver) resolveConflicts(ordered []Request) map[conflictKey]map[uuid.UUID]uint32 {
	groups := map[conflictKey][]conflict.Claim{}
	for _, req := range ordered {
		if !harvestKinds[req.Kind] {
			continue
		}
		_, state, ok := r.Agents.Get(req.AgentID)
		if !ok {
			continue
		}
		key := conflictKey{location: state.Location, resource: req.Resource}
		groups[key] = append(groups[key], conflict.Claim{
			AgentID:     req.AgentID,
			Requested:   req.Quantity,
			SubmittedAt: req.SubmittedAt,
		})
	}

	grants := map[conflictKey]map[uuid.UUID]uint32{}
	for key, claims := range groups {
		loc, ok := r.World.Locations[key.location]
		if !ok {
			continue
		}
		node, ok := loc.ResourceNodes[key.resource]
		if !ok {
			continue
		}
		outcomes := conflict.Resolve(node.Available, claims, r.Strategy)
		byAgent := map[uuid.UUID]uint32{}
		for agentID, o := range outcomes {
			byAgent[agentID] = o.Granted
		}
		grants[key] = byAgent
	}
	return grants
}

// record builds and appends a ledger entry, logging (but not failing the
// action) if the builder's own contract validation rejects it — that
// indicates a resolver bug, not a player-caused condition.
func (r *Resolver) record(tick uint64, b *ledger.Builder) {
	entry, err := b.Build()
	if err != nil {
		slog.Error("action resolver produced an invalid ledger entry", "tick", tick, "error", err)
		return
	}
	r.Ledger.Append(entry)
}

func decimalOf(qty uint32) decimal.Decimal {
	return decimal.NewFromInt(int64(qty))
}

func (r *Resolver) resolveOne(tick uint64, weather environment.Weather, req Request, grants map[conflictKey]map[uuid.UUID]uint32) Result {
	_, state, ok := r.Agents.Get(req.AgentID)
	if !ok || !r.Agents.Alive(req.AgentID) {
		return Reject(req.AgentID, req.Kind, RejectInvalidTarget)
	}

	cost := EnergyCost(req.Kind)
	if state.Energy < cost {
		return Reject(req.AgentID, req.Kind, RejectInsufficientEnergy)
	}

	var result Result
	switch req.Kind {
	case KindNoAction:
		result = Accept(req.AgentID, req.Kind, "")
	case KindGather, KindMine, KindFarmHarvest:
		result = r.resolveHarvest(tick, req, state, grants)
	case KindEat:
		result = r.resolveEat(tick, req, state)
	case KindDrink:
		result = r.resolveDrink(req, state)
	case KindRest:
		r.Vitals.Rest(state)
		result = Accept(req.AgentID, req.Kind, "rested")
	case KindMove:
		result = r.resolveMove(weather, req, state)
	case KindBuild:
		result = r.resolveBuild(tick, req, state)
	case KindRepair:
		result = r.resolveRepair(tick, req, state)
	case KindDemolish:
		result = r.resolveDemolish(tick, req, state)
	case KindImproveRoute:
		result = r.resolveImproveRoute(req, state)
	case KindCommunicate, KindBroadcast:
		result = Accept(req.AgentID, req.Kind, req.Message)
	case KindTradeOffer, KindTradeAccept, KindTradeReject:
		result = r.resolveTrade(tick, req, state)
	case KindFormGroup:
		result = r.resolveRelationship(req, state, 0.15)
	case KindTeach:
		result = r.resolveTeach(req, state)
	case KindFarmPlant:
		result = Accept(req.AgentID, req.Kind, "planted")
	case KindCraft:
		result = r.resolveCraft(tick, req, state)
	case KindSmelt:
		result = r.resolveSmelt(tick, req, state)
	case KindWrite, KindRead:
		result = Accept(req.AgentID, req.Kind, req.Message)
	case KindClaim:
		result = Accept(req.AgentID, req.Kind, "claimed")
	case KindLegislate, KindEnforce:
		result = Accept(req.AgentID, req.Kind, req.Message)
	case KindReproduce:
		result = Accept(req.AgentID, req.Kind, "reproduction requested")
	default:
		result = Reject(req.AgentID, req.Kind, RejectInvalidTarget)
	}

	if result.Accepted {
		state.Energy -= cost
	}
	return result
}

func (r *Resolver) resolveHarvest(tick uint64, req Request, state *agents.AgentState, grants map[conflictKey]map[uuid.UUID]uint32) Result {
	key := conflictKey{location: state.Location, resource: req.Resource}
	byAgent, ok := grants[key]
	if !ok {
		return Reject(req.AgentID, req.Kind, RejectInvalidTarget)
	}
	granted := byAgent[req.AgentID]
	if granted == 0 {
		return Reject(req.AgentID, req.Kind, RejectConflictLost)
	}
	if !state.CanCarry(granted) {
		granted = state.CarryCapacity - state.InventoryTotal()
		if granted == 0 {
			return Reject(req.AgentID, req.Kind, RejectCarryCapacity)
		}
	}

	taken, ok := r.World.Harvest(state.Location, req.Resource, granted, tick)
	if !ok || taken == 0 {
		return Reject(req.AgentID, req.Kind, RejectInsufficientResource)
	}

	state.Inventory[req.Resource] += taken
	r.record(tick, ledger.NewBuilder(ledger.Gather, tick).
		From(state.Location, ledger.EntityLocation).
		To(req.AgentID, ledger.EntityAgent).
		Quantity(decimalOf(taken)).
		Resource(string(req.Resource)).
		Reason(req.Kind.String()))

	state.Skill(skillForKind(req.Kind)).AddXP(taken)
	return Accept(req.AgentID, req.Kind, "")
}

func skillForKind(k Kind) string {
	switch k {
	case KindMine:
		return "mining"
	case KindFarmHarvest:
		return "farming"
	default:
		return "gathering"
	}
}

func (r *Resolver) resolveEat(tick uint64, req Request, state *agents.AgentState) Result {
	fv, ok := world.IsFood(req.Resource)
	if !ok || state.Inventory[req.Resource] == 0 {
		return Reject(req.AgentID, req.Kind, RejectInvalidTarget)
	}
	state.Inventory[req.Resource]--
	if state.Hunger < fv.HungerReduction {
		state.Hunger = 0
	} else {
		state.Hunger -= fv.HungerReduction
	}
	state.Energy += fv.EnergyGain

	r.record(tick, ledger.NewBuilder(ledger.Consume, tick).
		From(req.AgentID, ledger.EntityAgent).
		To(uuid.Nil, ledger.EntityVoid).
		Quantity(decimalOf(1)).
		Resource(string(req.Resource)).
		Reason("eat"))
	return Accept(req.AgentID, req.Kind, "")
}

func (r *Resolver) resolveDrink(req Request, state *agents.AgentState) Result {
	if state.Thirst < 20 {
		state.Thirst = 0
	} else {
		state.Thirst -= 20
	}
	return Accept(req.AgentID, req.Kind, "")
}

func (r *Resolver) resolveMove(weather environment.Weather, req Request, state *agents.AgentState) Result {
	if req.Destination == uuid.Nil {
		return Reject(req.AgentID, req.Kind, RejectInvalidTarget)
	}
	path, _, ok := r.World.ShortestPath(state.Location, req.Destination, weather, req.AgentID)
	if !ok || len(path) < 2 {
		return Reject(req.AgentID, req.Kind, RejectUnreachable)
	}
	next := path[1]
	if toLoc, ok := r.World.Locations[next]; ok {
		if err := toLoc.AddOccupant(req.AgentID); err != nil {
			return Reject(req.AgentID, req.Kind, RejectInvalidTarget)
		}
	}
	for _, route := range r.World.Neighbors(state.Location) {
		if route.ToID == next {
			route.Degrade(0.01)
		}
	}
	if fromLoc, ok := r.World.Locations[state.Location]; ok {
		fromLoc.RemoveOccupant(req.AgentID)
	}
	state.Location = next
	if next == req.Destination {
		state.Destination = nil
		state.TravelProgress = 0
	} else {
		state.Destination = &req.Destination
	}
	return Accept(req.AgentID, req.Kind, "")
}

func (r *Resolver) resolveBuild(tick uint64, req Request, state *agents.AgentState) Result {
	loc, ok := r.World.Locations[state.Location]
	if !ok {
		return Reject(req.AgentID, req.Kind, RejectInvalidTarget)
	}
	const woodCost = 10
	if state.Inventory[world.ResourceWood] < woodCost {
		return Reject(req.AgentID, req.Kind, RejectInsufficientResource)
	}
	state.Inventory[world.ResourceWood] -= woodCost

	structID, err := uuid.NewV7()
	if err != nil {
		structID = uuid.New()
	}
	owner := req.AgentID
	loc.Structures[structID] = &world.Structure{
		ID: structID, Type: req.StructureTyp, LocationID: loc.ID,
		Owner: &owner, Integrity: 100, BuiltAtTick: tick,
	}

	r.record(tick, ledger.NewBuilder(ledger.Build, tick).
		From(req.AgentID, ledger.EntityAgent).
		To(structID, ledger.EntityStructure).
		Quantity(decimalOf(woodCost)).
		Resource(string(world.ResourceWood)).
		Reason("build "+req.StructureTyp))
	return Accept(req.AgentID, req.Kind, structID.String())
}

func (r *Resolver) resolveRepair(tick uint64, req Request, state *agents.AgentState) Result {
	loc, ok := r.World.Locations[state.Location]
	if !ok {
		return Reject(req.AgentID, req.Kind, RejectInvalidTarget)
	}
	s, ok := loc.Structures[req.TargetID]
	if !ok {
		return Reject(req.AgentID, req.Kind, RejectInvalidTarget)
	}
	const stoneCost = 5
	if state.Inventory[world.ResourceStone] < stoneCost {
		return Reject(req.AgentID, req.Kind, RejectInsufficientResource)
	}
	state.Inventory[world.ResourceStone] -= stoneCost
	s.Integrity += 20
	if s.Integrity > 100 {
		s.Integrity = 100
	}

	r.record(tick, ledger.NewBuilder(ledger.Build, tick).
		From(req.AgentID, ledger.EntityAgent).
		To(s.ID, ledger.EntityStructure).
		Quantity(decimalOf(stoneCost)).
		Resource(string(world.ResourceStone)).
		Reason("repair"))
	return Accept(req.AgentID, req.Kind, "")
}

func (r *Resolver) resolveDemolish(tick uint64, req Request, state *agents.AgentState) Result {
	loc, ok := r.World.Locations[state.Location]
	if !ok {
		return Reject(req.AgentID, req.Kind, RejectInvalidTarget)
	}
	s, ok := loc.Structures[req.TargetID]
	if !ok {
		return Reject(req.AgentID, req.Kind, RejectInvalidTarget)
	}
	salvaged := s.Integrity / 20
	if salvaged > 0 {
		state.Inventory[world.ResourceWood] += salvaged
		r.record(tick, ledger.NewBuilder(ledger.Salvage, tick).
			From(s.ID, ledger.EntityStructure).
			To(req.AgentID, ledger.EntityAgent).
			Quantity(decimalOf(salvaged)).
			Resource(string(world.ResourceWood)).
			Reason("demolish"))
	}
	delete(loc.Structures, s.ID)
	return Accept(req.AgentID, req.Kind, "")
}

func (r *Resolver) resolveImproveRoute(req Request, state *agents.AgentState) Result {
	for _, route := range r.World.Neighbors(state.Location) {
		if route.ID == req.TargetID {
			route.Improve(0.1)
			return Accept(req.AgentID, req.Kind, "")
		}
	}
	return Reject(req.AgentID, req.Kind, RejectInvalidTarget)
}

func (r *Resolver) resolveTrade(tick uint64, req Request, state *agents.AgentState) Result {
	if req.Kind != KindTradeAccept {
		return Accept(req.AgentID, req.Kind, req.Message)
	}
	_, partner, ok := r.Agents.Get(req.TargetID)
	if !ok {
		return Reject(req.AgentID, req.Kind, RejectInvalidTarget)
	}
	if state.Inventory[req.Resource] < req.Quantity {
		return Reject(req.AgentID, req.Kind, RejectInsufficientResource)
	}
	state.Inventory[req.Resource] -= req.Quantity
	partner.Inventory[req.Resource] += req.Quantity

	r.record(tick, ledger.NewBuilder(ledger.Transfer, tick).
		From(req.AgentID, ledger.EntityAgent).
		To(req.TargetID, ledger.EntityAgent).
		Quantity(decimalOf(req.Quantity)).
		Resource(string(req.Resource)).
		Reason("trade"))
	return Accept(req.AgentID, req.Kind, "")
}

func (r *Resolver) resolveRelationship(req Request, state *agents.AgentState, delta float32) Result {
	if req.TargetID == uuid.Nil {
		return Reject(req.AgentID, req.Kind, RejectInvalidTarget)
	}
	rel := state.RelationshipWith(req.TargetID)
	rel.Affinity += delta
	if rel.Affinity > 1 {
		rel.Affinity = 1
	}
	return Accept(req.AgentID, req.Kind, "")
}

func (r *Resolver) resolveTeach(req Request, state *agents.AgentState) Result {
	_, pupilState, ok := r.Agents.Get(req.TargetID)
	if !ok {
		return Reject(req.AgentID, req.Kind, RejectInvalidTarget)
	}
	if req.Message != "" {
		pupilState.Knowledge[req.Message] = true
	}
	return r.resolveRelationship(req, state, 0.05)
}

func (r *Resolver) resolveCraft(tick uint64, req Request, state *agents.AgentState) Result {
	const oreCost, woodCost = 2, 1
	if state.Inventory[world.ResourceIronOre] < oreCost || state.Inventory[world.ResourceWood] < woodCost {
		return Reject(req.AgentID, req.Kind, RejectInsufficientResource)
	}
	state.Inventory[world.ResourceIronOre] -= oreCost
	state.Inventory[world.ResourceWood] -= woodCost
	yield := state.Skill("crafting").Yield(1)
	state.Inventory[world.ResourceTools] += yield
	state.Skill("crafting").AddXP(15)

	r.record(tick, ledger.NewBuilder(ledger.Consume, tick).
		From(req.AgentID, ledger.EntityAgent).
		To(uuid.Nil, ledger.EntityVoid).
		Quantity(decimalOf(oreCost)).
		Resource(string(world.ResourceIronOre)).
		Reason("craft input"))
	r.record(tick, ledger.NewBuilder(ledger.Consume, tick).
		From(req.AgentID, ledger.EntityAgent).
		To(uuid.Nil, ledger.EntityVoid).
		Quantity(decimalOf(woodCost)).
		Resource(string(world.ResourceWood)).
		Reason("craft input"))
	return Accept(req.AgentID, req.Kind, "")
}

func (r *Resolver) resolveSmelt(tick uint64, req Request, state *agents.AgentState) Result {
	const oreInput, woodInput, metalOutput = 2, 1, 1
	if state.Inventory[world.ResourceIronOre] < oreInput || state.Inventory[world.ResourceWood] < woodInput {
		return Reject(req.AgentID, req.Kind, RejectInsufficientResource)
	}
	state.Inventory[world.ResourceIronOre] -= oreInput
	state.Inventory[world.ResourceWood] -= woodInput
	state.Inventory[world.ResourceMetal] += metalOutput * (1 + state.Skill("smithing").Level/4)
	state.Skill("smithing").AddXP(20)

	r.record(tick, ledger.NewBuilder(ledger.Consume, tick).
		From(req.AgentID, ledger.EntityAgent).
		To(uuid.Nil, ledger.EntityVoid).
		Quantity(decimalOf(oreInput)).
		Resource(string(world.ResourceIronOre)).
		Reason("smelt input"))
	r.record(tick, ledger.NewBuilder(ledger.Consume, tick).
		From(req.AgentID, ledger.EntityAgent).
		To(uuid.Nil, ledger.EntityVoid).
		Quantity(decimalOf(woodInput)).
		Resource(string(world.ResourceWood)).
		Reason("smelt input"))
	return Accept(req.AgentID, req.Kind, "")
}
