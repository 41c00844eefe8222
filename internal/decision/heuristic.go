package decision

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/talgya/emergence/internal/action"
	"github.com/talgya/emergence/internal/world"
)

// HeuristicDecisionSource is a needs-priority rule engine: for each
// agent it evaluates urgency bottom-up (survival, then safety, then
// belonging) and picks the single most urgent action, falling back to
// crafting (when materials are in hand) or resting when nothing is
// urgent. It needs
// no external planning backend and is deterministic given the same
// perception, making it useful for tests and for filling in whenever an
// external DecisionSource can't answer in time.
type HeuristicDecisionSource struct {
	// HungerUrgent and EnergyLow are the thresholds past which survival
	// actions preempt everything else.
	HungerUrgent uint32
	EnergyLow    uint32
}

// NewHeuristicDecisionSource returns a heuristic source tuned to the
// defaults used by the vitals configuration's heal/starvation bands.
func NewHeuristicDecisionSource() *HeuristicDecisionSource {
	return &HeuristicDecisionSource{HungerUrgent: 70, EnergyLow: 20}
}

func (h *HeuristicDecisionSource) Decide(_ context.Context, tick uint64, perceptions map[uuid.UUID]Perception) map[uuid.UUID]action.Request {
	out := make(map[uuid.UUID]action.Request, len(perceptions))
	ids := make([]uuid.UUID, 0, len(perceptions))
	for id := range perceptions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		out[id] = h.decideOne(tick, perceptions[id])
	}
	return out
}

func (h *HeuristicDecisionSource) decideOne(tick uint64, p Perception) action.Request {
	base := action.Request{AgentID: p.AgentID, SubmittedAt: tick}

	if req, ok := h.decideSurvival(base, p); ok {
		return req
	}
	if req, ok := h.decideSafety(base, p); ok {
		return req
	}
	if req, ok := decideBelonging(base, p); ok {
		return req
	}
	return decideDefault(base, p)
}

// decideSurvival, when hunger is urgent, eats stored food (the
// alphabetically first food kind in inventory), else gathers food
// visible at the location, else rests; when hunger is not urgent it
// rests only on low energy.
func (h *HeuristicDecisionSource) decideSurvival(base action.Request, p Perception) (action.Request, bool) {
	if p.Self.Hunger < h.HungerUrgent {
		if p.Self.Energy < h.EnergyLow {
			base.Kind = action.KindRest
			return base, true
		}
		return base, false
	}

	var food world.Resource
	for res, qty := range p.Self.Inventory {
		if qty == 0 {
			continue
		}
		if _, isFood := world.IsFood(res); isFood && (food == "" || res < food) {
			food = res
		}
	}
	if food != "" {
		base.Kind = action.KindEat
		base.Resource = food
		return base, true
	}

	for _, vis := range p.Visible {
		if _, isFood := world.IsFood(vis.Resource); isFood && vis.Quantity != QuantityNone {
			base.Kind = action.KindGather
			base.Resource = vis.Resource
			base.Quantity = Midpoint(vis.Quantity)
			return base, true
		}
	}

	base.Kind = action.KindRest
	return base, true
}

// decideSafety gathers a carryable non-food resource when inventory is
// thin, building a modest buffer before anything discretionary.
func (h *HeuristicDecisionSource) decideSafety(base action.Request, p Perception) (action.Request, bool) {
	total := uint32(0)
	for _, qty := range p.Self.Inventory {
		total += qty
	}
	if total >= p.Self.CarryCapacity/2 {
		return base, false
	}

	best := struct {
		resource world.Resource
		quantity FuzzyQuantity
		found    bool
	}{}
	for _, vis := range p.Visible {
		if _, isFood := world.IsFood(vis.Resource); isFood {
			continue
		}
		if vis.Quantity == QuantityNone {
			continue
		}
		if !best.found || vis.Quantity > best.quantity {
			best.resource, best.quantity, best.found = vis.Resource, vis.Quantity, true
		}
	}
	if !best.found {
		return base, false
	}
	base.Kind = action.KindGather
	base.Resource = best.resource
	base.Quantity = Midpoint(best.quantity)
	return base, true
}

// decideBelonging communicates with a co-located agent when one is
// present and the agent has no pressing survival or safety need.
func decideBelonging(base action.Request, p Perception) (action.Request, bool) {
	if len(p.Occupants) == 0 {
		return base, false
	}
	base.Kind = action.KindCommunicate
	base.TargetID = p.Occupants[0]
	base.Message = "greetings"
	return base, true
}

// decideDefault falls back to a skilled production action when nothing
// more urgent applies: craft if materials are in hand, otherwise rest.
func decideDefault(base action.Request, p Perception) action.Request {
	if p.Self.Inventory[world.ResourceIronOre] >= 2 && p.Self.Inventory[world.ResourceWood] >= 1 {
		base.Kind = action.KindCraft
		return base
	}
	base.Kind = action.KindRest
	return base
}
