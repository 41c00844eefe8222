// Package decision defines the Perception snapshot built each tick,
// the DecisionSource contract that turns perceptions into requested
// actions, and a couple of reference implementations (a no-op stub and
// a needs-priority heuristic) usable without any external backend.
package decision

import (
	"github.com/google/uuid"
	"github.com/talgya/emergence/internal/agents"
	"github.com/talgya/emergence/internal/world"
)

// FuzzyQuantity is a discretized resource-availability label. Hiding the
// exact count behind six buckets keeps agents from optimizing against
// perfect information and gives them a reason to communicate instead.
type FuzzyQuantity uint8

const (
	QuantityNone FuzzyQuantity = iota
	QuantityScarce
	QuantityLimited
	QuantityModerate
	QuantityAbundant
	QuantityPlentiful
)

func (q FuzzyQuantity) String() string {
	switch q {
	case QuantityScarce:
		return "scarce"
	case QuantityLimited:
		return "limited"
	case QuantityModerate:
		return "moderate"
	case QuantityAbundant:
		return "abundant"
	case QuantityPlentiful:
		return "plentiful"
	default:
		return "none"
	}
}

// Quantize maps an exact resource-node count to its fuzzy bucket:
// 0 -> none, 1-5 -> scarce, 6-15 -> limited, 16-30 -> moderate,
// 31-60 -> abundant, 61+ -> plentiful.
func Quantize(available uint32) FuzzyQuantity {
	switch {
	case available == 0:
		return QuantityNone
	case available <= 5:
		return QuantityScarce
	case available <= 15:
		return QuantityLimited
	case available <= 30:
		return QuantityModerate
	case available <= 60:
		return QuantityAbundant
	default:
		return QuantityPlentiful
	}
}

// Midpoint is the representative exact value planning-side tooling uses
// to stand in for a fuzzy label, the inverse of Quantize's buckets.
func Midpoint(q FuzzyQuantity) uint32 {
	switch q {
	case QuantityScarce:
		return 3
	case QuantityLimited:
		return 10
	case QuantityModerate:
		return 23
	case QuantityAbundant:
		return 45
	case QuantityPlentiful:
		return 80
	default:
		return 0
	}
}

// VisibleResource is the fuzzy view of one resource node at an agent's
// current location.
type VisibleResource struct {
	Resource world.Resource
	Quantity FuzzyQuantity
}

// VisibleRoute is a known route out of the current location, described
// by its approximate cost rather than the exact weather-adjusted figure.
type VisibleRoute struct {
	RouteID     uuid.UUID
	ToLocation  uuid.UUID
	ToName      string
	ApproxCost  float64
	Degraded    bool
}

// SelfState is the subset of an agent's own vitals/inventory relevant
// to deciding, copied out of the live AgentState so the DecisionSource
// can never mutate it.
type SelfState struct {
	Energy        uint32
	Health        uint32
	Hunger        uint32
	Thirst        uint32
	Age           uint32
	Inventory     map[world.Resource]uint32
	CarryCapacity uint32
	Skills        map[string]uint32 // skill name -> level
	Knowledge     []string
	Goals         []agents.Goal
}

// Perception is the sole information one agent is given for one tick.
type Perception struct {
	Tick         uint64
	AgentID      uuid.UUID
	Self         SelfState
	Location     uuid.UUID
	LocationName string
	Terrain      world.Terrain
	Visible      []VisibleResource
	Occupants    []uuid.UUID
	Routes       []VisibleRoute
	RecentMemory []agents.Memory
}

// BuildPerception snapshots an agent's view of the world at its current
// location. It never hands back a pointer into live world/agent state.
func BuildPerception(tick uint64, agentID uuid.UUID, state *agents.AgentState, loc *world.Location, routes []*world.Route) Perception {
	p := Perception{
		Tick:         tick,
		AgentID:      agentID,
		Location:     loc.ID,
		LocationName: loc.Name,
		Terrain:      loc.Terrain,
		RecentMemory: state.RecentMemories(5),
	}

	p.Self = SelfState{
		Energy:        state.Energy,
		Health:        state.Health,
		Hunger:        state.Hunger,
		Thirst:        state.Thirst,
		Age:           state.Age,
		CarryCapacity: state.CarryCapacity,
		Inventory:     copyInventory(state.Inventory),
		Skills:        copySkillLevels(state.Skills),
		Knowledge:     copyKnowledge(state.Knowledge),
		Goals:         append([]agents.Goal(nil), state.Goals...),
	}

	for res, node := range loc.ResourceNodes {
		p.Visible = append(p.Visible, VisibleResource{Resource: res, Quantity: Quantize(node.Available)})
	}
	for occupant := range loc.Occupants {
		if occupant != agentID {
			p.Occupants = append(p.Occupants, occupant)
		}
	}
	for _, r := range routes {
		p.Routes = append(p.Routes, VisibleRoute{
			RouteID:    r.ID,
			ToLocation: r.ToID,
			ApproxCost: r.BaseCost * (1 + r.Degradation),
			Degraded:   r.Degradation > 0.3,
		})
	}
	return p
}

func copyInventory(src map[world.Resource]uint32) map[world.Resource]uint32 {
	out := make(map[world.Resource]uint32, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func copySkillLevels(src map[string]*agents.Skill) map[string]uint32 {
	out := make(map[string]uint32, len(src))
	for name, sk := range src {
		out[name] = sk.Level
	}
	return out
}

func copyKnowledge(src map[string]bool) []string {
	out := make([]string, 0, len(src))
	for k := range src {
		out = append(out, k)
	}
	return out
}
