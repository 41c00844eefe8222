// Package agents implements the agent registry: identity, vitals,
// inventory, skills, knowledge, memory, relationships, and goals for
// every living (and once-living) agent in the simulation.
package agents

import (
	"github.com/google/uuid"
	"github.com/talgya/emergence/internal/world"
)

// Sex is biological sex, used only for reproduction eligibility.
type Sex uint8

const (
	SexMale Sex = iota
	SexFemale
)

// CauseOfDeath classifies why an agent's life ended.
type CauseOfDeath uint8

const (
	CauseNone CauseOfDeath = iota
	CauseOldAge
	CauseStarvation
	CauseInjury
)

func (c CauseOfDeath) String() string {
	switch c {
	case CauseOldAge:
		return "old_age"
	case CauseStarvation:
		return "starvation"
	case CauseInjury:
		return "injury"
	default:
		return "none"
	}
}

// Personality is a small fixed vector blended across generations by
// reproduction; callers supply the blending function.
type Personality struct {
	Openness      float32 `json:"openness"`
	Industry      float32 `json:"industry"`
	Sociability   float32 `json:"sociability"`
	Aggression    float32 `json:"aggression"`
	RiskTolerance float32 `json:"risk_tolerance"`
}

// Agent is identity: immutable after birth except the death fields.
// Name is unique among currently-alive agents; it is released back to
// the pool when the agent dies.
type Agent struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Sex          Sex          `json:"sex"`
	BornAtTick   uint64       `json:"born_at_tick"`
	DiedAtTick   *uint64      `json:"died_at_tick,omitempty"`
	CauseOfDeath CauseOfDeath `json:"cause_of_death,omitempty"`
	Parents      []uuid.UUID  `json:"parents,omitempty"`
	Generation   uint32       `json:"generation"`
	Personality  Personality  `json:"personality"`
}

// Relationship is a directed affinity toward another agent, in [-1, 1].
type Relationship struct {
	AgentID  uuid.UUID `json:"agent_id"`
	Affinity float32   `json:"affinity"`
}

// Skill tracks level and accumulated XP for one named capability.
type Skill struct {
	Level uint32 `json:"level"`
	XP    uint32 `json:"xp"`
}

// xpForNextLevel is the XP threshold to advance from a given level.
func xpForNextLevel(level uint32) uint32 {
	return 100 + level*50
}

// AddXP credits XP to a skill and applies any level-ups it earns.
func (s *Skill) AddXP(amount uint32) {
	s.XP += amount
	for s.XP >= xpForNextLevel(s.Level) {
		s.XP -= xpForNextLevel(s.Level)
		s.Level++
	}
}

// Yield returns a production quantity using the base+level/2 formula.
// Only Craft applies it; Gather, Mine and FarmHarvest grant the
// conflict-resolved quantity with no skill bonus.
func (s Skill) Yield(base uint32) uint32 {
	return base + s.Level/2
}

// Goal is a simple pursued objective, read by decision sources and
// mutated only by the tick engine.
type Goal struct {
	Kind       string    `json:"kind"`
	TargetID   uuid.UUID `json:"target_id,omitempty"`
	Resource   world.Resource `json:"resource,omitempty"`
	Quantity   uint32    `json:"quantity,omitempty"`
	CreatedAt  uint64    `json:"created_at"`
}

// Memory is a notable experience recorded for an agent's own reference
// and for decision sources that consult history.
type Memory struct {
	Tick       uint64  `json:"tick"`
	Content    string  `json:"content"`
	Importance float32 `json:"importance"`
}

const maxMemories = 50

// AddMemory appends a memory. Once the stream is full, the new memory
// replaces the least important one only if it is more important;
// otherwise it is dropped.
func (s *AgentState) AddMemory(tick uint64, content string, importance float32) {
	m := Memory{Tick: tick, Content: content, Importance: importance}
	if len(s.Memories) < maxMemories {
		s.Memories = append(s.Memories, m)
		return
	}
	minIdx := 0
	for i := 1; i < len(s.Memories); i++ {
		if s.Memories[i].Importance < s.Memories[minIdx].Importance {
			minIdx = i
		}
	}
	if m.Importance > s.Memories[minIdx].Importance {
		s.Memories[minIdx] = m
	}
}

// AgentState is the mutable half of an agent, touched only by the tick
// engine's resolution and vitals-update steps.
type AgentState struct {
	Energy         uint32 `json:"energy"` // 0-100
	Health         uint32 `json:"health"` // 0-100
	Hunger         uint32 `json:"hunger"` // unbounded above; clamped at 0 below
	Thirst         uint32 `json:"thirst"`
	Age            uint32 `json:"age"` // sim-ticks lived
	Location       uuid.UUID `json:"location"`
	Destination    *uuid.UUID `json:"destination,omitempty"`
	TravelProgress float64    `json:"travel_progress"` // cost units accumulated toward destination

	Inventory     map[world.Resource]uint32 `json:"inventory"`
	CarryCapacity uint32                    `json:"carry_capacity"`

	Knowledge map[string]bool  `json:"knowledge"`
	Skills    map[string]*Skill `json:"skills"`

	Goals         []Goal                    `json:"goals,omitempty"`
	Relationships map[uuid.UUID]*Relationship `json:"relationships,omitempty"`
	Memories      []Memory                  `json:"memories,omitempty"`
}

// InventoryTotal sums all resource quantities held.
func (s *AgentState) InventoryTotal() uint32 {
	var total uint32
	for _, qty := range s.Inventory {
		total += qty
	}
	return total
}

// CanCarry reports whether adding qty more of any resource keeps the
// agent within its carry capacity bound.
func (s *AgentState) CanCarry(qty uint32) bool {
	return s.InventoryTotal()+qty <= s.CarryCapacity
}

// Skill returns (creating if absent) the named skill.
func (s *AgentState) Skill(name string) *Skill {
	sk, ok := s.Skills[name]
	if !ok {
		sk = &Skill{}
		s.Skills[name] = sk
	}
	return sk
}

// RelationshipWith returns (creating if absent) the affinity record for
// another agent.
func (s *AgentState) RelationshipWith(other uuid.UUID) *Relationship {
	r, ok := s.Relationships[other]
	if !ok {
		r = &Relationship{AgentID: other}
		s.Relationships[other] = r
	}
	return r
}
