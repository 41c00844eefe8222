package decision

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/talgya/emergence/internal/action"
	"github.com/talgya/emergence/internal/world"
)

func TestQuantizeBuckets(t *testing.T) {
	cases := []struct {
		available uint32
		want      FuzzyQuantity
	}{
		{0, QuantityNone},
		{1, QuantityScarce},
		{5, QuantityScarce},
		{6, QuantityLimited},
		{15, QuantityLimited},
		{16, QuantityModerate},
		{30, QuantityModerate},
		{31, QuantityAbundant},
		{60, QuantityAbundant},
		{61, QuantityPlentiful},
		{1000, QuantityPlentiful},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Quantize(c.available), "available=%d", c.available)
	}
}

func TestMidpointMatchesSpecTable(t *testing.T) {
	assert.Equal(t, uint32(0), Midpoint(QuantityNone))
	assert.Equal(t, uint32(3), Midpoint(QuantityScarce))
	assert.Equal(t, uint32(10), Midpoint(QuantityLimited))
	assert.Equal(t, uint32(23), Midpoint(QuantityModerate))
	assert.Equal(t, uint32(45), Midpoint(QuantityAbundant))
	assert.Equal(t, uint32(80), Midpoint(QuantityPlentiful))
}

func TestStubDecisionSourceAlwaysNoAction(t *testing.T) {
	id := uuid.New()
	s := StubDecisionSource{}
	out := s.Decide(context.Background(), 5, map[uuid.UUID]Perception{id: {AgentID: id}})
	assert.Equal(t, action.KindNoAction, out[id].Kind)
}

func TestSynthesizeMissingFillsGaps(t *testing.T) {
	present := uuid.New()
	missing := uuid.New()
	perceptions := map[uuid.UUID]Perception{present: {AgentID: present}, missing: {AgentID: missing}}
	partial := map[uuid.UUID]action.Request{present: {AgentID: present, Kind: action.KindRest}}

	out := SynthesizeMissing(9, perceptions, partial)
	assert.Equal(t, action.KindRest, out[present].Kind)
	assert.Equal(t, action.KindNoAction, out[missing].Kind)
}

func TestHeuristicEatsWhenHungryAndFoodInInventory(t *testing.T) {
	h := NewHeuristicDecisionSource()
	id := uuid.New()
	p := Perception{
		AgentID: id,
		Self: SelfState{
			Hunger:        90,
			Energy:        50,
			Inventory:     map[world.Resource]uint32{world.ResourceFoodBerry: 2},
			CarryCapacity: 50,
		},
	}
	out := h.Decide(context.Background(), 1, map[uuid.UUID]Perception{id: p})
	assert.Equal(t, action.KindEat, out[id].Kind)
	assert.Equal(t, world.ResourceFoodBerry, out[id].Resource)
}

func TestHeuristicGathersFoodWhenHungryAndVisible(t *testing.T) {
	h := NewHeuristicDecisionSource()
	id := uuid.New()
	p := Perception{
		AgentID: id,
		Self: SelfState{
			Hunger: 90, Energy: 50, CarryCapacity: 50,
			Inventory: map[world.Resource]uint32{},
		},
		Visible: []VisibleResource{{Resource: world.ResourceFoodBerry, Quantity: QuantityModerate}},
	}
	out := h.Decide(context.Background(), 1, map[uuid.UUID]Perception{id: p})
	assert.Equal(t, action.KindGather, out[id].Kind)
	assert.Equal(t, uint32(23), out[id].Quantity)
}

func TestHeuristicRestsOnLowEnergyWhenNotHungry(t *testing.T) {
	h := NewHeuristicDecisionSource()
	id := uuid.New()
	p := Perception{
		AgentID: id,
		Self:    SelfState{Hunger: 10, Energy: 5, CarryCapacity: 50, Inventory: map[world.Resource]uint32{}},
	}
	out := h.Decide(context.Background(), 1, map[uuid.UUID]Perception{id: p})
	assert.Equal(t, action.KindRest, out[id].Kind)
}

func TestHeuristicGathersForSafetyWhenInventoryThin(t *testing.T) {
	h := NewHeuristicDecisionSource()
	id := uuid.New()
	p := Perception{
		AgentID: id,
		Self: SelfState{
			Hunger: 10, Energy: 80, CarryCapacity: 50,
			Inventory: map[world.Resource]uint32{},
		},
		Visible: []VisibleResource{{Resource: world.ResourceWood, Quantity: QuantityAbundant}},
	}
	out := h.Decide(context.Background(), 1, map[uuid.UUID]Perception{id: p})
	assert.Equal(t, action.KindGather, out[id].Kind)
	assert.Equal(t, world.ResourceWood, out[id].Resource)
}

func TestHeuristicCommunicatesWithOccupantWhenSatisfied(t *testing.T) {
	h := NewHeuristicDecisionSource()
	id := uuid.New()
	other := uuid.New()
	p := Perception{
		AgentID: id,
		Self: SelfState{
			Hunger: 10, Energy: 80, CarryCapacity: 50,
			Inventory: map[world.Resource]uint32{world.ResourceWood: 40},
		},
		Occupants: []uuid.UUID{other},
	}
	out := h.Decide(context.Background(), 1, map[uuid.UUID]Perception{id: p})
	assert.Equal(t, action.KindCommunicate, out[id].Kind)
	assert.Equal(t, other, out[id].TargetID)
}
