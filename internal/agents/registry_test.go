package agents

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnAssignsGenerationZero(t *testing.T) {
	r := NewRegistry(1, DefaultVitalsConfig())
	loc := uuid.New()
	a := r.Spawn(0, loc)
	assert.Equal(t, uint32(0), a.Generation)
	assert.True(t, r.Alive(a.ID))
	_, state, ok := r.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, loc, state.Location)
	assert.Equal(t, DefaultVitalsConfig().StartingEnergy, state.Energy)
}

func TestReproduceTakesMaxParentGenerationPlusOne(t *testing.T) {
	r := NewRegistry(2, DefaultVitalsConfig())
	loc := uuid.New()
	mother := r.Spawn(0, loc)
	father := r.Spawn(0, loc)

	// Force a generation gap to exercise max(), not just father+1.
	mother.Generation = 3
	father.Generation = 1

	child, ok := r.Reproduce(10, mother.ID, father.ID, func(a, b Personality) Personality {
		return Personality{Openness: (a.Openness + b.Openness) / 2}
	})
	require.True(t, ok)
	assert.Equal(t, uint32(4), child.Generation)
	assert.ElementsMatch(t, []uuid.UUID{mother.ID, father.ID}, child.Parents)
}

func TestKillIsMonotonic(t *testing.T) {
	r := NewRegistry(3, DefaultVitalsConfig())
	a := r.Spawn(0, uuid.New())
	r.Kill(a.ID, 50, CauseStarvation)
	assert.False(t, r.Alive(a.ID))
	require.NotNil(t, a.DiedAtTick)
	assert.Equal(t, uint64(50), *a.DiedAtTick)

	// Killing again must not un-die or change the recorded tick/cause.
	r.Kill(a.ID, 999, CauseInjury)
	assert.Equal(t, uint64(50), *a.DiedAtTick)
	assert.Equal(t, CauseStarvation, a.CauseOfDeath)
}

func TestDeathCausePriorityOrder(t *testing.T) {
	c := DefaultVitalsConfig()

	// Old age takes priority even when health/hunger also qualify.
	s := &AgentState{Age: c.Lifespan + 1, Health: 0, Hunger: c.StarvationThreshold}
	assert.Equal(t, CauseOldAge, c.DeathCause(s))

	s = &AgentState{Age: 10, Health: 0, Hunger: c.StarvationThreshold}
	assert.Equal(t, CauseStarvation, c.DeathCause(s))

	s = &AgentState{Age: 10, Health: 0, Hunger: 0}
	assert.Equal(t, CauseInjury, c.DeathCause(s))

	s = &AgentState{Age: 10, Health: 1, Hunger: 0}
	assert.Equal(t, CauseNone, c.DeathCause(s))
}

func TestMaxEnergyForAgeDecaysPastThreshold(t *testing.T) {
	c := DefaultVitalsConfig()
	threshold := c.Lifespan * c.AgingThresholdPct / 100

	assert.Equal(t, uint32(100), c.MaxEnergyForAge(threshold))
	assert.Equal(t, uint32(100), c.MaxEnergyForAge(0))
	assert.Equal(t, uint32(50), c.MaxEnergyForAge(c.Lifespan))
	mid := c.MaxEnergyForAge(threshold + (c.Lifespan-threshold)/2)
	assert.True(t, mid > 50 && mid < 100)
}

func TestNameUniqueWhileAlive(t *testing.T) {
	r := NewRegistry(4, DefaultVitalsConfig())
	loc := uuid.New()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		a := r.Spawn(0, loc)
		assert.False(t, seen[a.Name], "duplicate live name %q", a.Name)
		seen[a.Name] = true
	}
}
