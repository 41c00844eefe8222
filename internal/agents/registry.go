package agents

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/talgya/emergence/internal/world"
)

// Registry owns every agent that has ever lived and maintains the
// alive-set in deterministic (id-sorted) iteration order.
type Registry struct {
	mu     sync.RWMutex
	agents map[uuid.UUID]*Agent
	states map[uuid.UUID]*AgentState
	alive  map[uuid.UUID]bool

	rng    *rand.Rand
	taken  map[string]bool // names currently in use by a living agent
	vitals VitalsConfig
}

// NewRegistry creates an empty registry seeded for deterministic name
// and personality generation.
func NewRegistry(seed int64, vitals VitalsConfig) *Registry {
	return &Registry{
		agents: map[uuid.UUID]*Agent{},
		states: map[uuid.UUID]*AgentState{},
		alive:  map[uuid.UUID]bool{},
		rng:    rand.New(rand.NewSource(seed + 700)),
		taken:  map[string]bool{},
		vitals: vitals,
	}
}

// Spawn creates a seed agent (generation 0) at the given location.
func (r *Registry) Spawn(tick uint64, location uuid.UUID) *Agent {
	return r.spawn(tick, location, nil, 0, Personality{
		Openness:      r.rng.Float32(),
		Industry:      r.rng.Float32(),
		Sociability:   r.rng.Float32(),
		Aggression:    r.rng.Float32(),
		RiskTolerance: r.rng.Float32(),
	})
}

// Reproduce creates a child of two parents at their shared location.
// blend combines the parents' personalities; the child's generation is
// max(parent generations) + 1. The child starts with an empty
// inventory regardless of the parents' holdings.
func (r *Registry) Reproduce(tick uint64, motherID, fatherID uuid.UUID, blend func(a, b Personality) Personality) (*Agent, bool) {
	r.mu.RLock()
	mother, mok := r.agents[motherID]
	father, fok := r.agents[fatherID]
	motherState, msok := r.states[motherID]
	r.mu.RUnlock()
	if !mok || !fok || !msok {
		return nil, false
	}

	gen := mother.Generation
	if father.Generation > gen {
		gen = father.Generation
	}
	gen++

	child := r.spawn(tick, motherState.Location, []uuid.UUID{motherID, fatherID}, gen, blend(mother.Personality, father.Personality))
	return child, true
}

func (r *Registry) spawn(tick uint64, location uuid.UUID, parents []uuid.UUID, generation uint32, personality Personality) *Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	sex := SexMale
	if r.rng.Float32() < 0.5 {
		sex = SexFemale
	}

	agent := &Agent{
		ID:          id,
		Name:        r.generateName(sex),
		Sex:         sex,
		BornAtTick:  tick,
		Parents:     parents,
		Generation:  generation,
		Personality: personality,
	}
	state := &AgentState{
		Energy:        r.vitals.StartingEnergy,
		Health:        r.vitals.StartingHealth,
		Location:      location,
		Inventory:     map[world.Resource]uint32{},
		CarryCapacity: r.vitals.CarryCapacity,
		Knowledge:     map[string]bool{},
		Skills:        map[string]*Skill{},
		Relationships: map[uuid.UUID]*Relationship{},
	}

	r.agents[id] = agent
	r.states[id] = state
	r.alive[id] = true
	r.taken[agent.Name] = true
	return agent
}

// Get returns an agent's identity and mutable state.
func (r *Registry) Get(id uuid.UUID) (*Agent, *AgentState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return nil, nil, false
	}
	return a, r.states[id], true
}

// Alive reports whether an agent is currently alive.
func (r *Registry) Alive(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.alive[id]
}

// AliveIDs returns every living agent id, sorted for deterministic
// iteration order.
func (r *Registry) AliveIDs() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.alive))
	for id := range r.alive {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Kill marks an agent dead at the given tick and cause, releasing its
// name back to the pool. Once died_at_tick is set it is never cleared:
// the agent can never reappear in the alive set.
func (r *Registry) Kill(id uuid.UUID, tick uint64, cause CauseOfDeath) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[id]
	if !ok || !r.alive[id] {
		return
	}
	agent.DiedAtTick = &tick
	agent.CauseOfDeath = cause
	delete(r.alive, id)
	delete(r.taken, agent.Name)
}

// Count returns the number of currently living agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.alive)
}

// TotalCount returns the number of agents ever registered, alive or
// dead, for the operator status surface's agents_total figure.
func (r *Registry) TotalCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

func (r *Registry) generateName(sex Sex) string {
	var firsts []string
	if sex == SexMale {
		firsts = maleNames
	} else {
		firsts = femaleNames
	}
	for attempt := 0; attempt < 200; attempt++ {
		first := firsts[r.rng.Intn(len(firsts))]
		last := lastNames[r.rng.Intn(len(lastNames))]
		name := first + " " + last
		if !r.taken[name] {
			return name
		}
	}
	// Exhausted the pool without finding a free name: fall back to a
	// numbered variant rather than violate uniqueness.
	base := firsts[r.rng.Intn(len(firsts))] + " " + lastNames[r.rng.Intn(len(lastNames))]
	for suffix := 2; ; suffix++ {
		candidate := base + " " + itoa(suffix)
		if !r.taken[candidate] {
			return candidate
		}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Name pools for procedural generation, unique while alive.
var maleNames = []string{
	"Aldric", "Bram", "Cedric", "Doran", "Erik", "Finn", "Gareth",
	"Halvard", "Ivan", "Jasper", "Kael", "Leif", "Magnus", "Nils",
	"Oswin", "Per", "Quinn", "Rowan", "Stellan", "Theron", "Ulric",
	"Varen", "Wren", "Yorick", "Zander", "Arlen", "Beric", "Cade",
	"Dorian", "Edric", "Falk", "Gunnar", "Hugo", "Ivar", "Jorik",
}

var femaleNames = []string{
	"Astrid", "Brenna", "Calla", "Daria", "Elara", "Freya", "Greta",
	"Helene", "Iris", "Juno", "Kira", "Lena", "Mira", "Nessa",
	"Olwen", "Petra", "Runa", "Senna", "Thea", "Una", "Vera",
	"Willa", "Yara", "Zara", "Ava", "Birgit", "Cora", "Dagny",
	"Eira", "Fern", "Gwen", "Hilde", "Inga", "Johanna", "Katla",
}

var lastNames = []string{
	"Voss", "Thornwood", "Blackwood", "Ashford", "Ironhand", "Dunmore",
	"Greenvale", "Stormcrow", "Frostborn", "Hearthstone", "Millward",
	"Copperfield", "Ravenmoor", "Silverdale", "Wolfsbane", "Stoneheart",
	"Deepwell", "Brightwater", "Oakenshield", "Redforge", "Windholm",
	"Marshwood", "Goldhaven", "Nightingale", "Riverstone", "Steelworth",
	"Embercroft", "Holloway", "Dawnridge", "Farrow", "Wyatt", "Thatcher",
	"Briar", "Caldwell", "Frost", "Harper", "Mercer", "Ward", "Cross",
}
