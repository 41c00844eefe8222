package world

import (
	"container/heap"
	"fmt"

	"github.com/google/uuid"
	"github.com/talgya/emergence/internal/environment"
)

// ResourceNode is a harvestable pool of one resource at a location.
// Invariant: 0 <= Available <= MaxCapacity at all times.
type ResourceNode struct {
	Resource        Resource `json:"resource"`
	Available       uint32   `json:"available"`
	RegenPerTick    uint32   `json:"regen_per_tick"`
	MaxCapacity     uint32   `json:"max_capacity"`
	LastHarvestTick uint64   `json:"last_harvest_tick"`
}

// Regenerate applies one tick of regrowth scaled by a season modifier
// (>=0, typically around 1.0), clamped to MaxCapacity. Returns the
// amount actually added, which is what Phase 1 emits as a Regeneration
// ledger entry when positive.
func (n *ResourceNode) Regenerate(seasonModifier float64) uint32 {
	if n.RegenPerTick == 0 {
		return 0
	}
	delta := uint32(float64(n.RegenPerTick) * seasonModifier)
	if delta == 0 {
		return 0
	}
	room := n.MaxCapacity - n.Available
	if delta > room {
		delta = room
	}
	n.Available += delta
	return delta
}

// Harvest removes up to `requested` units, returning the amount actually
// taken (which may be less than requested if the node is depleted).
func (n *ResourceNode) Harvest(requested uint32, tick uint64) uint32 {
	taken := requested
	if taken > n.Available {
		taken = n.Available
	}
	n.Available -= taken
	if taken > 0 {
		n.LastHarvestTick = tick
	}
	return taken
}

// PathType classifies a route for perception and cost purposes.
type PathType uint8

const (
	PathRoad PathType = iota
	PathTrail
	PathRiverCrossing
	PathSeaLane
)

// Structure is a built, owned (or orphaned), decaying object at a
// location.
type Structure struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	LocationID  uuid.UUID  `json:"location_id"`
	Owner       *uuid.UUID `json:"owner,omitempty"`
	Integrity   uint32     `json:"integrity"` // 0-100
	Knowledge   []string   `json:"knowledge_prerequisites,omitempty"`
	BuiltAtTick uint64     `json:"built_at_tick"`
}

// Location is a node in the world graph.
type Location struct {
	ID            uuid.UUID                  `json:"id"`
	Name          string                     `json:"name"`
	Region        string                     `json:"region"`
	Terrain       Terrain                    `json:"terrain"`
	Capacity      int                        `json:"capacity"`
	ResourceNodes map[Resource]*ResourceNode `json:"resource_nodes"`
	Structures    map[uuid.UUID]*Structure   `json:"-"`
	Occupants     map[uuid.UUID]bool         `json:"-"`
	DiscoveredBy  map[uuid.UUID]bool         `json:"-"`

	// Generation-time climate data, retained for weather/terrain flavor,
	// never exposed to agent perception beyond the fuzzy resource view.
	Elevation   float64 `json:"-"`
	Rainfall    float64 `json:"-"`
	Temperature float64 `json:"-"`

	hex HexCoord
}

func newLocation(id uuid.UUID, name, region string, terrain Terrain, hex HexCoord) *Location {
	return &Location{
		ID:            id,
		Name:          name,
		Region:        region,
		Terrain:       terrain,
		Capacity:      20,
		ResourceNodes: map[Resource]*ResourceNode{},
		Structures:    map[uuid.UUID]*Structure{},
		Occupants:     map[uuid.UUID]bool{},
		DiscoveredBy:  map[uuid.UUID]bool{},
		hex:           hex,
	}
}

// ErrLocationAtCapacity is returned by AddOccupant when the location's
// occupancy bound would be exceeded.
var ErrLocationAtCapacity = fmt.Errorf("world: location at capacity")

// AddOccupant adds an agent to a location's occupant set, enforcing the
// occupancy bound |occupants| <= capacity.
func (l *Location) AddOccupant(agentID uuid.UUID) error {
	if l.Occupants[agentID] {
		return nil
	}
	if len(l.Occupants) >= l.Capacity {
		return ErrLocationAtCapacity
	}
	l.Occupants[agentID] = true
	return nil
}

// RemoveOccupant removes an agent from a location's occupant set.
func (l *Location) RemoveOccupant(agentID uuid.UUID) {
	delete(l.Occupants, agentID)
}

// Route is a directed, weather-sensitive edge between two locations.
type Route struct {
	ID           uuid.UUID `json:"id"`
	FromID       uuid.UUID `json:"from_id"`
	ToID         uuid.UUID `json:"to_id"`
	BaseCost     float64   `json:"base_cost"`
	PathType     PathType  `json:"path_type"`
	Degradation  float64   `json:"degradation"` // 0 (pristine) to 1 (barely passable)
	AllowedAgent map[uuid.UUID]bool `json:"-"` // nil/empty means unrestricted
}

// allowed reports whether the given agent may traverse this route.
func (r *Route) allowed(agentID uuid.UUID) bool {
	if len(r.AllowedAgent) == 0 {
		return true
	}
	return r.AllowedAgent[agentID]
}

// Cost returns this route's traversal cost under the given weather,
// factoring in accumulated degradation (each 0.1 of degradation adds 10%
// cost).
func (r *Route) Cost(weather environment.Weather) float64 {
	return r.BaseCost * environment.RouteMultiplier(weather) * (1 + r.Degradation)
}

// Degrade accumulates route wear from use, capped at 1.0.
func (r *Route) Degrade(amount float64) {
	r.Degradation += amount
	if r.Degradation > 1 {
		r.Degradation = 1
	}
}

// Improve reduces route degradation, floored at 0.
func (r *Route) Improve(amount float64) {
	r.Degradation -= amount
	if r.Degradation < 0 {
		r.Degradation = 0
	}
}

// Graph holds the full set of locations and the directed routes between
// them.
type Graph struct {
	Locations map[uuid.UUID]*Location
	routesBy  map[uuid.UUID][]*Route // adjacency keyed by FromID
	Seed      int64
}

// NewGraph creates an empty graph.
func NewGraph(seed int64) *Graph {
	return &Graph{
		Locations: map[uuid.UUID]*Location{},
		routesBy:  map[uuid.UUID][]*Route{},
		Seed:      seed,
	}
}

// AddLocation inserts a location into the graph.
func (g *Graph) AddLocation(l *Location) {
	g.Locations[l.ID] = l
}

// AddRoute inserts a directed route.
func (g *Graph) AddRoute(r *Route) {
	g.routesBy[r.FromID] = append(g.routesBy[r.FromID], r)
}

// Neighbors returns the routes leading out of a location.
func (g *Graph) Neighbors(locationID uuid.UUID) []*Route {
	return g.routesBy[locationID]
}

// Harvest removes up to `qty` units of `resource` from the resource node
// at `locationID`, returning the amount actually taken. Returns 0, false
// if the location has no such node.
func (g *Graph) Harvest(locationID uuid.UUID, resource Resource, qty uint32, tick uint64) (uint32, bool) {
	loc, ok := g.Locations[locationID]
	if !ok {
		return 0, false
	}
	node, ok := loc.ResourceNodes[resource]
	if !ok {
		return 0, false
	}
	return node.Harvest(qty, tick), true
}

// RegenerateAll applies one tick of regrowth to every resource node in
// the graph, returning the positive deltas keyed by (location, resource)
// for the caller to turn into Regeneration ledger entries.
type RegenDelta struct {
	LocationID uuid.UUID
	Resource   Resource
	Amount     uint32
}

func (g *Graph) RegenerateAll(seasonModifier float64) []RegenDelta {
	var deltas []RegenDelta
	for locID, loc := range g.Locations {
		for res, node := range loc.ResourceNodes {
			if amt := node.Regenerate(seasonModifier); amt > 0 {
				deltas = append(deltas, RegenDelta{LocationID: locID, Resource: res, Amount: amt})
			}
		}
	}
	return deltas
}

// pqItem and priorityQueue implement a binary min-heap over Dijkstra
// tentative distances.
type pqItem struct {
	id   uuid.UUID
	dist float64
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// ShortestPath runs Dijkstra over the graph with weather-modified edge
// weights, honoring route ACLs for the traveling agent. Returns the
// ordered location path (including from and to) and total cost, or ok
// == false if no route exists.
func (g *Graph) ShortestPath(from, to uuid.UUID, weather environment.Weather, agentID uuid.UUID) (path []uuid.UUID, cost float64, ok bool) {
	if from == to {
		return []uuid.UUID{from}, 0, true
	}

	dist := map[uuid.UUID]float64{from: 0}
	prev := map[uuid.UUID]uuid.UUID{}
	visited := map[uuid.UUID]bool{}

	pq := &priorityQueue{{id: from, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if visited[cur.id] {
			continue
		}
		visited[cur.id] = true
		if cur.id == to {
			break
		}

		for _, route := range g.routesBy[cur.id] {
			if !route.allowed(agentID) {
				continue
			}
			alt := cur.dist + route.Cost(weather)
			if existing, seen := dist[route.ToID]; !seen || alt < existing {
				dist[route.ToID] = alt
				prev[route.ToID] = cur.id
				heap.Push(pq, pqItem{id: route.ToID, dist: alt})
			}
		}
	}

	finalDist, reached := dist[to]
	if !reached {
		return nil, 0, false
	}

	// Reconstruct path by walking prev backward from `to`.
	rev := []uuid.UUID{to}
	at := to
	for at != from {
		p, ok := prev[at]
		if !ok {
			return nil, 0, false
		}
		rev = append(rev, p)
		at = p
	}
	path = make([]uuid.UUID, len(rev))
	for i, id := range rev {
		path[len(rev)-1-i] = id
	}
	return path, finalDist, true
}
