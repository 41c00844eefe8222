// Package world models the graph of locations and routes that agents
// inhabit and move through: resource nodes, structures, occupancy, and
// weather-modified traversal cost. World generation lays the graph out
// on an internal hex lattice (axial coordinates) using layered noise,
// but HexCoord itself never escapes the package — callers only ever see
// Location and Route.
package world

// HexCoord is a position on the generation-time hex lattice, using axial
// coordinates. The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int
	R int
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Terrain classifies a lattice cell, determining which resources it can
// host and its base route traversal difficulty.
type Terrain uint8

const (
	TerrainPlains   Terrain = iota // Fertile plains — high agricultural yield
	TerrainForest                  // Timber, herbs, game
	TerrainMountain                // Minerals, gems, defensive positions
	TerrainCoast                   // Fishing, port potential
	TerrainRiver                   // Freshwater, irrigation, trade arteries
	TerrainDesert                  // Rare minerals, harsh conditions
	TerrainSwamp                   // Alchemical ingredients, disease risk
	TerrainTundra                  // Furs, ice minerals, extreme conditions
	TerrainOcean                   // Impassable except by ship
)

func (t Terrain) String() string {
	switch t {
	case TerrainPlains:
		return "plains"
	case TerrainForest:
		return "forest"
	case TerrainMountain:
		return "mountain"
	case TerrainCoast:
		return "coast"
	case TerrainRiver:
		return "river"
	case TerrainDesert:
		return "desert"
	case TerrainSwamp:
		return "swamp"
	case TerrainTundra:
		return "tundra"
	case TerrainOcean:
		return "ocean"
	default:
		return "unknown"
	}
}

// baseTraversalCost is the route difficulty contribution of crossing
// into a cell of this terrain, before weather modifiers.
func (t Terrain) baseTraversalCost() float64 {
	switch t {
	case TerrainPlains, TerrainRiver:
		return 1.0
	case TerrainCoast:
		return 1.2
	case TerrainForest, TerrainSwamp:
		return 1.5
	case TerrainDesert, TerrainTundra:
		return 2.0
	case TerrainMountain:
		return 2.5
	case TerrainOcean:
		return -1 // impassable; no route is generated across it
	default:
		return 1.0
	}
}

// hexNeighborDirections are the six axial neighbor offsets.
var hexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent lattice coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range hexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// hexDistance returns the cube-coordinate distance between two lattice
// cells.
func hexDistance(a, b HexCoord) int {
	dq := a.Q - b.Q
	dr := a.R - b.R
	ds := a.S() - b.S()
	if dq < 0 {
		dq = -dq
	}
	if dr < 0 {
		dr = -dr
	}
	if ds < 0 {
		ds = -ds
	}
	max := dq
	if dr > max {
		max = dr
	}
	if ds > max {
		max = ds
	}
	return max
}
