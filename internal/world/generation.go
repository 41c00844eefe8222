// World generation using layered simplex noise. Generates elevation,
// rainfall, and temperature fields over a hex lattice, derives terrain
// from them, then collapses the lattice into a Graph of Locations
// connected by Routes — the shape the rest of the simulation consumes.
package world

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Radius      int     // Hex lattice radius (22 gives 1519 cells)
	Seed        int64   // World seed; also the determinism seed for later ticks
	SeaLevel    float64 // Elevation threshold for ocean (0.0-1.0)
	MountainLvl float64 // Elevation threshold for mountains (0.0-1.0)
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{Radius: 22, Seed: 0, SeaLevel: 0.25, MountainLvl: 0.72}
}

// SmallTestConfig returns a tiny world for rapid iteration and tests.
func SmallTestConfig() GenConfig {
	return GenConfig{Radius: 5, Seed: 42, SeaLevel: 0.30, MountainLvl: 0.75}
}

// Generate builds a full world Graph from the given configuration.
func Generate(cfg GenConfig) *Graph {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	elevNoise := opensimplex.NewNormalized(seed)
	rainNoise := opensimplex.NewNormalized(seed + 1)
	tempNoise := opensimplex.NewNormalized(seed + 2)

	lat := newLattice(cfg.Radius)

	for q := -cfg.Radius; q <= cfg.Radius; q++ {
		for r := -cfg.Radius; r <= cfg.Radius; r++ {
			coord := HexCoord{Q: q, R: r}
			if !lat.inBounds(coord) {
				continue
			}

			x := float64(q) + float64(r)*0.5
			y := float64(r) * math.Sqrt(3.0) / 2.0

			elev := octaveNoise(elevNoise, x, y, 4, 0.08, 0.5)
			rain := octaveNoise(rainNoise, x, y, 3, 0.06, 0.5)
			temp := octaveNoise(tempNoise, x, y, 3, 0.05, 0.5)

			distFromCenter := math.Sqrt(x*x+y*y) / float64(cfg.Radius)
			edgeFalloff := 1.0 - math.Pow(distFromCenter, 3.5)
			if edgeFalloff < 0 {
				edgeFalloff = 0
			}
			elev *= edgeFalloff

			temp = temp*0.6 + (1.0-math.Abs(y)/float64(cfg.Radius))*0.3 + (1.0-elev)*0.1

			terrain := deriveTerrain(elev, rain, temp, cfg)

			lat.set(&cell{
				coord:       coord,
				terrain:     terrain,
				elevation:   elev,
				rainfall:    rain,
				temperature: temp,
			})
		}
	}

	markCoastalCells(lat)
	placeRivers(lat, seed)

	return collapseLattice(lat, seed)
}

func deriveTerrain(elev, rain, temp float64, cfg GenConfig) Terrain {
	if elev < cfg.SeaLevel {
		return TerrainOcean
	}
	if elev > cfg.MountainLvl {
		return TerrainMountain
	}
	if temp < 0.25 {
		return TerrainTundra
	}
	if rain < 0.25 && temp > 0.5 {
		return TerrainDesert
	}
	if rain > 0.7 && elev < 0.45 {
		return TerrainSwamp
	}
	if rain > 0.45 && elev > 0.45 {
		return TerrainForest
	}
	return TerrainPlains
}

func markCoastalCells(lat *lattice) {
	var toMark []HexCoord
	for coord, c := range lat.cells {
		if c.terrain == TerrainOcean {
			continue
		}
		for _, neighbor := range coord.Neighbors() {
			if nc := lat.get(neighbor); nc != nil && nc.terrain == TerrainOcean {
				toMark = append(toMark, coord)
				break
			}
		}
	}
	for _, coord := range toMark {
		c := lat.get(coord)
		if (c.terrain == TerrainPlains || c.terrain == TerrainForest) && c.elevation < 0.5 {
			c.terrain = TerrainCoast
		}
	}
}

func placeRivers(lat *lattice, seed int64) {
	rng := rand.New(rand.NewSource(seed + 100))

	var sources []HexCoord
	for coord, c := range lat.cells {
		if c.elevation > 0.65 && c.terrain != TerrainOcean {
			sources = append(sources, coord)
		}
	}

	numRivers := len(sources) / 8
	if numRivers < 2 {
		numRivers = 2
	}
	if numRivers > 10 {
		numRivers = 10
	}

	rng.Shuffle(len(sources), func(i, j int) { sources[i], sources[j] = sources[j], sources[i] })
	if len(sources) > numRivers {
		sources = sources[:numRivers]
	}

	for _, start := range sources {
		traceRiver(lat, start)
	}
}

func traceRiver(lat *lattice, start HexCoord) {
	current := start
	visited := make(map[HexCoord]bool)
	const maxSteps = 50

	for step := 0; step < maxSteps; step++ {
		visited[current] = true
		c := lat.get(current)
		if c == nil || c.terrain == TerrainOcean {
			return
		}
		if c.terrain != TerrainMountain && c.terrain != TerrainCoast {
			c.terrain = TerrainRiver
		}

		var best *HexCoord
		bestElev := c.elevation
		for _, nc := range current.Neighbors() {
			if visited[nc] {
				continue
			}
			n := lat.get(nc)
			if n == nil || n.elevation >= bestElev {
				continue
			}
			bestElev = n.elevation
			cp := nc
			best = &cp
		}
		if best == nil {
			return
		}
		current = *best
	}
}

func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total, amplitude, maxVal := 0.0, 1.0, 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}

// collapseLattice turns each land cell into a Location and each
// edge between adjacent land cells into a pair of directed Routes.
func collapseLattice(lat *lattice, seed int64) *Graph {
	g := NewGraph(seed)
	idOf := make(map[HexCoord]uuid.UUID, len(lat.cells))
	counter := 0

	for coord, c := range lat.cells {
		if c.terrain == TerrainOcean {
			continue
		}
		id := deterministicID(seed, coord)
		idOf[coord] = id
		counter++

		loc := newLocation(id, locationName(c.terrain, counter), regionOf(coord), c.terrain, coord)
		loc.Elevation, loc.Rainfall, loc.Temperature = c.elevation, c.rainfall, c.temperature
		loc.ResourceNodes = initialResourceNodes(c.terrain, c.elevation, c.rainfall)
		g.AddLocation(loc)
	}

	for coord, fromID := range idOf {
		fromCell := lat.get(coord)
		for _, nc := range coord.Neighbors() {
			toID, ok := idOf[nc]
			if !ok {
				continue
			}
			toCell := lat.get(nc)
			cost := (fromCell.terrain.baseTraversalCost() + toCell.terrain.baseTraversalCost()) / 2
			if cost < 0 {
				continue // one side impassable
			}
			pathType := PathRoad
			if fromCell.terrain == TerrainRiver || toCell.terrain == TerrainRiver {
				pathType = PathRiverCrossing
			}
			g.AddRoute(&Route{ID: deterministicRouteID(seed, coord, nc), FromID: fromID, ToID: toID, BaseCost: cost, PathType: pathType})
		}
	}

	return g
}

func deterministicID(seed int64, coord HexCoord) uuid.UUID {
	// Deterministic in (seed, coord): same world seed always lays out
	// the same location ids, required by the determinism invariant.
	var b [20]byte
	putInt64(b[0:8], seed)
	putInt64(b[8:16], int64(coord.Q))
	putInt64(b[16:20], int64(coord.R))
	return uuid.NewSHA1(uuid.NameSpaceOID, b[:])
}

func deterministicRouteID(seed int64, from, to HexCoord) uuid.UUID {
	var b [32]byte
	putInt64(b[0:8], seed)
	putInt64(b[8:16], int64(from.Q))
	putInt64(b[16:24], int64(from.R))
	putInt64(b[24:32], int64(to.Q)*1000+int64(to.R))
	return uuid.NewSHA1(uuid.NameSpaceOID, b[:])
}

func putInt64(dst []byte, v int64) {
	u := uint64(v)
	for i := 0; i < len(dst) && i < 8; i++ {
		dst[i] = byte(u >> (8 * i))
	}
}

func regionOf(coord HexCoord) string {
	return fmt.Sprintf("region-%d-%d", coord.Q/6, coord.R/6)
}

var terrainNamePrefixes = map[Terrain][]string{
	TerrainPlains:   {"Greenfield", "Wheaton", "Lowmeadow"},
	TerrainForest:   {"Darkwood", "Thornhollow", "Pinevale"},
	TerrainMountain: {"Ironpeak", "Stonecrag", "Grimspire"},
	TerrainCoast:    {"Saltmere", "Driftport", "Tidewatch"},
	TerrainRiver:    {"Clearrun", "Millbrook", "Fordwater"},
	TerrainDesert:   {"Dunesend", "Ashreach", "Sunscar"},
	TerrainSwamp:    {"Mossmire", "Fenwick", "Bogwater"},
	TerrainTundra:   {"Frostholm", "Icewatch", "Snowreach"},
}

func locationName(terrain Terrain, counter int) string {
	names := terrainNamePrefixes[terrain]
	if len(names) == 0 {
		return fmt.Sprintf("%s Outpost %d", terrain, counter)
	}
	return fmt.Sprintf("%s %d", names[counter%len(names)], counter)
}

// resourceYield gives the (base capacity, base regen) pair for a
// resource before the terrain's elevation/rainfall richness is mixed
// in. Scarcer goods (gems, exotics) regen slowly or not at all.
var resourceYield = map[Resource]struct{ cap, regen uint32 }{
	ResourceGrain:      {120, 2},
	ResourceWood:       {200, 3},
	ResourceHerbs:      {60, 1},
	ResourceFurs:       {80, 1},
	ResourceIronOre:    {150, 1},
	ResourceStone:      {200, 2},
	ResourceCoal:       {100, 1},
	ResourceGems:       {20, 0},
	ResourceFish:       {160, 4},
	ResourceExotics:    {15, 0},
	ResourceFoodBerry:  {50, 2},
	ResourceFoodFish:   {60, 3},
	ResourceFoodRoot:   {40, 1},
	ResourceFoodMeat:   {30, 1},
	ResourceFoodFarmed: {100, 3},
}

// initialResourceNodes populates a freshly generated location's resource
// nodes from the terrainResources catalog, scaling starting abundance by
// the cell's elevation and rainfall richness.
func initialResourceNodes(terrain Terrain, elev, rain float64) map[Resource]*ResourceNode {
	nodes := map[Resource]*ResourceNode{}
	richness := 0.6 + 0.4*(elev+rain)/2 // 0.6-1.0 multiplier on starting stock
	for _, r := range terrainResources[terrain] {
		y, ok := resourceYield[r]
		if !ok {
			continue
		}
		nodes[r] = &ResourceNode{
			Resource:     r,
			Available:    uint32(float64(y.cap) * richness * 0.5),
			RegenPerTick: y.regen,
			MaxCapacity:  y.cap,
		}
	}
	return nodes
}

// TerrainCounts summarizes terrain distribution across a generated graph.
func TerrainCounts(g *Graph) map[Terrain]int {
	counts := make(map[Terrain]int)
	for _, loc := range g.Locations {
		counts[loc.Terrain]++
	}
	return counts
}
