package world

// Resource identifies a kind of quantity that can be held in an
// inventory, harvested from a resource node, or moved through the
// ledger. Values are lowercase snake-case strings so they serialize
// directly as ledger.Entry.Resource and compare equal to the wire format.
type Resource string

const (
	ResourceWood     Resource = "wood"
	ResourceGrain    Resource = "grain"
	ResourceIronOre  Resource = "iron_ore"
	ResourceStone    Resource = "stone"
	ResourceFish     Resource = "fish"
	ResourceHerbs    Resource = "herbs"
	ResourceGems     Resource = "gems"
	ResourceFurs     Resource = "furs"
	ResourceCoal     Resource = "coal"
	ResourceExotics  Resource = "exotics"
	ResourceTools    Resource = "tools"
	ResourceWeapons  Resource = "weapons"
	ResourceClothing Resource = "clothing"
	ResourceMedicine Resource = "medicine"
	ResourceLuxuries Resource = "luxuries"
	ResourceMetal    Resource = "metal"

	ResourceFoodBerry  Resource = "food_berry"
	ResourceFoodFish   Resource = "food_fish"
	ResourceFoodRoot   Resource = "food_root"
	ResourceFoodMeat   Resource = "food_meat"
	ResourceFoodFarmed Resource = "food_farmed"
	ResourceFoodCooked Resource = "food_cooked"
)

// FoodValue is the (hunger_reduction, energy_gain) pair applied when a
// food resource is consumed via the Eat action.
type FoodValue struct {
	HungerReduction uint32
	EnergyGain      uint32
}

// foodValues is the exact table from the donor's action-cost catalog.
var foodValues = map[Resource]FoodValue{
	ResourceFoodBerry:  {HungerReduction: 20, EnergyGain: 5},
	ResourceFoodFish:   {HungerReduction: 30, EnergyGain: 10},
	ResourceFoodRoot:   {HungerReduction: 15, EnergyGain: 5},
	ResourceFoodMeat:   {HungerReduction: 35, EnergyGain: 15},
	ResourceFoodFarmed: {HungerReduction: 40, EnergyGain: 15},
	ResourceFoodCooked: {HungerReduction: 50, EnergyGain: 20},
}

// IsFood reports whether a resource can be Eaten, returning its food
// value when it can.
func IsFood(r Resource) (FoodValue, bool) {
	v, ok := foodValues[r]
	return v, ok
}

// terrainResources lists which resources a terrain kind can host a
// resource node for, used by world generation.
var terrainResources = map[Terrain][]Resource{
	TerrainPlains:   {ResourceGrain, ResourceFoodFarmed},
	TerrainForest:   {ResourceWood, ResourceHerbs, ResourceFurs, ResourceFoodBerry},
	TerrainMountain: {ResourceIronOre, ResourceStone, ResourceGems, ResourceCoal},
	TerrainCoast:    {ResourceFish, ResourceFoodFish},
	TerrainRiver:    {ResourceFish, ResourceFoodRoot, ResourceGrain},
	TerrainDesert:   {ResourceExotics, ResourceStone},
	TerrainSwamp:    {ResourceHerbs, ResourceFoodRoot},
	TerrainTundra:   {ResourceFurs, ResourceFoodMeat},
	TerrainOcean:    nil,
}
