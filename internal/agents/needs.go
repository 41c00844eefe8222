package agents

// VitalsConfig is the exact tunable table the vitals-update step reads
// from every tick. config.Config carries one, set to DefaultVitalsConfig;
// config.Load applies no environment overrides to it.
type VitalsConfig struct {
	HungerRate          uint32
	StarvationDamage    uint32
	RestRecovery        uint32
	NaturalHealRate     uint32
	Lifespan            uint32
	CarryCapacity       uint32
	StartingEnergy      uint32
	StartingHealth      uint32
	StarvationThreshold uint32
	HealHungerThreshold uint32
	HealEnergyThreshold uint32
	AgingThresholdPct   uint32
}

// DefaultVitalsConfig is the donor-equivalent baseline configuration.
func DefaultVitalsConfig() VitalsConfig {
	return VitalsConfig{
		HungerRate:          5,
		StarvationDamage:    10,
		RestRecovery:        30,
		NaturalHealRate:     2,
		Lifespan:            2500,
		CarryCapacity:       50,
		StartingEnergy:      80,
		StartingHealth:      100,
		StarvationThreshold: 100,
		HealHungerThreshold: 50,
		HealEnergyThreshold: 50,
		AgingThresholdPct:   80,
	}
}

// MaxEnergyForAge returns the age-adjusted energy ceiling: 100 until the
// aging threshold, then a linear decay toward a floor of 50 as the
// agent approaches lifespan.
func (c VitalsConfig) MaxEnergyForAge(age uint32) uint32 {
	threshold := c.Lifespan * c.AgingThresholdPct / 100
	if age <= threshold {
		return 100
	}
	window := c.Lifespan - threshold
	if window == 0 {
		return 50
	}
	ageBeyond := age - threshold
	decay := ageBeyond * 50 / window
	if decay > 50 {
		decay = 50
	}
	return 100 - decay
}

// ApplyTickVitals performs the per-tick vitals update (hunger, health,
// aging) described by the resolution phase's vital-update step. It does
// not check death — callers call DeathCause separately afterward.
func (c VitalsConfig) ApplyTickVitals(s *AgentState, sheltered bool) {
	s.Hunger += c.HungerRate
	if s.Hunger >= c.StarvationThreshold {
		if s.Health > c.StarvationDamage {
			s.Health -= c.StarvationDamage
		} else {
			s.Health = 0
		}
	} else if s.Hunger < c.HealHungerThreshold && s.Energy > c.HealEnergyThreshold && sheltered {
		s.Health += c.NaturalHealRate
	}
	ceiling := c.MaxEnergyForAge(s.Age)
	if s.Health > 100 {
		s.Health = 100
	}
	if s.Energy > ceiling {
		s.Energy = ceiling
	}
	s.Age++
}

// DeathCause evaluates the death-priority order: age outliving lifespan
// takes precedence over health-based causes even when both hold.
func (c VitalsConfig) DeathCause(s *AgentState) CauseOfDeath {
	if s.Age > c.Lifespan {
		return CauseOldAge
	}
	if s.Health == 0 && s.Hunger >= c.StarvationThreshold {
		return CauseStarvation
	}
	if s.Health == 0 {
		return CauseInjury
	}
	return CauseNone
}

// Rest applies the Rest action's energy recovery, capped at this
// agent's age-adjusted ceiling.
func (c VitalsConfig) Rest(s *AgentState) {
	s.Energy += c.RestRecovery
	if ceiling := c.MaxEnergyForAge(s.Age); s.Energy > ceiling {
		s.Energy = ceiling
	}
}
