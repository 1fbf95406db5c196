package event

import (
	"time"

	"github.com/ganot/warciv/internal/domain/civ"
	"github.com/ganot/warciv/internal/domain/modifier"
)

// TempEffect is a modifier adjustment an event leaves behind for a while.
type TempEffect struct {
	Mods     modifier.Set  `yaml:"mods"`
	Override bool          `yaml:"override"`
	Duration time.Duration `yaml:"duration"`
}

// Kind declares one event type in the catalog: its selection weight,
// eligibility, magnitude range, and any lingering modifier.
type Kind struct {
	Name       string         `yaml:"name"`
	Scope      Scope          `yaml:"scope"`
	Weight     float64        `yaml:"weight"`
	Ideologies []civ.Ideology `yaml:"ideologies,omitempty"` // empty = everyone
	Actions    []string       `yaml:"actions,omitempty"`    // for ScopeAction kinds
	Min        civ.Delta      `yaml:"min"`
	Max        civ.Delta      `yaml:"max"`
	Temp       *TempEffect    `yaml:"temp,omitempty"`
	Summary    string         `yaml:"summary"`
}

// Eligible reports whether the kind may fire for the given civilization.
func (k *Kind) Eligible(c *civ.Civilization) bool {
	if len(k.Ideologies) == 0 {
		return true
	}
	for _, i := range k.Ideologies {
		if c.Ideology == i {
			return true
		}
	}
	return false
}

// Triggers reports whether the kind can fire after the given action.
func (k *Kind) Triggers(action string) bool {
	for _, a := range k.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Catalog is the full event configuration.
type Catalog struct {
	// LocalChance is the probability of any local event per civilization
	// per tick, before the EventRate modifier.
	LocalChance float64 `yaml:"local_chance"`
	// GlobalChance is the probability of a global event per global tick.
	GlobalChance float64 `yaml:"global_chance"`
	Kinds        []Kind  `yaml:"kinds"`
}

// DefaultCatalog returns the built-in event table, recovered from the
// classic catalog.
func DefaultCatalog() Catalog {
	return Catalog{
		LocalChance:  0.15,
		GlobalChance: 0.10,
		Kinds: []Kind{
			{
				Name: "bandit_raid", Scope: ScopeLocal, Weight: 0.08,
				Min:     civ.Delta{Gold: -250, Food: -120, Soldiers: -6},
				Max:     civ.Delta{Gold: -150, Food: -80, Soldiers: -3},
				Summary: "Bandits raid the borderlands",
			},
			{
				Name: "merchant_caravan", Scope: ScopeLocal, Weight: 0.10,
				Min:     civ.Delta{Gold: 200},
				Max:     civ.Delta{Gold: 400},
				Summary: "Wealthy merchants visit the capital",
			},
			{
				Name: "earthquake", Scope: ScopeLocal, Weight: 0.06,
				Min:     civ.Delta{Stone: -200, Wood: -150},
				Max:     civ.Delta{Stone: -100, Wood: -50},
				Summary: "An earthquake levels infrastructure",
			},
			{
				Name: "harvest_festival", Scope: ScopeLocal, Weight: 0.09,
				Min:     civ.Delta{Food: 300},
				Max:     civ.Delta{Food: 500},
				Summary: "A bountiful harvest fills the granaries",
			},
			{
				Name: "technology_breakthrough", Scope: ScopeLocal, Weight: 0.04,
				Min:     civ.Delta{Tech: 1},
				Max:     civ.Delta{Tech: 1},
				Summary: "Scholars make an important discovery",
			},
			{
				Name: "forest_fire", Scope: ScopeLocal, Weight: 0.06,
				Min:     civ.Delta{Wood: -350},
				Max:     civ.Delta{Wood: -200},
				Summary: "Wildfire consumes the timber stores",
			},
			{
				Name: "trade_route", Scope: ScopeLocal, Weight: 0.08,
				Min:     civ.Delta{Gold: 300, Food: 150},
				Max:     civ.Delta{Gold: 500, Food: 250},
				Summary: "A new trade route opens",
			},
			{
				Name: "military_desertion", Scope: ScopeLocal, Weight: 0.05,
				Min:     civ.Delta{Soldiers: -20},
				Max:     civ.Delta{Soldiers: -10},
				Summary: "Soldiers abandon their posts",
			},

			// Ideology-gated local events.
			{
				Name: "divine_blessing", Scope: ScopeLocal, Weight: 0.08,
				Ideologies: []civ.Ideology{civ.IdeologyTheocracy},
				Min:        civ.Delta{Food: 250, Gold: 80},
				Max:        civ.Delta{Food: 400, Gold: 150},
				Summary:    "The gods smile upon the faithful",
			},
			{
				Name: "military_parade", Scope: ScopeLocal, Weight: 0.08,
				Ideologies: []civ.Ideology{civ.IdeologyFascism},
				Min:        civ.Delta{Soldiers: 15},
				Max:        civ.Delta{Soldiers: 25},
				Summary:    "A grand parade swells the ranks",
			},
			{
				Name: "five_year_plan", Scope: ScopeLocal, Weight: 0.07,
				Ideologies: []civ.Ideology{civ.IdeologyCommunism},
				Min:        civ.Delta{Stone: 250, Wood: 250, Food: 300},
				Max:        civ.Delta{Stone: 400, Wood: 400, Food: 500},
				Summary:    "Central planning boosts production",
			},
			{
				Name: "free_elections", Scope: ScopeLocal, Weight: 0.07,
				Ideologies: []civ.Ideology{civ.IdeologyDemocracy},
				Min:        civ.Delta{Gold: 100},
				Max:        civ.Delta{Gold: 250},
				Summary:    "Stable institutions attract commerce",
			},
			{
				Name: "chaos_erupts", Scope: ScopeLocal, Weight: 0.10,
				Ideologies: []civ.Ideology{civ.IdeologyAnarchy},
				Min:        civ.Delta{Gold: 200, Soldiers: -12},
				Max:        civ.Delta{Gold: 400, Soldiers: -6},
				Summary:    "Lawlessness brings loot and desertion alike",
			},

			// Action-triggered events.
			{
				Name: "lucky_find", Scope: ScopeAction, Weight: 0.10,
				Actions: []string{"gather"},
				Min:     civ.Delta{Gold: 50, Stone: 20},
				Max:     civ.Delta{Gold: 200, Stone: 80},
				Summary: "Gatherers stumble on a rich vein",
			},

			// Global events.
			{
				Name: "solar_flare", Scope: ScopeGlobal, Weight: 0.05,
				Min:     civ.Delta{Tech: -1},
				Max:     civ.Delta{Tech: -1},
				Summary: "Cosmic radiation disrupts technology worldwide",
			},
			{
				Name: "pandemic", Scope: ScopeGlobal, Weight: 0.04,
				Min:     civ.Delta{Food: -250, Soldiers: -12},
				Max:     civ.Delta{Food: -150, Soldiers: -6},
				Summary: "Disease spreads across every land",
			},
			{
				Name: "meteor_shower", Scope: ScopeGlobal, Weight: 0.03,
				Min:     civ.Delta{Stone: 350, Gold: 120},
				Max:     civ.Delta{Stone: 600, Gold: 250},
				Summary: "Meteors scatter rare minerals",
			},
			{
				Name: "nuclear_winter", Scope: ScopeGlobal, Weight: 0.02,
				Min:  civ.Delta{Food: -200},
				Max:  civ.Delta{Food: -100},
				Temp: &TempEffect{
					Mods:     modifier.Set{Resource: 0.5},
					Duration: 2 * time.Hour,
				},
				Summary: "Ash blots the sun; production collapses",
			},
			{
				Name: "golden_age", Scope: ScopeGlobal, Weight: 0.02,
				Min:  civ.Delta{Gold: 200},
				Max:  civ.Delta{Gold: 400},
				Temp: &TempEffect{
					Mods:     modifier.Set{Resource: 1.25},
					Duration: 2 * time.Hour,
				},
				Summary: "An age of unprecedented prosperity",
			},
		},
	}
}
