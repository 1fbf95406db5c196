// Package modifier computes the numeric modifier set for a civilization
// from its ideology, attributes, and active item or event effects. All
// computations are pure; randomness and persistence live elsewhere.
package modifier

import "github.com/ganot/warciv/internal/domain/civ"

// Set is a complete modifier snapshot. Resource, Military, Cooldown and
// EventRate are multipliers (neutral 1.0); Defense, Diplomacy and Risk are
// additive fractions (neutral 0).
type Set struct {
	Resource  float64 `yaml:"resource"`
	Military  float64 `yaml:"military"`
	Defense   float64 `yaml:"defense"`
	Diplomacy float64 `yaml:"diplomacy"`
	Risk      float64 `yaml:"risk"`
	Cooldown  float64 `yaml:"cooldown"`
	EventRate float64 `yaml:"event_rate"`
}

// Neutral returns the identity modifier set.
func Neutral() Set {
	return Set{Resource: 1, Military: 1, Defense: 0, Diplomacy: 0, Risk: 0, Cooldown: 1, EventRate: 1}
}

// Table maps each ideology to its base modifier set. Loaded from the
// gameplay configuration; DefaultTable supplies the built-in balance.
type Table map[civ.Ideology]Set

// DefaultTable returns the built-in ideology balance. Values re-derived
// from the classic tuning: fascism trades diplomacy for military, democracy
// trades military for stable economy and diplomacy, communism levels
// production under a military ceiling, theocracy resists events at an
// economic cost, anarchy is high-variance with no cooldown relief.
func DefaultTable() Table {
	return Table{
		civ.IdeologyFascism: {
			Resource: 1.0, Military: 1.25, Defense: 0.05, Diplomacy: -0.15,
			Risk: 0.05, Cooldown: 0.9, EventRate: 1.0,
		},
		civ.IdeologyDemocracy: {
			Resource: 1.10, Military: 0.85, Defense: 0.0, Diplomacy: 0.15,
			Risk: -0.05, Cooldown: 1.0, EventRate: 1.0,
		},
		civ.IdeologyCommunism: {
			Resource: 1.10, Military: 0.90, Defense: 0.05, Diplomacy: 0.0,
			Risk: 0.0, Cooldown: 0.95, EventRate: 1.0,
		},
		civ.IdeologyTheocracy: {
			Resource: 0.90, Military: 1.0, Defense: 0.05, Diplomacy: 0.05,
			Risk: -0.10, Cooldown: 1.0, EventRate: 0.85,
		},
		civ.IdeologyAnarchy: {
			Resource: 1.0, Military: 1.05, Defense: -0.05, Diplomacy: -0.10,
			Risk: 0.15, Cooldown: 1.0, EventRate: 2.0,
		},
	}
}
