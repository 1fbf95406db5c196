package engine

import (
	"time"

	"github.com/ganot/warciv/internal/domain/civ"
	"github.com/ganot/warciv/internal/domain/event"
	"github.com/ganot/warciv/internal/domain/modifier"
)

// ItemSpec declares what happens when an item charge is consumed through
// UseItem: an immediate ledger delta, a temporary modifier effect, or both.
// Passive items (shield, mirror, warhead) are consumed by the combat path
// instead and do not appear here.
type ItemSpec struct {
	Delta   civ.Delta         `yaml:"delta,omitempty"`
	Temp    *event.TempEffect `yaml:"temp,omitempty"`
	Summary string            `yaml:"summary"`
}

// ItemCatalog maps item kinds to their use effects.
type ItemCatalog map[string]ItemSpec

// DefaultItems returns the built-in usable item effects.
func DefaultItems() ItemCatalog {
	return ItemCatalog{
		civ.ItemGrowthBoost: {
			Temp: &event.TempEffect{
				Mods:     modifier.Set{Resource: 1.5},
				Duration: time.Hour,
			},
			Summary: "a surge of industry sweeps the land",
		},
		civ.ItemWarBanner: {
			Temp: &event.TempEffect{
				Mods:     modifier.Set{Military: 1.25},
				Duration: time.Hour,
			},
			Summary: "the banner rallies the troops",
		},
	}
}
