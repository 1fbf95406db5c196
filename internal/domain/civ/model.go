package civ

import "time"

// Ideology is a strategic policy fixed per civilization.
type Ideology string

const (
	IdeologyNone      Ideology = ""
	IdeologyFascism   Ideology = "fascism"
	IdeologyDemocracy Ideology = "democracy"
	IdeologyCommunism Ideology = "communism"
	IdeologyTheocracy Ideology = "theocracy"
	IdeologyAnarchy   Ideology = "anarchy"
)

// Ideologies lists every selectable ideology.
var Ideologies = []Ideology{
	IdeologyFascism,
	IdeologyDemocracy,
	IdeologyCommunism,
	IdeologyTheocracy,
	IdeologyAnarchy,
}

// Valid reports whether the ideology is a known selectable value.
func (i Ideology) Valid() bool {
	for _, known := range Ideologies {
		if i == known {
			return true
		}
	}
	return false
}

// Resources holds the four stockpiled resource quantities.
// All values are non-negative at rest; the ledger enforces this.
type Resources struct {
	Gold  int64 `json:"gold" yaml:"gold"`
	Wood  int64 `json:"wood" yaml:"wood"`
	Stone int64 `json:"stone" yaml:"stone"`
	Food  int64 `json:"food" yaml:"food"`
}

// Military holds troop counts and the researched tech level (1..TechCap).
type Military struct {
	Soldiers int64 `json:"soldiers" yaml:"soldiers"`
	Spies    int64 `json:"spies" yaml:"spies"`
	Tech     int64 `json:"tech" yaml:"tech"`
}

// Known consumable item kinds. Shield, Mirror and Warhead are checked by
// the combat path; the rest grant their effect when used explicitly.
const (
	ItemShield      = "shield"
	ItemMirror      = "mirror"
	ItemWarhead     = "warhead"
	ItemGrowthBoost = "growth_boost"
	ItemWarBanner   = "war_banner"
)

// Item is a consumable HyperItem held by a civilization.
type Item struct {
	Kind    string `json:"kind"`
	Charges int64  `json:"charges"`
}

// Civilization is a player-controlled actor.
type Civilization struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Ideology  Ideology     `json:"ideology"`
	Resources Resources    `json:"resources"`
	Territory int64        `json:"territory"` // never below TerritoryFloor
	Military  Military     `json:"military"`
	Items     []Item       `json:"items,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Summary is a lightweight leaderboard view of a civilization.
type Summary struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Ideology  Ideology `json:"ideology"`
	Gold      int64    `json:"gold"`
	Territory int64    `json:"territory"`
	Soldiers  int64    `json:"soldiers"`
	Power     int64    `json:"power"`
}

// Power scores a civilization for leaderboards and matchmaking views.
// Weights recovered from the classic scoring: soldiers 5x, spies 10x,
// tech 100x, resources 1/10, territory 1/100.
func (c *Civilization) Power() int64 {
	r := c.Resources
	resourcePower := (r.Gold + r.Wood + r.Stone + r.Food) / 10
	militaryPower := c.Military.Soldiers*5 + c.Military.Spies*10
	techPower := c.Military.Tech * 100
	return resourcePower + militaryPower + techPower + c.Territory/100
}

// ItemCount returns the remaining charges for an item kind.
func (c *Civilization) ItemCount(kind string) int64 {
	for _, it := range c.Items {
		if it.Kind == kind {
			return it.Charges
		}
	}
	return 0
}
