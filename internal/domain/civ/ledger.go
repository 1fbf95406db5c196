package civ

const (
	// TerritoryFloor is the minimum territory a civilization can hold.
	TerritoryFloor = 1
	// TechCap is the maximum researchable tech level.
	TechCap = 10
)

// Delta is a signed change to a civilization's ledger. Zero fields are
// no-ops, so a Delta can touch any subset of the ledger.
type Delta struct {
	Gold      int64 `json:"gold,omitempty"`
	Wood      int64 `json:"wood,omitempty"`
	Stone     int64 `json:"stone,omitempty"`
	Food      int64 `json:"food,omitempty"`
	Territory int64 `json:"territory,omitempty"`
	Soldiers  int64 `json:"soldiers,omitempty"`
	Spies     int64 `json:"spies,omitempty"`
	Tech      int64 `json:"tech,omitempty"`
}

// IsZero reports whether the delta changes nothing.
func (d Delta) IsZero() bool {
	return d == Delta{}
}

// Add returns the field-wise sum of two deltas.
func (d Delta) Add(o Delta) Delta {
	return Delta{
		Gold:      d.Gold + o.Gold,
		Wood:      d.Wood + o.Wood,
		Stone:     d.Stone + o.Stone,
		Food:      d.Food + o.Food,
		Territory: d.Territory + o.Territory,
		Soldiers:  d.Soldiers + o.Soldiers,
		Spies:     d.Spies + o.Spies,
		Tech:      d.Tech + o.Tech,
	}
}

// Negate returns the delta with every field sign-flipped.
func (d Delta) Negate() Delta {
	return Delta{
		Gold:      -d.Gold,
		Wood:      -d.Wood,
		Stone:     -d.Stone,
		Food:      -d.Food,
		Territory: -d.Territory,
		Soldiers:  -d.Soldiers,
		Spies:     -d.Spies,
		Tech:      -d.Tech,
	}
}

// Apply mutates the civilization by the delta, all-or-nothing. Every field
// is validated simultaneously before anything changes: if any resource
// would go negative, territory would drop below TerritoryFloor, or a
// military count would go negative, it returns ErrInsufficientResources
// and the civilization is untouched. Tech is bounded to [0, TechCap].
func Apply(c *Civilization, d Delta) error {
	r := c.Resources
	if r.Gold+d.Gold < 0 || r.Wood+d.Wood < 0 || r.Stone+d.Stone < 0 || r.Food+d.Food < 0 {
		return ErrInsufficientResources
	}
	if c.Territory+d.Territory < TerritoryFloor {
		return ErrInsufficientResources
	}
	m := c.Military
	if m.Soldiers+d.Soldiers < 0 || m.Spies+d.Spies < 0 || m.Tech+d.Tech < 0 {
		return ErrInsufficientResources
	}

	c.Resources.Gold += d.Gold
	c.Resources.Wood += d.Wood
	c.Resources.Stone += d.Stone
	c.Resources.Food += d.Food
	c.Territory += d.Territory
	c.Military.Soldiers += d.Soldiers
	c.Military.Spies += d.Spies
	c.Military.Tech = min(TechCap, m.Tech+d.Tech)
	return nil
}

// ApplyClamped mutates the civilization by as much of the delta as the
// invariants allow and returns the delta actually applied. Used by events
// and combat transfers, which must always land once selected.
func ApplyClamped(c *Civilization, d Delta) Delta {
	applied := Delta{
		Gold:      clampTo(c.Resources.Gold, d.Gold, 0),
		Wood:      clampTo(c.Resources.Wood, d.Wood, 0),
		Stone:     clampTo(c.Resources.Stone, d.Stone, 0),
		Food:      clampTo(c.Resources.Food, d.Food, 0),
		Territory: clampTo(c.Territory, d.Territory, TerritoryFloor),
		Soldiers:  clampTo(c.Military.Soldiers, d.Soldiers, 0),
		Spies:     clampTo(c.Military.Spies, d.Spies, 0),
	}
	applied.Tech = clampTo(c.Military.Tech, d.Tech, 0)
	if c.Military.Tech+applied.Tech > TechCap {
		applied.Tech = TechCap - c.Military.Tech
	}

	// Clamped deltas can never fail the full check.
	if err := Apply(c, applied); err != nil {
		panic("civ: clamped delta rejected: " + err.Error())
	}
	return applied
}

// clampTo limits a decrease so current+delta never drops below floor.
func clampTo(current, delta, floor int64) int64 {
	if current+delta < floor {
		return floor - current
	}
	return delta
}
