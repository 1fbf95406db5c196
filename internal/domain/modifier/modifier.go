package modifier

import "github.com/ganot/warciv/internal/domain/civ"

// Effect is an active adjustment layered on top of the ideology base set:
// an item's passive bonus or a temporary event effect. Multiplier fields
// stack multiplicatively and bonus fields additively, unless Override is
// set, in which case non-neutral fields replace the accumulated value.
type Effect struct {
	Source   string `yaml:"source"`
	Mods     Set    `yaml:"mods"`
	Override bool   `yaml:"override"`
}

const (
	techResourceStep = 0.05 // economy gain per tech level
	techDefenseStep  = 0.02 // fortification gain per tech level
)

// For computes the complete modifier set for a civilization. The result is
// deterministic: same ideology, attributes and effects yield the same set.
// An unset ideology contributes the neutral set.
func (t Table) For(c *civ.Civilization, effects []Effect) Set {
	set := Neutral()
	if base, ok := t[c.Ideology]; ok {
		set = base
	}

	// Attribute contributions: tech advances the economy and fortifies.
	set.Resource *= 1 + float64(c.Military.Tech)*techResourceStep
	set.Defense += float64(c.Military.Tech) * techDefenseStep

	for _, e := range effects {
		if e.Override {
			set = override(set, e.Mods)
			continue
		}
		set.Resource *= orNeutral(e.Mods.Resource)
		set.Military *= orNeutral(e.Mods.Military)
		set.Cooldown *= orNeutral(e.Mods.Cooldown)
		set.EventRate *= orNeutral(e.Mods.EventRate)
		set.Defense += e.Mods.Defense
		set.Diplomacy += e.Mods.Diplomacy
		set.Risk += e.Mods.Risk
	}

	return set
}

// override replaces fields that the effect actually sets, leaving the rest.
func override(base, mods Set) Set {
	if mods.Resource != 0 {
		base.Resource = mods.Resource
	}
	if mods.Military != 0 {
		base.Military = mods.Military
	}
	if mods.Cooldown != 0 {
		base.Cooldown = mods.Cooldown
	}
	if mods.EventRate != 0 {
		base.EventRate = mods.EventRate
	}
	if mods.Defense != 0 {
		base.Defense = mods.Defense
	}
	if mods.Diplomacy != 0 {
		base.Diplomacy = mods.Diplomacy
	}
	if mods.Risk != 0 {
		base.Risk = mods.Risk
	}
	return base
}

// orNeutral treats an unset multiplier (zero) as 1.0 so partially filled
// effects don't zero out the stack.
func orNeutral(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
