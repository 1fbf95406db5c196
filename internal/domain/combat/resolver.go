// Package combat resolves battles between two civilizations. Resolution is
// pure: all randomness comes from the injected source, so a fixed seed
// replays identically.
package combat

import (
	"math/rand"

	"github.com/ganot/warciv/internal/domain/civ"
	"github.com/ganot/warciv/internal/domain/modifier"
)

// Tuning holds the combat balance knobs, supplied by configuration.
type Tuning struct {
	// Damping keeps outcomes contestable: win probability approaches but
	// never reaches 0.5 +/- Damping/2 at extreme power ratios.
	Damping float64 `yaml:"damping"`
	// TransferFraction of the defender's resources and territory moves to
	// the attacker on a win.
	TransferFraction float64 `yaml:"transfer_fraction"`
	// LoserLossFraction of the loser's military is destroyed.
	LoserLossFraction float64 `yaml:"loser_loss_fraction"`
	// WinnerLossFraction of the winner's soldiers fall even in victory.
	WinnerLossFraction float64 `yaml:"winner_loss_fraction"`
	// TerritoryScale converts territory into a power bonus: each Scale
	// units of land add +100% power.
	TerritoryScale float64 `yaml:"territory_scale"`

	Nuke NukeTuning `yaml:"nuke"`
}

// NukeTuning is the fixed devastation applied by a nuclear strike.
type NukeTuning struct {
	ResourceFraction  float64 `yaml:"resource_fraction"`
	MilitaryFraction  float64 `yaml:"military_fraction"`
	TerritoryFraction float64 `yaml:"territory_fraction"`
}

// DefaultTuning returns the built-in combat balance.
func DefaultTuning() Tuning {
	return Tuning{
		Damping:            0.9,
		TransferFraction:   0.15,
		LoserLossFraction:  0.25,
		WinnerLossFraction: 0.05,
		TerritoryScale:     10000,
		Nuke: NukeTuning{
			ResourceFraction:  0.5,
			MilitaryFraction:  0.75,
			TerritoryFraction: 0.3,
		},
	}
}

// Outcome describes a resolved battle. Deltas are expressed from each
// side's own point of view and clamped by the ledger on application.
type Outcome struct {
	AttackerWins   bool      `json:"attacker_wins"`
	WinProb        float64   `json:"win_prob"`
	AttackerPower  float64   `json:"attacker_power"`
	DefenderPower  float64   `json:"defender_power"`
	Plunder        civ.Delta `json:"plunder"`         // taken from the defender on a win
	AttackerLosses civ.Delta `json:"attacker_losses"` // negative military fields
	DefenderLosses civ.Delta `json:"defender_losses"`
}

// Power computes one side's effective combat power. Both sides apply their
// military multiplier and territory bonus; the defender additionally gains
// its defensive bonus.
func Power(c *civ.Civilization, mods modifier.Set, defending bool, t Tuning) float64 {
	base := float64(c.Military.Soldiers*10 + c.Military.Spies*5 + c.Military.Tech*50)
	power := base * mods.Military * (1 + float64(c.Territory)/t.TerritoryScale)
	if defending {
		power *= 1 + mods.Defense
	}
	return power
}

// WinProbability maps the attacker/defender power ratio to a win chance.
// Monotonic in the ratio; 1:1 yields exactly 0.5; extreme ratios approach
// but never reach 0.5 +/- Damping/2.
func WinProbability(attacker, defender float64, t Tuning) float64 {
	if attacker <= 0 && defender <= 0 {
		return 0.5
	}
	if defender <= 0 {
		return 0.5 + t.Damping/2
	}
	r := attacker / defender
	return 0.5 + t.Damping*(r-1)/(2*(r+1))
}

// Resolve runs one battle. The single random draw decides the winner; all
// deltas are derived from the loser's current holdings so application can
// only shrink, never fail.
func Resolve(attacker, defender *civ.Civilization, amods, dmods modifier.Set, rng *rand.Rand, t Tuning) Outcome {
	ap := Power(attacker, amods, false, t)
	dp := Power(defender, dmods, true, t)
	p := WinProbability(ap, dp, t)

	out := Outcome{
		WinProb:       p,
		AttackerPower: ap,
		DefenderPower: dp,
		AttackerWins:  rng.Float64() < p,
	}

	if out.AttackerWins {
		out.Plunder = fraction(defender, t.TransferFraction, t.TransferFraction)
		out.DefenderLosses = militaryLoss(defender, t.LoserLossFraction)
		out.AttackerLosses = militaryLoss(attacker, t.WinnerLossFraction)
	} else {
		// Defender holds: territory and resources untouched.
		out.AttackerLosses = militaryLoss(attacker, t.LoserLossFraction)
		out.DefenderLosses = militaryLoss(defender, t.WinnerLossFraction)
	}
	return out
}

// ResolveNuke computes the fixed devastation of a nuclear strike against
// the target's current holdings. No contest roll: possession of the
// warhead already decided the outcome.
func ResolveNuke(target *civ.Civilization, t Tuning) civ.Delta {
	d := fraction(target, t.Nuke.ResourceFraction, t.Nuke.TerritoryFraction)
	d.Soldiers = frac(target.Military.Soldiers, t.Nuke.MilitaryFraction)
	d.Spies = frac(target.Military.Spies, t.Nuke.MilitaryFraction)
	return d
}

func fraction(c *civ.Civilization, resourceFrac, territoryFrac float64) civ.Delta {
	return civ.Delta{
		Gold:      frac(c.Resources.Gold, resourceFrac),
		Wood:      frac(c.Resources.Wood, resourceFrac),
		Stone:     frac(c.Resources.Stone, resourceFrac),
		Food:      frac(c.Resources.Food, resourceFrac),
		Territory: frac(c.Territory, territoryFrac),
	}
}

func militaryLoss(c *civ.Civilization, f float64) civ.Delta {
	return civ.Delta{
		Soldiers: -frac(c.Military.Soldiers, f),
		Spies:    -frac(c.Military.Spies, f/2),
	}
}

func frac(v int64, f float64) int64 {
	return int64(float64(v) * f)
}
