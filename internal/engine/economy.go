package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ganot/warciv/internal/domain/civ"
)

// Economy holds the balance knobs for the resource actions, supplied by
// configuration.
type Economy struct {
	// GatherChance is the per-resource probability of finding anything.
	GatherChance float64 `yaml:"gather_chance"`
	GatherMin    int64   `yaml:"gather_min"`
	GatherMax    int64   `yaml:"gather_max"`
	// GatherTerritoryScale converts land into gather yield: yield scales by
	// territory divided by this value.
	GatherTerritoryScale float64 `yaml:"gather_territory_scale"`

	ExpandCost civ.Delta `yaml:"expand_cost"` // negative fields
	ExpandMin  int64     `yaml:"expand_min"`  // territory gained
	ExpandMax  int64     `yaml:"expand_max"`

	SoldierCost civ.Delta `yaml:"soldier_cost"` // per unit, negative fields
	SpyCost     civ.Delta `yaml:"spy_cost"`

	// ResearchCostPerLevel scales research cost by the next tech level.
	ResearchCostPerLevel civ.Delta `yaml:"research_cost_per_level"`

	// SpyTheftMin/Max bound the stolen gold fraction of a successful
	// espionage theft.
	SpyTheftMin float64 `yaml:"spy_theft_min"`
	SpyTheftMax float64 `yaml:"spy_theft_max"`
	// SpyBaseChance anchors espionage success before the power difference.
	SpyBaseChance float64 `yaml:"spy_base_chance"`

	// SurrenderTribute is the resource fraction paid when surrendering.
	SurrenderTribute float64 `yaml:"surrender_tribute"`
	// BreakAlliancePenalty is the gold cost of walking out on an ally.
	BreakAlliancePenalty int64 `yaml:"break_alliance_penalty"`
}

// DefaultEconomy returns the built-in action balance, recovered from the
// classic command tuning.
func DefaultEconomy() Economy {
	return Economy{
		GatherChance:         0.7,
		GatherMin:            10,
		GatherMax:            50,
		GatherTerritoryScale: 1000,

		ExpandCost: civ.Delta{Gold: -100, Wood: -50, Stone: -50},
		ExpandMin:  50,
		ExpandMax:  150,

		SoldierCost: civ.Delta{Gold: -50, Food: -10},
		SpyCost:     civ.Delta{Gold: -100, Food: -5},

		ResearchCostPerLevel: civ.Delta{Gold: -300, Stone: -100},

		SpyTheftMin:   0.05,
		SpyTheftMax:   0.15,
		SpyBaseChance: 0.6,

		SurrenderTribute:     0.10,
		BreakAlliancePenalty: 200,
	}
}

// Gather collects random resources scaled by territory and the resource
// multiplier. Each resource is found independently, so a roll can come back
// empty-handed without failing.
func (e *Engine) Gather(ctx context.Context, id string) (*Result, error) {
	if err := e.admitGlobal(); err != nil {
		return nil, err
	}
	unlock := e.lockCiv(id)
	defer unlock()

	now := time.Now()
	c, err := e.civs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	mods := e.modifiers(c)
	if err := e.admit(ctx, c, "gather", now, mods); err != nil {
		return nil, err
	}

	scale := float64(c.Territory) / e.economy.GatherTerritoryScale * mods.Resource
	delta := civ.Delta{
		Gold:  e.yield(scale),
		Wood:  e.yield(scale),
		Stone: e.yield(scale),
		Food:  e.yield(scale),
	}

	c, err = e.civs.ApplyDelta(ctx, id, delta)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Action: "gather",
		CivID:  id,
		Delta:  delta,
		State:  c,
	}
	if delta.IsZero() {
		res.Summary = "the scouts return empty-handed"
	} else {
		res.Summary = "the scouts return with " + describeGain(delta)
	}

	applied, rollErr := e.events.RollAction(ctx, c, "gather", now)
	switch {
	case rollErr != nil:
		// The roll mutates the in-memory state before recording; on a record
		// failure, re-read so the result reflects what was persisted.
		e.logger.Error("gather event roll failed", "civ", id, "error", rollErr)
		if fresh, gerr := e.civs.Get(ctx, id); gerr == nil {
			res.State = fresh
		}
	case applied != nil:
		if perr := e.civs.Persist(ctx, c); perr != nil {
			return nil, perr
		}
		res.Event = applied
		res.Delta = res.Delta.Add(applied.Delta)
	}

	e.audit(ctx, res)
	return res, nil
}

// yield rolls one resource's gather amount, zero when the find chance fails.
func (e *Engine) yield(scale float64) int64 {
	if e.float() >= e.economy.GatherChance {
		return 0
	}
	base := e.between(e.economy.GatherMin, e.economy.GatherMax)
	return int64(float64(base) * scale)
}

// Expand buys new territory.
func (e *Engine) Expand(ctx context.Context, id string) (*Result, error) {
	if err := e.admitGlobal(); err != nil {
		return nil, err
	}
	unlock := e.lockCiv(id)
	defer unlock()

	now := time.Now()
	c, err := e.civs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	mods := e.modifiers(c)
	if err := e.admit(ctx, c, "expand", now, mods); err != nil {
		return nil, err
	}

	gained := e.between(e.economy.ExpandMin, e.economy.ExpandMax)
	delta := e.economy.ExpandCost
	delta.Territory = gained

	c, err = e.civs.ApplyDelta(ctx, id, delta)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Action:  "expand",
		CivID:   id,
		Summary: fmt.Sprintf("settlers claim %d new territory", gained),
		Delta:   delta,
		State:   c,
	}
	e.audit(ctx, res)
	return res, nil
}

// Train recruits soldiers or spies. The military multiplier adjusts the
// units actually delivered for the same cost.
func (e *Engine) Train(ctx context.Context, id, unit string, count int64) (*Result, error) {
	if err := e.admitGlobal(); err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, civ.ErrInvalidInput
	}
	unlock := e.lockCiv(id)
	defer unlock()

	now := time.Now()
	c, err := e.civs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	mods := e.modifiers(c)
	if err := e.admit(ctx, c, "train", now, mods); err != nil {
		return nil, err
	}

	var cost civ.Delta
	delivered := int64(float64(count) * mods.Military)
	if delivered < 1 {
		delivered = 1
	}
	delta := civ.Delta{}
	switch unit {
	case "soldiers":
		cost = scaleCost(e.economy.SoldierCost, count)
		delta.Soldiers = delivered
	case "spies":
		cost = scaleCost(e.economy.SpyCost, count)
		delta.Spies = delivered
	default:
		return nil, civ.ErrInvalidInput
	}

	c, err = e.civs.ApplyDelta(ctx, id, cost.Add(delta))
	if err != nil {
		return nil, err
	}

	res := &Result{
		Action:  "train",
		CivID:   id,
		Summary: fmt.Sprintf("trained %d %s", delivered, unit),
		Delta:   cost.Add(delta),
		State:   c,
	}
	e.audit(ctx, res)
	return res, nil
}

// Research advances the tech level by one. Cost scales with the level being
// researched; the cap is enforced by the ledger.
func (e *Engine) Research(ctx context.Context, id string) (*Result, error) {
	if err := e.admitGlobal(); err != nil {
		return nil, err
	}
	unlock := e.lockCiv(id)
	defer unlock()

	now := time.Now()
	c, err := e.civs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Military.Tech >= civ.TechCap {
		return nil, ErrMissingRequirement
	}
	mods := e.modifiers(c)
	if err := e.admit(ctx, c, "research", now, mods); err != nil {
		return nil, err
	}

	next := c.Military.Tech + 1
	delta := scaleCost(e.economy.ResearchCostPerLevel, next)
	delta.Tech = 1

	c, err = e.civs.ApplyDelta(ctx, id, delta)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Action:  "research",
		CivID:   id,
		Summary: fmt.Sprintf("research complete: tech level %d", c.Military.Tech),
		Delta:   delta,
		State:   c,
	}
	e.audit(ctx, res)
	return res, nil
}

// scaleCost multiplies every field of a per-unit cost delta.
func scaleCost(unit civ.Delta, n int64) civ.Delta {
	return civ.Delta{
		Gold:  unit.Gold * n,
		Wood:  unit.Wood * n,
		Stone: unit.Stone * n,
		Food:  unit.Food * n,
	}
}

func describeGain(d civ.Delta) string {
	parts := make([]string, 0, 4)
	for _, p := range []struct {
		name string
		v    int64
	}{
		{"gold", d.Gold}, {"wood", d.Wood}, {"stone", d.Stone}, {"food", d.Food},
	} {
		if p.v != 0 {
			parts = append(parts, fmt.Sprintf("%d %s", p.v, p.name))
		}
	}
	return strings.Join(parts, ", ")
}
