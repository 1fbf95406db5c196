package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ganot/warciv/internal/domain/civ"
	"github.com/ganot/warciv/internal/domain/combat"
	"github.com/ganot/warciv/internal/domain/diplomacy"
	"github.com/ganot/warciv/internal/domain/event"
)

// Attack resolves a standard battle. Preconditions: both civilizations
// exist, the pair is at war, and the attack cooldown has elapsed. A shield
// held by the defender blocks the battle outright; a mirror turns a won
// attack back on the attacker. Both are consumed when they fire.
func (e *Engine) Attack(ctx context.Context, attackerID, defenderID string) (*Result, error) {
	if err := e.admitGlobal(); err != nil {
		return nil, err
	}
	if attackerID == defenderID {
		return nil, ErrSelfTarget
	}
	unlock := e.lockPair(attackerID, defenderID)
	defer unlock()

	now := time.Now()
	attacker, err := e.civs.Get(ctx, attackerID)
	if err != nil {
		return nil, err
	}
	defender, err := e.civs.Get(ctx, defenderID)
	if err != nil {
		if errors.Is(err, civ.ErrNotFound) {
			return nil, ErrUnknownTarget
		}
		return nil, err
	}

	rel, err := e.dipl.Get(ctx, attackerID, defenderID)
	if err != nil {
		return nil, err
	}
	if rel.State != diplomacy.StateAtWar {
		return nil, ErrNotAtWar
	}

	amods := e.modifiers(attacker)
	if err := e.admit(ctx, attacker, "attack", now, amods); err != nil {
		return nil, err
	}

	// A shield absorbs the assault before any resolution.
	if defender.ItemCount(civ.ItemShield) > 0 {
		if err := civ.ConsumeItem(defender, civ.ItemShield); err == nil {
			if err := e.civs.Persist(ctx, defender); err != nil {
				return nil, err
			}
			res := &Result{
				Action:  "attack",
				CivID:   attackerID,
				Target:  defenderID,
				Summary: fmt.Sprintf("%s's shield turned the assault away", defender.Name),
			}
			e.recordWar(ctx, attackerID, defenderID, now, res.Summary)
			e.audit(ctx, res)
			return res, nil
		}
	}

	dmods := e.modifiers(defender)
	e.rmu.Lock()
	out := combat.Resolve(attacker, defender, amods, dmods, e.rng, e.tuning)
	e.rmu.Unlock()

	var summary string
	var attackerDelta, defenderDelta civ.Delta
	switch {
	case out.AttackerWins && defender.ItemCount(civ.ItemMirror) > 0:
		// The mirror reflects the defeat: the attacker takes the loser's
		// losses and no plunder changes hands.
		_ = civ.ConsumeItem(defender, civ.ItemMirror)
		attackerDelta = civ.ApplyClamped(attacker, out.DefenderLosses)
		defenderDelta = civ.Delta{}
		summary = fmt.Sprintf("%s's mirror reflected the assault back at %s", defender.Name, attacker.Name)
	case out.AttackerWins:
		defenderDelta = civ.ApplyClamped(defender, out.Plunder.Negate().Add(out.DefenderLosses))
		gain := defenderDelta.Negate()
		gain.Soldiers, gain.Spies = 0, 0
		attackerDelta = civ.ApplyClamped(attacker, gain.Add(out.AttackerLosses))
		summary = fmt.Sprintf("%s sacked %s", attacker.Name, defender.Name)
	default:
		attackerDelta = civ.ApplyClamped(attacker, out.AttackerLosses)
		defenderDelta = civ.ApplyClamped(defender, out.DefenderLosses)
		summary = fmt.Sprintf("%s repelled %s's assault", defender.Name, attacker.Name)
	}

	if err := e.civs.Persist(ctx, attacker); err != nil {
		return nil, err
	}
	if err := e.civs.Persist(ctx, defender); err != nil {
		return nil, err
	}

	res := &Result{
		Action:  "attack",
		CivID:   attackerID,
		Target:  defenderID,
		Summary: summary,
		Delta:   attackerDelta,
		Enemy:   defenderDelta,
		Outcome: &out,
		State:   attacker,
	}
	e.recordWar(ctx, attackerID, defenderID, now, summary)
	e.audit(ctx, res)
	return res, nil
}

// NuclearStrike applies fixed devastation to the target. It requires a
// warhead, which is consumed whether or not anything else succeeds, and it
// broadcasts a global event record.
func (e *Engine) NuclearStrike(ctx context.Context, attackerID, defenderID string) (*Result, error) {
	if err := e.admitGlobal(); err != nil {
		return nil, err
	}
	if attackerID == defenderID {
		return nil, ErrSelfTarget
	}
	unlock := e.lockPair(attackerID, defenderID)
	defer unlock()

	now := time.Now()
	attacker, err := e.civs.Get(ctx, attackerID)
	if err != nil {
		return nil, err
	}
	defender, err := e.civs.Get(ctx, defenderID)
	if err != nil {
		if errors.Is(err, civ.ErrNotFound) {
			return nil, ErrUnknownTarget
		}
		return nil, err
	}
	if attacker.ItemCount(civ.ItemWarhead) == 0 {
		return nil, ErrMissingRequirement
	}

	rel, err := e.dipl.Get(ctx, attackerID, defenderID)
	if err != nil {
		return nil, err
	}
	if rel.State != diplomacy.StateAtWar {
		return nil, ErrNotAtWar
	}

	amods := e.modifiers(attacker)
	if err := e.admit(ctx, attacker, "nuke", now, amods); err != nil {
		return nil, err
	}

	// The warhead is spent from here on, no matter what.
	if err := civ.ConsumeItem(attacker, civ.ItemWarhead); err != nil {
		return nil, ErrMissingRequirement
	}
	if err := e.civs.Persist(ctx, attacker); err != nil {
		return nil, err
	}

	devastation := combat.ResolveNuke(defender, e.tuning).Negate()
	defenderDelta := civ.ApplyClamped(defender, devastation)
	if err := e.civs.Persist(ctx, defender); err != nil {
		return nil, err
	}

	summary := fmt.Sprintf("%s unleashed nuclear fire on %s", attacker.Name, defender.Name)
	if err := e.events.Log(ctx, &event.Record{
		Kind:    "nuclear_strike",
		Scope:   event.ScopeGlobal,
		At:      now,
		Effect:  defenderDelta,
		Summary: summary,
	}); err != nil {
		e.logger.Error("broadcasting strike", "error", err)
	}

	res := &Result{
		Action:  "nuke",
		CivID:   attackerID,
		Target:  defenderID,
		Summary: summary,
		Enemy:   defenderDelta,
		State:   attacker,
	}
	e.recordWar(ctx, attackerID, defenderID, now, summary)
	return res, nil
}

// SpyMission runs an espionage theft against another civilization. Success
// depends on the spy power difference; a failed mission costs spies.
func (e *Engine) SpyMission(ctx context.Context, actorID, targetID string) (*Result, error) {
	if err := e.admitGlobal(); err != nil {
		return nil, err
	}
	if actorID == targetID {
		return nil, ErrSelfTarget
	}
	unlock := e.lockPair(actorID, targetID)
	defer unlock()

	now := time.Now()
	actor, err := e.civs.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	target, err := e.civs.Get(ctx, targetID)
	if err != nil {
		if errors.Is(err, civ.ErrNotFound) {
			return nil, ErrUnknownTarget
		}
		return nil, err
	}
	if actor.Military.Spies < 1 {
		return nil, ErrMissingRequirement
	}

	amods := e.modifiers(actor)
	if err := e.admit(ctx, actor, "spy", now, amods); err != nil {
		return nil, err
	}

	actorPower := float64(actor.Military.Spies * actor.Military.Tech)
	targetPower := float64(target.Military.Spies * target.Military.Tech)
	chance := e.economy.SpyBaseChance + (actorPower-targetPower)/100
	chance += amods.Risk / 2
	chance = clampProb(chance, 0.2, 0.9)

	var res *Result
	if e.float() < chance {
		fracRange := e.economy.SpyTheftMax - e.economy.SpyTheftMin
		frac := e.economy.SpyTheftMin + e.float()*fracRange
		stolen := int64(float64(target.Resources.Gold) * frac)

		targetDelta := civ.ApplyClamped(target, civ.Delta{Gold: -stolen})
		actorDelta := civ.ApplyClamped(actor, targetDelta.Negate())
		res = &Result{
			Action:  "spy",
			CivID:   actorID,
			Target:  targetID,
			Summary: fmt.Sprintf("spies stole %d gold from %s", -targetDelta.Gold, target.Name),
			Delta:   actorDelta,
			Enemy:   targetDelta,
			State:   actor,
		}
	} else {
		lost := e.between(1, 4)
		actorDelta := civ.ApplyClamped(actor, civ.Delta{Spies: -lost})
		res = &Result{
			Action:  "spy",
			CivID:   actorID,
			Target:  targetID,
			Summary: fmt.Sprintf("the mission was blown; %d spies were captured", -actorDelta.Spies),
			Delta:   actorDelta,
			State:   actor,
		}
	}

	if err := e.civs.Persist(ctx, actor); err != nil {
		return nil, err
	}
	if err := e.civs.Persist(ctx, target); err != nil {
		return nil, err
	}
	e.audit(ctx, res)
	return res, nil
}

// recordWar appends a combat entry to the pair's war log when at war.
func (e *Engine) recordWar(ctx context.Context, attacker, defender string, at time.Time, summary string) {
	err := e.dipl.RecordCombat(ctx, attacker, defender, diplomacy.WarEvent{
		At:       at,
		Attacker: attacker,
		Summary:  summary,
	})
	if err != nil && !errors.Is(err, diplomacy.ErrInvalidTransition) {
		e.logger.Error("recording war event", "error", err)
	}
}

func clampProb(p, lo, hi float64) float64 {
	if p < lo {
		return lo
	}
	if p > hi {
		return hi
	}
	return p
}
