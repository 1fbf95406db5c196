package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ganot/warciv/internal/domain/civ"
	"github.com/ganot/warciv/internal/domain/diplomacy"
)

// Relationship returns the current diplomatic state of a pair.
func (e *Engine) Relationship(ctx context.Context, a, b string) (*diplomacy.Relationship, error) {
	return e.dipl.Get(ctx, a, b)
}

// ProposeAlliance opens a pending alliance offer.
func (e *Engine) ProposeAlliance(ctx context.Context, from, to string) (*Result, error) {
	return e.pairTransition(ctx, "propose_alliance", from, to,
		func(now time.Time) (*diplomacy.Relationship, error) {
			return e.dipl.ProposeAlliance(ctx, from, to, now)
		},
		func(fromName, toName string) string {
			return fmt.Sprintf("%s proposed an alliance to %s", fromName, toName)
		})
}

// AcceptAlliance completes a pending alliance by mutual consent.
func (e *Engine) AcceptAlliance(ctx context.Context, accepter, other string) (*Result, error) {
	return e.pairTransition(ctx, "accept_alliance", accepter, other,
		func(now time.Time) (*diplomacy.Relationship, error) {
			return e.dipl.AcceptAlliance(ctx, accepter, other, now)
		},
		func(fromName, toName string) string {
			return fmt.Sprintf("%s and %s are now allied", fromName, toName)
		})
}

// BreakAlliance dissolves an alliance unilaterally, at a gold penalty.
func (e *Engine) BreakAlliance(ctx context.Context, from, to string) (*Result, error) {
	res, err := e.pairTransition(ctx, "break_alliance", from, to,
		func(now time.Time) (*diplomacy.Relationship, error) {
			return e.dipl.BreakAlliance(ctx, from, to, now)
		},
		func(fromName, toName string) string {
			return fmt.Sprintf("%s walked out on the alliance with %s", fromName, toName)
		})
	if err != nil {
		return nil, err
	}

	penalty := civ.Delta{Gold: -e.economy.BreakAlliancePenalty}
	c, err := e.civs.Get(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("charging alliance penalty: %w", err)
	}
	res.Delta = civ.ApplyClamped(c, penalty)
	if err := e.civs.Persist(ctx, c); err != nil {
		return nil, err
	}
	res.State = c
	return res, nil
}

// DeclareWar moves the pair to war. Declaring on an ally implicitly breaks
// the alliance first.
func (e *Engine) DeclareWar(ctx context.Context, from, to string) (*Result, error) {
	return e.pairTransition(ctx, "declare_war", from, to,
		func(now time.Time) (*diplomacy.Relationship, error) {
			return e.dipl.DeclareWar(ctx, from, to, now)
		},
		func(fromName, toName string) string {
			return fmt.Sprintf("%s declared war on %s", fromName, toName)
		})
}

// OfferPeace opens a pending peace offer while at war.
func (e *Engine) OfferPeace(ctx context.Context, from, to string) (*Result, error) {
	return e.pairTransition(ctx, "offer_peace", from, to,
		func(now time.Time) (*diplomacy.Relationship, error) {
			return e.dipl.OfferPeace(ctx, from, to, now)
		},
		func(fromName, toName string) string {
			return fmt.Sprintf("%s offered peace to %s", fromName, toName)
		})
}

// AcceptPeace ends the war by mutual consent.
func (e *Engine) AcceptPeace(ctx context.Context, accepter, other string) (*Result, error) {
	return e.pairTransition(ctx, "accept_peace", accepter, other,
		func(now time.Time) (*diplomacy.Relationship, error) {
			return e.dipl.AcceptPeace(ctx, accepter, other, now)
		},
		func(fromName, toName string) string {
			return fmt.Sprintf("%s and %s made peace", fromName, toName)
		})
}

// Surrender ends the war unilaterally. The surrendering side pays a
// resource tribute to the victor.
func (e *Engine) Surrender(ctx context.Context, from, to string) (*Result, error) {
	if err := e.admitGlobal(); err != nil {
		return nil, err
	}
	if from == to {
		return nil, ErrSelfTarget
	}
	unlock := e.lockPair(from, to)
	defer unlock()

	now := time.Now()
	loser, err := e.civs.Get(ctx, from)
	if err != nil {
		return nil, err
	}
	victor, err := e.civs.Get(ctx, to)
	if err != nil {
		if errors.Is(err, civ.ErrNotFound) {
			return nil, ErrUnknownTarget
		}
		return nil, err
	}

	rel, err := e.dipl.Surrender(ctx, from, to, now)
	if err != nil {
		return nil, err
	}

	tribute := civ.Delta{
		Gold:  -frac(loser.Resources.Gold, e.economy.SurrenderTribute),
		Wood:  -frac(loser.Resources.Wood, e.economy.SurrenderTribute),
		Stone: -frac(loser.Resources.Stone, e.economy.SurrenderTribute),
		Food:  -frac(loser.Resources.Food, e.economy.SurrenderTribute),
	}
	loserDelta := civ.ApplyClamped(loser, tribute)
	victorDelta := civ.ApplyClamped(victor, loserDelta.Negate())
	if err := e.civs.Persist(ctx, loser); err != nil {
		return nil, err
	}
	if err := e.civs.Persist(ctx, victor); err != nil {
		return nil, err
	}

	res := &Result{
		Action:  "surrender",
		CivID:   from,
		Target:  to,
		Summary: fmt.Sprintf("%s surrendered to %s", loser.Name, victor.Name),
		Delta:   loserDelta,
		Enemy:   victorDelta,
		State:   loser,
		Rel:     rel,
	}
	e.audit(ctx, res)
	return res, nil
}

// SendResources transfers a resource gift to another civilization, the
// peaceful counterpart of plunder. The sender must afford the full gift;
// the receiver takes what the ledger can hold.
func (e *Engine) SendResources(ctx context.Context, from, to string, gift civ.Delta) (*Result, error) {
	if err := e.admitGlobal(); err != nil {
		return nil, err
	}
	if from == to {
		return nil, ErrSelfTarget
	}
	if !sendable(gift) {
		return nil, civ.ErrInvalidInput
	}
	unlock := e.lockPair(from, to)
	defer unlock()

	now := time.Now()
	sender, err := e.civs.Get(ctx, from)
	if err != nil {
		return nil, err
	}
	receiver, err := e.civs.Get(ctx, to)
	if err != nil {
		if errors.Is(err, civ.ErrNotFound) {
			return nil, ErrUnknownTarget
		}
		return nil, err
	}

	mods := e.modifiers(sender)
	if err := e.admit(ctx, sender, "send", now, mods); err != nil {
		return nil, err
	}

	if err := civ.Apply(sender, gift.Negate()); err != nil {
		return nil, err
	}
	received := civ.ApplyClamped(receiver, gift)

	if err := e.civs.Persist(ctx, sender); err != nil {
		return nil, err
	}
	if err := e.civs.Persist(ctx, receiver); err != nil {
		return nil, err
	}

	res := &Result{
		Action:  "send",
		CivID:   from,
		Target:  to,
		Summary: fmt.Sprintf("%s sent %s to %s", sender.Name, describeGain(gift), receiver.Name),
		Delta:   gift.Negate(),
		Enemy:   received,
		State:   sender,
	}
	e.audit(ctx, res)
	return res, nil
}

// sendable reports whether the delta is a pure, positive resource gift:
// no territory, military or tech, and at least one resource to move.
func sendable(gift civ.Delta) bool {
	if gift.Territory != 0 || gift.Soldiers != 0 || gift.Spies != 0 || gift.Tech != 0 {
		return false
	}
	if gift.Gold < 0 || gift.Wood < 0 || gift.Stone < 0 || gift.Food < 0 {
		return false
	}
	return !gift.IsZero()
}

// pairTransition wraps the common shape of a diplomacy action: lock the
// pair, verify both civilizations exist, run the transition, audit.
func (e *Engine) pairTransition(ctx context.Context, action, from, to string, transition func(time.Time) (*diplomacy.Relationship, error), describe func(fromName, toName string) string) (*Result, error) {
	if err := e.admitGlobal(); err != nil {
		return nil, err
	}
	if from == to {
		return nil, ErrSelfTarget
	}
	unlock := e.lockPair(from, to)
	defer unlock()

	actor, err := e.civs.Get(ctx, from)
	if err != nil {
		return nil, err
	}
	target, err := e.civs.Get(ctx, to)
	if err != nil {
		if errors.Is(err, civ.ErrNotFound) {
			return nil, ErrUnknownTarget
		}
		return nil, err
	}

	rel, err := transition(time.Now())
	if err != nil {
		return nil, err
	}

	res := &Result{
		Action:  action,
		CivID:   from,
		Target:  to,
		Summary: describe(actor.Name, target.Name),
		Rel:     rel,
	}
	e.audit(ctx, res)
	return res, nil
}

func frac(v int64, f float64) int64 {
	return int64(float64(v) * f)
}
