package event

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/ganot/warciv/internal/domain/civ"
	"github.com/ganot/warciv/internal/domain/modifier"
	"github.com/google/uuid"
)

// Repository provides the append-only event log.
type Repository interface {
	Append(ctx context.Context, rec *Record) error
	Recent(ctx context.Context, n int) ([]Record, error)
}

// Engine selects and applies probabilistic events. Effects are clamped by
// the ledger, never rejected: once selected, an event always happens.
// Mutation of the civilization is in-memory; callers hold the per-civ lock
// and persist afterwards.
type Engine struct {
	repo    Repository
	catalog Catalog
	logger  *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand

	emu    sync.Mutex
	active map[string][]activeEffect // civ id, or "" for global
}

type activeEffect struct {
	source    string
	mods      modifier.Set
	override  bool
	expiresAt time.Time
}

// NewEngine creates an event engine over the given catalog and random
// source. Pass a seeded source for reproducible runs.
func NewEngine(repo Repository, catalog Catalog, rng *rand.Rand, logger *slog.Logger) *Engine {
	return &Engine{
		repo:    repo,
		catalog: catalog,
		logger:  logger,
		rng:     rng,
		active:  make(map[string][]activeEffect),
	}
}

// Applied reports one event that fired.
type Applied struct {
	Kind    string
	Delta   civ.Delta // actually applied, after clamping
	Record  *Record
	Summary string
}

// RollLocal runs one local-event roll for a civilization. eventRate is the
// civilization's EventRate modifier. Returns nil when no event fires.
func (e *Engine) RollLocal(ctx context.Context, c *civ.Civilization, eventRate float64, now time.Time) (*Applied, error) {
	if !e.chance(e.catalog.LocalChance * eventRate) {
		return nil, nil
	}
	kind := e.pick(ScopeLocal, c, "")
	if kind == nil {
		return nil, nil
	}
	return e.apply(ctx, kind, c, now)
}

// RollAction runs action-triggered event rolls, e.g. a lucky find while
// gathering. Returns nil when nothing fires.
func (e *Engine) RollAction(ctx context.Context, c *civ.Civilization, action string, now time.Time) (*Applied, error) {
	for i := range e.catalog.Kinds {
		kind := &e.catalog.Kinds[i]
		if kind.Scope != ScopeAction || !kind.Triggers(action) || !kind.Eligible(c) {
			continue
		}
		if !e.chance(kind.Weight) {
			continue
		}
		return e.apply(ctx, kind, c, now)
	}
	return nil, nil
}

// RollGlobal runs one global-event roll over every civilization. The same
// kind applies to all, with magnitude re-rolled per target. One Record with
// global scope is appended regardless of how many targets were touched.
func (e *Engine) RollGlobal(ctx context.Context, civs []*civ.Civilization, now time.Time) (*Applied, error) {
	if len(civs) == 0 || !e.chance(e.catalog.GlobalChance) {
		return nil, nil
	}
	kind := e.pickGlobal()
	if kind == nil {
		return nil, nil
	}

	total := civ.Delta{}
	for _, c := range civs {
		applied := civ.ApplyClamped(c, e.magnitude(kind))
		total = total.Add(applied)
	}
	if kind.Temp != nil {
		e.register("", kind.Name, kind.Temp, now)
	}

	rec := &Record{
		ID:      uuid.NewString(),
		Kind:    kind.Name,
		Scope:   ScopeGlobal,
		At:      now,
		Effect:  total,
		Summary: kind.Summary,
	}
	if err := e.repo.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("appending global event: %w", err)
	}

	e.logger.Info("global event", "kind", kind.Name, "targets", len(civs))
	return &Applied{Kind: kind.Name, Delta: total, Record: rec, Summary: kind.Summary}, nil
}

// Log appends an arbitrary record to the event log. The dispatcher uses
// this to audit actions alongside random events.
func (e *Engine) Log(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	return e.repo.Append(ctx, rec)
}

// Recent returns the newest n records for history and dashboard views.
func (e *Engine) Recent(ctx context.Context, n int) ([]Record, error) {
	return e.repo.Recent(ctx, n)
}

// AddEffect registers a temporary modifier effect outside the event roll
// path, e.g. from a consumed item.
func (e *Engine) AddEffect(civID, source string, t *TempEffect, now time.Time) {
	e.register(civID, source, t, now)
}

// ActiveEffects returns the modifier effects currently in force for a
// civilization, including global ones, pruning anything expired.
func (e *Engine) ActiveEffects(civID string, now time.Time) []modifier.Effect {
	e.emu.Lock()
	defer e.emu.Unlock()

	var out []modifier.Effect
	for _, key := range []string{"", civID} {
		kept := e.active[key][:0]
		for _, a := range e.active[key] {
			if now.After(a.expiresAt) {
				continue
			}
			kept = append(kept, a)
			out = append(out, modifier.Effect{Source: a.source, Mods: a.mods, Override: a.override})
		}
		if len(kept) == 0 {
			delete(e.active, key)
		} else {
			e.active[key] = kept
		}
	}
	return out
}

func (e *Engine) apply(ctx context.Context, kind *Kind, c *civ.Civilization, now time.Time) (*Applied, error) {
	applied := civ.ApplyClamped(c, e.magnitude(kind))
	if kind.Temp != nil {
		e.register(c.ID, kind.Name, kind.Temp, now)
	}

	id := c.ID
	rec := &Record{
		ID:      uuid.NewString(),
		Kind:    kind.Name,
		Scope:   kind.Scope,
		CivID:   &id,
		At:      now,
		Effect:  applied,
		Summary: kind.Summary,
	}
	if err := e.repo.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("appending event: %w", err)
	}

	e.logger.Info("event", "kind", kind.Name, "civ", c.ID)
	return &Applied{Kind: kind.Name, Delta: applied, Record: rec, Summary: kind.Summary}, nil
}

func (e *Engine) register(civID, source string, t *TempEffect, now time.Time) {
	e.emu.Lock()
	defer e.emu.Unlock()
	e.active[civID] = append(e.active[civID], activeEffect{
		source:    source,
		mods:      t.Mods,
		override:  t.Override,
		expiresAt: now.Add(t.Duration),
	})
}

// pick selects a weighted-random eligible kind for the scope.
func (e *Engine) pick(scope Scope, c *civ.Civilization, action string) *Kind {
	var eligible []*Kind
	total := 0.0
	for i := range e.catalog.Kinds {
		k := &e.catalog.Kinds[i]
		if k.Scope != scope || !k.Eligible(c) {
			continue
		}
		if action != "" && !k.Triggers(action) {
			continue
		}
		eligible = append(eligible, k)
		total += k.Weight
	}
	return e.weighted(eligible, total)
}

func (e *Engine) pickGlobal() *Kind {
	var eligible []*Kind
	total := 0.0
	for i := range e.catalog.Kinds {
		k := &e.catalog.Kinds[i]
		if k.Scope != ScopeGlobal {
			continue
		}
		eligible = append(eligible, k)
		total += k.Weight
	}
	return e.weighted(eligible, total)
}

func (e *Engine) weighted(kinds []*Kind, total float64) *Kind {
	if len(kinds) == 0 || total <= 0 {
		return nil
	}
	r := e.float() * total
	for _, k := range kinds {
		r -= k.Weight
		if r < 0 {
			return k
		}
	}
	return kinds[len(kinds)-1]
}

// magnitude rolls each delta field uniformly inside [Min, Max].
func (e *Engine) magnitude(k *Kind) civ.Delta {
	return civ.Delta{
		Gold:      e.between(k.Min.Gold, k.Max.Gold),
		Wood:      e.between(k.Min.Wood, k.Max.Wood),
		Stone:     e.between(k.Min.Stone, k.Max.Stone),
		Food:      e.between(k.Min.Food, k.Max.Food),
		Territory: e.between(k.Min.Territory, k.Max.Territory),
		Soldiers:  e.between(k.Min.Soldiers, k.Max.Soldiers),
		Spies:     e.between(k.Min.Spies, k.Max.Spies),
		Tech:      e.between(k.Min.Tech, k.Max.Tech),
	}
}

func (e *Engine) between(lo, hi int64) int64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo == hi {
		return lo
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return lo + e.rng.Int63n(hi-lo+1)
}

func (e *Engine) chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return e.float() < p
}

func (e *Engine) float() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}
