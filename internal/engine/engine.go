// Package engine is the action dispatcher: the single entry point that turns
// an action request into a validated, rate-limited, cooldown-gated state
// transition. Every action follows the same sequence: admission, modifier
// snapshot, domain computation, persistence, audit record. A failure at any
// stage aborts the remaining stages, but a cooldown already consumed stays
// consumed so failed actions cannot be retried for free.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ganot/warciv/internal/domain/civ"
	"github.com/ganot/warciv/internal/domain/combat"
	"github.com/ganot/warciv/internal/domain/cooldown"
	"github.com/ganot/warciv/internal/domain/diplomacy"
	"github.com/ganot/warciv/internal/domain/event"
	"github.com/ganot/warciv/internal/domain/modifier"
)

// Result is the structured outcome of one dispatched action.
type Result struct {
	Action  string                  `json:"action"`
	CivID   string                  `json:"civ_id"`
	Target  string                  `json:"target,omitempty"`
	Summary string                  `json:"summary"`
	Delta   civ.Delta               `json:"delta"`                 // applied to the actor
	Enemy   civ.Delta               `json:"enemy_delta,omitempty"` // applied to the target
	Outcome *combat.Outcome         `json:"outcome,omitempty"`     // attacks only
	Event   *event.Applied          `json:"event,omitempty"`       // action-triggered event, if any
	State   *civ.Civilization       `json:"state,omitempty"`       // actor after the action
	Rel     *diplomacy.Relationship `json:"relationship,omitempty"`
}

// Engine wires the domain services behind a per-civilization locking façade.
type Engine struct {
	civs    *civ.Service
	dipl    *diplomacy.Service
	gate    *cooldown.Gate
	events  *event.Engine
	mods    modifier.Table
	tuning  combat.Tuning
	economy Economy
	items   ItemCatalog
	limiter *rate.Limiter
	logger  *slog.Logger

	rmu sync.Mutex
	rng *rand.Rand

	lmu   sync.Mutex
	locks map[string]*sync.Mutex
}

// Options bundles the gameplay configuration for the dispatcher.
type Options struct {
	Modifiers modifier.Table
	Tuning    combat.Tuning
	Economy   Economy
	Items     ItemCatalog
	// RatePerSecond caps global action throughput; Burst allows short
	// spikes. Zero values disable the limiter.
	RatePerSecond float64
	Burst         int
}

// New creates the dispatcher. Pass a seeded rng for reproducible runs.
func New(civs *civ.Service, dipl *diplomacy.Service, gate *cooldown.Gate, events *event.Engine, rng *rand.Rand, opts Options, logger *slog.Logger) *Engine {
	limit := rate.Inf
	burst := 1
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
		burst = max(1, opts.Burst)
	}
	if opts.Modifiers == nil {
		opts.Modifiers = modifier.DefaultTable()
	}
	if opts.Items == nil {
		opts.Items = DefaultItems()
	}
	return &Engine{
		civs:    civs,
		dipl:    dipl,
		gate:    gate,
		events:  events,
		mods:    opts.Modifiers,
		tuning:  opts.Tuning,
		economy: opts.Economy,
		items:   opts.Items,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
		rng:     rng,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Found creates a new civilization. Not cooldown-gated: it is the one action
// available before a civilization exists.
func (e *Engine) Found(ctx context.Context, id, name string) (*Result, error) {
	if err := e.admitGlobal(); err != nil {
		return nil, err
	}
	c, err := e.civs.Found(ctx, civ.FoundRequest{ID: id, Name: name})
	if err != nil {
		return nil, err
	}
	res := &Result{
		Action:  "found",
		CivID:   c.ID,
		Summary: fmt.Sprintf("%s founded", c.Name),
		State:   c,
	}
	e.audit(ctx, res)
	return res, nil
}

// SetIdeology locks in the civilization's ideology.
func (e *Engine) SetIdeology(ctx context.Context, id string, ideology civ.Ideology) (*Result, error) {
	if err := e.admitGlobal(); err != nil {
		return nil, err
	}
	unlock := e.lockCiv(id)
	defer unlock()

	c, err := e.civs.SetIdeology(ctx, id, ideology)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Action:  "set_ideology",
		CivID:   id,
		Summary: fmt.Sprintf("%s adopts %s", c.Name, ideology),
		State:   c,
	}
	e.audit(ctx, res)
	return res, nil
}

// UseItem consumes one charge of a usable item and applies its effect:
// an immediate ledger delta, a temporary modifier, or both.
func (e *Engine) UseItem(ctx context.Context, id, kind string) (*Result, error) {
	if err := e.admitGlobal(); err != nil {
		return nil, err
	}
	unlock := e.lockCiv(id)
	defer unlock()

	spec, ok := e.items[kind]
	if !ok {
		return nil, ErrMissingRequirement
	}

	c, err := e.civs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := civ.ConsumeItem(c, kind); err != nil {
		return nil, err
	}

	applied := civ.Delta{}
	if !spec.Delta.IsZero() {
		applied = civ.ApplyClamped(c, spec.Delta)
	}
	if err := e.civs.Persist(ctx, c); err != nil {
		return nil, err
	}
	if spec.Temp != nil {
		e.events.AddEffect(id, kind, spec.Temp, time.Now())
	}

	res := &Result{
		Action:  "use_item",
		CivID:   id,
		Summary: spec.Summary,
		Delta:   applied,
		State:   c,
	}
	e.audit(ctx, res)
	return res, nil
}

// Status returns the civilization with its current modifier snapshot.
func (e *Engine) Status(ctx context.Context, id string) (*civ.Civilization, modifier.Set, error) {
	c, err := e.civs.Get(ctx, id)
	if err != nil {
		return nil, modifier.Set{}, err
	}
	return c, e.modifiers(c), nil
}

// TopCivs returns leaderboard summaries for the dashboard.
func (e *Engine) TopCivs(ctx context.Context, n int, orderBy string) ([]civ.Summary, error) {
	return e.civs.Top(ctx, n, orderBy)
}

// RecentEvents returns the newest event log entries.
func (e *Engine) RecentEvents(ctx context.Context, n int) ([]event.Record, error) {
	return e.events.Recent(ctx, n)
}

// RelationshipCounts aggregates diplomacy states for the dashboard.
func (e *Engine) RelationshipCounts(ctx context.Context) (map[diplomacy.State]int, error) {
	return e.dipl.CountByState(ctx)
}

// TickLocal runs one local event roll for every civilization. Called by the
// scheduler under the per-civ locks.
func (e *Engine) TickLocal(ctx context.Context, now time.Time) error {
	civs, err := e.civs.List(ctx)
	if err != nil {
		return fmt.Errorf("listing civilizations: %w", err)
	}
	for i := range civs {
		c := &civs[i]
		if err := e.tickOne(ctx, c, now); err != nil {
			e.logger.Error("local tick failed", "civ", c.ID, "error", err)
		}
	}
	return nil
}

func (e *Engine) tickOne(ctx context.Context, c *civ.Civilization, now time.Time) error {
	unlock := e.lockCiv(c.ID)
	defer unlock()

	// Re-read under the lock; the listing snapshot may be stale.
	fresh, err := e.civs.Get(ctx, c.ID)
	if err != nil {
		return err
	}
	mods := e.modifiers(fresh)
	applied, err := e.events.RollLocal(ctx, fresh, mods.EventRate, now)
	if err != nil {
		return err
	}
	if applied == nil {
		return nil
	}
	return e.civs.Persist(ctx, fresh)
}

// TickGlobal runs one global event roll across every civilization.
func (e *Engine) TickGlobal(ctx context.Context, now time.Time) error {
	civs, err := e.civs.List(ctx)
	if err != nil {
		return fmt.Errorf("listing civilizations: %w", err)
	}
	if len(civs) == 0 {
		return nil
	}

	// Lock the whole population in id order to keep the global event
	// atomic with respect to concurrent actions.
	ptrs := make([]*civ.Civilization, 0, len(civs))
	ids := make([]string, 0, len(civs))
	for i := range civs {
		ptrs = append(ptrs, &civs[i])
		ids = append(ids, civs[i].ID)
	}
	unlock := e.lockAll(ids)
	defer unlock()

	applied, err := e.events.RollGlobal(ctx, ptrs, now)
	if err != nil {
		return err
	}
	if applied == nil {
		return nil
	}
	for _, c := range ptrs {
		if err := e.civs.Persist(ctx, c); err != nil {
			e.logger.Error("persisting global event", "civ", c.ID, "error", err)
		}
	}
	e.logger.Info("global event applied", "kind", applied.Kind)
	return nil
}

// admitGlobal applies the front rate limit before any state is touched.
func (e *Engine) admitGlobal() error {
	if !e.limiter.Allow() {
		return ErrThrottled
	}
	return nil
}

// admit runs the cooldown gate with the civilization's cooldown scale.
func (e *Engine) admit(ctx context.Context, c *civ.Civilization, action string, now time.Time, mods modifier.Set) error {
	return e.gate.TryAdmit(ctx, c.ID, action, now, mods.Cooldown)
}

// modifiers snapshots the complete modifier set including active temporary
// effects from the event engine.
func (e *Engine) modifiers(c *civ.Civilization) modifier.Set {
	return e.mods.For(c, e.events.ActiveEffects(c.ID, time.Now()))
}

// audit appends the action itself to the event log. Audit failures are
// logged, not surfaced: the action already committed.
func (e *Engine) audit(ctx context.Context, res *Result) {
	id := res.CivID
	rec := &event.Record{
		Kind:    "action:" + res.Action,
		Scope:   event.ScopeAction,
		CivID:   &id,
		At:      time.Now(),
		Effect:  res.Delta,
		Summary: res.Summary,
	}
	if err := e.events.Log(ctx, rec); err != nil {
		e.logger.Error("audit append failed", "action", res.Action, "error", err)
	}
}

func (e *Engine) float() float64 {
	e.rmu.Lock()
	defer e.rmu.Unlock()
	return e.rng.Float64()
}

func (e *Engine) between(lo, hi int64) int64 {
	if lo >= hi {
		return lo
	}
	e.rmu.Lock()
	defer e.rmu.Unlock()
	return lo + e.rng.Int63n(hi-lo+1)
}

// lockCiv serializes all mutations of one civilization.
func (e *Engine) lockCiv(id string) func() {
	l := e.civLock(id)
	l.Lock()
	return l.Unlock
}

// lockPair locks two civilizations in id order so concurrent pair actions
// can never deadlock.
func (e *Engine) lockPair(a, b string) func() {
	if a > b {
		a, b = b, a
	}
	la, lb := e.civLock(a), e.civLock(b)
	la.Lock()
	lb.Lock()
	return func() {
		lb.Unlock()
		la.Unlock()
	}
}

// lockAll locks an arbitrary set of civilizations in id order.
func (e *Engine) lockAll(ids []string) func() {
	sorted := append([]string(nil), ids...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	held := make([]*sync.Mutex, 0, len(sorted))
	for _, id := range sorted {
		l := e.civLock(id)
		l.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func (e *Engine) civLock(id string) *sync.Mutex {
	e.lmu.Lock()
	defer e.lmu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}
