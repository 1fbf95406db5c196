package engine_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ganot/warciv/internal/domain/civ"
	"github.com/ganot/warciv/internal/domain/combat"
	"github.com/ganot/warciv/internal/domain/cooldown"
	"github.com/ganot/warciv/internal/domain/diplomacy"
	"github.com/ganot/warciv/internal/domain/event"
	"github.com/ganot/warciv/internal/engine"
	"github.com/ganot/warciv/internal/sqlite"
)

type fixture struct {
	engine *engine.Engine
	civs   *civ.Service
	events *event.Engine
}

func newFixture(t *testing.T, seed int64) *fixture {
	return newFixtureOpts(t, seed, engine.Options{
		Tuning:  combat.DefaultTuning(),
		Economy: engine.DefaultEconomy(),
	})
}

func newFixtureOpts(t *testing.T, seed int64, opts engine.Options) *fixture {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	civs := civ.NewService(sqlite.NewCivRepository(db), logger)
	dipl := diplomacy.NewService(sqlite.NewRelationshipRepository(db), logger)
	gate := cooldown.NewGate(sqlite.NewCooldownRepository(db), cooldown.DefaultTable(), logger)
	events := event.NewEngine(sqlite.NewEventRepository(db), event.DefaultCatalog(), rand.New(rand.NewSource(seed)), logger)

	eng := engine.New(civs, dipl, gate, events, rand.New(rand.NewSource(seed)), opts, logger)

	return &fixture{engine: eng, civs: civs, events: events}
}

func (f *fixture) found(t *testing.T, ctx context.Context, id, name string, ideology civ.Ideology) *civ.Civilization {
	t.Helper()
	res, err := f.engine.Found(ctx, id, name)
	require.NoError(t, err)
	if ideology != civ.IdeologyNone {
		_, err = f.engine.SetIdeology(ctx, id, ideology)
		require.NoError(t, err)
	}
	return res.State
}

func TestEngine_FoundAndStatus(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	c := f.found(t, ctx, "a", "Rome", civ.IdeologyNone)
	require.Equal(t, civ.StartingStock, c.Resources)
	require.Equal(t, int64(1000), c.Territory)

	got, mods, err := f.engine.Status(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "Rome", got.Name)
	// Unset ideology still gets the tech level 1 attribute contribution.
	require.InDelta(t, 1.05, mods.Resource, 1e-9)

	_, err = f.engine.Found(ctx, "a", "Rome Again")
	require.ErrorIs(t, err, civ.ErrAlreadyExists)
}

func TestEngine_GatherConsumesCooldown(t *testing.T) {
	f := newFixture(t, 42)
	ctx := context.Background()
	f.found(t, ctx, "a", "Athens", civ.IdeologyDemocracy)

	res, err := f.engine.Gather(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "gather", res.Action)

	// The immediate retry must be rejected with nearly the full window left.
	_, err = f.engine.Gather(ctx, "a")
	require.ErrorIs(t, err, cooldown.ErrActive)

	var active *cooldown.ActiveError
	require.ErrorAs(t, err, &active)
	require.Greater(t, active.Remaining, 55*time.Second)
	require.LessOrEqual(t, active.Remaining, time.Minute)
}

func TestEngine_GatherYieldScalesWithModifiers(t *testing.T) {
	ctx := context.Background()

	// Across many seeds, a Democracy gather from identical stock should on
	// average beat the neutral yield thanks to its resource multiplier.
	var plain, boosted int64
	for seed := int64(0); seed < 40; seed++ {
		f := newFixture(t, seed)
		f.found(t, ctx, "n", "Neutralia", civ.IdeologyNone)
		f.found(t, ctx, "d", "Demos", civ.IdeologyDemocracy)

		rn, err := f.engine.Gather(ctx, "n")
		require.NoError(t, err)

		f2 := newFixture(t, seed)
		f2.found(t, ctx, "n", "Neutralia", civ.IdeologyNone)
		f2.found(t, ctx, "d", "Demos", civ.IdeologyDemocracy)
		rd, err := f2.engine.Gather(ctx, "d")
		require.NoError(t, err)

		plain += rn.Delta.Gold + rn.Delta.Wood + rn.Delta.Stone + rn.Delta.Food
		boosted += rd.Delta.Gold + rd.Delta.Wood + rd.Delta.Stone + rd.Delta.Food
	}
	require.Greater(t, boosted, plain)
}

func TestEngine_TrainCostsAndDelivers(t *testing.T) {
	f := newFixture(t, 7)
	ctx := context.Background()
	f.found(t, ctx, "a", "Sparta", civ.IdeologyFascism)

	res, err := f.engine.Train(ctx, "a", "soldiers", 5)
	require.NoError(t, err)
	require.Equal(t, int64(-250), res.Delta.Gold)
	require.Equal(t, int64(-50), res.Delta.Food)
	// Fascism's military multiplier boosts delivery: 5 * 1.25.
	require.Equal(t, int64(6), res.Delta.Soldiers)

	_, err = f.engine.Train(ctx, "a", "catapults", 1)
	require.ErrorIs(t, err, civ.ErrInvalidInput)
}

func TestEngine_TrainInsufficientStillConsumesCooldown(t *testing.T) {
	f := newFixture(t, 7)
	ctx := context.Background()
	f.found(t, ctx, "a", "Sparta", civ.IdeologyNone)

	// Way beyond the starting 500 gold.
	_, err := f.engine.Train(ctx, "a", "soldiers", 1000)
	require.ErrorIs(t, err, civ.ErrInsufficientResources)

	// The failed attempt already consumed the window.
	_, err = f.engine.Train(ctx, "a", "soldiers", 1)
	require.ErrorIs(t, err, cooldown.ErrActive)
}

func TestEngine_ResearchAdvancesTech(t *testing.T) {
	f := newFixture(t, 7)
	ctx := context.Background()
	c := f.found(t, ctx, "a", "Alexandria", civ.IdeologyNone)
	require.Equal(t, int64(1), c.Military.Tech)

	// Fund level 2: 2x the per-level cost.
	_, err := f.civs.ApplyDelta(ctx, "a", civ.Delta{Gold: 1000, Stone: 500})
	require.NoError(t, err)

	res, err := f.engine.Research(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, int64(2), res.State.Military.Tech)
	require.Equal(t, int64(-600), res.Delta.Gold)
	require.Equal(t, int64(-200), res.Delta.Stone)
}

func TestEngine_AttackRequiresWar(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	f.found(t, ctx, "a", "Rome", civ.IdeologyNone)
	f.found(t, ctx, "b", "Carthage", civ.IdeologyNone)

	_, err := f.engine.Attack(ctx, "a", "b")
	require.ErrorIs(t, err, engine.ErrNotAtWar)

	_, err = f.engine.Attack(ctx, "a", "a")
	require.ErrorIs(t, err, engine.ErrSelfTarget)

	_, err = f.engine.Attack(ctx, "a", "ghost")
	require.ErrorIs(t, err, engine.ErrUnknownTarget)
}

func TestEngine_AttackTransfersOnWin(t *testing.T) {
	// Damping close to 1 pushes the win chance of an overwhelming attacker
	// near certainty, so the single draw is effectively deterministic.
	tuning := combat.DefaultTuning()
	tuning.Damping = 0.99999
	f := newFixtureOpts(t, 5, engine.Options{Tuning: tuning, Economy: engine.DefaultEconomy()})
	ctx := context.Background()
	f.found(t, ctx, "a", "Rome", civ.IdeologyNone)
	f.found(t, ctx, "b", "Carthage", civ.IdeologyNone)

	_, err := f.civs.ApplyDelta(ctx, "a", civ.Delta{Soldiers: 10000, Tech: 9})
	require.NoError(t, err)

	_, err = f.engine.DeclareWar(ctx, "a", "b")
	require.NoError(t, err)

	res, err := f.engine.Attack(ctx, "a", "b")
	require.NoError(t, err)
	require.NotNil(t, res.Outcome)
	require.True(t, res.Outcome.AttackerWins)
	require.Greater(t, res.Outcome.WinProb, 0.99)
	require.Less(t, res.Outcome.WinProb, 1.0)

	// Plunder flowed from defender to attacker.
	require.Negative(t, res.Enemy.Gold)
	require.Equal(t, -res.Enemy.Gold, res.Delta.Gold)
	require.Negative(t, res.Enemy.Territory)

	// War log recorded the battle.
	rel, err := f.engine.Relationship(ctx, "a", "b")
	require.NoError(t, err)
	require.Len(t, rel.WarLog, 1)
}

func TestEngine_ShieldBlocksAttack(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	f.found(t, ctx, "a", "Rome", civ.IdeologyNone)
	f.found(t, ctx, "b", "Carthage", civ.IdeologyNone)

	_, err := f.civs.GrantItem(ctx, "b", civ.ItemShield, 1)
	require.NoError(t, err)
	_, err = f.engine.DeclareWar(ctx, "a", "b")
	require.NoError(t, err)

	res, err := f.engine.Attack(ctx, "a", "b")
	require.NoError(t, err)
	require.Nil(t, res.Outcome)
	require.True(t, res.Delta.IsZero())

	// The shield was consumed blocking the attack.
	b, err := f.civs.Get(ctx, "b")
	require.NoError(t, err)
	require.Zero(t, b.ItemCount(civ.ItemShield))
}

func TestEngine_NuclearStrike(t *testing.T) {
	f := newFixture(t, 9)
	ctx := context.Background()
	f.found(t, ctx, "a", "Rome", civ.IdeologyNone)
	b := f.found(t, ctx, "b", "Carthage", civ.IdeologyNone)

	_, err := f.engine.DeclareWar(ctx, "a", "b")
	require.NoError(t, err)

	// No warhead yet.
	_, err = f.engine.NuclearStrike(ctx, "a", "b")
	require.ErrorIs(t, err, engine.ErrMissingRequirement)

	_, err = f.civs.GrantItem(ctx, "a", civ.ItemWarhead, 1)
	require.NoError(t, err)

	res, err := f.engine.NuclearStrike(ctx, "a", "b")
	require.NoError(t, err)
	require.Equal(t, -b.Resources.Gold/2, res.Enemy.Gold)

	// Warhead consumed, devastation applied, global record broadcast.
	a, err := f.civs.Get(ctx, "a")
	require.NoError(t, err)
	require.Zero(t, a.ItemCount(civ.ItemWarhead))

	records, err := f.engine.RecentEvents(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, "nuclear_strike", records[0].Kind)
	require.Equal(t, event.ScopeGlobal, records[0].Scope)
}

func TestEngine_SpyMissionRequiresSpies(t *testing.T) {
	f := newFixture(t, 11)
	ctx := context.Background()
	f.found(t, ctx, "a", "Rome", civ.IdeologyNone)
	f.found(t, ctx, "b", "Carthage", civ.IdeologyNone)

	_, err := f.engine.SpyMission(ctx, "a", "b")
	require.ErrorIs(t, err, engine.ErrMissingRequirement)

	_, err = f.civs.ApplyDelta(ctx, "a", civ.Delta{Spies: 5})
	require.NoError(t, err)

	res, err := f.engine.SpyMission(ctx, "a", "b")
	require.NoError(t, err)
	require.Equal(t, "spy", res.Action)
	// Either outcome moves something: stolen gold or captured spies.
	require.False(t, res.Delta.IsZero() && res.Enemy.IsZero())
}

// flakyEventRepo fails appends for one event kind, passing the rest through.
type flakyEventRepo struct {
	event.Repository
	failKind string
}

func (r *flakyEventRepo) Append(ctx context.Context, rec *event.Record) error {
	if rec.Kind == r.failKind {
		return errors.New("append rejected")
	}
	return r.Repository.Append(ctx, rec)
}

func TestEngine_GatherEventRecordFailureKeepsStateConsistent(t *testing.T) {
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	civs := civ.NewService(sqlite.NewCivRepository(db), logger)
	dipl := diplomacy.NewService(sqlite.NewRelationshipRepository(db), logger)
	gate := cooldown.NewGate(sqlite.NewCooldownRepository(db), cooldown.DefaultTable(), logger)

	// A catalog that always fires on gather, over a log that rejects
	// exactly that record.
	repo := &flakyEventRepo{Repository: sqlite.NewEventRepository(db), failKind: "lucky_find"}
	catalog := event.Catalog{Kinds: []event.Kind{{
		Name:    "lucky_find",
		Scope:   event.ScopeAction,
		Weight:  1,
		Actions: []string{"gather"},
		Min:     civ.Delta{Gold: 50},
		Max:     civ.Delta{Gold: 50},
	}}}
	events := event.NewEngine(repo, catalog, rand.New(rand.NewSource(1)), logger)

	eng := engine.New(civs, dipl, gate, events, rand.New(rand.NewSource(1)), engine.Options{
		Tuning:  combat.DefaultTuning(),
		Economy: engine.DefaultEconomy(),
	}, logger)

	ctx := context.Background()
	_, err = eng.Found(ctx, "a", "Rome")
	require.NoError(t, err)

	res, err := eng.Gather(ctx, "a")
	require.NoError(t, err)
	// The unrecorded windfall was dropped entirely.
	require.Nil(t, res.Event)

	stored, err := civs.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, stored.Resources, res.State.Resources)
}

func TestEngine_SendResourcesTransfers(t *testing.T) {
	f := newFixture(t, 31)
	ctx := context.Background()
	f.found(t, ctx, "a", "Rome", civ.IdeologyNone)
	f.found(t, ctx, "b", "Carthage", civ.IdeologyNone)

	res, err := f.engine.SendResources(ctx, "a", "b", civ.Delta{Gold: 100, Food: 50})
	require.NoError(t, err)
	require.Equal(t, int64(-100), res.Delta.Gold)
	require.Equal(t, int64(100), res.Enemy.Gold)
	require.Equal(t, int64(400), res.State.Resources.Gold)
	require.Equal(t, int64(250), res.State.Resources.Food)

	b, err := f.civs.Get(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, int64(600), b.Resources.Gold)
	require.Equal(t, int64(350), b.Resources.Food)

	// The send window is consumed.
	_, err = f.engine.SendResources(ctx, "a", "b", civ.Delta{Gold: 1})
	require.ErrorIs(t, err, cooldown.ErrActive)
}

func TestEngine_SendResourcesValidation(t *testing.T) {
	f := newFixture(t, 31)
	ctx := context.Background()
	f.found(t, ctx, "a", "Rome", civ.IdeologyNone)
	f.found(t, ctx, "b", "Carthage", civ.IdeologyNone)

	_, err := f.engine.SendResources(ctx, "a", "a", civ.Delta{Gold: 10})
	require.ErrorIs(t, err, engine.ErrSelfTarget)

	_, err = f.engine.SendResources(ctx, "a", "ghost", civ.Delta{Gold: 10})
	require.ErrorIs(t, err, engine.ErrUnknownTarget)

	// Only positive, pure resource gifts move.
	_, err = f.engine.SendResources(ctx, "a", "b", civ.Delta{})
	require.ErrorIs(t, err, civ.ErrInvalidInput)
	_, err = f.engine.SendResources(ctx, "a", "b", civ.Delta{Gold: -10})
	require.ErrorIs(t, err, civ.ErrInvalidInput)
	_, err = f.engine.SendResources(ctx, "a", "b", civ.Delta{Soldiers: 5})
	require.ErrorIs(t, err, civ.ErrInvalidInput)

	// The sender must afford the whole gift; nothing moves otherwise.
	_, err = f.engine.SendResources(ctx, "a", "b", civ.Delta{Gold: 10000})
	require.ErrorIs(t, err, civ.ErrInsufficientResources)
	b, err := f.civs.Get(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, int64(500), b.Resources.Gold)
}

func TestEngine_AllianceLifecycle(t *testing.T) {
	f := newFixture(t, 13)
	ctx := context.Background()
	f.found(t, ctx, "a", "Rome", civ.IdeologyNone)
	f.found(t, ctx, "b", "Carthage", civ.IdeologyNone)

	// Accepting before any proposal fails.
	_, err := f.engine.AcceptAlliance(ctx, "b", "a")
	require.ErrorIs(t, err, diplomacy.ErrNoProposal)

	_, err = f.engine.ProposeAlliance(ctx, "a", "b")
	require.NoError(t, err)

	// The proposer cannot accept their own offer.
	_, err = f.engine.AcceptAlliance(ctx, "a", "b")
	require.ErrorIs(t, err, diplomacy.ErrNoProposal)

	res, err := f.engine.AcceptAlliance(ctx, "b", "a")
	require.NoError(t, err)
	require.Equal(t, diplomacy.StateAllied, res.Rel.State)

	// Walking out costs gold.
	res, err = f.engine.BreakAlliance(ctx, "a", "b")
	require.NoError(t, err)
	require.Equal(t, diplomacy.StateNeutral, res.Rel.State)
	require.Equal(t, int64(-200), res.Delta.Gold)
}

func TestEngine_SurrenderPaysTribute(t *testing.T) {
	f := newFixture(t, 17)
	ctx := context.Background()
	f.found(t, ctx, "a", "Rome", civ.IdeologyNone)
	f.found(t, ctx, "b", "Carthage", civ.IdeologyNone)

	_, err := f.engine.DeclareWar(ctx, "a", "b")
	require.NoError(t, err)

	res, err := f.engine.Surrender(ctx, "b", "a")
	require.NoError(t, err)
	require.Equal(t, diplomacy.StateNeutral, res.Rel.State)
	// 10% of the starting 500 gold.
	require.Equal(t, int64(-50), res.Delta.Gold)
	require.Equal(t, int64(50), res.Enemy.Gold)

	// Surrendering again is invalid: the war is over.
	_, err = f.engine.Surrender(ctx, "b", "a")
	require.ErrorIs(t, err, diplomacy.ErrInvalidTransition)
}

func TestEngine_UseItemRegistersTempEffect(t *testing.T) {
	f := newFixture(t, 19)
	ctx := context.Background()
	f.found(t, ctx, "a", "Rome", civ.IdeologyNone)

	_, err := f.engine.UseItem(ctx, "a", civ.ItemGrowthBoost)
	require.ErrorIs(t, err, civ.ErrItemMissing)

	_, err = f.civs.GrantItem(ctx, "a", civ.ItemGrowthBoost, 1)
	require.NoError(t, err)

	_, before, err := f.engine.Status(ctx, "a")
	require.NoError(t, err)

	res, err := f.engine.UseItem(ctx, "a", civ.ItemGrowthBoost)
	require.NoError(t, err)
	require.Zero(t, res.State.ItemCount(civ.ItemGrowthBoost))

	_, after, err := f.engine.Status(ctx, "a")
	require.NoError(t, err)
	require.InDelta(t, before.Resource*1.5, after.Resource, 1e-9)

	// Passive kinds cannot be used directly.
	_, err = f.engine.UseItem(ctx, "a", civ.ItemShield)
	require.ErrorIs(t, err, engine.ErrMissingRequirement)
}

func TestEngine_Dashboard(t *testing.T) {
	f := newFixture(t, 23)
	ctx := context.Background()
	f.found(t, ctx, "a", "Rome", civ.IdeologyNone)
	f.found(t, ctx, "b", "Carthage", civ.IdeologyNone)
	_, err := f.civs.ApplyDelta(ctx, "b", civ.Delta{Gold: 10000})
	require.NoError(t, err)

	top, err := f.engine.TopCivs(ctx, 10, "gold")
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "b", top[0].ID)

	_, err = f.engine.DeclareWar(ctx, "a", "b")
	require.NoError(t, err)
	counts, err := f.engine.RelationshipCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, counts[diplomacy.StateAtWar])

	records, err := f.engine.RecentEvents(ctx, 50)
	require.NoError(t, err)
	require.NotEmpty(t, records)
}

func TestEngine_Throttle(t *testing.T) {
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	civs := civ.NewService(sqlite.NewCivRepository(db), logger)
	dipl := diplomacy.NewService(sqlite.NewRelationshipRepository(db), logger)
	gate := cooldown.NewGate(sqlite.NewCooldownRepository(db), cooldown.DefaultTable(), logger)
	events := event.NewEngine(sqlite.NewEventRepository(db), event.DefaultCatalog(), rand.New(rand.NewSource(1)), logger)

	eng := engine.New(civs, dipl, gate, events, rand.New(rand.NewSource(1)), engine.Options{
		Tuning:        combat.DefaultTuning(),
		Economy:       engine.DefaultEconomy(),
		RatePerSecond: 0.001,
		Burst:         1,
	}, logger)

	ctx := context.Background()
	_, err = eng.Found(ctx, "a", "Rome")
	require.NoError(t, err)

	_, err = eng.Found(ctx, "b", "Carthage")
	require.True(t, errors.Is(err, engine.ErrThrottled))
}

func TestEngine_TickGlobalPersists(t *testing.T) {
	f := newFixture(t, 29)
	ctx := context.Background()
	f.found(t, ctx, "a", "Rome", civ.IdeologyNone)
	f.found(t, ctx, "b", "Carthage", civ.IdeologyNone)

	// Global events fire with 10% chance per tick; enough ticks make one
	// all but certain.
	for i := 0; i < 200; i++ {
		require.NoError(t, f.engine.TickGlobal(ctx, time.Now()))
	}

	records, err := f.engine.RecentEvents(ctx, 500)
	require.NoError(t, err)
	var globals int
	for _, r := range records {
		if r.Scope == event.ScopeGlobal {
			globals++
		}
	}
	require.Positive(t, globals)
}
