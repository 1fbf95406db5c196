package event_test

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ganot/warciv/internal/domain/civ"
	"github.com/ganot/warciv/internal/domain/event"
	"github.com/ganot/warciv/internal/domain/modifier"
)

// memLog collects appended records in order.
type memLog struct {
	records []event.Record
}

func (l *memLog) Append(_ context.Context, rec *event.Record) error {
	l.records = append(l.records, *rec)
	return nil
}

func (l *memLog) Recent(_ context.Context, n int) ([]event.Record, error) {
	out := make([]event.Record, 0, n)
	for i := len(l.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.records[i])
	}
	return out, nil
}

func newEngine(catalog event.Catalog, seed int64) (*event.Engine, *memLog) {
	log := &memLog{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return event.NewEngine(log, catalog, rand.New(rand.NewSource(seed)), logger), log
}

func subject() *civ.Civilization {
	return &civ.Civilization{
		ID:        "c1",
		Name:      "Rome",
		Ideology:  civ.IdeologyDemocracy,
		Resources: civ.Resources{Gold: 500, Wood: 200, Stone: 200, Food: 300},
		Territory: 1000,
		Military:  civ.Military{Soldiers: 20, Spies: 2, Tech: 1},
	}
}

// singleLocal builds a catalog that always fires exactly the given kind.
func singleLocal(kind event.Kind) event.Catalog {
	kind.Scope = event.ScopeLocal
	kind.Weight = 1
	return event.Catalog{LocalChance: 1, Kinds: []event.Kind{kind}}
}

func TestRollLocal_NeverFiresAtZeroRate(t *testing.T) {
	eng, log := newEngine(singleLocal(event.Kind{
		Name: "windfall",
		Min:  civ.Delta{Gold: 100},
		Max:  civ.Delta{Gold: 100},
	}), 1)
	ctx := context.Background()

	applied, err := eng.RollLocal(ctx, subject(), 0, time.Now())
	require.NoError(t, err)
	require.Nil(t, applied)
	require.Empty(t, log.records)
}

func TestRollLocal_AppliesAndRecords(t *testing.T) {
	eng, log := newEngine(singleLocal(event.Kind{
		Name:    "windfall",
		Min:     civ.Delta{Gold: 100},
		Max:     civ.Delta{Gold: 100},
		Summary: "a windfall",
	}), 1)
	ctx := context.Background()
	c := subject()

	applied, err := eng.RollLocal(ctx, c, 1, time.Now())
	require.NoError(t, err)
	require.NotNil(t, applied)
	require.Equal(t, "windfall", applied.Kind)
	require.Equal(t, int64(100), applied.Delta.Gold)
	require.Equal(t, int64(600), c.Resources.Gold)

	require.Len(t, log.records, 1)
	rec := log.records[0]
	require.Equal(t, event.ScopeLocal, rec.Scope)
	require.NotNil(t, rec.CivID)
	require.Equal(t, "c1", *rec.CivID)
	require.NotEmpty(t, rec.ID)
}

func TestRollLocal_MagnitudeWithinRange(t *testing.T) {
	eng, _ := newEngine(singleLocal(event.Kind{
		Name: "caravan",
		Min:  civ.Delta{Gold: 200},
		Max:  civ.Delta{Gold: 400},
	}), 42)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		c := subject()
		applied, err := eng.RollLocal(ctx, c, 1, time.Now())
		require.NoError(t, err)
		require.NotNil(t, applied)
		require.GreaterOrEqual(t, applied.Delta.Gold, int64(200))
		require.LessOrEqual(t, applied.Delta.Gold, int64(400))
	}
}

func TestRollLocal_ClampsToHoldings(t *testing.T) {
	eng, log := newEngine(singleLocal(event.Kind{
		Name: "raid",
		Min:  civ.Delta{Gold: -900, Soldiers: -50},
		Max:  civ.Delta{Gold: -900, Soldiers: -50},
	}), 1)
	ctx := context.Background()
	c := subject()

	applied, err := eng.RollLocal(ctx, c, 1, time.Now())
	require.NoError(t, err)
	require.NotNil(t, applied)
	// The event always lands, shrunk to what the target actually has.
	require.Equal(t, int64(-500), applied.Delta.Gold)
	require.Equal(t, int64(-20), applied.Delta.Soldiers)
	require.Zero(t, c.Resources.Gold)
	require.Zero(t, c.Military.Soldiers)
	// The record carries the clamped delta, not the rolled one.
	require.Equal(t, int64(-500), log.records[0].Effect.Gold)
}

func TestRollLocal_IdeologyGate(t *testing.T) {
	catalog := singleLocal(event.Kind{
		Name:       "divine_blessing",
		Ideologies: []civ.Ideology{civ.IdeologyTheocracy},
		Min:        civ.Delta{Food: 100},
		Max:        civ.Delta{Food: 100},
	})
	eng, log := newEngine(catalog, 1)
	ctx := context.Background()

	// A democracy is not eligible, so nothing can fire.
	applied, err := eng.RollLocal(ctx, subject(), 1, time.Now())
	require.NoError(t, err)
	require.Nil(t, applied)
	require.Empty(t, log.records)

	believer := subject()
	believer.Ideology = civ.IdeologyTheocracy
	applied, err = eng.RollLocal(ctx, believer, 1, time.Now())
	require.NoError(t, err)
	require.NotNil(t, applied)
	require.Equal(t, "divine_blessing", applied.Kind)
}

func TestRollLocal_TempEffectLifecycle(t *testing.T) {
	now := time.Now()
	eng, _ := newEngine(singleLocal(event.Kind{
		Name: "plague",
		Temp: &event.TempEffect{
			Mods:     modifier.Set{Resource: 0.5},
			Duration: time.Hour,
		},
	}), 1)
	ctx := context.Background()
	c := subject()

	_, err := eng.RollLocal(ctx, c, 1, now)
	require.NoError(t, err)

	effects := eng.ActiveEffects("c1", now)
	require.Len(t, effects, 1)
	require.Equal(t, "plague", effects[0].Source)
	require.InDelta(t, 0.5, effects[0].Mods.Resource, 1e-9)

	// Another civilization sees nothing.
	require.Empty(t, eng.ActiveEffects("c2", now))

	// After expiry the effect is pruned.
	require.Empty(t, eng.ActiveEffects("c1", now.Add(2*time.Hour)))
	require.Empty(t, eng.ActiveEffects("c1", now))
}

func TestRollAction_TriggerMatch(t *testing.T) {
	catalog := event.Catalog{Kinds: []event.Kind{{
		Name:    "lucky_find",
		Scope:   event.ScopeAction,
		Weight:  1,
		Actions: []string{"gather"},
		Min:     civ.Delta{Gold: 50},
		Max:     civ.Delta{Gold: 50},
	}}}
	eng, _ := newEngine(catalog, 1)
	ctx := context.Background()

	applied, err := eng.RollAction(ctx, subject(), "train", time.Now())
	require.NoError(t, err)
	require.Nil(t, applied)

	applied, err = eng.RollAction(ctx, subject(), "gather", time.Now())
	require.NoError(t, err)
	require.NotNil(t, applied)
	require.Equal(t, int64(50), applied.Delta.Gold)
}

func TestRollGlobal_TouchesEveryoneOnce(t *testing.T) {
	catalog := event.Catalog{GlobalChance: 1, Kinds: []event.Kind{{
		Name:    "meteor_shower",
		Scope:   event.ScopeGlobal,
		Weight:  1,
		Min:     civ.Delta{Stone: 100},
		Max:     civ.Delta{Stone: 100},
		Summary: "meteors",
	}}}
	eng, log := newEngine(catalog, 1)
	ctx := context.Background()

	a, b := subject(), subject()
	b.ID = "c2"

	applied, err := eng.RollGlobal(ctx, []*civ.Civilization{a, b}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, applied)
	require.Equal(t, int64(300), a.Resources.Stone)
	require.Equal(t, int64(300), b.Resources.Stone)
	// One record for the whole world, with the aggregate delta.
	require.Len(t, log.records, 1)
	require.Equal(t, event.ScopeGlobal, log.records[0].Scope)
	require.Nil(t, log.records[0].CivID)
	require.Equal(t, int64(200), log.records[0].Effect.Stone)

	require.Empty(t, eng.ActiveEffects("c1", time.Now()))
}

func TestRollGlobal_GlobalTempEffectAppliesToAll(t *testing.T) {
	now := time.Now()
	catalog := event.Catalog{GlobalChance: 1, Kinds: []event.Kind{{
		Name:   "nuclear_winter",
		Scope:  event.ScopeGlobal,
		Weight: 1,
		Temp: &event.TempEffect{
			Mods:     modifier.Set{Resource: 0.5},
			Duration: time.Hour,
		},
	}}}
	eng, _ := newEngine(catalog, 1)
	ctx := context.Background()

	_, err := eng.RollGlobal(ctx, []*civ.Civilization{subject()}, now)
	require.NoError(t, err)

	// Global effects show up for every civilization, known or not.
	require.Len(t, eng.ActiveEffects("c1", now), 1)
	require.Len(t, eng.ActiveEffects("someone-else", now), 1)
}

func TestRollGlobal_EmptyWorld(t *testing.T) {
	catalog := event.Catalog{GlobalChance: 1, Kinds: []event.Kind{{
		Name: "pandemic", Scope: event.ScopeGlobal, Weight: 1,
	}}}
	eng, log := newEngine(catalog, 1)

	applied, err := eng.RollGlobal(context.Background(), nil, time.Now())
	require.NoError(t, err)
	require.Nil(t, applied)
	require.Empty(t, log.records)
}

func TestLog_AssignsID(t *testing.T) {
	eng, log := newEngine(event.Catalog{}, 1)

	rec := &event.Record{Kind: "action:gather", Scope: event.ScopeAction, At: time.Now()}
	require.NoError(t, eng.Log(context.Background(), rec))
	require.Len(t, log.records, 1)
	require.NotEmpty(t, log.records[0].ID)
}

func TestAddEffect(t *testing.T) {
	now := time.Now()
	eng, _ := newEngine(event.Catalog{}, 1)

	eng.AddEffect("c1", "war_banner", &event.TempEffect{
		Mods:     modifier.Set{Military: 1.25},
		Duration: time.Hour,
	}, now)

	effects := eng.ActiveEffects("c1", now)
	require.Len(t, effects, 1)
	require.Equal(t, "war_banner", effects[0].Source)
	require.Empty(t, eng.ActiveEffects("c1", now.Add(2*time.Hour)))
}

func TestDefaultCatalogSanity(t *testing.T) {
	catalog := event.DefaultCatalog()
	require.NotEmpty(t, catalog.Kinds)
	require.Greater(t, catalog.LocalChance, 0.0)
	require.Greater(t, catalog.GlobalChance, 0.0)

	for _, k := range catalog.Kinds {
		require.NotEmpty(t, k.Name)
		require.Greater(t, k.Weight, 0.0, k.Name)
		if k.Scope == event.ScopeAction {
			require.NotEmpty(t, k.Actions, k.Name)
		}
	}
}
