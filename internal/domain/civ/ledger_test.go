package civ_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ganot/warciv/internal/domain/civ"
)

func baseCiv() *civ.Civilization {
	return &civ.Civilization{
		ID:        "c1",
		Name:      "Rome",
		Resources: civ.Resources{Gold: 100, Wood: 50, Stone: 50, Food: 80},
		Territory: 1000,
		Military:  civ.Military{Soldiers: 10, Spies: 2, Tech: 1},
	}
}

func TestApply_AllOrNothing(t *testing.T) {
	c := baseCiv()

	// Gold is affordable but food is not: nothing may change.
	err := civ.Apply(c, civ.Delta{Gold: -50, Food: -200})
	require.ErrorIs(t, err, civ.ErrInsufficientResources)
	require.Equal(t, int64(100), c.Resources.Gold)
	require.Equal(t, int64(80), c.Resources.Food)

	err = civ.Apply(c, civ.Delta{Gold: -50, Food: -30})
	require.NoError(t, err)
	require.Equal(t, int64(50), c.Resources.Gold)
	require.Equal(t, int64(50), c.Resources.Food)
}

func TestApply_TerritoryFloor(t *testing.T) {
	c := baseCiv()

	err := civ.Apply(c, civ.Delta{Territory: -1000})
	require.ErrorIs(t, err, civ.ErrInsufficientResources)

	err = civ.Apply(c, civ.Delta{Territory: -999})
	require.NoError(t, err)
	require.Equal(t, int64(civ.TerritoryFloor), c.Territory)
}

func TestApply_TechCap(t *testing.T) {
	c := baseCiv()

	err := civ.Apply(c, civ.Delta{Tech: 50})
	require.NoError(t, err)
	require.Equal(t, int64(civ.TechCap), c.Military.Tech)
}

func TestApply_MilitaryNonNegative(t *testing.T) {
	c := baseCiv()

	err := civ.Apply(c, civ.Delta{Soldiers: -11})
	require.ErrorIs(t, err, civ.ErrInsufficientResources)
	require.Equal(t, int64(10), c.Military.Soldiers)
}

func TestApplyClamped_ShrinksToAvailable(t *testing.T) {
	c := baseCiv()

	applied := civ.ApplyClamped(c, civ.Delta{Gold: -500, Soldiers: -100, Territory: -5000})
	require.Equal(t, int64(-100), applied.Gold)
	require.Equal(t, int64(-10), applied.Soldiers)
	require.Equal(t, int64(-999), applied.Territory)

	require.Zero(t, c.Resources.Gold)
	require.Zero(t, c.Military.Soldiers)
	require.Equal(t, int64(civ.TerritoryFloor), c.Territory)
}

func TestApplyClamped_PositiveUnclamped(t *testing.T) {
	c := baseCiv()

	applied := civ.ApplyClamped(c, civ.Delta{Gold: 500, Tech: 100})
	require.Equal(t, int64(500), applied.Gold)
	// Tech is clamped from above by the cap.
	require.Equal(t, int64(civ.TechCap-1), applied.Tech)
}

func TestDelta_AddNegateIsZero(t *testing.T) {
	d := civ.Delta{Gold: 10, Soldiers: -3}
	require.True(t, d.Add(d.Negate()).IsZero())
	require.False(t, d.IsZero())
	require.True(t, civ.Delta{}.IsZero())
}

func TestConsumeItem(t *testing.T) {
	c := baseCiv()
	c.Items = []civ.Item{{Kind: civ.ItemShield, Charges: 2}}

	require.NoError(t, civ.ConsumeItem(c, civ.ItemShield))
	require.Equal(t, int64(1), c.ItemCount(civ.ItemShield))

	require.NoError(t, civ.ConsumeItem(c, civ.ItemShield))
	require.Zero(t, c.ItemCount(civ.ItemShield))
	require.Empty(t, c.Items)

	require.ErrorIs(t, civ.ConsumeItem(c, civ.ItemShield), civ.ErrItemMissing)
	require.ErrorIs(t, civ.ConsumeItem(c, civ.ItemMirror), civ.ErrItemMissing)
}

func TestPower(t *testing.T) {
	c := baseCiv()
	// (100+50+50+80)/10 + 10*5 + 2*10 + 1*100 + 1000/100 = 28+50+20+100+10
	require.Equal(t, int64(208), c.Power())
}
