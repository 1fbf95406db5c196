package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ganot/warciv/internal/domain/diplomacy"
	"github.com/ganot/warciv/internal/repository"
)

func TestRelationshipRepository_GetMissing(t *testing.T) {
	db := NewTestDB(t)
	repo := NewRelationshipRepository(db)
	ctx := context.Background()

	_, err := repo.Get(ctx, diplomacy.PairKey("a", "b"))
	require.Equal(t, repository.ErrNotFound, err)
}

func TestRelationshipRepository_SaveAndGet(t *testing.T) {
	db := NewTestDB(t)
	repo := NewRelationshipRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	rel := &diplomacy.Relationship{
		Key:   diplomacy.PairKey("b", "a"),
		A:     "a",
		B:     "b",
		State: diplomacy.StateAllied,
		Pending: &diplomacy.Proposal{
			Kind:      diplomacy.ProposalPeace,
			From:      "a",
			ExpiresAt: now.Add(30 * time.Minute),
		},
		ChangedAt: now,
		WarLog: []diplomacy.WarEvent{
			{At: now.Add(-time.Hour), Attacker: "a", Summary: "border raid"},
		},
	}

	require.NoError(t, repo.Save(ctx, rel))

	got, err := repo.Get(ctx, rel.Key)
	require.NoError(t, err)
	require.Equal(t, diplomacy.StateAllied, got.State)
	require.NotNil(t, got.Pending)
	require.Equal(t, diplomacy.ProposalPeace, got.Pending.Kind)
	require.Equal(t, "a", got.Pending.From)
	require.Len(t, got.WarLog, 1)
	require.Equal(t, "border raid", got.WarLog[0].Summary)
}

func TestRelationshipRepository_Upsert(t *testing.T) {
	db := NewTestDB(t)
	repo := NewRelationshipRepository(db)
	ctx := context.Background()

	rel := &diplomacy.Relationship{
		Key: diplomacy.PairKey("a", "b"), A: "a", B: "b",
		State: diplomacy.StateNeutral,
	}
	require.NoError(t, repo.Save(ctx, rel))

	rel.State = diplomacy.StateAtWar
	rel.ChangedAt = time.Now()
	require.NoError(t, repo.Save(ctx, rel))

	got, err := repo.Get(ctx, rel.Key)
	require.NoError(t, err)
	require.Equal(t, diplomacy.StateAtWar, got.State)
	require.Nil(t, got.Pending)
}

func TestRelationshipRepository_CountByState(t *testing.T) {
	db := NewTestDB(t)
	repo := NewRelationshipRepository(db)
	ctx := context.Background()

	pairs := []struct {
		a, b  string
		state diplomacy.State
	}{
		{"a", "b", diplomacy.StateAtWar},
		{"a", "c", diplomacy.StateAtWar},
		{"b", "c", diplomacy.StateAllied},
	}
	for _, p := range pairs {
		err := repo.Save(ctx, &diplomacy.Relationship{
			Key: diplomacy.PairKey(p.a, p.b), A: p.a, B: p.b, State: p.state,
		})
		require.NoError(t, err)
	}

	counts, err := repo.CountByState(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, counts[diplomacy.StateAtWar])
	require.Equal(t, 1, counts[diplomacy.StateAllied])
	require.Equal(t, 0, counts[diplomacy.StateNeutral])
}
