// Package mocks provides testify mocks for the persistence interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/ganot/warciv/internal/domain/civ"
	"github.com/ganot/warciv/internal/domain/diplomacy"
	"github.com/ganot/warciv/internal/domain/event"
	"github.com/stretchr/testify/mock"
)

// CivRepository is a mock for civ.Repository.
type CivRepository struct {
	mock.Mock
}

func (m *CivRepository) Create(ctx context.Context, c *civ.Civilization) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *CivRepository) Get(ctx context.Context, id string) (*civ.Civilization, error) {
	args := m.Called(ctx, id)
	if c, ok := args.Get(0).(*civ.Civilization); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CivRepository) Save(ctx context.Context, c *civ.Civilization) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *CivRepository) List(ctx context.Context) ([]civ.Civilization, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]civ.Civilization); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CivRepository) Top(ctx context.Context, n int, orderBy string) ([]civ.Summary, error) {
	args := m.Called(ctx, n, orderBy)
	if list, ok := args.Get(0).([]civ.Summary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// RelationshipRepository is a mock for diplomacy.Repository.
type RelationshipRepository struct {
	mock.Mock
}

func (m *RelationshipRepository) Get(ctx context.Context, key string) (*diplomacy.Relationship, error) {
	args := m.Called(ctx, key)
	if r, ok := args.Get(0).(*diplomacy.Relationship); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RelationshipRepository) Save(ctx context.Context, r *diplomacy.Relationship) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *RelationshipRepository) List(ctx context.Context) ([]diplomacy.Relationship, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]diplomacy.Relationship); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RelationshipRepository) CountByState(ctx context.Context) (map[diplomacy.State]int, error) {
	args := m.Called(ctx)
	if counts, ok := args.Get(0).(map[diplomacy.State]int); ok {
		return counts, args.Error(1)
	}
	return nil, args.Error(1)
}

// CooldownRepository is a mock for cooldown.Repository.
type CooldownRepository struct {
	mock.Mock
}

func (m *CooldownRepository) Get(ctx context.Context, civID, action string) (time.Time, error) {
	args := m.Called(ctx, civID, action)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *CooldownRepository) Save(ctx context.Context, civID, action string, t time.Time) error {
	args := m.Called(ctx, civID, action, t)
	return args.Error(0)
}

// EventRepository is a mock for event.Repository.
type EventRepository struct {
	mock.Mock
}

func (m *EventRepository) Append(ctx context.Context, rec *event.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *EventRepository) Recent(ctx context.Context, n int) ([]event.Record, error) {
	args := m.Called(ctx, n)
	if list, ok := args.Get(0).([]event.Record); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
