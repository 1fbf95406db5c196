package civ

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ganot/warciv/internal/repository"
	"github.com/google/uuid"
)

// Service handles civilization lifecycle and ledger mutations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new civilization service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// FoundRequest defines civilization founding inputs.
type FoundRequest struct {
	ID        string
	Name      string
	Resources Resources // zero value means starting stock
	Items     []Item
}

// StartingStock is granted to every new civilization unless the founding
// request carries explicit bonus resources.
var StartingStock = Resources{Gold: 500, Wood: 200, Stone: 200, Food: 300}

// Found creates a new civilization for an actor.
func (s *Service) Found(ctx context.Context, req FoundRequest) (*Civilization, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrInvalidInput
	}

	id := req.ID
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}

	resources := req.Resources
	if resources == (Resources{}) {
		resources = StartingStock
	}

	c := &Civilization{
		ID:        id,
		Name:      req.Name,
		Ideology:  IdeologyNone,
		Resources: resources,
		Territory: 1000,
		Military:  Military{Soldiers: 10, Spies: 0, Tech: 1},
		Items:     req.Items,
		CreatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("creating civilization: %w", err)
	}

	return c, nil
}

// Get fetches a civilization by actor id.
func (s *Service) Get(ctx context.Context, id string) (*Civilization, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting civilization: %w", err)
	}
	return c, nil
}

// SetIdeology selects the civilization's ideology. The choice is permanent.
func (s *Service) SetIdeology(ctx context.Context, id string, ideology Ideology) (*Civilization, error) {
	if !ideology.Valid() {
		return nil, ErrInvalidIdeology
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Ideology != IdeologyNone {
		return nil, ErrIdeologyLocked
	}

	c.Ideology = ideology
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("saving ideology: %w", err)
	}

	s.logger.Info("ideology selected", "civ", c.ID, "ideology", ideology)
	return c, nil
}

// ApplyDelta loads a civilization, applies an all-or-nothing ledger delta,
// and persists the result. The caller is responsible for per-civ ordering.
func (s *Service) ApplyDelta(ctx context.Context, id string, d Delta) (*Civilization, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Apply(c, d); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("saving ledger: %w", err)
	}
	return c, nil
}

// Persist writes back a civilization mutated in memory by the caller, who
// is responsible for holding the per-civ lock.
func (s *Service) Persist(ctx context.Context, c *Civilization) error {
	if err := s.repo.Save(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("persisting civilization: %w", err)
	}
	return nil
}

// GrantItem adds charges of an item kind.
func (s *Service) GrantItem(ctx context.Context, id, kind string, charges int64) (*Civilization, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range c.Items {
		if c.Items[i].Kind == kind {
			c.Items[i].Charges += charges
			found = true
			break
		}
	}
	if !found {
		c.Items = append(c.Items, Item{Kind: kind, Charges: charges})
	}

	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("granting item: %w", err)
	}
	return c, nil
}

// ConsumeItem decrements one charge of an item kind, removing the entry at
// zero. Fails with ErrItemMissing when no charge is held.
func (s *Service) ConsumeItem(ctx context.Context, id, kind string) (*Civilization, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ConsumeItem(c, kind); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("consuming item: %w", err)
	}
	return c, nil
}

// ConsumeItem decrements one charge on the in-memory civilization.
func ConsumeItem(c *Civilization, kind string) error {
	for i := range c.Items {
		if c.Items[i].Kind != kind {
			continue
		}
		if c.Items[i].Charges <= 0 {
			return ErrItemMissing
		}
		c.Items[i].Charges--
		if c.Items[i].Charges == 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		}
		return nil
	}
	return ErrItemMissing
}

// List returns every civilization.
func (s *Service) List(ctx context.Context) ([]Civilization, error) {
	return s.repo.List(ctx)
}

// Top returns leaderboard summaries ordered by the given column.
func (s *Service) Top(ctx context.Context, n int, orderBy string) ([]Summary, error) {
	return s.repo.Top(ctx, n, orderBy)
}
