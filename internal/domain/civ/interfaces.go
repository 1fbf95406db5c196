package civ

import "context"

// Repository provides persistence for civilizations.
type Repository interface {
	Create(ctx context.Context, c *Civilization) error
	Get(ctx context.Context, id string) (*Civilization, error)
	Save(ctx context.Context, c *Civilization) error
	List(ctx context.Context) ([]Civilization, error)
	Top(ctx context.Context, n int, orderBy string) ([]Summary, error)
}
