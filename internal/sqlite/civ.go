package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ganot/warciv/internal/domain/civ"
	"github.com/ganot/warciv/internal/repository"
)

// CivRepository implements civ.Repository for SQLite.
type CivRepository struct {
	db *DB
}

// NewCivRepository creates a new CivRepository.
func NewCivRepository(db *DB) *CivRepository {
	return &CivRepository{db: db}
}

type civRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Ideology  string    `db:"ideology"`
	Gold      int64     `db:"gold"`
	Wood      int64     `db:"wood"`
	Stone     int64     `db:"stone"`
	Food      int64     `db:"food"`
	Territory int64     `db:"territory"`
	Soldiers  int64     `db:"soldiers"`
	Spies     int64     `db:"spies"`
	Tech      int64     `db:"tech"`
	ItemsJSON string    `db:"items_json"`
	CreatedAt time.Time `db:"created_at"`
}

func toRow(c *civ.Civilization) (civRow, error) {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return civRow{}, fmt.Errorf("marshaling items: %w", err)
	}
	return civRow{
		ID:        c.ID,
		Name:      c.Name,
		Ideology:  string(c.Ideology),
		Gold:      c.Resources.Gold,
		Wood:      c.Resources.Wood,
		Stone:     c.Resources.Stone,
		Food:      c.Resources.Food,
		Territory: c.Territory,
		Soldiers:  c.Military.Soldiers,
		Spies:     c.Military.Spies,
		Tech:      c.Military.Tech,
		ItemsJSON: string(items),
		CreatedAt: c.CreatedAt,
	}, nil
}

func (r civRow) toCiv() (civ.Civilization, error) {
	c := civ.Civilization{
		ID:       r.ID,
		Name:     r.Name,
		Ideology: civ.Ideology(r.Ideology),
		Resources: civ.Resources{
			Gold: r.Gold, Wood: r.Wood, Stone: r.Stone, Food: r.Food,
		},
		Territory: r.Territory,
		Military: civ.Military{
			Soldiers: r.Soldiers, Spies: r.Spies, Tech: r.Tech,
		},
		CreatedAt: r.CreatedAt,
	}
	if err := json.Unmarshal([]byte(r.ItemsJSON), &c.Items); err != nil {
		return civ.Civilization{}, fmt.Errorf("unmarshaling items: %w", err)
	}
	return c, nil
}

// Create inserts a new civilization. A duplicate id maps to ErrConflict.
func (r *CivRepository) Create(ctx context.Context, c *civ.Civilization) error {
	row, err := toRow(c)
	if err != nil {
		return err
	}

	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO civilizations
			(id, name, ideology, gold, wood, stone, food, territory, soldiers, spies, tech, items_json, created_at)
		VALUES
			(:id, :name, :ideology, :gold, :wood, :stone, :food, :territory, :soldiers, :spies, :tech, :items_json, :created_at)
	`, row)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create civilization: %w", err)
	}
	return nil
}

// Get retrieves a civilization by id.
func (r *CivRepository) Get(ctx context.Context, id string) (*civ.Civilization, error) {
	var row civRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, name, ideology, gold, wood, stone, food, territory, soldiers, spies, tech, items_json, created_at
		FROM civilizations WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get civilization: %w", err)
	}

	c, err := row.toCiv()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes the full civilization state back.
func (r *CivRepository) Save(ctx context.Context, c *civ.Civilization) error {
	row, err := toRow(c)
	if err != nil {
		return err
	}

	res, err := r.db.NamedExecContext(ctx, `
		UPDATE civilizations SET
			name = :name, ideology = :ideology,
			gold = :gold, wood = :wood, stone = :stone, food = :food,
			territory = :territory, soldiers = :soldiers, spies = :spies, tech = :tech,
			items_json = :items_json
		WHERE id = :id
	`, row)
	if err != nil {
		return fmt.Errorf("failed to save civilization: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// List returns every civilization.
func (r *CivRepository) List(ctx context.Context) ([]civ.Civilization, error) {
	var rows []civRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, name, ideology, gold, wood, stone, food, territory, soldiers, spies, tech, items_json, created_at
		FROM civilizations ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list civilizations: %w", err)
	}

	civs := make([]civ.Civilization, 0, len(rows))
	for _, row := range rows {
		c, err := row.toCiv()
		if err != nil {
			return nil, err
		}
		civs = append(civs, c)
	}
	return civs, nil
}

// Top returns leaderboard summaries. orderBy is restricted to a fixed set
// of columns; anything else falls back to power.
func (r *CivRepository) Top(ctx context.Context, n int, orderBy string) ([]civ.Summary, error) {
	column := "power"
	switch orderBy {
	case "gold", "territory", "soldiers", "power":
		column = orderBy
	}

	query := fmt.Sprintf(`
		SELECT id, name, ideology, gold, territory, soldiers,
			(gold + wood + stone + food) / 10 + soldiers * 5 + spies * 10 + tech * 100 + territory / 100 AS power
		FROM civilizations
		ORDER BY %s DESC
		LIMIT ?
	`, column)

	var out []civ.Summary
	if err := r.db.SelectContext(ctx, &out, query, n); err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	return out, nil
}
