package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ganot/warciv/internal/repository"
)

// CooldownRepository implements cooldown.Repository for SQLite. Records are
// upserted, never deleted, so cooldowns survive restarts.
type CooldownRepository struct {
	db *DB
}

// NewCooldownRepository creates a new CooldownRepository.
func NewCooldownRepository(db *DB) *CooldownRepository {
	return &CooldownRepository{db: db}
}

// Get returns the last successful invocation timestamp for the pair.
func (r *CooldownRepository) Get(ctx context.Context, civID, action string) (time.Time, error) {
	var last time.Time
	err := r.db.GetContext(ctx, &last, `
		SELECT last_used FROM cooldowns WHERE civ_id = ? AND action = ?
	`, civID, action)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, repository.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get cooldown: %w", err)
	}
	return last, nil
}

// Save records the last successful invocation timestamp for the pair.
func (r *CooldownRepository) Save(ctx context.Context, civID, action string, t time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cooldowns (civ_id, action, last_used)
		VALUES (?, ?, ?)
		ON CONFLICT(civ_id, action) DO UPDATE SET last_used = excluded.last_used
	`, civID, action, t)
	if err != nil {
		return fmt.Errorf("failed to save cooldown: %w", err)
	}
	return nil
}
