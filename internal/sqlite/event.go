package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ganot/warciv/internal/domain/civ"
	"github.com/ganot/warciv/internal/domain/event"
	"github.com/ganot/warciv/internal/repository"
)

// EventRepository implements event.Repository for SQLite. The log is
// append-only; rows are never updated or deleted.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

type eventRow struct {
	ID         string         `db:"id"`
	Kind       string         `db:"kind"`
	Scope      string         `db:"scope"`
	CivID      sql.NullString `db:"civ_id"`
	At         time.Time      `db:"at"`
	EffectJSON string         `db:"effect_json"`
	Summary    string         `db:"summary"`
}

// Append writes one immutable event record.
func (r *EventRepository) Append(ctx context.Context, rec *event.Record) error {
	effect, err := json.Marshal(rec.Effect)
	if err != nil {
		return fmt.Errorf("marshaling effect: %w", err)
	}

	var civID any
	if rec.CivID != nil {
		civID = *rec.CivID
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO events (id, kind, scope, civ_id, at, effect_json, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Kind, string(rec.Scope), civID, rec.At, string(effect), rec.Summary)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// Recent returns the newest n records, newest first.
func (r *EventRepository) Recent(ctx context.Context, n int) ([]event.Record, error) {
	var rows []eventRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, kind, scope, civ_id, at, effect_json, summary
		FROM events ORDER BY rowid DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	records := make([]event.Record, 0, len(rows))
	for _, row := range rows {
		rec := event.Record{
			ID:      row.ID,
			Kind:    row.Kind,
			Scope:   event.Scope(row.Scope),
			At:      row.At,
			Summary: row.Summary,
		}
		if row.CivID.Valid {
			id := row.CivID.String
			rec.CivID = &id
		}
		var effect civ.Delta
		if err := json.Unmarshal([]byte(row.EffectJSON), &effect); err != nil {
			return nil, fmt.Errorf("unmarshaling effect: %w", err)
		}
		rec.Effect = effect
		records = append(records, rec)
	}
	return records, nil
}
