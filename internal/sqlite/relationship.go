package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ganot/warciv/internal/domain/diplomacy"
	"github.com/ganot/warciv/internal/repository"
)

// RelationshipRepository implements diplomacy.Repository for SQLite.
type RelationshipRepository struct {
	db *DB
}

// NewRelationshipRepository creates a new RelationshipRepository.
func NewRelationshipRepository(db *DB) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

type relationshipRow struct {
	Key         string         `db:"key"`
	A           string         `db:"a"`
	B           string         `db:"b"`
	State       string         `db:"state"`
	PendingJSON sql.NullString `db:"pending_json"`
	ChangedAt   sql.NullTime   `db:"changed_at"`
	WarLogJSON  string         `db:"war_log_json"`
}

// Get retrieves the relationship for a pair key.
func (r *RelationshipRepository) Get(ctx context.Context, key string) (*diplomacy.Relationship, error) {
	var row relationshipRow
	err := r.db.GetContext(ctx, &row, `
		SELECT key, a, b, state, pending_json, changed_at, war_log_json
		FROM relationships WHERE key = ?
	`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	return row.toRelationship()
}

func (row relationshipRow) toRelationship() (*diplomacy.Relationship, error) {
	rel := &diplomacy.Relationship{
		Key:   row.Key,
		A:     row.A,
		B:     row.B,
		State: diplomacy.State(row.State),
	}
	if row.ChangedAt.Valid {
		rel.ChangedAt = row.ChangedAt.Time
	}
	if row.PendingJSON.Valid && row.PendingJSON.String != "" {
		rel.Pending = &diplomacy.Proposal{}
		if err := json.Unmarshal([]byte(row.PendingJSON.String), rel.Pending); err != nil {
			return nil, fmt.Errorf("unmarshaling proposal: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(row.WarLogJSON), &rel.WarLog); err != nil {
		return nil, fmt.Errorf("unmarshaling war log: %w", err)
	}
	return rel, nil
}

// Save upserts the pair's single record; both sides commit as one row.
func (r *RelationshipRepository) Save(ctx context.Context, rel *diplomacy.Relationship) error {
	warLog, err := json.Marshal(rel.WarLog)
	if err != nil {
		return fmt.Errorf("marshaling war log: %w", err)
	}

	var pending any
	if rel.Pending != nil {
		data, err := json.Marshal(rel.Pending)
		if err != nil {
			return fmt.Errorf("marshaling proposal: %w", err)
		}
		pending = string(data)
	}

	var changedAt any
	if !rel.ChangedAt.IsZero() {
		changedAt = rel.ChangedAt
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO relationships (key, a, b, state, pending_json, changed_at, war_log_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			state = excluded.state,
			pending_json = excluded.pending_json,
			changed_at = excluded.changed_at,
			war_log_json = excluded.war_log_json
	`, rel.Key, rel.A, rel.B, string(rel.State), pending, changedAt, string(warLog))
	if err != nil {
		return fmt.Errorf("failed to save relationship: %w", err)
	}
	return nil
}

// List returns every stored relationship.
func (r *RelationshipRepository) List(ctx context.Context) ([]diplomacy.Relationship, error) {
	var rows []relationshipRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT key, a, b, state, pending_json, changed_at, war_log_json
		FROM relationships ORDER BY key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}

	rels := make([]diplomacy.Relationship, 0, len(rows))
	for _, row := range rows {
		rel, err := row.toRelationship()
		if err != nil {
			return nil, err
		}
		rels = append(rels, *rel)
	}
	return rels, nil
}

// CountByState aggregates relationship counts for the dashboard.
func (r *RelationshipRepository) CountByState(ctx context.Context) (map[diplomacy.State]int, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT state, COUNT(*) FROM relationships GROUP BY state
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count relationships: %w", err)
	}
	defer rows.Close()

	counts := make(map[diplomacy.State]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[diplomacy.State(state)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counts: %w", err)
	}
	return counts, nil
}
