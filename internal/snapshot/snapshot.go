// Package snapshot exports and restores the whole world state as
// lz4-compressed JSON. Snapshots are taken for backups and migrations; the
// engine should be quiesced while one is in flight.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pierrec/lz4/v4"

	"github.com/ganot/warciv/internal/domain/civ"
	"github.com/ganot/warciv/internal/domain/diplomacy"
	"github.com/ganot/warciv/internal/domain/event"
	"github.com/ganot/warciv/internal/repository"
)

// FormatVersion is bumped whenever the snapshot layout changes.
const FormatVersion = 1

// eventTail bounds how much of the event log a snapshot carries.
const eventTail = 1000

// ErrVersion indicates a snapshot written by an incompatible version.
var ErrVersion = errors.New("unsupported snapshot version")

// World is the serialized form of the full game state.
type World struct {
	Version       int                      `json:"version"`
	ExportedAt    time.Time                `json:"exported_at"`
	Civilizations []civ.Civilization       `json:"civilizations"`
	Relationships []diplomacy.Relationship `json:"relationships"`
	Events        []event.Record           `json:"events"`
}

// Store reads and writes snapshots against the persistence layer.
type Store struct {
	civs   civ.Repository
	rels   diplomacy.Repository
	events event.Repository
	logger *slog.Logger
}

// NewStore creates a snapshot store over the repositories.
func NewStore(civs civ.Repository, rels diplomacy.Repository, events event.Repository, logger *slog.Logger) *Store {
	return &Store{civs: civs, rels: rels, events: events, logger: logger}
}

// Export writes the current world state to w as lz4-compressed JSON.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	civs, err := s.civs.List(ctx)
	if err != nil {
		return fmt.Errorf("listing civilizations: %w", err)
	}
	rels, err := s.rels.List(ctx)
	if err != nil {
		return fmt.Errorf("listing relationships: %w", err)
	}
	events, err := s.events.Recent(ctx, eventTail)
	if err != nil {
		return fmt.Errorf("listing events: %w", err)
	}

	world := World{
		Version:       FormatVersion,
		ExportedAt:    time.Now().UTC(),
		Civilizations: civs,
		Relationships: rels,
		Events:        events,
	}

	zw := lz4.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(world); err != nil {
		zw.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flushing snapshot: %w", err)
	}

	s.logger.Info("snapshot exported", "civs", len(civs), "relationships", len(rels), "events", len(events))
	return nil
}

// Import restores a snapshot into the persistence layer. Existing
// civilizations and relationships are overwritten; unknown ones are created.
// Event records are re-appended, skipping ids already present.
func (s *Store) Import(ctx context.Context, r io.Reader) error {
	var world World
	if err := json.NewDecoder(lz4.NewReader(r)).Decode(&world); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	if world.Version != FormatVersion {
		return fmt.Errorf("%w: %d", ErrVersion, world.Version)
	}

	for i := range world.Civilizations {
		c := &world.Civilizations[i]
		err := s.civs.Create(ctx, c)
		if errors.Is(err, repository.ErrConflict) {
			err = s.civs.Save(ctx, c)
		}
		if err != nil {
			return fmt.Errorf("restoring civilization %s: %w", c.ID, err)
		}
	}

	for i := range world.Relationships {
		if err := s.rels.Save(ctx, &world.Relationships[i]); err != nil {
			return fmt.Errorf("restoring relationship %s: %w", world.Relationships[i].Key, err)
		}
	}

	// The tail is newest-first; append oldest-first to preserve log order.
	for i := len(world.Events) - 1; i >= 0; i-- {
		rec := &world.Events[i]
		if err := s.events.Append(ctx, rec); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				continue
			}
			s.logger.Warn("skipping event on restore", "id", rec.ID, "error", err)
		}
	}

	s.logger.Info("snapshot imported",
		"civs", len(world.Civilizations),
		"relationships", len(world.Relationships),
		"events", len(world.Events))
	return nil
}
