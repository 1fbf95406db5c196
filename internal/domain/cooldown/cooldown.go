// Package cooldown gates actions by (civilization, action) pair. Admission
// and the timestamp update are one atomic step under a per-pair lock, so
// concurrent requests inside the same window admit exactly once.
package cooldown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ganot/warciv/internal/repository"
)

// ErrActive indicates the gate rejected an action still on cooldown.
var ErrActive = errors.New("cooldown active")

// ActiveError carries the remaining wait for user-facing messaging. It
// matches ErrActive under errors.Is.
type ActiveError struct {
	Action    string
	Remaining time.Duration
}

func (e *ActiveError) Error() string {
	return fmt.Sprintf("%s on cooldown for %s", e.Action, e.Remaining.Round(time.Second))
}

func (e *ActiveError) Is(target error) bool { return target == ErrActive }

// Table is the base cooldown configuration. Minimum bounds the effective
// duration from below so modifier stacking can never produce a zero
// cooldown.
type Table struct {
	Base    map[string]time.Duration `yaml:"base"`
	Default time.Duration            `yaml:"default"`
	Minimum time.Duration            `yaml:"minimum"`
}

// DefaultTable returns the built-in cooldown durations, following the
// classic pacing: cheap economy actions short, military medium, the
// nuclear option very long.
func DefaultTable() Table {
	return Table{
		Base: map[string]time.Duration{
			"gather":   time.Minute,
			"send":     time.Minute,
			"expand":   2 * time.Minute,
			"train":    5 * time.Minute,
			"research": 10 * time.Minute,
			"spy":      15 * time.Minute,
			"attack":   10 * time.Minute,
			"nuke":     24 * time.Hour,
		},
		Default: 5 * time.Minute,
		Minimum: 10 * time.Second,
	}
}

// Repository provides durable last-invocation timestamps.
type Repository interface {
	Get(ctx context.Context, civID, action string) (time.Time, error)
	Save(ctx context.Context, civID, action string, t time.Time) error
}

// Gate decides admission per (civilization, action) pair.
type Gate struct {
	repo   Repository
	table  Table
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewGate creates a cooldown gate over the given table.
func NewGate(repo Repository, table Table, logger *slog.Logger) *Gate {
	return &Gate{
		repo:   repo,
		table:  table,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Effective returns the cooldown for an action after applying the modifier
// scale, floored at the configured minimum.
func (g *Gate) Effective(action string, scale float64) time.Duration {
	base, ok := g.table.Base[action]
	if !ok {
		base = g.table.Default
	}
	if scale <= 0 {
		scale = 1
	}
	d := time.Duration(float64(base) * scale)
	if d < g.table.Minimum {
		d = g.table.Minimum
	}
	return d
}

// TryAdmit admits the action iff the effective cooldown has elapsed since
// the last successful invocation (or none exists), recording now as the new
// last invocation in the same critical section. On rejection it returns an
// *ActiveError with the remaining wait; no state changes.
func (g *Gate) TryAdmit(ctx context.Context, civID, action string, now time.Time, scale float64) error {
	lock := g.pairLock(civID + "\x00" + action)
	lock.Lock()
	defer lock.Unlock()

	last, err := g.repo.Get(ctx, civID, action)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// First invocation, always admitted.
	case err != nil:
		return fmt.Errorf("loading cooldown: %w", err)
	default:
		effective := g.Effective(action, scale)
		if elapsed := now.Sub(last); elapsed < effective {
			return &ActiveError{Action: action, Remaining: effective - elapsed}
		}
	}

	if err := g.repo.Save(ctx, civID, action, now); err != nil {
		return fmt.Errorf("recording cooldown: %w", err)
	}
	return nil
}

// Remaining reports the wait left for an action without admitting it.
func (g *Gate) Remaining(ctx context.Context, civID, action string, now time.Time, scale float64) (time.Duration, error) {
	last, err := g.repo.Get(ctx, civID, action)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("loading cooldown: %w", err)
	}
	left := g.Effective(action, scale) - now.Sub(last)
	if left < 0 {
		left = 0
	}
	return left, nil
}

func (g *Gate) pairLock(key string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	lock, ok := g.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[key] = lock
	}
	return lock
}
