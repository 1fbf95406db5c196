package engine

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler drives the periodic event ticks. Each tick goes through the
// dispatcher's locking, so scheduled events and player actions never race.
type Scheduler struct {
	engine *Engine
	logger *slog.Logger

	localEvery  time.Duration
	globalEvery time.Duration
}

// NewScheduler creates a scheduler with the given tick periods.
func NewScheduler(engine *Engine, localEvery, globalEvery time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		engine:      engine,
		logger:      logger,
		localEvery:  localEvery,
		globalEvery: globalEvery,
	}
}

// Run blocks until the context is canceled, firing event ticks on their
// periods. Tick errors are logged and the loop keeps going.
func (s *Scheduler) Run(ctx context.Context) {
	local := time.NewTicker(s.localEvery)
	defer local.Stop()
	global := time.NewTicker(s.globalEvery)
	defer global.Stop()

	s.logger.Info("scheduler started", "local_every", s.localEvery, "global_every", s.globalEvery)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case now := <-local.C:
			if err := s.engine.TickLocal(ctx, now); err != nil {
				s.logger.Error("local tick", "error", err)
			}
		case now := <-global.C:
			if err := s.engine.TickGlobal(ctx, now); err != nil {
				s.logger.Error("global tick", "error", err)
			}
		}
	}
}
