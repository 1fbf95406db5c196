package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ganot/warciv/internal/config"
	"github.com/ganot/warciv/internal/domain/civ"
	"github.com/ganot/warciv/internal/domain/cooldown"
	"github.com/ganot/warciv/internal/domain/diplomacy"
	"github.com/ganot/warciv/internal/domain/event"
	"github.com/ganot/warciv/internal/engine"
	"github.com/ganot/warciv/internal/snapshot"
	"github.com/ganot/warciv/internal/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	gameplay, err := config.LoadGameplay("")
	if err != nil {
		logger.Error("failed to load gameplay tables", "error", err)
		os.Exit(1)
	}

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	civRepo := sqlite.NewCivRepository(db)
	relRepo := sqlite.NewRelationshipRepository(db)
	cooldownRepo := sqlite.NewCooldownRepository(db)
	eventRepo := sqlite.NewEventRepository(db)

	seed := cfg.Engine.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	civSvc := civ.NewService(civRepo, logger)
	diplSvc := diplomacy.NewService(relRepo, logger)
	gate := cooldown.NewGate(cooldownRepo, gameplay.Cooldowns, logger)
	events := event.NewEngine(eventRepo, gameplay.Events, rand.New(rand.NewSource(seed)), logger)

	eng := engine.New(civSvc, diplSvc, gate, events, rand.New(rand.NewSource(seed+1)), engine.Options{
		Modifiers:     gameplay.Modifiers,
		Tuning:        gameplay.Combat,
		Economy:       gameplay.Economy,
		Items:         gameplay.Items,
		RatePerSecond: cfg.Engine.RatePerSecond,
		Burst:         cfg.Engine.Burst,
	}, logger)

	snapshots := snapshot.NewStore(civRepo, relRepo, eventRepo, logger)

	// Snapshot subcommands run once and exit.
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "export", "import":
			path, err := snapshotArg(os.Args)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			if os.Args[1] == "export" {
				err = exportSnapshot(snapshots, path)
			} else {
				err = importSnapshot(snapshots, path)
			}
			if err != nil {
				logger.Error(os.Args[1]+" failed", "error", err)
				os.Exit(1)
			}
			return
		}
	}

	run(cfg, eng, snapshots, logger)
}

// snapshotArg extracts the file argument of an export/import subcommand.
func snapshotArg(args []string) (string, error) {
	if len(args) < 3 || args[2] == "" {
		return "", fmt.Errorf("usage: %s %s <file>", filepath.Base(args[0]), args[1])
	}
	return args[2], nil
}

func run(cfg config.Config, eng *engine.Engine, snapshots *snapshot.Store, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	scheduler := engine.NewScheduler(eng, cfg.Scheduler.LocalEvery, cfg.Scheduler.GlobalEvery, logger)
	logger.Info("engine started", "db", cfg.DB.Path)
	scheduler.Run(ctx)

	if cfg.Snapshot.Path != "" {
		if err := exportSnapshot(snapshots, cfg.Snapshot.Path); err != nil {
			logger.Error("shutdown snapshot failed", "error", err)
			return
		}
		logger.Info("shutdown snapshot written", "path", cfg.Snapshot.Path)
	}
}

func exportSnapshot(store *snapshot.Store, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	if err := store.Export(context.Background(), f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func importSnapshot(store *snapshot.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()
	return store.Import(context.Background(), f)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
