// Package config loads engine configuration from an optional YAML file and
// environment variables. Gameplay balance (ideology table, cooldowns, combat
// tuning, event catalog, action economy) lives in a separate gameplay file
// so it can be rebalanced without code changes; compiled-in defaults apply
// when no file is given.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ganot/warciv/internal/domain/combat"
	"github.com/ganot/warciv/internal/domain/cooldown"
	"github.com/ganot/warciv/internal/domain/event"
	"github.com/ganot/warciv/internal/domain/modifier"
	"github.com/ganot/warciv/internal/engine"
)

// Config defines engine configuration.
type Config struct {
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Engine    EngineConfig    `yaml:"engine"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type EngineConfig struct {
	// Seed fixes the random source for reproducible runs; 0 means seed
	// from the clock.
	Seed          int64   `yaml:"seed"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

type SchedulerConfig struct {
	LocalEvery  time.Duration `yaml:"local_every"`
	GlobalEvery time.Duration `yaml:"global_every"`
}

type SnapshotConfig struct {
	// Path, when set, is written on shutdown.
	Path string `yaml:"path"`
}

// Gameplay bundles every balance table the engine consumes.
type Gameplay struct {
	Modifiers modifier.Table     `yaml:"modifiers"`
	Cooldowns cooldown.Table     `yaml:"cooldowns"`
	Combat    combat.Tuning      `yaml:"combat"`
	Events    event.Catalog      `yaml:"events"`
	Economy   engine.Economy     `yaml:"economy"`
	Items     engine.ItemCatalog `yaml:"items"`
}

// Load reads configuration from an optional YAML file and environment
// variables.
func Load() (Config, error) {
	cfg := Config{
		DB: DBConfig{
			Path: "warciv.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Engine: EngineConfig{
			RatePerSecond: 50,
			Burst:         100,
		},
		Scheduler: SchedulerConfig{
			LocalEvery:  5 * time.Minute,
			GlobalEvery: 30 * time.Minute,
		},
	}

	if path := os.Getenv("WARCIV_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if dbPath := os.Getenv("WARCIV_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("WARCIV_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if seedStr := os.Getenv("WARCIV_SEED"); seedStr != "" {
		seed, err := strconv.ParseInt(seedStr, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WARCIV_SEED: %w", err)
		}
		cfg.Engine.Seed = seed
	}
	if snapPath := os.Getenv("WARCIV_SNAPSHOT_PATH"); snapPath != "" {
		cfg.Snapshot.Path = snapPath
	}

	return cfg, nil
}

// LoadGameplay reads the gameplay balance file named by path, or by
// WARCIV_GAMEPLAY_PATH when path is empty, falling back to the compiled-in
// defaults. A file may override any subset; unset sections keep their
// defaults.
func LoadGameplay(path string) (Gameplay, error) {
	gp := Gameplay{
		Modifiers: modifier.DefaultTable(),
		Cooldowns: cooldown.DefaultTable(),
		Combat:    combat.DefaultTuning(),
		Events:    event.DefaultCatalog(),
		Economy:   engine.DefaultEconomy(),
		Items:     engine.DefaultItems(),
	}

	if path == "" {
		path = os.Getenv("WARCIV_GAMEPLAY_PATH")
	}
	if path == "" {
		return gp, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Gameplay{}, fmt.Errorf("read gameplay file: %w", err)
	}
	if err := yaml.Unmarshal(data, &gp); err != nil {
		return Gameplay{}, fmt.Errorf("parse gameplay file: %w", err)
	}
	return gp, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
