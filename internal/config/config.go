// Package config loads roomstate defaults from the environment. Command line
// flags override these values.
package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/roomstate/internal/roomversion"
)

// Config holds environment defaults shared by every command.
type Config struct {
	DB          string     `env:"ROOMSTATE_DB"`
	PgDSN       string     `env:"ROOMSTATE_PG_DSN"`
	RoomVersion string     `env:"ROOMSTATE_ROOM_VERSION" envDefault:"10"`
	RulesFile   string     `env:"ROOMSTATE_RULES_FILE"`
	LogLevel    slog.Level `env:"ROOMSTATE_LOG_LEVEL"    envDefault:"INFO"`
	Concurrency int        `env:"ROOMSTATE_CONCURRENCY"  envDefault:"4"`
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Concurrency < 1 {
		return Config{}, fmt.Errorf("parse env: ROOMSTATE_CONCURRENCY must be at least 1, got %d", cfg.Concurrency)
	}
	return cfg, nil
}

// Rules returns the authorization rules: the CUE rule set when RulesFile is
// set, the RoomVersion preset otherwise.
func (c Config) Rules() (roomversion.AuthRules, error) {
	if c.RulesFile != "" {
		return roomversion.LoadCUEFile(c.RulesFile)
	}
	return roomversion.ForVersion(c.RoomVersion)
}
