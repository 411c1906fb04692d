package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "10", cfg.RoomVersion)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Empty(t, cfg.DB)
	assert.Empty(t, cfg.PgDSN)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ROOMSTATE_DB", "/tmp/rs.db")
	t.Setenv("ROOMSTATE_PG_DSN", "postgres://localhost/rs")
	t.Setenv("ROOMSTATE_ROOM_VERSION", "6")
	t.Setenv("ROOMSTATE_LOG_LEVEL", "debug")
	t.Setenv("ROOMSTATE_CONCURRENCY", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Config{
		DB:          "/tmp/rs.db",
		PgDSN:       "postgres://localhost/rs",
		RoomVersion: "6",
		LogLevel:    slog.LevelDebug,
		Concurrency: 8,
	}, cfg)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad concurrency", "ROOMSTATE_CONCURRENCY", "many"},
		{"zero concurrency", "ROOMSTATE_CONCURRENCY", "0"},
		{"bad level", "ROOMSTATE_LOG_LEVEL", "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "parse env:")
		})
	}
}

func TestRules(t *testing.T) {
	rules, err := Config{RoomVersion: "6"}.Rules()
	require.NoError(t, err)
	assert.Equal(t, "6", rules.Version)

	_, err = Config{RoomVersion: "99"}.Rules()
	require.Error(t, err)

	_, err = Config{RoomVersion: "6", RulesFile: filepath.Join(t.TempDir(), "missing.cue")}.Rules()
	require.Error(t, err)
}

func TestRules_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.cue")
	require.NoError(t, os.WriteFile(path, []byte("rules: {\n\tversion: \"10\"\n}\n"), 0644))

	rules, err := Config{RoomVersion: "6", RulesFile: path}.Rules()
	require.NoError(t, err)
	assert.True(t, rules.IntegerPowerLevels)
}
