package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand(testConfig)
	require.NotNil(t, cmd)
	assert.Equal(t, "roomstate", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(testConfig)
	commands := []string{"resolve", "import", "auth-chain", "check", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand(testConfig)

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestFlagDefaultsFromConfig(t *testing.T) {
	cfg := testConfig
	cfg.DB = "/var/lib/roomstate.db"
	cfg.RoomVersion = "11"
	cmd := NewRootCommand(cfg)

	for _, name := range []string{"resolve", "import", "check"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, "/var/lib/roomstate.db", sub.Flags().Lookup("db").DefValue)
			assert.Equal(t, "11", sub.Flags().Lookup("room-version").DefValue)
			assert.NotNil(t, sub.Flags().Lookup("pg"))
			assert.NotNil(t, sub.Flags().Lookup("rules"))
		})
	}

	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)
	assert.Equal(t, "2", testCmd.Flags().Lookup("concurrency").DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "test", t.TempDir(), "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}
