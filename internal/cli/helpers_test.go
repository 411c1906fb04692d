package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/roomstate/internal/config"
	"github.com/roach88/roomstate/internal/event"
	"github.com/roach88/roomstate/internal/testutil"
)

const (
	alice = "@alice:foo"
	bob   = "@bob:foo"
)

var testConfig = config.Config{RoomVersion: "10", Concurrency: 2}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand(testConfig)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeJSON writes v to dir/name and returns the path.
func writeJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// topicRoom: alice (100) and bob (50) both joined a public room and
// set the topic on separate forks.
func topicRoom() *testutil.Room {
	r := testutil.NewRoom("!test:foo")
	r.State("$create", alice, event.TypeCreate, "", `{"creator":"@alice:foo"}`)
	r.Member("$ima", alice, alice, event.MembershipJoin, "$create")
	r.State("$ipower", alice, event.TypePowerLevels, "", `{"users":{"@alice:foo":100,"@bob:foo":50}}`, "$create", "$ima")
	r.State("$ijr", alice, event.TypeJoinRules, "", `{"join_rule":"public"}`, "$create", "$ima", "$ipower")
	r.Member("$imb", bob, bob, event.MembershipJoin, "$create", "$ijr", "$ipower")
	r.State("$t1", alice, event.TypeTopic, "", `{"topic":"alice was here"}`, "$create", "$ipower", "$ima")
	r.State("$t2", bob, event.TypeTopic, "", `{"topic":"bob was here"}`, "$create", "$ipower", "$imb")
	return r
}

var baseIDs = []string{"$create", "$ima", "$ipower", "$ijr", "$imb"}

func resolveInput(r *testutil.Room) ResolveInput {
	fork := func(extra string) []event.Entry {
		return r.StateOf(append(append([]string{}, baseIDs...), extra)...).Entries()
	}
	return ResolveInput{
		RoomID:      r.ID,
		RoomVersion: "6",
		Events:      r.Events(),
		StateMaps:   [][]event.Entry{fork("$t1"), fork("$t2")},
	}
}
