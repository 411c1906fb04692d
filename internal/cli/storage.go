package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/roomstate/internal/event"
	"github.com/roach88/roomstate/internal/store"
)

// StoreOptions selects the event store of a command.
type StoreOptions struct {
	Database string // SQLite path
	PgDSN    string // PostgreSQL connection string
}

func (o *RootOptions) addStoreFlags(cmd *cobra.Command, so *StoreOptions) {
	cmd.Flags().StringVar(&so.Database, "db", o.Config.DB, "path to SQLite database")
	cmd.Flags().StringVar(&so.PgDSN, "pg", o.Config.PgDSN, "PostgreSQL connection string")
	cmd.MarkFlagsMutuallyExclusive("db", "pg")
}

// eventStore is what commands need from a backend.
type eventStore interface {
	store.Fetcher
	WriteEvents(ctx context.Context, evs []*event.Event) error
	WriteSnapshot(ctx context.Context, roomID, runID string, state event.StateMap) (string, error)
}

// authChainer is implemented by stores that walk auth chains themselves.
type authChainer interface {
	AuthChainIDs(ctx context.Context, ids []string) ([]string, error)
}

// configured reports whether a store was selected.
func (so StoreOptions) configured() bool {
	return so.Database != "" || so.PgDSN != ""
}

// open opens the selected store. The returned function closes it.
func (so StoreOptions) open(ctx context.Context) (eventStore, func(), error) {
	switch {
	case so.Database != "" && so.PgDSN != "":
		return nil, nil, NewExitError(ExitCommandError, "--db and --pg are mutually exclusive")
	case so.Database != "":
		st, err := store.Open(so.Database)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		return st, func() { _ = st.Close() }, nil
	case so.PgDSN != "":
		st, err := store.OpenPg(ctx, so.PgDSN)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to open postgres store", err)
		}
		return st, st.Close, nil
	default:
		return nil, nil, NewExitError(ExitCommandError, "an event store is required (--db or --pg)")
	}
}

// readJSONFile decodes a JSON file into v.
func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to parse %s", path), err)
	}
	return nil
}
