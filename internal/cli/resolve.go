package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/roomstate/internal/event"
	"github.com/roach88/roomstate/internal/stateres"
	"github.com/roach88/roomstate/internal/store"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Store StoreOptions
	Rules RulesOptions

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to stateres.UUIDv7Generator.
	RunIDs stateres.RunIDGenerator
}

// ResolveInput is the input file of the resolve command.
type ResolveInput struct {
	RoomID      string          `json:"room_id"`
	RoomVersion string          `json:"room_version,omitempty"`
	Events      []*event.Event  `json:"events"`
	StateMaps   [][]event.Entry `json:"state_maps"`
}

// ResolveOutput is the result of the resolve command.
type ResolveOutput struct {
	RoomID   string         `json:"room_id,omitempty"`
	State    []event.Entry  `json:"state"`
	Rejected []string       `json:"rejected"`
	Hash     string         `json:"state_hash"`
	Stats    stateres.Stats `json:"stats"`
	Recorded bool           `json:"snapshot_recorded"`
}

// WriteText renders the output as a table.
func (o ResolveOutput) WriteText(w io.Writer) error {
	for _, e := range o.State {
		fmt.Fprintf(w, "%-28s %-32q %s\n", e.Type, e.StateKey, e.EventID)
	}
	for _, id := range o.Rejected {
		fmt.Fprintf(w, "rejected %s\n", id)
	}
	_, err := fmt.Fprintf(w, "state hash %s (%d conflicted, %d rejected)\n",
		o.Hash, o.Stats.Conflicted, len(o.Rejected))
	return err
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <input.json>",
		Short: "Resolve forked room states",
		Long: `Resolve the state maps of an input file into one room state.

The input lists the events involved and one state map per fork:

  {
    "room_id": "!room:example.org",
    "room_version": "10",
    "events": [ ... ],
    "state_maps": [[{"type": "m.room.create", "state_key": "", "event_id": "$c"}, ...], ...]
  }

Events missing from the file are looked up in the store, if one is given.
With a store, the input events are written to it and the resolved state is
recorded as a snapshot.

Example:
  roomstate resolve fork.json
  roomstate resolve fork.json --db ./room.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], cmd)
		},
	}

	rootOpts.addStoreFlags(cmd, &opts.Store)
	rootOpts.addRulesFlags(cmd, &opts.Rules)

	return cmd
}

func runResolve(opts *ResolveOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := opts.logger(cmd)
	out := opts.formatter(cmd)

	var in ResolveInput
	if err := readJSONFile(path, &in); err != nil {
		return err
	}
	if len(in.StateMaps) == 0 {
		return NewExitError(ExitCommandError, "input has no state maps")
	}

	ruleOpts := opts.Rules
	if in.RoomVersion != "" && !cmd.Flags().Changed("room-version") {
		ruleOpts.RoomVersion = in.RoomVersion
	}
	rules, err := ruleOpts.rules()
	if err != nil {
		return err
	}

	fetcher := store.Chain{store.NewMemory(in.Events...)}
	var backend eventStore
	if opts.Store.configured() {
		st, closeStore, err := opts.Store.open(ctx)
		if err != nil {
			return err
		}
		defer closeStore()
		if err := st.WriteEvents(ctx, in.Events); err != nil {
			return WrapExitError(ExitCommandError, "failed to store input events", err)
		}
		backend = st
		fetcher = append(fetcher, st)
	}

	stateMaps := make([]event.StateMap, len(in.StateMaps))
	for i, entries := range in.StateMaps {
		stateMaps[i] = event.FromEntries(entries)
	}

	resolverOpts := []stateres.Option{stateres.WithLogger(logger)}
	if opts.RunIDs != nil {
		resolverOpts = append(resolverOpts, stateres.WithRunIDGenerator(opts.RunIDs))
	}
	res, err := stateres.Resolve(ctx, rules, stateMaps, fetcher, resolverOpts...)
	if err != nil {
		var resErr *stateres.Error
		if errors.As(err, &resErr) {
			_ = out.Error(CodeResolve, resErr.Error(), map[string]string{"code": string(resErr.Code)})
		}
		return WrapExitError(ExitFailure, "state resolution failed", err)
	}

	output := ResolveOutput{
		RoomID:   in.RoomID,
		State:    res.State.Entries(),
		Rejected: res.Rejected,
		Hash:     res.State.Hash(),
		Stats:    res.Stats,
	}
	if backend != nil {
		if in.RoomID == "" {
			return NewExitError(ExitCommandError, "room_id is required to record a snapshot")
		}
		if _, err := backend.WriteSnapshot(ctx, in.RoomID, res.RunID, res.State); err != nil {
			return WrapExitError(ExitCommandError, "failed to record snapshot", err)
		}
		output.Recorded = true
	}

	out.VerboseLog("resolved %d state maps in run %s", len(stateMaps), res.RunID)
	return out.SuccessRun(res.RunID, output)
}
