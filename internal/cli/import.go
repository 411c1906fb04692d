package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/roomstate/internal/auth"
	"github.com/roach88/roomstate/internal/event"
	"github.com/roach88/roomstate/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Store     StoreOptions
	Rules     RulesOptions
	VerifyIDs bool
}

// Rejection describes an event that failed a check.
type Rejection struct {
	EventID string `json:"event_id"`
	Code    string `json:"code"`
	Reason  string `json:"reason"`
}

// ImportOutput is the result of the import command.
type ImportOutput struct {
	Imported int         `json:"imported"`
	Rejected []Rejection `json:"rejected"`
}

// WriteText renders the output.
func (o ImportOutput) WriteText(w io.Writer) error {
	for _, r := range o.Rejected {
		fmt.Fprintf(w, "✗ %s %s: %s\n", r.EventID, r.Code, r.Reason)
	}
	_, err := fmt.Fprintf(w, "Imported %d events (%d marked rejected)\n", o.Imported, len(o.Rejected))
	return err
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <events.json>",
		Short: "Check and store events",
		Long: `Store a JSON array of events.

Each event is checked against the rules that need only the event and its
auth events, which may come from the same file or the store. Events that
fail are stored with their rejected flag set, so resolution never uses them
to authorize other events.

Example:
  roomstate import events.json --db ./room.db
  roomstate import events.json --pg postgres://localhost/rooms --verify-ids`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	rootOpts.addStoreFlags(cmd, &opts.Store)
	rootOpts.addRulesFlags(cmd, &opts.Rules)
	cmd.Flags().BoolVar(&opts.VerifyIDs, "verify-ids", false, "require event IDs to match their reference hash")

	return cmd
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := opts.logger(cmd)

	var evs []*event.Event
	if err := readJSONFile(path, &evs); err != nil {
		return err
	}
	rules, err := opts.Rules.rules()
	if err != nil {
		return err
	}
	st, closeStore, err := opts.Store.open(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if opts.VerifyIDs {
		for _, ev := range evs {
			id, err := event.ComputeID(ev)
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("failed to hash %s", ev.ID), err)
			}
			if id != ev.ID {
				return NewExitError(ExitCommandError, fmt.Sprintf("event %s has reference hash %s", ev.ID, id))
			}
		}
	}

	fetcher := store.Chain{store.NewMemory(evs...), st}
	output := ImportOutput{Imported: len(evs), Rejected: []Rejection{}}
	for _, ev := range evs {
		err := auth.CheckStateIndependent(ctx, rules, ev, fetcher)
		if err == nil {
			continue
		}
		if !auth.IsRejection(err) {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to check %s", ev.ID), err)
		}
		ev.Rejected = true
		output.Rejected = append(output.Rejected, Rejection{
			EventID: ev.ID,
			Code:    string(auth.CodeOf(err)),
			Reason:  err.Error(),
		})
		logger.Warn("event rejected on import", "event_id", ev.ID, "code", auth.CodeOf(err))
	}

	if err := st.WriteEvents(ctx, evs); err != nil {
		return WrapExitError(ExitCommandError, "failed to store events", err)
	}
	logger.Info("events imported", "count", len(evs), "rejected", len(output.Rejected))
	return opts.formatter(cmd).Success(output)
}
