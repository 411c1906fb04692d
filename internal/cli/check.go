package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/roomstate/internal/auth"
	"github.com/roach88/roomstate/internal/store"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Store StoreOptions
	Rules RulesOptions
}

// CheckResult is the outcome for one event.
type CheckResult struct {
	EventID string `json:"event_id"`
	Allowed bool   `json:"allowed"`
	Code    string `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// CheckOutput is the result of the check command.
type CheckOutput struct {
	Results []CheckResult `json:"results"`
}

// WriteText renders one line per event.
func (o CheckOutput) WriteText(w io.Writer) error {
	for _, r := range o.Results {
		var err error
		if r.Allowed {
			_, err = fmt.Fprintf(w, "✓ %s\n", r.EventID)
		} else {
			_, err = fmt.Fprintf(w, "✗ %s %s: %s\n", r.EventID, r.Code, r.Reason)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// rejected counts the events that failed.
func (o CheckOutput) rejected() int {
	n := 0
	for _, r := range o.Results {
		if !r.Allowed {
			n++
		}
	}
	return n
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <event-id>...",
		Short: "Run state-independent checks on stored events",
		Long: `Check stored events against the rules that need only the event and the
auth events it lists.

Exit codes:
  0 - All events pass
  1 - One or more events are rejected
  2 - Command error (event not stored, store not reachable, etc.)

Example:
  roomstate check '$member:example.org' --db ./room.db --room-version 11`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args, cmd)
		},
	}

	rootOpts.addStoreFlags(cmd, &opts.Store)
	rootOpts.addRulesFlags(cmd, &opts.Rules)

	return cmd
}

func runCheck(opts *CheckOptions, ids []string, cmd *cobra.Command) error {
	ctx := cmd.Context()

	rules, err := opts.Rules.rules()
	if err != nil {
		return err
	}
	st, closeStore, err := opts.Store.open(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	output := CheckOutput{Results: make([]CheckResult, 0, len(ids))}
	for _, id := range ids {
		ev, err := st.Event(ctx, id)
		if err != nil {
			if store.IsAbsent(err) {
				return WrapExitError(ExitCommandError, fmt.Sprintf("event %s not stored", id), err)
			}
			return WrapExitError(ExitCommandError, "failed to read event", err)
		}

		err = auth.CheckStateIndependent(ctx, rules, ev, st)
		switch {
		case err == nil:
			output.Results = append(output.Results, CheckResult{EventID: id, Allowed: true})
		case auth.IsRejection(err):
			output.Results = append(output.Results, CheckResult{
				EventID: id,
				Code:    string(auth.CodeOf(err)),
				Reason:  err.Error(),
			})
		default:
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to check %s", id), err)
		}
	}

	if err := opts.formatter(cmd).Success(output); err != nil {
		return err
	}
	if n := output.rejected(); n > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d event(s) rejected", n))
	}
	return nil
}
