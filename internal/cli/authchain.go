package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/roomstate/internal/stateres"
)

// AuthChainOptions holds flags for the auth-chain command.
type AuthChainOptions struct {
	*RootOptions
	Store StoreOptions
}

// AuthChainOutput is the result of the auth-chain command.
type AuthChainOutput struct {
	Seeds []string `json:"seeds"`
	Chain []string `json:"chain"`
}

// WriteText prints one identifier per line.
func (o AuthChainOutput) WriteText(w io.Writer) error {
	for _, id := range o.Chain {
		if _, err := fmt.Fprintln(w, id); err != nil {
			return err
		}
	}
	return nil
}

// NewAuthChainCommand creates the auth-chain command.
func NewAuthChainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuthChainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "auth-chain <event-id>...",
		Short: "Print the auth chain of events",
		Long: `Print every event reachable from the given events over auth edges,
the events themselves included, sorted.

Example:
  roomstate auth-chain '$topic:example.org' --db ./room.db`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthChain(opts, args, cmd)
		},
	}

	rootOpts.addStoreFlags(cmd, &opts.Store)

	return cmd
}

func runAuthChain(opts *AuthChainOptions, ids []string, cmd *cobra.Command) error {
	ctx := cmd.Context()

	st, closeStore, err := opts.Store.open(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	var chain []string
	if ac, ok := st.(authChainer); ok {
		chain, err = ac.AuthChainIDs(ctx, ids)
	} else {
		var set map[string]struct{}
		set, err = stateres.AuthChain(ctx, st, ids)
		chain = slices.Sorted(maps.Keys(set))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to walk auth chain", err)
	}

	return opts.formatter(cmd).Success(AuthChainOutput{Seeds: ids, Chain: chain})
}
