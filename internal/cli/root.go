package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/roomstate/internal/config"
	"github.com/roach88/roomstate/internal/roomversion"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Config holds the environment defaults for command flags.
	Config config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the roomstate CLI. cfg
// supplies flag defaults.
func NewRootCommand(cfg config.Config) *cobra.Command {
	opts := &RootOptions{Config: cfg}

	cmd := &cobra.Command{
		Use:   "roomstate",
		Short: "roomstate - Matrix room state resolution",
		Long: `Resolve forked Matrix room states with state resolution v2, and
store, inspect and check the events they are built from.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewAuthChainCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// logger builds the command logger. Logs go to the command's stderr, at
// Debug under --verbose and at the configured level otherwise.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := o.Config.LogLevel
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// formatter builds the output formatter for a command.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// RulesOptions selects the authorization rules of a command.
type RulesOptions struct {
	RoomVersion string
	RulesFile   string
}

func (o *RootOptions) addRulesFlags(cmd *cobra.Command, ro *RulesOptions) {
	cmd.Flags().StringVar(&ro.RoomVersion, "room-version", o.Config.RoomVersion, "room version of the authorization rules")
	cmd.Flags().StringVar(&ro.RulesFile, "rules", o.Config.RulesFile, "CUE rule set file (overrides --room-version)")
}

// rules resolves the selected rules.
func (ro RulesOptions) rules() (roomversion.AuthRules, error) {
	rules, err := config.Config{RoomVersion: ro.RoomVersion, RulesFile: ro.RulesFile}.Rules()
	if err != nil {
		return roomversion.AuthRules{}, WrapExitError(ExitCommandError, "failed to load rules", err)
	}
	return rules, nil
}
