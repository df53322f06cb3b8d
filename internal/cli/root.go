package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Config is an optional YAML or CUE file. Flags below override it.
	Config      string
	Driver      string
	Database    string
	Polymorphic bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the dagctl CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "dagctl",
		Short: "dagctl - transitive closure of a DAG",
		Long: `Maintain and query the materialized transitive closure of a directed
acyclic graph. Every reachable pair has one record holding whether it is a
direct arc and how many distinct paths justify it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "config file (.yaml, .yml or .cue)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "store driver (sqlite|badger|memory)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "SQLite file or Badger directory")
	cmd.PersistentFlags().BoolVar(&opts.Polymorphic, "polymorphic", false, "typed node references (type:id)")

	// Mutations
	cmd.AddCommand(NewConnectCommand(opts))
	cmd.AddCommand(NewDisconnectCommand(opts))
	cmd.AddCommand(NewSetDirectCommand(opts))

	// Queries
	cmd.AddCommand(NewLinkCommand(opts))
	cmd.AddCommand(NewNavigateCommand(opts, navAncestors))
	cmd.AddCommand(NewNavigateCommand(opts, navDescendants))
	cmd.AddCommand(NewNavigateCommand(opts, navParents))
	cmd.AddCommand(NewNavigateCommand(opts, navChildren))
	cmd.AddCommand(NewPathCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))

	cmd.AddCommand(NewScenarioCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
