package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/dagclosure/internal/model"
)

// NewConnectCommand creates the connect command.
func NewConnectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "connect <from> <to>",
		Short: "Add a direct arc",
		Long: `Add a direct arc from one node to another and rewire the closure.

An existing indirect record for the pair is promoted to direct. The arc is
refused when it would close a cycle or when the pair is already direct.

Examples:
  dagctl connect a b
  dagctl --polymorphic connect Org:acme Team:eng`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(rootOpts, cmd, "connect", func(s *session) (*model.Link, error) {
				l, err := s.engine.Connect(cmd.Context(), args[0], args[1])
				return &l, err
			})
		},
	}
}

// NewDisconnectCommand creates the disconnect command.
func NewDisconnectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <from> <to>",
		Short: "Remove a direct arc",
		Long: `Remove the record for a pair and retract its paths from the closure.

Only a direct arc with no other supporting path, or an unsupported record,
can be removed. A derived record fails with NOT_DESTROYABLE.

Example:
  dagctl disconnect a b`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(rootOpts, cmd, "disconnect", func(s *session) (*model.Link, error) {
				return nil, s.engine.Disconnect(cmd.Context(), args[0], args[1])
			})
		},
	}
}

// NewSetDirectCommand creates the set-direct command.
func NewSetDirectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-direct <from> <to> <true|false>",
		Short: "Promote or demote an existing record",
		Long: `Flip the direct flag of an existing record and rewire the closure.

Demoting a direct record that no other path supports is refused; use
disconnect to remove it.

Examples:
  dagctl set-direct a c true
  dagctl set-direct a c false`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			direct, err := strconv.ParseBool(args[2])
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid direct flag %q", args[2]), err)
			}
			return runMutation(rootOpts, cmd, "set-direct", func(s *session) (*model.Link, error) {
				l, err := s.engine.SetDirect(cmd.Context(), args[0], args[1], direct)
				return &l, err
			})
		},
	}
}

// runMutation opens a session, runs fn and reports the resulting record.
// fn returns a nil record when the pair no longer exists.
func runMutation(opts *RootOptions, cmd *cobra.Command, op string, fn func(s *session) (*model.Link, error)) error {
	f := newFormatter(opts, cmd)

	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	l, err := fn(s)
	if err != nil {
		return f.EngineError(op, err)
	}
	if l == nil {
		return f.Success(map[string]string{"result": "removed"})
	}
	f.VerboseLog("%s: record %d", op, l.ID)
	return f.Success(l)
}
