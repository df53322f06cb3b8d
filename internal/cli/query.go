package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dagclosure/internal/model"
)

// NewLinkCommand creates the link command.
func NewLinkCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "link <from> <to>",
		Short: "Show the closure record for a pair",
		Long: `Show the closure record for a pair: whether it is direct and how many
distinct paths justify it. Exits 1 when the nodes are not connected.

Example:
  dagctl link a c`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			l, err := s.engine.FindLink(cmd.Context(), args[0], args[1])
			if err != nil {
				return f.EngineError("link", err)
			}
			if l == nil {
				msg := fmt.Sprintf("%s is not connected to %s", args[0], args[1])
				_ = f.Error(ErrCodeNotFound, msg, nil)
				return NewExitError(ExitFailure, msg)
			}
			return f.Success(l)
		},
	}
}

// navigation describes one of the node listing commands.
type navigation struct {
	use   string
	short string
	all   func(ctx context.Context, s *session, n string) ([]model.NodeRef, error)
	typed func(ctx context.Context, s *session, n, typ string) ([]model.NodeRef, error)
}

var (
	navAncestors = navigation{
		use:   "ancestors",
		short: "List every node that reaches the given node",
		all: func(ctx context.Context, s *session, n string) ([]model.NodeRef, error) {
			return s.engine.Ancestors(ctx, n)
		},
		typed: func(ctx context.Context, s *session, n, typ string) ([]model.NodeRef, error) {
			return s.engine.AncestorsOfType(ctx, n, typ)
		},
	}
	navDescendants = navigation{
		use:   "descendants",
		short: "List every node reachable from the given node",
		all: func(ctx context.Context, s *session, n string) ([]model.NodeRef, error) {
			return s.engine.Descendants(ctx, n)
		},
		typed: func(ctx context.Context, s *session, n, typ string) ([]model.NodeRef, error) {
			return s.engine.DescendantsOfType(ctx, n, typ)
		},
	}
	navParents = navigation{
		use:   "parents",
		short: "List the sources of direct arcs into the given node",
		all: func(ctx context.Context, s *session, n string) ([]model.NodeRef, error) {
			return s.engine.Parents(ctx, n)
		},
		typed: func(ctx context.Context, s *session, n, typ string) ([]model.NodeRef, error) {
			return s.engine.ParentsOfType(ctx, n, typ)
		},
	}
	navChildren = navigation{
		use:   "children",
		short: "List the targets of direct arcs out of the given node",
		all: func(ctx context.Context, s *session, n string) ([]model.NodeRef, error) {
			return s.engine.Children(ctx, n)
		},
		typed: func(ctx context.Context, s *session, n, typ string) ([]model.NodeRef, error) {
			return s.engine.ChildrenOfType(ctx, n, typ)
		},
	}
)

// NewNavigateCommand creates one of ancestors, descendants, parents or
// children.
func NewNavigateCommand(rootOpts *RootOptions, nav navigation) *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   nav.use + " <node>",
		Short: nav.short,
		Long: nav.short + `.

With --type only nodes carrying that type tag are listed; this requires
--polymorphic.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var nodes []model.NodeRef
			if typ != "" {
				nodes, err = nav.typed(cmd.Context(), s, args[0], typ)
			} else {
				nodes, err = nav.all(cmd.Context(), s, args[0])
			}
			if err != nil {
				return f.EngineError(nav.use, err)
			}
			return f.Lines(nodes, nodeLines(nodes))
		},
	}

	cmd.Flags().StringVar(&typ, "type", "", "only list nodes of this type")

	return cmd
}

// NewPathCommand creates the path command.
func NewPathCommand(rootOpts *RootOptions) *cobra.Command {
	var shortest bool

	cmd := &cobra.Command{
		Use:   "path <from> <to>",
		Short: "Show a longest or shortest chain of direct arcs",
		Long: `Show the nodes on a longest chain of direct arcs between two nodes,
excluding the start and ending with the target. Prints nothing when the
target is not reachable.

Examples:
  dagctl path a d
  dagctl path a d --shortest`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			find := s.engine.LongestPathBetween
			if shortest {
				find = s.engine.ShortestPathBetween
			}
			path, err := find(cmd.Context(), args[0], args[1])
			if err != nil {
				return f.EngineError("path", err)
			}
			return f.Lines(path, nodeLines(path))
		},
	}

	cmd.Flags().BoolVar(&shortest, "shortest", false, "fewest arcs instead of most")

	return cmd
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	From     string
	To       string
	Direct   bool
	Indirect bool
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List closure records",
		Long: `List closure records ordered by ancestor, then descendant.

Examples:
  dagctl list
  dagctl list --from a --direct`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "only records starting at this node")
	cmd.Flags().StringVar(&opts.To, "to", "", "only records ending at this node")
	cmd.Flags().BoolVar(&opts.Direct, "direct", false, "only direct arcs")
	cmd.Flags().BoolVar(&opts.Indirect, "indirect", false, "only derived records")
	cmd.MarkFlagsMutuallyExclusive("direct", "indirect")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var q model.Query
	resolver := s.engine.Resolver()
	if opts.From != "" {
		ref, err := resolver.From(opts.From)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --from", err)
		}
		q.Ancestor = &ref
	}
	if opts.To != "" {
		ref, err := resolver.From(opts.To)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --to", err)
		}
		q.Descendant = &ref
	}
	switch {
	case opts.Direct:
		q.Direct = model.DirectOnly
	case opts.Indirect:
		q.Direct = model.IndirectOnly
	}

	links, err := s.engine.Links(cmd.Context(), q)
	if err != nil {
		return f.EngineError("list", err)
	}
	lines := make([]string, len(links))
	for i, l := range links {
		lines[i] = l.String()
	}
	return f.Lines(links, lines)
}

func nodeLines(nodes []model.NodeRef) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.String()
	}
	return out
}
