package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dagclosure/internal/engine"
)

// VerifyResult is the verify command payload.
type VerifyResult struct {
	Exact         bool                 `json:"exact"`
	Discrepancies []engine.Discrepancy `json:"discrepancies"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the closure against the direct arcs",
		Long: `Recompute every path count from the direct arcs and compare the result
with the stored closure.

Exit codes:
  0 - Closure is exact
  1 - Discrepancies found
  2 - Command error

Example:
  dagctl verify --db ./dag.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ds, err := s.engine.Verify(cmd.Context())
			if err != nil {
				return f.EngineError("verify", err)
			}
			if ds == nil {
				ds = []engine.Discrepancy{}
			}

			if len(ds) == 0 {
				if rootOpts.Format == "json" {
					return f.Success(VerifyResult{Exact: true, Discrepancies: ds})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Closure is exact")
				return nil
			}

			msg := fmt.Sprintf("%d discrepancy(ies) found", len(ds))
			if rootOpts.Format == "json" {
				_ = f.Error(ErrCodeInexact, msg, VerifyResult{Discrepancies: ds})
			} else {
				w := cmd.OutOrStdout()
				for _, d := range ds {
					fmt.Fprintf(w, "✗ %s\n", d)
				}
				fmt.Fprintln(w, msg)
			}
			return NewExitError(ExitFailure, msg)
		},
	}
}
