package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cwbudde/robustsolve/internal/graph"
	"github.com/cwbudde/robustsolve/internal/roots"
)

func newNarrowCmd() *cobra.Command {
	var o intervalOptions

	cmd := &cobra.Command{
		Use:   "narrow",
		Short: "Shrink an interval until f(x) is defined at both ends",
		Long: `Narrows [left, right] to a sub-interval on which f is defined at both ends.
The domain of f inside the interval is assumed to be connected.`,
		Example: `  robustsolve narrow --expr "sqrt(1 - x**2)" --left=-5 --right 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, s, rec, done, err := o.setup()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			slog.Info("Narrowing to domain", "expr", o.expr, "left", o.left, "right", o.right)
			iv, n, err := roots.NarrowToDomain(o.left, o.right, f, s)
			if cerr := done(); cerr != nil {
				return cerr
			}
			printIterations(w, rec)
			if err != nil {
				return o.fail(w, err, "NaN NaN")
			}

			fmt.Fprintf(w, "%.17g %.17g\n", iv.Left, iv.Right)
			if o.full {
				fmt.Fprintf(w, "iterations %d\n", n)
			}

			return o.savePlot(f,
				graph.Mark{X: iv.Left, Label: "left"},
				graph.Mark{X: iv.Right, Label: "right"},
			)
		},
	}

	o.register(cmd)
	return cmd
}
