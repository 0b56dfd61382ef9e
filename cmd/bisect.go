package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cwbudde/robustsolve/internal/graph"
	"github.com/cwbudde/robustsolve/internal/roots"
)

func newBisectCmd() *cobra.Command {
	var o intervalOptions

	cmd := &cobra.Command{
		Use:   "bisect",
		Short: "Find a root of f(x) on an interval by bisection",
		Long: `Finds a root of f on [left, right] by bisection. f must change sign between
the ends of the interval after it has been narrowed to the domain of f.`,
		Example: `  robustsolve bisect --expr "log(x) - 1" --left=-10 --right 10 --full`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, s, rec, done, err := o.setup()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			slog.Info("Starting bisection", "expr", o.expr, "left", o.left, "right", o.right)
			res, err := roots.Bisect(o.left, o.right, f, s)
			if cerr := done(); cerr != nil {
				return cerr
			}
			printIterations(w, rec)
			if err != nil {
				return o.fail(w, err, "NaN")
			}

			if o.full {
				fmt.Fprintf(w, "root       %.17g\n", res.Root)
				fmt.Fprintf(w, "tol        %.17g\n", res.Tol)
				fmt.Fprintf(w, "converged  %t\n", res.Converged)
				fmt.Fprintf(w, "iterations %d\n", res.Iterations)
			} else {
				fmt.Fprintf(w, "%.17g\n", res.Root)
			}

			return o.savePlot(f, graph.Mark{X: res.Root, Label: "root"})
		},
	}

	o.register(cmd)
	return cmd
}
