package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cwbudde/robustsolve/internal/graph"
	"github.com/cwbudde/robustsolve/internal/roots"
)

func newRootsCmd() *cobra.Command {
	var (
		o       intervalOptions
		samples int
	)

	cmd := &cobra.Command{
		Use:   "roots",
		Short: "Find all sign-change roots of f(x) on an interval",
		Long: `Samples f on an even grid over [left, right] and bisects every bracket where
the sampled values change sign. Roots closer than the grid spacing may be missed.`,
		Example: `  robustsolve roots --expr "sin(x)" --left=-1 --right 10 --samples 200`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, s, rec, done, err := o.setup()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			slog.Info("Searching roots", "expr", o.expr, "left", o.left, "right", o.right, "samples", samples)
			found, n, err := roots.FindAll(o.left, o.right, f, samples, s)
			if cerr := done(); cerr != nil {
				return cerr
			}
			printIterations(w, rec)
			if err != nil {
				return o.fail(w, err, "NaN")
			}

			marks := make([]graph.Mark, len(found))
			for i, x := range found {
				fmt.Fprintf(w, "%.17g\n", x)
				marks[i] = graph.Mark{X: x, Label: fmt.Sprintf("x%d", i+1)}
			}
			if o.full {
				fmt.Fprintf(w, "count %d\n", len(found))
				fmt.Fprintf(w, "iterations %d\n", n)
			}

			return o.savePlot(f, marks...)
		},
	}

	o.register(cmd)
	cmd.Flags().IntVar(&samples, "samples", 100, "Number of grid points")
	return cmd
}
