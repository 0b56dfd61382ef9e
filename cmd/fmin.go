package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cwbudde/robustsolve/internal/expr"
	"github.com/cwbudde/robustsolve/internal/graph"
	"github.com/cwbudde/robustsolve/internal/opt"
	"github.com/cwbudde/robustsolve/internal/trace"
)

func newFminCmd() *cobra.Command {
	var (
		source       string
		x0           []float64
		maxIter      int
		ignoreErrors bool
		showTrace    bool
		traceFile    string
		plotPath     string
	)
	ps := opt.NewPatternSearch()

	cmd := &cobra.Command{
		Use:   "fmin",
		Short: "Minimize f(x, y) by pattern search",
		Long: `Minimizes a function of x and y by pattern search from a starting point.
Points where f is undefined make the search step back, so f may be restricted
to a region, e.g. with a conditional expression.`,
		Example: `  robustsolve fmin --expr "y > -1 ? (x - 10)**2 + y**2" --x0 100,100 --init-step 1e4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := expr.NewObjective(source)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			ps.IgnoreErrors = ignoreErrors
			ps.MaxIter = opt.Unbounded
			if maxIter > 0 {
				ps.MaxIter = maxIter
			}

			rec := trace.NewRecorder(0)
			ps.OnStep = rec.Step
			done := func() error { return nil }
			if traceFile != "" {
				tw, err := trace.NewWriter(traceFile)
				if err != nil {
					return err
				}
				done = tw.Close
				ps.OnStep = func(s opt.Step) {
					rec.Step(s)
					tw.Step(s)
				}
			}

			slog.Info("Starting pattern search", "expr", source, "x0", x0)
			x, err := opt.FminRobust2D(f, x0, ps)
			if cerr := done(); cerr != nil {
				return cerr
			}
			if showTrace {
				printSteps(cmd, rec)
			}
			if err != nil {
				if !ignoreErrors {
					return err
				}
				fmt.Fprintln(w, "NaN NaN")
				return nil
			}

			fmt.Fprintf(w, "%.17g %.17g\n", x[0], x[1])

			if plotPath == "" {
				return nil
			}
			p, err := graph.Convergence(rec.StepSizes(), "step size")
			if err != nil {
				return err
			}
			p.Title.Text = source
			return graph.SavePNG(p, plotPath)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&source, "expr", "", `Function of x and y, e.g. "(x - 1)**2 + y**2" (required)`)
	flags.Float64SliceVar(&x0, "x0", []float64{0, 0}, "Starting point x,y")
	flags.Float64Var(&ps.RTol, "rtol", ps.RTol, "Relative tolerance on the step size")
	flags.Float64Var(&ps.ATol, "atol", ps.ATol, "Absolute tolerance on the step size")
	flags.IntVar(&maxIter, "max-iter", 0, "Maximum number of function calls (0 = no limit)")
	flags.IntVar(&ps.NodesOneSide, "nodes", ps.NodesOneSide, "Lattice nodes along each side of the search square")
	flags.Float64Var(&ps.InitStep, "init-step", ps.InitStep, "Initial half-size of the search square")
	flags.BoolVar(&ignoreErrors, "ignore-errors", false, "Print NaN instead of failing, and silence solver logs")
	flags.BoolVar(&showTrace, "trace", false, "Print every search step")
	flags.StringVar(&traceFile, "trace-file", "", "Write every search step as a JSON line to this path")
	flags.StringVar(&plotPath, "plot", "", "Write a PNG plot of the step sizes to this path")
	cmd.MarkFlagRequired("expr")

	return cmd
}

func printSteps(cmd *cobra.Command, rec *trace.Recorder) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%5s %-9s %12s %24s %24s %8s\n", "k", "action", "size", "x", "y", "evals")
	for _, s := range rec.Steps() {
		fmt.Fprintf(w, "%5d %-9s %12.4g %24.17g %24.17g %8d\n",
			s.K, s.Action, s.Size, s.Center[0], s.Center[1], s.Evaluations)
	}
}
