package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cwbudde/robustsolve/internal/expr"
	"github.com/cwbudde/robustsolve/internal/graph"
	"github.com/cwbudde/robustsolve/internal/roots"
	"github.com/cwbudde/robustsolve/internal/trace"
)

const plotSamples = 400

// intervalOptions are the flags shared by the commands working on an interval.
type intervalOptions struct {
	expr         string
	left, right  float64
	xtol         float64
	maxIter      int
	full         bool
	ignoreErrors bool
	trace        bool
	traceFile    string
	plot         string
}

func (o *intervalOptions) register(cmd *cobra.Command) {
	d := roots.DefaultSettings()
	f := cmd.Flags()
	f.StringVar(&o.expr, "expr", "", `Function of x, e.g. "log(x) - 1" (required)`)
	f.Float64Var(&o.left, "left", 0, "Left end of the interval")
	f.Float64Var(&o.right, "right", 1, "Right end of the interval")
	f.Float64Var(&o.xtol, "xtol", d.XTol, "Absolute and relative tolerance on x")
	f.IntVar(&o.maxIter, "max-iter", d.MaxIter, "Maximum number of iterations")
	f.BoolVar(&o.full, "full", false, "Print tolerance, convergence and iteration count")
	f.BoolVar(&o.ignoreErrors, "ignore-errors", false, "Print NaN instead of failing, and silence solver logs")
	f.BoolVar(&o.trace, "trace", false, "Print every bisection step")
	f.StringVar(&o.traceFile, "trace-file", "", "Write every bisection step as a JSON line to this path")
	f.StringVar(&o.plot, "plot", "", "Write a PNG plot of the function to this path")
	cmd.MarkFlagRequired("expr")
}

// setup parses the expression and builds the solver settings.
// The recorder is nil unless tracing is enabled. done must be called once the solver returns.
func (o *intervalOptions) setup() (f roots.Func, s roots.Settings, rec *trace.Recorder, done func() error, err error) {
	f, err = expr.NewFunc(o.expr)
	if err != nil {
		return nil, s, nil, nil, err
	}

	s = roots.Settings{
		XTol:         o.xtol,
		MaxIter:      o.maxIter,
		IgnoreErrors: o.ignoreErrors,
	}

	var hooks []func(roots.Iteration)
	if o.trace {
		rec = trace.NewRecorder(0)
		hooks = append(hooks, rec.Iteration)
	}

	done = func() error { return nil }
	if o.traceFile != "" {
		tw, err := trace.NewWriter(o.traceFile)
		if err != nil {
			return nil, s, nil, nil, err
		}
		hooks = append(hooks, tw.Iteration)
		done = tw.Close
	}

	if len(hooks) > 0 {
		s.OnIter = func(it roots.Iteration) {
			for _, h := range hooks {
				h(it)
			}
		}
	}
	return f, s, rec, done, nil
}

// fail reports err unless errors are ignored, in which case NaN is printed instead.
func (o *intervalOptions) fail(w io.Writer, err error, nan string) error {
	if !o.ignoreErrors {
		return err
	}
	fmt.Fprintln(w, nan)
	return nil
}

// savePlot writes the function plot with the given marks if --plot is set.
func (o *intervalOptions) savePlot(f roots.Func, marks ...graph.Mark) error {
	if o.plot == "" {
		return nil
	}
	p, err := graph.Function(f, o.left, o.right, plotSamples, marks...)
	if err != nil {
		return err
	}
	p.Title.Text = o.expr
	return graph.SavePNG(p, o.plot)
}

func printIterations(w io.Writer, rec *trace.Recorder) {
	if rec == nil {
		return
	}
	fmt.Fprintf(w, "%5s %24s %24s %24s %12s %12s\n", "k", "left", "right", "mid", "f(mid)", "width")
	for _, it := range rec.Iterations() {
		fmt.Fprintf(w, "%5d %24.17g %24.17g %24.17g %12.4g %12.4g\n",
			it.K, it.Left, it.Right, it.Mid, it.FMid, it.Width)
	}
}
