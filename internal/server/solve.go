package server

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/plot"

	"github.com/cwbudde/robustsolve/internal/expr"
	"github.com/cwbudde/robustsolve/internal/graph"
	"github.com/cwbudde/robustsolve/internal/opt"
	"github.com/cwbudde/robustsolve/internal/roots"
	"github.com/cwbudde/robustsolve/internal/trace"
)

const (
	plotSamples  = 400
	historyLimit = 10000
)

// progressFunc receives the iteration count and the latest width or step size.
type progressFunc func(iterations int, value float64)

func (c JobConfig) settings(logger *slog.Logger) roots.Settings {
	return roots.Settings{
		XTol:    c.XTol,
		MaxIter: c.MaxIter,
		Logger:  logger,
	}
}

func (c JobConfig) patternSearch(logger *slog.Logger) *opt.PatternSearch {
	return &opt.PatternSearch{
		RTol:         c.RTol,
		ATol:         c.ATol,
		MaxIter:      c.MaxIter,
		NodesOneSide: c.NodesOneSide,
		InitStep:     c.InitStep,
		Logger:       logger,
	}
}

// solve runs the solver selected by the config. It returns the result, the number of
// function calls (roughly) and the recorded history.
func solve(c JobConfig, logger *slog.Logger, progress progressFunc) (*JobResult, int, []float64, error) {
	rec := trace.NewRecorder(historyLimit)

	if c.Kind == KindMinimize {
		f, err := expr.NewObjective(c.Expr)
		if err != nil {
			return nil, 0, nil, err
		}
		ps := c.patternSearch(logger)
		evals := 0
		ps.OnStep = func(s opt.Step) {
			rec.Step(s)
			evals = s.Evaluations
			progress(s.Evaluations, s.Size)
		}
		x, err := ps.Minimize(f, c.X0)
		if err != nil {
			return nil, evals, rec.StepSizes(), err
		}
		return &JobResult{Minimum: x}, evals, rec.StepSizes(), nil
	}

	f, err := expr.NewFunc(c.Expr)
	if err != nil {
		return nil, 0, nil, err
	}
	s := c.settings(logger)
	s.OnIter = func(it roots.Iteration) {
		rec.Iteration(it)
		progress(it.K, it.Width)
	}

	switch c.Kind {
	case KindBisect:
		res, err := roots.Bisect(c.Left, c.Right, f, s)
		if err != nil {
			return nil, res.Iterations, rec.Widths(), err
		}
		return &JobResult{Root: &res.Root, Tol: &res.Tol, Converged: &res.Converged}, res.Iterations, rec.Widths(), nil

	case KindNarrow:
		iv, n, err := roots.NarrowToDomain(c.Left, c.Right, f, s)
		if err != nil {
			return nil, n, nil, err
		}
		return &JobResult{Interval: &iv}, n, nil, nil

	case KindRoots:
		found, n, err := roots.FindAll(c.Left, c.Right, f, c.Samples, s)
		if err != nil {
			return nil, n, rec.Widths(), err
		}
		if found == nil {
			found = []float64{}
		}
		return &JobResult{Roots: found}, n, rec.Widths(), nil
	}

	return nil, 0, nil, fmt.Errorf("unknown kind: %q", c.Kind)
}

// jobPlot plots the function of a 1-D job with its results marked,
// or the step size history of a minimization.
func jobPlot(job *Job) (*plot.Plot, error) {
	c := job.Config
	if c.Kind == KindMinimize {
		p, err := graph.Convergence(job.History, "step size")
		if err != nil {
			return nil, err
		}
		p.Title.Text = c.Expr
		return p, nil
	}

	f, err := expr.NewFunc(c.Expr)
	if err != nil {
		return nil, err
	}

	var marks []graph.Mark
	if r := job.Result; r != nil {
		if r.Root != nil {
			marks = append(marks, graph.Mark{X: *r.Root, Label: "root"})
		}
		if r.Interval != nil {
			marks = append(marks,
				graph.Mark{X: r.Interval.Left, Label: "left"},
				graph.Mark{X: r.Interval.Right, Label: "right"},
			)
		}
		for _, x := range r.Roots {
			marks = append(marks, graph.Mark{X: x, Label: "root"})
		}
	}

	p, err := graph.Function(f, c.Left, c.Right, plotSamples, marks...)
	if err != nil {
		return nil, err
	}
	p.Title.Text = c.Expr
	return p, nil
}
