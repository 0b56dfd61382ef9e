// Package trace records the progress of the solvers through their iteration hooks.
package trace

import (
	"log/slog"

	"github.com/cwbudde/robustsolve/internal/opt"
	"github.com/cwbudde/robustsolve/internal/roots"
)

// Recorder collects bisection iterations and pattern search steps.
// Plug Iteration into roots.Settings.OnIter and Step into opt.PatternSearch.OnStep.
type Recorder struct {
	iterations []roots.Iteration
	steps      []opt.Step
	limit      int
}

// NewRecorder creates a recorder keeping at most limit entries of each kind (0 = no limit).
func NewRecorder(limit int) *Recorder {
	return &Recorder{
		iterations: []roots.Iteration{},
		steps:      []opt.Step{},
		limit:      limit,
	}
}

// Iteration records one bisection step.
func (r *Recorder) Iteration(it roots.Iteration) {
	if r.limit > 0 && len(r.iterations) >= r.limit {
		return
	}
	r.iterations = append(r.iterations, it)
	slog.Debug("Bisection step",
		"k", it.K,
		"mid", it.Mid,
		"width", it.Width,
	)
}

// Step records one pattern search step.
func (r *Recorder) Step(s opt.Step) {
	if r.limit > 0 && len(r.steps) >= r.limit {
		return
	}
	r.steps = append(r.steps, s)
}

// Iterations returns the recorded bisection steps
func (r *Recorder) Iterations() []roots.Iteration {
	return append([]roots.Iteration{}, r.iterations...) // Return copy
}

// Steps returns the recorded pattern search steps
func (r *Recorder) Steps() []opt.Step {
	return append([]opt.Step{}, r.steps...)
}

// Len returns the total number of recorded entries.
func (r *Recorder) Len() int {
	return len(r.iterations) + len(r.steps)
}

// Widths returns the bracket width after every bisection step.
func (r *Recorder) Widths() []float64 {
	widths := make([]float64, len(r.iterations))
	for i, it := range r.iterations {
		widths[i] = it.Width
	}
	return widths
}

// StepSizes returns the step size after every pattern search step.
func (r *Recorder) StepSizes() []float64 {
	sizes := make([]float64, len(r.steps))
	for i, s := range r.steps {
		sizes[i] = s.Size
	}
	return sizes
}

// Halving reports whether every recorded bracket is exactly half the previous one.
func (r *Recorder) Halving() bool {
	for i := 1; i < len(r.iterations); i++ {
		if r.iterations[i].Width != r.iterations[i-1].Width/2 {
			return false
		}
	}
	return true
}

// Actions counts the recorded pattern search steps by action.
func (r *Recorder) Actions() map[opt.Action]int {
	counts := make(map[opt.Action]int)
	for _, s := range r.steps {
		counts[s.Action]++
	}
	return counts
}

// Reset clears the recorder's state
func (r *Recorder) Reset() {
	r.iterations = []roots.Iteration{}
	r.steps = []opt.Step{}
}
