package opt

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

const (
	// reductionFactor divides the step when the search settles or meets undefined values.
	reductionFactor = 2
	// moveShrink is applied to the step after every move so that the same
	// neighbour cannot be rediscovered at the same step forever.
	moveShrink = 0.999
)

// Action is what the search did at one iteration.
type Action int

const (
	// Moved to the best neighbour.
	Moved Action = iota
	// Retreated: some neighbour was undefined, the step was reduced.
	Retreated
	// Settled: no neighbour was better, the step was reduced.
	Settled
)

func (a Action) String() string {
	switch a {
	case Moved:
		return "moved"
	case Retreated:
		return "retreated"
	case Settled:
		return "settled"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Step describes one iteration of PatternSearch.
type Step struct {
	K           int       `json:"k"`
	Center      []float64 `json:"center"` // center after the action
	Size        float64   `json:"size"`   // step size after the action
	Action      Action    `json:"action"`
	Evaluations int       `json:"evaluations"`
}

// PatternSearch finds a local minimum of a function of two variables.
//
// At each iteration it evaluates the function on a square lattice around the current
// center and moves to the best lattice point. Undefined values anywhere on the lattice
// are taken as a sign that the domain boundary is near: the step is halved and the
// center stays put. When no lattice point improves on the center the step is halved too.
//
// The search succeeds only if its last step reduction came from settling at a minimum.
type PatternSearch struct {
	RTol, ATol float64 // relative and absolute tolerance on x
	// MaxIter is the (rough) maximum number of function calls.
	MaxIter int
	// NodesOneSide is the number of lattice nodes along each side of the square.
	// Odd values keep the lattice centered on a node.
	NodesOneSide int
	// InitStep is the initial half-size of the square.
	InitStep     float64
	IgnoreErrors bool
	Logger       *slog.Logger
	OnStep       func(Step)
}

// NewPatternSearch returns a PatternSearch with tolerances of 1e-8, no evaluation budget,
// a 3x3 lattice and an initial step of 0.1.
func NewPatternSearch() *PatternSearch {
	return &PatternSearch{
		RTol:         1e-8,
		ATol:         1e-8,
		MaxIter:      Unbounded,
		NodesOneSide: 3,
		InitStep:     1e-1,
	}
}

func (ps *PatternSearch) logger() *slog.Logger {
	if ps.IgnoreErrors {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if ps.Logger == nil {
		return slog.Default()
	}
	return ps.Logger
}

// Stencil returns the offsets of a zero-centered square lattice with nodesOneSide nodes
// along each axis spanning [-(nodesOneSide/2), nodesOneSide/2], without the origin.
func Stencil(nodesOneSide int) [][]float64 {
	half := float64(nodesOneSide / 2)
	axis := floats.Span(make([]float64, nodesOneSide), -half, half)

	offsets := make([][]float64, 0, nodesOneSide*nodesOneSide)
	for _, d1 := range axis {
		for _, d2 := range axis {
			if d1 == 0 && d2 == 0 {
				continue
			}
			offsets = append(offsets, []float64{d1, d2})
		}
	}
	return offsets
}

func (ps *PatternSearch) validate(x0 []float64) error {
	switch {
	case len(x0) != 2:
		return fmt.Errorf("starting point must have 2 coordinates, got %d", len(x0))
	case ps.NodesOneSide < 2:
		return fmt.Errorf("nodes on one side must be at least 2, got %d", ps.NodesOneSide)
	case !(ps.InitStep > 0):
		return fmt.Errorf("initial step must be positive, got %g", ps.InitStep)
	case ps.RTol < 0 || ps.ATol < 0:
		return fmt.Errorf("tolerances must not be negative")
	}
	return nil
}

// Minimize implements Minimizer.
func (ps *PatternSearch) Minimize(f Objective, x0 []float64) ([]float64, error) {
	if err := ps.validate(x0); err != nil {
		return undefined(len(x0)), err
	}
	log := ps.logger()

	if _, ok := f.eval(x0); !ok {
		log.Error("Function is undefined at the starting point", "x0", x0)
		return undefined(len(x0)), ErrUndefinedStart
	}

	stencil := Stencil(ps.NodesOneSide)
	points := make([][]float64, len(stencil))
	for i := range points {
		points[i] = make([]float64, len(x0))
	}
	vals := make([]float64, len(stencil))

	x := slices.Clone(x0)
	step := ps.InitStep
	success := false
	evals := 0

	for k := 1; step > math.Max(ps.ATol, ps.RTol*floats.Norm(x, 2)) && evals < ps.MaxIter; k++ {
		for i, offset := range stencil {
			copy(points[i], x)
			floats.AddScaled(points[i], step, offset)
		}

		fCenter, defined := f.eval(x)
		for i, p := range points {
			v, ok := f.eval(p)
			vals[i] = v
			defined = defined && ok
		}
		evals += len(points) + 1

		var action Action
		if !defined {
			// Probably near the boundary of the domain.
			step /= reductionFactor
			success = false
			action = Retreated
		} else if best := floats.MinIdx(vals); fCenter > vals[best] {
			copy(x, points[best])
			step *= moveShrink
			action = Moved
		} else {
			step /= reductionFactor
			success = true
			action = Settled
		}

		log.Debug("Pattern search step", "k", k, "center", x, "step", step, "action", action)
		if ps.OnStep != nil {
			ps.OnStep(Step{K: k, Center: slices.Clone(x), Size: step, Action: action, Evaluations: evals})
		}
	}

	if !success {
		log.Error("Minimum was not found", "center", x, "step", step, "evaluations", evals)
		return undefined(len(x0)), ErrNotConverged
	}
	return x, nil
}

// FminRobust2D minimizes f from x0 with the given search settings.
func FminRobust2D(f Objective, x0 []float64, ps *PatternSearch) ([]float64, error) {
	if ps == nil {
		ps = NewPatternSearch()
	}
	return ps.Minimize(f, x0)
}
