package opt

import (
	"errors"
	"math"
)

// Objective evaluates the function to minimize at x.
// ok is false where the function is undefined.
type Objective func(x []float64) (y float64, ok bool)

// FromNaN adapts an objective that signals undefined points by returning NaN.
func FromNaN(f func([]float64) float64) Objective {
	return func(x []float64) (float64, bool) {
		y := f(x)
		return y, !math.IsNaN(y)
	}
}

// eval calls f and treats a NaN value as undefined even if f reported it as defined.
func (f Objective) eval(x []float64) (float64, bool) {
	y, ok := f(x)
	if !ok || math.IsNaN(y) {
		return math.NaN(), false
	}
	return y, true
}

// Minimizer defines a local minimization algorithm
type Minimizer interface {
	// Minimize searches for a local minimum of f starting from x0.
	// On failure the returned point has the shape of x0 and is all NaN.
	Minimize(f Objective, x0 []float64) ([]float64, error)
}

// Unbounded disables the evaluation budget.
const Unbounded = math.MaxInt

var (
	// ErrUndefinedStart is returned when the objective is undefined at the starting point.
	ErrUndefinedStart = errors.New("function is undefined at the starting point")

	// ErrNotConverged is returned when the search stopped without settling at a minimum.
	ErrNotConverged = errors.New("minimum was not found")
)

func undefined(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = math.NaN()
	}
	return x
}
