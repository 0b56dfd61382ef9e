package roots

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/robustsolve/internal/scan"
)

// duplicateFactor scales XTol into the distance below which two roots are reported as duplicates.
const duplicateFactor = 10

// FindAll samples f at the given number of evenly spaced points of [left, right] and bisects
// every sign change between consecutive defined samples. Roots are returned in ascending order.
//
// Brackets that cannot be solved because f is undefined inside them are skipped with a warning.
// The returned count is the number of samples plus the calls made by every bisection.
func FindAll(left, right float64, f Func, samples int, s Settings) ([]float64, int, error) {
	log := s.logger()
	if err := s.validate(); err != nil {
		log.Error("Invalid root search settings", "error", err)
		return nil, 0, err
	}
	if samples < 2 {
		return nil, 0, fmt.Errorf("need at least 2 samples, got %d", samples)
	}
	if left > right {
		left, right = right, left
	}

	xs := make([]float64, 0, samples)
	ys := make([]float64, 0, samples)
	for _, x := range floats.Span(make([]float64, samples), left, right) {
		if y, ok := f.eval(x); ok {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) == 0 {
		log.Error("No sample of the function is defined", "left", left, "right", right, "samples", samples)
		return nil, samples, ErrDomainUndetermined
	}

	progress := scan.NewProgress(len(xs)-1, log)
	var found []float64
	iterCount := samples
	for start := 0; start+1 < len(ys); {
		i, ok := scan.ZeroCrossing(ys[start:])
		if !ok {
			break
		}
		i += start

		res, err := Bisect(xs[i], xs[i+1], f, s)
		iterCount += res.Iterations
		switch {
		case errors.Is(err, ErrDisconnectedDomain):
			log.Warn("Skipping bracket with undefined points", "left", xs[i], "right", xs[i+1])
		case err != nil:
			return found, iterCount, fmt.Errorf("bracket [%g, %g]: %w", xs[i], xs[i+1], err)
		default:
			found = append(found, res.Root)
		}

		// A root sitting exactly on a sample also opens the next bracket.
		if ys[i+1] == 0 {
			start = i + 2
		} else {
			start = i + 1
		}
		progress.Report(min(start, len(xs)-1))
	}

	if i, j, ok := scan.ClosePair(found, s.XTol*duplicateFactor); ok {
		log.Warn("Found roots that are suspiciously close", "first", found[i], "second", found[j])
	}
	return found, iterCount, nil
}
