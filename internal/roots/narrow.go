package roots

import (
	"fmt"
	"math"
)

// refineFactor is the ratio between two successive resolutions of the coarse scan.
const refineFactor = 5

// nudgeDivisor sets how far a located domain boundary is pushed inwards: reachedTol/nudgeDivisor.
// It must stay above 1 so that the new endpoint lies on the defined side of the final bracket.
const nudgeDivisor = 1.9

// NarrowToDomain finds a sub-interval of [left, right] on which f is defined at both ends.
//
// The domain of f restricted to [left, right] is assumed to be connected; this is not verified.
// If f is undefined at both ends, the interval is scanned with a resolution that shrinks by a
// factor of 5 until a defined point is found, and the right boundary of the domain is then
// located by bisection. A boundary where f is undefined is located by bisecting the indicator
// of the domain of f and moved inwards by a fraction of the reached tolerance.
//
// The returned count is (roughly) the number of calls to f. Each pass of the scan is charged in
// full before it starts. On failure the interval is {NaN, NaN}.
func NarrowToDomain(left, right float64, f Func, s Settings) (Interval, int, error) {
	log := s.logger()
	if err := s.validate(); err != nil {
		log.Error("Invalid narrowing settings", "error", err)
		return undefinedInterval, 0, err
	}
	if left > right {
		left, right = right, left
	}
	width := right - left
	if math.IsInf(width, 0) || math.IsNaN(width) {
		log.Error("Interval width is not finite", "left", left, "right", right)
		return undefinedInterval, 0, ErrDomainUndetermined
	}

	_, okLeft := f.eval(left)
	_, okRight := f.eval(right)
	iterCount := 0
	domain := f.indicator()

	if !okLeft && !okRight {
		reachedTol := width
		found := false
		anchor := math.NaN()
		for !(found || reachedTol < s.XTol || iterCount > s.MaxIter) {
			reachedTol /= refineFactor
			passes := width / reachedTol
			// A sound pass is at most refineFactor times the previous one, which fit in the budget.
			if !(passes <= refineFactor*float64(s.MaxIter+1)) {
				log.Error("Scan resolution underflowed", "resolution", reachedTol, "iterations", iterCount)
				iterCount = s.MaxIter + 1
				break
			}
			iterCount += int(passes)
			n := int(math.Ceil(passes))
			for i := 0; i < n; i++ {
				x := left + float64(i)*reachedTol
				if _, ok := f.eval(x); ok {
					found = true
					anchor = x
					break
				}
			}
		}
		if !found {
			log.Error("Domain of the function was not determined",
				"left", left, "right", right, "iterations", iterCount)
			return undefinedInterval, iterCount, ErrDomainUndetermined
		}

		// The anchor is the first defined sample at this resolution, so nothing was found one
		// resolution coarser and the domain ends before anchor + 5*resolution.
		reachedTol *= refineFactor
		res, err := Bisect(anchor, anchor+reachedTol, domain, s.withBudget(s.MaxIter-iterCount))
		iterCount += res.Iterations
		if err != nil {
			log.Error("Right boundary of the domain was not located", "anchor", anchor, "error", err)
			return undefinedInterval, iterCount, fmt.Errorf("right boundary of the domain: %w", err)
		}
		right = res.Root - res.Tol/nudgeDivisor
		_, okRight = f.eval(right)
		if !res.Converged {
			log.Error("Reached max iterations", "max_iter", s.MaxIter, "reached_tol", res.Tol)
			return undefinedInterval, iterCount, ErrNotConverged
		}
	}

	if !okLeft {
		res, err := Bisect(left, right, domain, s.withBudget(s.MaxIter-iterCount))
		iterCount += res.Iterations
		if err != nil {
			log.Error("Left boundary of the domain was not located", "left", left, "right", right, "error", err)
			return undefinedInterval, iterCount, fmt.Errorf("left boundary of the domain: %w", err)
		}
		left = res.Root + res.Tol/nudgeDivisor
		if !res.Converged {
			log.Error("Reached max iterations", "max_iter", s.MaxIter, "reached_tol", res.Tol)
			return undefinedInterval, iterCount, ErrNotConverged
		}
	}

	if !okRight {
		res, err := Bisect(left, right, domain, s.withBudget(s.MaxIter-iterCount))
		iterCount += res.Iterations
		if err != nil {
			log.Error("Right boundary of the domain was not located", "left", left, "right", right, "error", err)
			return undefinedInterval, iterCount, fmt.Errorf("right boundary of the domain: %w", err)
		}
		right = res.Root - res.Tol/nudgeDivisor
		if !res.Converged {
			log.Error("Reached max iterations", "max_iter", s.MaxIter, "reached_tol", res.Tol)
			return undefinedInterval, iterCount, ErrNotConverged
		}
	}

	log.Debug("Narrowed to domain", "left", left, "right", right, "iterations", iterCount)
	return Interval{Left: left, Right: right}, iterCount, nil
}
