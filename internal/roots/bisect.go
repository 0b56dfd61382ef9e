package roots

import (
	"fmt"
	"math"
)

// Result is the full output of Bisect.
type Result struct {
	// Root is the found solution. It is NaN when Bisect returns an error.
	Root float64 `json:"root"`
	// Tol is the width of the final bracket. It may exceed the requested
	// tolerance when the iteration budget ran out.
	Tol float64 `json:"tol"`
	// Converged reports whether the requested tolerance was reached.
	Converged bool `json:"converged"`
	// Iterations is (roughly) the number of function calls.
	Iterations int `json:"iterations"`
}

func failed(iterCount int) Result {
	return Result{Root: math.NaN(), Tol: math.NaN(), Iterations: iterCount}
}

// tolerance combines the relative and absolute tolerance at x.
func tolerance(x, xtol float64) float64 {
	return math.Max(math.Abs(x)*xtol, xtol)
}

// Bisect solves f(x) = 0 on [left, right] by bisection, allowing f to be undefined on part of
// the interval. If f is undefined at an end, the interval is first narrowed with NarrowToDomain.
//
// The bracket is considered small enough once its width drops below max(|mid|*XTol, XTol).
// Running out of MaxIter is not an error: the best estimate is returned with Converged=false.
func Bisect(left, right float64, f Func, s Settings) (Result, error) {
	log := s.logger()
	if err := s.validate(); err != nil {
		log.Error("Invalid bisection settings", "error", err)
		return failed(0), err
	}
	if left > right {
		left, right = right, left
	}

	fLeft, okLeft := f.eval(left)
	fRight, okRight := f.eval(right)
	iterCount := 2

	if okLeft && fLeft == 0 {
		return Result{Root: left, Converged: true, Iterations: iterCount}, nil
	}
	if okRight && fRight == 0 {
		return Result{Root: right, Converged: true, Iterations: iterCount}, nil
	}

	if !okLeft || !okRight {
		iv, n, err := NarrowToDomain(left, right, f, s)
		iterCount += n
		if err != nil {
			return failed(iterCount), err
		}
		left, right = iv.Left, iv.Right
		fLeft, okLeft = f.eval(left)
		fRight, okRight = f.eval(right)
		if !okLeft || !okRight {
			log.Error("Function is undefined at a narrowed boundary", "left", left, "right", right)
			return failed(iterCount), fmt.Errorf("narrowed to [%g, %g]: %w", left, right, ErrDomainUndetermined)
		}
	}

	if fLeft*fRight > 0 {
		log.Error("Values of the function on two boundaries are both of the same sign",
			"left", left, "right", right, "f_left", fLeft, "f_right", fRight)
		return failed(iterCount), ErrNoSignChange
	}

	reachedTol := right - left
	mid := (right + left) / 2
	for k := 1; !(reachedTol < tolerance(mid, s.XTol) || iterCount > s.MaxIter); k++ {
		mid = (right + left) / 2
		fMid, ok := f.eval(mid)
		if !ok {
			log.Error("Function is undefined inside the bracket", "left", left, "right", right, "mid", mid)
			return failed(iterCount + 1), ErrDisconnectedDomain
		}
		if fMid*fRight > 0 {
			right, fRight = mid, fMid
		} else {
			left = mid
		}
		reachedTol = right - left
		iterCount++

		if s.OnIter != nil {
			s.OnIter(Iteration{K: k, Left: left, Right: right, Mid: mid, FMid: fMid, Width: reachedTol})
		}
	}

	converged := reachedTol < tolerance(mid, s.XTol)
	if !converged {
		log.Warn("Convergence was not reached", "max_iter", s.MaxIter, "reached_tol", reachedTol)
	}

	return Result{
		Root:       (right + left) / 2,
		Tol:        reachedTol,
		Converged:  converged,
		Iterations: iterCount,
	}, nil
}

// Root is Bisect without the full output.
func Root(left, right float64, f Func, s Settings) (float64, error) {
	res, err := Bisect(left, right, f, s)
	if err != nil {
		return math.NaN(), err
	}
	return res.Root, nil
}
