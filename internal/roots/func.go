package roots

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
)

// Func evaluates the target function at x.
// ok is false where the function is undefined.
type Func func(x float64) (y float64, ok bool)

// FromNaN adapts a function that signals undefined points by returning NaN.
func FromNaN(f func(float64) float64) Func {
	return func(x float64) (float64, bool) {
		y := f(x)
		return y, !math.IsNaN(y)
	}
}

// eval calls f and treats a NaN value as undefined even if f reported it as defined.
func (f Func) eval(x float64) (float64, bool) {
	y, ok := f(x)
	if !ok || math.IsNaN(y) {
		return math.NaN(), false
	}
	return y, true
}

// indicator maps f to -1 where it is undefined and to 1 where it is defined.
// Bisecting the indicator locates the boundary of the domain of f.
func (f Func) indicator() Func {
	return func(x float64) (float64, bool) {
		if _, ok := f.eval(x); !ok {
			return -1, true
		}
		return 1, true
	}
}

// Interval is a closed interval [Left, Right].
type Interval struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// Width returns Right - Left.
func (iv Interval) Width() float64 {
	return iv.Right - iv.Left
}

var undefinedInterval = Interval{Left: math.NaN(), Right: math.NaN()}

var (
	// ErrNoSignChange is returned when the function has the same sign on both ends of the interval.
	ErrNoSignChange = errors.New("values of the function on two boundaries are both of the same sign")

	// ErrDomainUndetermined is returned when no point of the domain was found during the coarse scan.
	ErrDomainUndetermined = errors.New("domain of the function was not determined")

	// ErrNotConverged is returned when a boundary of the domain was not located within the budget.
	ErrNotConverged = errors.New("reached max iterations")

	// ErrDisconnectedDomain is returned when the function turns out to be undefined
	// between two points where it is defined.
	ErrDisconnectedDomain = errors.New("function is undefined inside the bracket")

	// ErrInvalidSettings is returned before any evaluation when Settings are out of range.
	ErrInvalidSettings = errors.New("invalid settings")
)

// Iteration describes one step of the bisection main loop.
type Iteration struct {
	K     int     `json:"k"`
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
	Mid   float64 `json:"mid"`
	FMid  float64 `json:"fmid"`
	Width float64 `json:"width"`
}

// Settings configures NarrowToDomain, Bisect and FindAll.
type Settings struct {
	// XTol is both the absolute and relative tolerance on x.
	XTol float64
	// MaxIter is (roughly) the maximum number of function calls.
	MaxIter int
	// IgnoreErrors suppresses warnings and error messages.
	IgnoreErrors bool
	// Logger receives the diagnostics. slog.Default() is used when nil.
	Logger *slog.Logger
	// OnIter is called after every step of the bisection main loop.
	// It is not propagated to the bisections run on the domain indicator.
	OnIter func(Iteration)
}

// DefaultSettings returns XTol=1e-14 and MaxIter=1000.
func DefaultSettings() Settings {
	return Settings{
		XTol:    1e-14,
		MaxIter: 1000,
	}
}

func (s Settings) validate() error {
	switch {
	case !(s.XTol > 0) || math.IsInf(s.XTol, 0):
		return fmt.Errorf("%w: xtol must be positive and finite, got %g", ErrInvalidSettings, s.XTol)
	case s.MaxIter < 0:
		return fmt.Errorf("%w: max iterations must not be negative, got %d", ErrInvalidSettings, s.MaxIter)
	}
	return nil
}

func (s Settings) logger() *slog.Logger {
	if s.IgnoreErrors {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// withBudget returns a copy of s limited to maxIter calls and without the iteration hook.
func (s Settings) withBudget(maxIter int) Settings {
	s.MaxIter = max(maxIter, 0)
	s.OnIter = nil
	return s
}
