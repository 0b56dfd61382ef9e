// Package scan holds small linear scans over sampled function values.
package scan

import (
	"log/slog"
	"math"
	"time"
)

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// ZeroCrossing returns the first index i such that a[i] and a[i+1] have different signs.
// A zero counts as its own sign. a must not contain NaN.
func ZeroCrossing(a []float64) (int, bool) {
	for i := 0; i+1 < len(a); i++ {
		if sign(a[i]) != sign(a[i+1]) {
			return i, true
		}
	}
	return -1, false
}

// ClosePair returns the first pair i < j with |a[i] - a[j]| < tol.
func ClosePair(a []float64, tol float64) (i, j int, ok bool) {
	for i = 0; i < len(a); i++ {
		for j = i + 1; j < len(a); j++ {
			if math.Abs(a[i]-a[j]) < tol {
				return i, j, true
			}
		}
	}
	return -1, -1, false
}

// Progress reports how much of a fixed amount of work is done and estimates the remaining time.
type Progress struct {
	Total  int
	Start  time.Time
	Logger *slog.Logger
}

// NewProgress starts tracking total units of work from now.
func NewProgress(total int, logger *slog.Logger) *Progress {
	if logger == nil {
		logger = slog.Default()
	}
	return &Progress{Total: total, Start: time.Now(), Logger: logger}
}

// Remaining estimates the time left after current units of work.
// It returns false when nothing is done yet.
func (p *Progress) Remaining(current int) (time.Duration, bool) {
	if current <= 0 || p.Total <= 0 {
		return 0, false
	}
	ratio := float64(current) / float64(p.Total)
	elapsed := time.Since(p.Start)
	return time.Duration(float64(elapsed) * (1/ratio - 1)), true
}

// Report logs the progress after current units of work.
func (p *Progress) Report(current int) {
	left, ok := p.Remaining(current)
	if !ok {
		return
	}
	p.Logger.Info("Progress",
		"done_percent", 100*float64(current)/float64(p.Total),
		"current", current,
		"total", p.Total,
		"elapsed", time.Since(p.Start).Round(time.Millisecond),
		"estimated_left", left.Round(time.Millisecond),
	)
}
