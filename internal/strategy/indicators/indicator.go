// Package indicators provides whole-sequence ("series") implementations of
// the technical indicators the snapshot builder precomputes. Each function
// takes raw value slices and returns a slice of the same length; positions
// before the indicator's warm-up window hold NaN so downstream code can tell
// "not yet computable" from a real zero.
package indicators

import (
	"fmt"
	"math"
)

// nanSeries allocates a result slice pre-filled with NaN.
func nanSeries(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// Valid reports whether a series value is past its warm-up window.
func Valid(v float64) bool {
	return !math.IsNaN(v)
}

func errNotEnoughData(name string, n, period int) error {
	return fmt.Errorf("not enough data (%d) to calculate %s for period %d", n, name, period)
}

func checkPeriod(n, period int, name string) error {
	if period <= 0 {
		return fmt.Errorf("%s period must be positive, got %d", name, period)
	}
	if n == 0 {
		return fmt.Errorf("%s requires a non-empty series", name)
	}
	return nil
}
