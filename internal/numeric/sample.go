package numeric

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// SampleCount is the number of points a plot is sampled at.
const SampleCount = 400

// Range bounds the sampled interval. Min < Max is expected but not checked.
type Range struct {
	Min float64 `json:"x_min"`
	Max float64 `json:"x_max"`
}

// ErrRangeNotFinite is returned by Range.Validate for infinite or NaN bounds.
var ErrRangeNotFinite = errors.New("range bounds must be finite")

// Validate reports bounds that cannot be sampled.
func (r Range) Validate() error {
	for _, v := range []float64{r.Min, r.Max} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return fmt.Errorf("%w: [%g, %g]", ErrRangeNotFinite, r.Min, r.Max)
		}
	}
	return nil
}

// DefaultRange is the interval used when the caller gives none.
var DefaultRange = Range{Min: -10, Max: 10}

// Samples holds the sampled points of a function.
type Samples struct {
	X []float64
	Y []float64
	// Fallback is set when the values were computed point by point.
	Fallback bool
}

// Linspace returns n evenly spaced values from lo to hi inclusive. The last
// value is exactly hi. Points are interpolated from both ends, so finite
// bounds give finite points even when hi-lo overflows.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	xs := make([]float64, n)
	if n == 1 {
		xs[0] = lo
		return xs
	}
	last := float64(n - 1)
	for i := range xs {
		t := float64(i) / last
		xs[i] = lo*(1-t) + hi*t
	}
	xs[n-1] = hi
	return xs
}

// Sample evaluates f at every x. Bulk evaluation is tried first; when it
// reports ErrTypeIncompatible each point is evaluated on its own.
func Sample(ctx context.Context, f Func, xs []float64) (Samples, error) {
	ys, err := f.EvalBulk(xs)
	if err == nil {
		if len(ys) != len(xs) {
			return Samples{}, fmt.Errorf("bulk evaluation returned %d values for %d points", len(ys), len(xs))
		}
		return Samples{X: xs, Y: ys}, nil
	}
	if !errors.Is(err, ErrTypeIncompatible) {
		return Samples{}, fmt.Errorf("bulk evaluation: %w", err)
	}

	ys = make([]float64, len(xs))
	for i, x := range xs {
		if err := ctx.Err(); err != nil {
			return Samples{}, err
		}
		y, err := f.Eval(x)
		if err != nil {
			return Samples{}, fmt.Errorf("evaluate at x=%g: %w", x, err)
		}
		ys[i] = y
	}
	return Samples{X: xs, Y: ys, Fallback: true}, nil
}
