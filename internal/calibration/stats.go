package calibration

import (
	"math"
	"sort"
)

// Quantile returns the q-th quantile of xs using linear interpolation between
// the bracketing order statistics (the R-7 definition). xs is not modified.
// It returns 0 for an empty input; q is clamped to [0,1] and NaN reads as 0.
func Quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	switch {
	case !(q >= 0):
		q = 0
	case q > 1:
		q = 1
	}
	a := append([]float64(nil), xs...)
	sort.Float64s(a)

	pos := float64(len(a)-1) * q
	lo, hi := int(math.Floor(pos)), int(math.Ceil(pos))
	if lo == hi {
		return a[lo]
	}
	return a[lo] + (a[hi]-a[lo])*(pos-float64(lo))
}

// Median is Quantile(xs, 0.5).
func Median(xs []float64) float64 { return Quantile(xs, 0.5) }

// MedianAbsoluteDeviation returns the median of |x - median(xs)|.
func MedianAbsoluteDeviation(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := Median(xs)
	dev := make([]float64, len(xs))
	for i, x := range xs {
		dev[i] = math.Abs(x - m)
	}
	return Median(dev)
}
