package ddct

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// GeoMean returns exp(mean(ln(x))) over the finite, strictly positive
// entries of values. If nothing usable remains, it returns NaN, which
// downstream arithmetic carries as a missing value.
func GeoMean(values []float64) float64 {
	positive := PositiveOnly(values)
	if len(positive) == 0 {
		return math.NaN()
	}

	return stat.GeometricMean(positive, nil)
}

// PositiveOnly drops NaN, infinite, zero and negative entries.
func PositiveOnly(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

// mean is the arithmetic mean over the non-NaN entries, or NaN if there are
// none.
func mean(values []float64) float64 {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		present = append(present, v)
	}
	if len(present) == 0 {
		return math.NaN()
	}

	return stat.Mean(present, nil)
}
