package formats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// weightSumTolerance is how far a point's weight sum may be from 1 and still
// count as normalized.
const weightSumTolerance = 1e-6

// NormalizeWeights returns weights sorted by point index (stable, so ties
// keep their input order) with each point's weights divided by their sum.
//
// A point is only rescaled when its sum is nonzero and differs from 1 by more
// than 1e-6. Groups summing to zero, and groups already within 1e-6 of 1, keep
// their exact stored values, so running the pass twice changes nothing.
// The input slice is not modified.
func NormalizeWeights(weights []PSKWeight) []PSKWeight {
	out := slices.Clone(weights)
	slices.SortStableFunc(out, func(a, b PSKWeight) int {
		return int(a.PointIndex) - int(b.PointIndex)
	})

	values := make([]float64, 0, 8)
	for start := 0; start < len(out); {
		end := start + 1
		for end < len(out) && out[end].PointIndex == out[start].PointIndex {
			end++
		}

		values = values[:0]
		for _, w := range out[start:end] {
			values = append(values, float64(w.Weight))
		}
		sum := floats.Sum(values)
		if sum != 0 && math.Abs(sum-1) > weightSumTolerance {
			for i := start; i < end; i++ {
				out[i].Weight = float32(values[i-start] / sum)
			}
		}
		start = end
	}
	return out
}

// SortAndNormalizeWeights replaces psk.Weights with NormalizeWeights(psk.Weights).
func (psk *PSK) SortAndNormalizeWeights() {
	psk.Weights = NormalizeWeights(psk.Weights)
}

// WeightSums returns the weight sum of every point that has weights.
func WeightSums(weights []PSKWeight) map[int32]float64 {
	sums := make(map[int32]float64)
	for _, w := range weights {
		sums[w.PointIndex] += float64(w.Weight)
	}
	return sums
}
