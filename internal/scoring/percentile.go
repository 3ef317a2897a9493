// Package scoring normalizes factor values into rank percentiles and blends
// them into a composite leaderboard.
package scoring

import (
	"math"
	"sort"
)

// PercentileRanks maps each distinct finite value to its fractional rank
// divided by n. Tied values share the mean of their 1-based positions, so the
// smallest value gets 1/n (or its tie average) and the largest gets 1.
func PercentileRanks(values []float64) map[float64]float64 {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sorted = append(sorted, v)
	}
	sort.Float64s(sorted)
	n := float64(len(sorted))
	out := make(map[float64]float64, len(sorted))
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		// positions i+1 .. j
		avg := float64(i+1+j) / 2
		out[sorted[i]] = avg / n
		i = j
	}
	return out
}
