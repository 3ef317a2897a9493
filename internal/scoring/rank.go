package scoring

import (
	"fmt"
	"math"
	"sort"

	"quotepanel/internal/metrics"
	"quotepanel/internal/universe"
)

const weightFloor = 1e-12

type ScoredItem struct {
	Rank        int                  `json:"rank"`
	Code        string               `json:"code"`
	Company     *universe.CompanyRow `json:"company,omitempty"`
	Score       float64              `json:"score"`
	Factors     map[string]float64   `json:"factors"`
	Percentiles map[string]float64   `json:"percentiles"`
}

// Rank scores every metric as the weighted mean of its factor percentiles,
// sorts descending and keeps the first limit items (all when limit <= 0).
// weights align with names. Metrics are ordered by code before sorting so
// equal scores always come out in the same order.
func Rank(ms []metrics.Metric, names []string, weights []float64, limit int) ([]ScoredItem, error) {
	if len(weights) != len(names) {
		return nil, fmt.Errorf("got %d weights for %d factors", len(weights), len(names))
	}
	var wsum float64
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("weight %s must be finite and >= 0, got %v", names[i], w)
		}
		wsum += w
	}
	if wsum < weightFloor {
		wsum = weightFloor
	}

	ordered := make([]metrics.Metric, len(ms))
	copy(ordered, ms)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Code < ordered[j].Code })

	pct := make([]map[float64]float64, len(names))
	for k := range names {
		column := make([]float64, 0, len(ordered))
		for _, m := range ordered {
			column = append(column, m.Values[k])
		}
		pct[k] = PercentileRanks(column)
	}

	items := make([]ScoredItem, 0, len(ordered))
	for _, m := range ordered {
		item := ScoredItem{
			Code:        m.Code,
			Factors:     make(map[string]float64, len(names)),
			Percentiles: make(map[string]float64, len(names)),
		}
		var acc float64
		for k, name := range names {
			v := m.Values[k]
			pk := pct[k][v]
			item.Factors[name] = v
			item.Percentiles[name] = pk
			acc += weights[k] * pk
		}
		item.Score = acc / wsum
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	for i := range items {
		items[i].Rank = i + 1
	}
	return items, nil
}
