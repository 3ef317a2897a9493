package metrics

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

type Metric struct {
	Code   string
	Set    FactorSet
	Values []float64
}

// Map keys the values by factor name.
func (m Metric) Map() map[string]float64 {
	names := m.Set.Factors()
	out := make(map[string]float64, len(names))
	for i, name := range names {
		if i < len(m.Values) {
			out[name] = m.Values[i]
		}
	}
	return out
}

type Summary struct {
	Codes            int `json:"codes"`
	CodesWithHistory int `json:"codesWithHistory"`
	CodesScored      int `json:"codesScored"`
	CodesNonFinite   int `json:"codesNonFinite"`
}

// Compute evaluates the factor set for every code, ascending by code. Codes
// with short histories or any non-finite factor are left out and counted.
func Compute(set FactorSet, p Params, histories map[string][]Bar) ([]Metric, Summary) {
	codes := make([]string, 0, len(histories))
	for code := range histories {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	summary := Summary{Codes: len(codes)}
	minLen := set.MinHistory(p)
	out := make([]Metric, 0, len(codes))
	for _, code := range codes {
		bars := histories[code]
		if len(bars) < minLen {
			continue
		}
		summary.CodesWithHistory++
		values := evaluate(set, p, bars)
		if !allFinite(values) {
			summary.CodesNonFinite++
			continue
		}
		out = append(out, Metric{Code: code, Set: set, Values: values})
	}
	summary.CodesScored = len(out)
	return out, summary
}

// ComputeOne evaluates a single history. ok is false when the history is too
// short or a factor is not finite.
func ComputeOne(set FactorSet, p Params, bars []Bar) ([]float64, bool) {
	if len(bars) < set.MinHistory(p) {
		return nil, false
	}
	values := evaluate(set, p, bars)
	return values, allFinite(values)
}

func evaluate(set FactorSet, p Params, bars []Bar) []float64 {
	if set == Intraday {
		return intradayFactors(p, bars)
	}
	return mediumFactors(p, bars)
}

func mediumFactors(p Params, bars []Bar) []float64 {
	n := len(bars)

	returns := make([]float64, 0, p.NRet)
	for i := n - p.NRet; i < n; i++ {
		returns = append(returns, bars[i].Close/bars[i-1].Close-1)
	}
	retMean := stat.Mean(returns, nil)

	short := volumes(bars[n-p.NVolShort:])
	longStart := n - p.NVolShort - p.NVolLong
	if longStart < 0 {
		longStart = 0
	}
	long := volumes(bars[longStart : n-p.NVolShort])
	volChange := ratioOfMeans(short, long)

	ranges := make([]float64, 0, p.NVola)
	for _, b := range bars[n-p.NVola:] {
		ranges = append(ranges, (b.High-b.Low)/b.Open)
	}
	volatility := stat.Mean(ranges, nil)

	momentum := bars[n-1].Close/bars[n-1-p.NMom].Close - 1

	return []float64{retMean, volChange, volatility, momentum}
}

func intradayFactors(p Params, bars []Bar) []float64 {
	n := len(bars)
	today := bars[n-1]
	prev := bars[n-2]

	openVol := (today.High - today.Low) / today.Open
	gap := today.Open/prev.Close - 1

	prior := make([]float64, 0, p.NVola)
	for _, b := range bars[n-1-p.NVola : n-1] {
		prior = append(prior, (b.High-b.Low)/b.Open)
	}
	spike := openVol / stat.Mean(prior, nil)

	momentum := today.Close/today.Open - 1
	surge := today.Volume / stat.Mean(volumes(bars[n-1-p.NVolShort:n-1]), nil)

	return []float64{openVol, gap, spike, momentum, surge}
}

func volumes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

func ratioOfMeans(num, den []float64) float64 {
	if len(num) == 0 || len(den) == 0 {
		return nan()
	}
	return stat.Mean(num, nil) / stat.Mean(den, nil)
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if !finite(v) {
			return false
		}
	}
	return true
}
