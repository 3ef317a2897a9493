package metrics

import (
	"math"
	"sort"
	"time"

	"quotepanel/internal/models"
)

// Bar is a validated daily bar: every field finite, prices > 0, volume >= 0.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// CleanBars is the one place stored rows are validated. Rows with a missing or
// non-finite field, a non-positive price or a negative volume are dropped;
// duplicate dates keep the last row; the result is sorted by date.
func CleanBars(rows []models.PriceDaily) []Bar {
	byDate := make(map[time.Time]Bar, len(rows))
	for _, r := range rows {
		b, ok := toBar(r)
		if !ok {
			continue
		}
		byDate[b.Date] = b
	}
	out := make([]Bar, 0, len(byDate))
	for _, b := range byDate {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// GroupBars splits rows by code and cleans each history.
func GroupBars(rows []models.PriceDaily) map[string][]Bar {
	byCode := map[string][]models.PriceDaily{}
	for _, r := range rows {
		byCode[r.Code] = append(byCode[r.Code], r)
	}
	out := make(map[string][]Bar, len(byCode))
	for code, items := range byCode {
		out[code] = CleanBars(items)
	}
	return out
}

func toBar(r models.PriceDaily) (Bar, bool) {
	vals := [5]*float64{r.Open, r.High, r.Low, r.Close, r.Volume}
	for _, v := range vals {
		if v == nil || !finite(*v) {
			return Bar{}, false
		}
	}
	b := Bar{
		Date:   r.Date.UTC(),
		Open:   *r.Open,
		High:   *r.High,
		Low:    *r.Low,
		Close:  *r.Close,
		Volume: *r.Volume,
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 || b.Volume < 0 {
		return Bar{}, false
	}
	return b, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func nan() float64 { return math.NaN() }
