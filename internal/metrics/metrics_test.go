package metrics

import (
	"math"
	"testing"
	"time"

	"quotepanel/internal/models"
)

func p(v float64) *float64 { return &v }

func row(code string, day int, o, h, l, c, v float64) models.PriceDaily {
	return models.PriceDaily{
		Code:   code,
		Date:   time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Open:   p(o),
		High:   p(h),
		Low:    p(l),
		Close:  p(c),
		Volume: p(v),
	}
}

func tenDayHistory(code string) []models.PriceDaily {
	closes := []float64{102, 101, 103, 104, 102, 105, 107, 106, 108, 110}
	rows := []models.PriceDaily{
		row(code, 1, 100, 105, 99, 102, 1000),
		row(code, 2, 102, 103, 98, 101, 1200),
	}
	for i := 2; i < len(closes); i++ {
		c := closes[i]
		rows = append(rows, row(code, i+1, c-1, c+2, c-2, c, 1000+float64(i)*100))
	}
	return rows
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestRetMeanScenario(t *testing.T) {
	params := Params{NRet: 9, NMom: 9, NVolShort: 3, NVolLong: 5, NVola: 5, MinFloor: 5}
	bars := CleanBars(tenDayHistory("7203"))
	if len(bars) != 10 {
		t.Fatalf("bars=%d want 10", len(bars))
	}
	values, ok := ComputeOne(Medium, params, bars)
	if !ok {
		t.Fatalf("expected code to be scored")
	}

	var sum float64
	for i := 1; i < len(bars); i++ {
		sum += bars[i].Close/bars[i-1].Close - 1
	}
	want := sum / 9
	if !approx(values[0], want) {
		t.Fatalf("ret_mean=%v want %v", values[0], want)
	}
	if mom := bars[9].Close/bars[0].Close - 1; !approx(values[3], mom) {
		t.Fatalf("momentum=%v want %v", values[3], mom)
	}
}

func TestMediumVolumeAndVolatility(t *testing.T) {
	params := Params{NRet: 2, NMom: 2, NVolShort: 2, NVolLong: 2, NVola: 2, MinFloor: 3}
	rows := []models.PriceDaily{
		row("1", 1, 10, 11, 9, 10, 100),
		row("1", 2, 10, 11, 9, 10, 300),
		row("1", 3, 10, 12, 8, 10, 400),
		row("1", 4, 20, 22, 18, 20, 800),
	}
	values, ok := ComputeOne(Medium, params, CleanBars(rows))
	if !ok {
		t.Fatalf("expected scored")
	}
	// short window (400, 800) over the two bars before it (100, 300)
	if !approx(values[1], 600.0/200.0) {
		t.Fatalf("vol_change_ratio=%v want 3", values[1])
	}
	if !approx(values[2], (0.4+0.2)/2) {
		t.Fatalf("volatility_ratio_mean=%v want 0.3", values[2])
	}
}

func TestIntradayFactors(t *testing.T) {
	params := Params{NRet: 1, NMom: 1, NVolShort: 2, NVolLong: 1, NVola: 2, MinFloor: 2}
	rows := []models.PriceDaily{
		row("1", 1, 10, 11, 9, 10, 100),
		row("1", 2, 10, 12, 8, 11, 200),
		row("1", 3, 12, 15, 11, 14, 600),
	}
	values, ok := ComputeOne(Intraday, params, CleanBars(rows))
	if !ok {
		t.Fatalf("expected scored")
	}
	want := []float64{
		4.0 / 12.0,
		12.0/11.0 - 1,
		(4.0 / 12.0) / 0.3,
		14.0/12.0 - 1,
		600.0 / 150.0,
	}
	for i, name := range Intraday.Factors() {
		if !approx(values[i], want[i]) {
			t.Fatalf("%s=%v want %v", name, values[i], want[i])
		}
	}
}

func TestShortHistoryIsExcluded(t *testing.T) {
	params := Params{NRet: 9, NMom: 9, NVolShort: 3, NVolLong: 5, NVola: 5, MinFloor: 5}
	histories := GroupBars(append(tenDayHistory("7203"), tenDayHistory("6758")[:9]...))

	out, summary := Compute(Medium, params, histories)
	if len(out) != 1 || out[0].Code != "7203" {
		t.Fatalf("metrics=%+v want only 7203", out)
	}
	if summary.Codes != 2 || summary.CodesWithHistory != 1 || summary.CodesScored != 1 {
		t.Fatalf("summary=%+v", summary)
	}
}

func TestNonFiniteFactorExcludesCode(t *testing.T) {
	params := Params{NRet: 2, NMom: 2, NVolShort: 1, NVolLong: 2, NVola: 2, MinFloor: 3}
	rows := []models.PriceDaily{
		row("9", 1, 10, 11, 9, 10, 0),
		row("9", 2, 10, 11, 9, 10, 0),
		row("9", 3, 10, 11, 9, 10, 500),
	}
	out, summary := Compute(Medium, params, GroupBars(rows))
	if len(out) != 0 {
		t.Fatalf("metrics=%+v want none", out)
	}
	if summary.CodesNonFinite != 1 {
		t.Fatalf("summary=%+v want one non-finite code", summary)
	}
}

func TestCleanBars(t *testing.T) {
	bad := row("1", 5, 10, 11, 9, 10, 100)
	bad.Close = nil
	rows := []models.PriceDaily{
		row("1", 3, 10, 11, 9, 10, 100),
		row("1", 1, 10, 11, 9, 10, 100),
		row("1", 2, 0, 11, 9, 10, 100),
		row("1", 4, 10, 11, 9, 10, -1),
		row("1", 6, 10, 11, 9, math.Inf(1), 100),
		bad,
		row("1", 3, 10, 11, 9, 12, 100),
	}
	bars := CleanBars(rows)
	if len(bars) != 2 {
		t.Fatalf("bars=%d want 2", len(bars))
	}
	if bars[0].Date.Day() != 1 || bars[1].Date.Day() != 3 {
		t.Fatalf("bars not sorted: %v %v", bars[0].Date, bars[1].Date)
	}
	if bars[1].Close != 12 {
		t.Fatalf("duplicate date should keep last row, close=%v", bars[1].Close)
	}
}

func TestMinHistory(t *testing.T) {
	d := DefaultParams()
	if got := Medium.MinHistory(d); got != 21 {
		t.Fatalf("medium min=%d want 21", got)
	}
	intraday := Params{NRet: 20, NMom: 20, NVolShort: 5, NVolLong: 20, NVola: 5, MinFloor: 2}
	if got := Intraday.MinHistory(intraday); got != 6 {
		t.Fatalf("intraday min=%d want 6", got)
	}
}

func TestParseFactorSet(t *testing.T) {
	if fs, err := ParseFactorSet(""); err != nil || fs != Medium {
		t.Fatalf("fs=%q err=%v", fs, err)
	}
	if fs, err := ParseFactorSet("Intraday"); err != nil || fs != Intraday {
		t.Fatalf("fs=%q err=%v", fs, err)
	}
	if _, err := ParseFactorSet("weekly"); err == nil {
		t.Fatalf("expected error")
	}
}
