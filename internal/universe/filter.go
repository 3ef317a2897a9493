package universe

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CapFilter keeps companies with Min <= MarketCap < Max. A nil bound is open.
// Companies without a market cap never pass an active filter.
type CapFilter struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

// ParseCapFilter builds a filter from a mode ("over" or "under") and a
// threshold. An empty mode or threshold yields an inactive filter.
func ParseCapFilter(mode, threshold string) (CapFilter, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	threshold = strings.TrimSpace(threshold)
	if mode == "" || mode == "none" || mode == "all" {
		return CapFilter{}, nil
	}
	if threshold == "" {
		return CapFilter{}, fmt.Errorf("market cap threshold is required for mode %q", mode)
	}
	t, err := decimal.NewFromString(strings.ReplaceAll(threshold, ",", ""))
	if err != nil {
		return CapFilter{}, fmt.Errorf("invalid market cap threshold %q", threshold)
	}
	if t.IsNegative() {
		return CapFilter{}, fmt.Errorf("market cap threshold must be >= 0")
	}
	switch mode {
	case "over":
		return CapFilter{Min: &t}, nil
	case "under":
		return CapFilter{Max: &t}, nil
	default:
		return CapFilter{}, fmt.Errorf("unknown market cap mode %q (want over or under)", mode)
	}
}

func (f CapFilter) Active() bool {
	return f.Min != nil || f.Max != nil
}

func (f CapFilter) Allows(row CompanyRow) bool {
	if !f.Active() {
		return true
	}
	if row.MarketCap == nil {
		return false
	}
	if f.Min != nil && row.MarketCap.LessThan(*f.Min) {
		return false
	}
	if f.Max != nil && !row.MarketCap.LessThan(*f.Max) {
		return false
	}
	return true
}

// Codes returns the directory codes that pass the filter, ascending.
func (f CapFilter) Codes(dir *Directory) []string {
	var out []string
	for _, code := range dir.Codes() {
		row, _ := dir.Lookup(code)
		if f.Allows(row) {
			out = append(out, code)
		}
	}
	return out
}

func (f CapFilter) String() string {
	switch {
	case f.Min != nil && f.Max != nil:
		return fmt.Sprintf("%s <= cap < %s", f.Min.String(), f.Max.String())
	case f.Min != nil:
		return "cap >= " + f.Min.String()
	case f.Max != nil:
		return "cap < " + f.Max.String()
	default:
		return "all"
	}
}
