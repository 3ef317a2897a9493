// Package metrics turns cleaned bar histories into per-code factor vectors.
package metrics

import (
	"fmt"
	"strings"
)

type FactorSet string

const (
	Medium   FactorSet = "medium"
	Intraday FactorSet = "intraday"
)

var factorNames = map[FactorSet][]string{
	Medium: {
		"ret_mean",
		"vol_change_ratio",
		"volatility_ratio_mean",
		"momentum_n_days",
	},
	Intraday: {
		"open_volatility_ratio",
		"gap_ratio",
		"volatility_spike_ratio",
		"intraday_momentum",
		"volume_surge_today",
	},
}

func ParseFactorSet(s string) (FactorSet, error) {
	switch FactorSet(strings.ToLower(strings.TrimSpace(s))) {
	case "", Medium:
		return Medium, nil
	case Intraday:
		return Intraday, nil
	default:
		return "", fmt.Errorf("unknown factor set %q", s)
	}
}

// Factors lists the factor names in the order Metric.Values uses.
func (fs FactorSet) Factors() []string {
	names := factorNames[fs]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Params are the lookback windows, in bars.
type Params struct {
	NRet      int `json:"nRet"`
	NMom      int `json:"nMom"`
	NVolShort int `json:"nVolShort"`
	NVolLong  int `json:"nVolLong"`
	NVola     int `json:"nVola"`
	MinFloor  int `json:"minFloor"`
}

func DefaultParams() Params {
	return Params{NRet: 20, NMom: 20, NVolShort: 5, NVolLong: 20, NVola: 20, MinFloor: 5}
}

// WithDefaults fills zero windows from DefaultParams.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.NRet <= 0 {
		p.NRet = d.NRet
	}
	if p.NMom <= 0 {
		p.NMom = d.NMom
	}
	if p.NVolShort <= 0 {
		p.NVolShort = d.NVolShort
	}
	if p.NVolLong <= 0 {
		p.NVolLong = d.NVolLong
	}
	if p.NVola <= 0 {
		p.NVola = d.NVola
	}
	if p.MinFloor <= 0 {
		p.MinFloor = d.MinFloor
	}
	return p
}

func (p Params) Validate() error {
	checks := []struct {
		name string
		v    int
	}{
		{"n_ret", p.NRet},
		{"n_mom", p.NMom},
		{"n_vol_short", p.NVolShort},
		{"n_vol_long", p.NVolLong},
		{"n_vola", p.NVola},
		{"min_floor", p.MinFloor},
	}
	for _, c := range checks {
		if c.v < 1 {
			return fmt.Errorf("%s must be >= 1, got %d", c.name, c.v)
		}
	}
	return nil
}

// MinHistory is the shortest cleaned history a code needs to be scored.
func (fs FactorSet) MinHistory(p Params) int {
	switch fs {
	case Intraday:
		return maxInt(p.NVola+1, p.NVolShort+1, 2, p.MinFloor)
	default:
		return maxInt(p.NRet+1, p.NMom+1, p.NVolShort+1, p.NVola, p.MinFloor)
	}
}

func maxInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
