// Package universe reads the company reference file and narrows the code
// universe by market capitalization.
package universe

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// CompanyRow is one line of the company reference file. MarketCap is nil when
// the file has no usable value.
type CompanyRow struct {
	Code        string           `json:"code"`
	Name        string           `json:"name"`
	NameEnglish string           `json:"nameEnglish,omitempty"`
	Sector      string           `json:"sector,omitempty"`
	MarketCap   *decimal.Decimal `json:"marketCap,omitempty"`
}

var columnAliases = map[string][]string{
	"code":         {"code", "local_code", "localcode", "ticker"},
	"name":         {"name", "company_name", "companyname"},
	"name_english": {"name_english", "company_name_english", "companynameenglish", "english_name"},
	"sector":       {"sector", "sector33", "sector33_code_name", "sector17_code_name"},
	"market_cap":   {"market_cap", "marketcap", "market_capitalization"},
}

func LoadCompaniesCSV(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseCompaniesCSV(f)
}

func ParseCompaniesCSV(r io.Reader) (*Directory, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("companies csv header: %w", err)
	}
	raw := map[string]int{}
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		raw[strings.ToLower(strings.TrimSpace(h))] = i
	}
	col := map[string]int{}
	for canonical, aliases := range columnAliases {
		for _, a := range aliases {
			if i, ok := raw[a]; ok {
				col[canonical] = i
				break
			}
		}
	}
	if _, ok := col["code"]; !ok {
		return nil, fmt.Errorf("companies csv missing required column: code")
	}

	rows := make([]CompanyRow, 0, 4096)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		code := digits(field(rec, col, "code"))
		if code == "" {
			continue
		}
		rows = append(rows, CompanyRow{
			Code:        code,
			Name:        field(rec, col, "name"),
			NameEnglish: field(rec, col, "name_english"),
			Sector:      field(rec, col, "sector"),
			MarketCap:   parseCap(field(rec, col, "market_cap")),
		})
	}
	return NewDirectory(rows), nil
}

func field(rec []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseCap(s string) *decimal.Decimal {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "-" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return nil
	}
	return &d
}

func digits(s string) string {
	start := -1
	for i := 0; i < len(s); i++ {
		isDigit := s[i] >= '0' && s[i] <= '9'
		if isDigit && start < 0 {
			start = i
		}
		if !isDigit && start >= 0 {
			return s[start:i]
		}
	}
	if start < 0 {
		return ""
	}
	return s[start:]
}
