package jquants

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Quote is one decoded daily bar. Price and volume fields are nil when the
// provider sent null, an empty string or something that is not a number.
type Quote struct {
	Code   string
	Date   time.Time
	Open   *float64
	High   *float64
	Low    *float64
	Close  *float64
	Volume *float64
}

type TradingDay struct {
	Date            string `json:"Date"`
	HolidayDivision string `json:"HolidayDivision"`
}

type calendarResponse struct {
	TradingCalendar []TradingDay `json:"trading_calendar"`
}

type quotesPage struct {
	DailyQuotes   []json.RawMessage `json:"daily_quotes"`
	PaginationKey string            `json:"pagination_key"`
}

type rawQuote struct {
	Code   json.RawMessage `json:"Code"`
	Date   json.RawMessage `json:"Date"`
	Open   json.RawMessage `json:"Open"`
	High   json.RawMessage `json:"High"`
	Low    json.RawMessage `json:"Low"`
	Close  json.RawMessage `json:"Close"`
	Volume json.RawMessage `json:"Volume"`
}

// decodeQuotesPage decodes one page. Records that are not objects or that
// lack a usable code or date are dropped.
func decodeQuotesPage(body []byte) ([]Quote, string, error) {
	var page quotesPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, "", err
	}
	out := make([]Quote, 0, len(page.DailyQuotes))
	for _, item := range page.DailyQuotes {
		q, ok := decodeQuote(item)
		if !ok {
			continue
		}
		out = append(out, q)
	}
	return out, strings.TrimSpace(page.PaginationKey), nil
}

func decodeQuote(b json.RawMessage) (Quote, bool) {
	var raw rawQuote
	if err := json.Unmarshal(b, &raw); err != nil {
		return Quote{}, false
	}
	code := NormalizeCode(rawText(raw.Code))
	if code == "" {
		return Quote{}, false
	}
	date, ok := ParseDate(rawText(raw.Date))
	if !ok {
		return Quote{}, false
	}
	return Quote{
		Code:   code,
		Date:   date,
		Open:   parseNumber(raw.Open),
		High:   parseNumber(raw.High),
		Low:    parseNumber(raw.Low),
		Close:  parseNumber(raw.Close),
		Volume: parseNumber(raw.Volume),
	}, true
}

// NormalizeCode returns the first run of ASCII digits in s, or "".
func NormalizeCode(s string) string {
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

// CanonicalCode returns the 5-digit listing code the provider reports. A
// 4-digit code gets the trailing check digit 0.
func CanonicalCode(s string) string {
	code := NormalizeCode(strings.TrimSpace(s))
	if len(code) == 4 {
		return code + "0"
	}
	return code
}

// ParseDate accepts YYYY-MM-DD or YYYYMMDD and returns midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{dateLayout, "20060102"} {
		if len(s) != len(layout) {
			continue
		}
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// rawText unwraps a JSON string or returns the literal text of a number.
func rawText(b json.RawMessage) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return ""
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return string(b)
}

func parseNumber(b json.RawMessage) *float64 {
	text := rawText(b)
	if text == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", ""), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
