package jquants

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type staticTokens struct {
	token       string
	invalidated int
}

func (s *staticTokens) IDToken(ctx context.Context) (string, error) { return s.token, nil }
func (s *staticTokens) Invalidate(ctx context.Context) error {
	s.invalidated++
	s.token = "fresh"
	return nil
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL
	if opts.Tokens == nil {
		opts.Tokens = &staticTokens{token: "tok"}
	}
	return NewClient(opts)
}

func day(s string) time.Time {
	t, ok := ParseDate(s)
	if !ok {
		panic("bad date " + s)
	}
	return t
}

func TestTradingDaysFiltersAndSorts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets/trading_calendar" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization=%q", got)
		}
		if r.URL.Query().Get("from") != "2024-01-01" || r.URL.Query().Get("to") != "2024-01-10" {
			t.Errorf("query=%s", r.URL.RawQuery)
		}
		_, _ = fmt.Fprint(w, `{"trading_calendar":[
			{"Date":"2024-01-05","HolidayDivision":"1"},
			{"Date":"2024-01-01","HolidayDivision":"0"},
			{"Date":"2024-01-04","HolidayDivision":"2"},
			{"Date":"2024-01-06","HolidayDivision":"0"},
			{"Date":"2024-01-05","HolidayDivision":"1"},
			{"Date":"2024-01-09","HolidayDivision":"1"}
		]}`)
	}, Options{})

	days, err := c.TradingDays(context.Background(), day("2024-01-01"), day("2024-01-10"))
	if err != nil {
		t.Fatalf("TradingDays: %v", err)
	}
	want := []string{"2024-01-04", "2024-01-05", "2024-01-09"}
	if len(days) != len(want) {
		t.Fatalf("days=%v want %v", days, want)
	}
	for i, d := range days {
		if d.Format(dateLayout) != want[i] {
			t.Fatalf("days[%d]=%s want %s", i, d.Format(dateLayout), want[i])
		}
	}
}

func TestTradingDaysAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}, Options{})
	_, err := c.TradingDays(context.Background(), day("2024-01-01"), day("2024-01-10"))
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("err=%v want APIError 500", err)
	}
}

func TestDailyQuotesByDateFollowsPagination(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Query().Get("date") != "2024-01-04" {
			t.Errorf("date=%q", r.URL.Query().Get("date"))
		}
		switch r.URL.Query().Get("pagination_key") {
		case "":
			_, _ = fmt.Fprint(w, `{"daily_quotes":[
				{"Code":"72030","Date":"2024-01-04","Open":100,"High":105,"Low":99,"Close":102,"Volume":1000},
				{"Code":null,"Date":"2024-01-04","Open":1}
			],"pagination_key":"k1"}`)
		case "k1":
			_, _ = fmt.Fprint(w, `{"daily_quotes":[
				{"Code":67580,"Date":"20240104","Open":"2,000","High":"","Low":null,"Close":"abc","Volume":"1200"}
			]}`)
		default:
			t.Errorf("unexpected key %q", r.URL.Query().Get("pagination_key"))
		}
	}, Options{})

	quotes, err := c.DailyQuotesByDate(context.Background(), day("2024-01-04"))
	if err != nil {
		t.Fatalf("DailyQuotesByDate: %v", err)
	}
	if hits != 2 {
		t.Fatalf("hits=%d want 2", hits)
	}
	if len(quotes) != 2 {
		t.Fatalf("quotes=%d want 2", len(quotes))
	}
	if quotes[0].Code != "72030" || *quotes[0].Close != 102 {
		t.Fatalf("first quote=%+v", quotes[0])
	}
	q := quotes[1]
	if q.Code != "67580" || q.Date.Format(dateLayout) != "2024-01-04" {
		t.Fatalf("second quote code=%s date=%s", q.Code, q.Date.Format(dateLayout))
	}
	if q.Open == nil || *q.Open != 2000 {
		t.Fatalf("open=%v want 2000", q.Open)
	}
	if q.High != nil || q.Low != nil || q.Close != nil {
		t.Fatalf("expected nil high/low/close, got %v %v %v", q.High, q.Low, q.Close)
	}
	if q.Volume == nil || *q.Volume != 1200 {
		t.Fatalf("volume=%v want 1200", q.Volume)
	}
}

func TestDailyQuotesPaginationLimit(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		_, _ = fmt.Fprintf(w, `{"daily_quotes":[],"pagination_key":"k%d"}`, n)
	}, Options{DayMaxPages: 3})

	_, err := c.DailyQuotesByDate(context.Background(), day("2024-01-04"))
	if !errors.Is(err, ErrPaginationLimit) {
		t.Fatalf("err=%v want ErrPaginationLimit", err)
	}
	if hits != 3 {
		t.Fatalf("hits=%d want 3", hits)
	}
}

func TestDailyQuotesRepeatedKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"daily_quotes":[],"pagination_key":"same"}`)
	}, Options{})
	_, err := c.DailyQuotesByCode(context.Background(), "7203", day("2024-01-01"), day("2024-01-31"))
	if !errors.Is(err, ErrPaginationLimit) {
		t.Fatalf("err=%v want ErrPaginationLimit", err)
	}
}

func TestDailyQuotesByCodeQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("code") != "7203" || q.Get("from") != "2024-01-01" || q.Get("to") != "2024-01-31" {
			t.Errorf("query=%s", r.URL.RawQuery)
		}
		_, _ = fmt.Fprint(w, `{"daily_quotes":[{"Code":"7203","Date":"2024-01-04","Close":1}]}`)
	}, Options{})
	quotes, err := c.DailyQuotesByCode(context.Background(), "7203", day("2024-01-01"), day("2024-01-31"))
	if err != nil || len(quotes) != 1 {
		t.Fatalf("quotes=%v err=%v", quotes, err)
	}
}

func TestUnauthorizedRefreshesTokenOnce(t *testing.T) {
	tokens := &staticTokens{token: "stale"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			http.Error(w, "expired", http.StatusUnauthorized)
			return
		}
		_, _ = fmt.Fprint(w, `{"trading_calendar":[]}`)
	}, Options{Tokens: tokens})

	if _, err := c.TradingDays(context.Background(), day("2024-01-01"), day("2024-01-02")); err != nil {
		t.Fatalf("TradingDays: %v", err)
	}
	if tokens.invalidated != 1 {
		t.Fatalf("invalidated=%d want 1", tokens.invalidated)
	}
}

func TestRequestTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, Options{RequestTimeout: 50 * time.Millisecond})
	_, err := c.DailyQuotesByDate(context.Background(), day("2024-01-04"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v want deadline exceeded", err)
	}
}

func TestNormalizeCode(t *testing.T) {
	cases := map[string]string{
		"72030":   "72030",
		"7203.T":  "7203",
		"JP:6758": "6758",
		"ab":      "",
		"":        "",
		"12a34":   "12",
	}
	for in, want := range cases {
		if got := NormalizeCode(in); got != want {
			t.Fatalf("NormalizeCode(%q)=%q want %q", in, got, want)
		}
	}
}

func TestCanonicalCode(t *testing.T) {
	cases := map[string]string{
		"7203":    "72030",
		" 72030 ": "72030",
		"7203.T":  "72030",
		"":        "",
	}
	for in, want := range cases {
		if got := CanonicalCode(in); got != want {
			t.Fatalf("CanonicalCode(%q)=%q want %q", in, got, want)
		}
	}
}
