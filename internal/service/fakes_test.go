package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"quotepanel/internal/client/jquants"
	"quotepanel/internal/models"
	"quotepanel/internal/repository"
)

type memRepo struct {
	mu       sync.Mutex
	bars     map[string]models.PriceDaily
	days     map[string]int64
	codeDays map[string]map[string]bool
	states   map[string]models.SyncState
}

func newMemRepo() *memRepo {
	return &memRepo{
		bars:     map[string]models.PriceDaily{},
		days:     map[string]int64{},
		codeDays: map[string]map[string]bool{},
		states:   map[string]models.SyncState{},
	}
}

func barKey(code string, d time.Time) string { return code + "|" + models.FormatDate(d) }

func (r *memRepo) UpsertBars(ctx context.Context, bars []models.PriceDaily) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range bars {
		r.bars[barKey(b.Code, b.Date)] = b
	}
	return int64(len(bars)), nil
}

func (r *memRepo) ListBars(ctx context.Context, p repository.ListBarsParams) ([]models.PriceDaily, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PriceDaily
	for _, b := range r.bars {
		if !p.From.IsZero() && b.Date.Before(p.From) {
			continue
		}
		if !p.To.IsZero() && b.Date.After(p.To) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return barKey(out[i].Code, out[i].Date) < barKey(out[j].Code, out[j].Date) })
	return out, nil
}

func (r *memRepo) CountBars(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.bars)), nil
}

func (r *memRepo) IsDayIngested(ctx context.Context, day time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.days[models.FormatDate(day)]
	return ok, nil
}

func (r *memRepo) MarkDayIngested(ctx context.Context, day time.Time, rows int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.days[models.FormatDate(day)] = rows
	return nil
}

func (r *memRepo) ListIngestedDays(ctx context.Context, from, to time.Time) ([]models.PanelIngestDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PanelIngestDay
	for k, n := range r.days {
		d, _ := models.ParseDate(k)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, models.PanelIngestDay{Date: d, RowsUpserted: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *memRepo) CodeCoveredDays(ctx context.Context, code string, days []time.Time) ([]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []time.Time
	for _, d := range days {
		k := models.FormatDate(d)
		if _, ok := r.days[k]; ok || r.codeDays[code][k] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memRepo) MarkCodeDays(ctx context.Context, code string, days []time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.codeDays[code] == nil {
		r.codeDays[code] = map[string]bool{}
	}
	for _, d := range days {
		r.codeDays[code][models.FormatDate(d)] = true
	}
	return nil
}

func (r *memRepo) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[scope]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (r *memRepo) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state.Scope] = *state
	return nil
}

func (r *memRepo) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.SyncState
	for _, st := range r.states {
		out = append(out, st)
	}
	return out, nil
}

type fakeQuotes struct {
	mu          sync.Mutex
	days        []time.Time
	calendarErr error
	byDate      map[string][]jquants.Quote
	dateErr     map[string]error
	byCode      map[string][]jquants.Quote
	codeErr     map[string]error
	dateCalls   []string
	codeCalls   []string
}

func (f *fakeQuotes) TradingDays(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	if f.calendarErr != nil {
		return nil, f.calendarErr
	}
	var out []time.Time
	for _, d := range f.days {
		if !d.Before(from) && !d.After(to) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeQuotes) DailyQuotesByDate(ctx context.Context, day time.Time) ([]jquants.Quote, error) {
	k := models.FormatDate(day)
	f.mu.Lock()
	f.dateCalls = append(f.dateCalls, k)
	f.mu.Unlock()
	if err := f.dateErr[k]; err != nil {
		return nil, err
	}
	return f.byDate[k], nil
}

func (f *fakeQuotes) DailyQuotesByCode(ctx context.Context, code string, from, to time.Time) ([]jquants.Quote, error) {
	f.mu.Lock()
	f.codeCalls = append(f.codeCalls, code)
	f.mu.Unlock()
	if err := f.codeErr[code]; err != nil {
		return nil, err
	}
	var out []jquants.Quote
	for _, q := range f.byCode[code] {
		if !q.Date.Before(from) && !q.Date.After(to) {
			out = append(out, q)
		}
	}
	return out, nil
}

func date(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fp(v float64) *float64 { return &v }

func quote(code, day string, c, v float64) jquants.Quote {
	return jquants.Quote{
		Code:   code,
		Date:   date(day),
		Open:   fp(c - 1),
		High:   fp(c + 2),
		Low:    fp(c - 2),
		Close:  fp(c),
		Volume: fp(v),
	}
}

func dates(days ...string) []time.Time {
	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		out = append(out, date(d))
	}
	return out
}
