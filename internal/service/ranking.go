package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"quotepanel/internal/metrics"
	"quotepanel/internal/models"
	"quotepanel/internal/repository"
	"quotepanel/internal/scoring"
	"quotepanel/internal/universe"
)

// RankingService runs the whole pipeline: optional sync, read-back, factor
// computation, percentile normalization and the composite ranking.
type RankingService struct {
	Store    repository.PanelRepository
	Sync     *PanelSyncService
	Universe *universe.Source
	Logger   *zap.Logger

	Params         map[metrics.FactorSet]metrics.Params
	DefaultWeights map[string]float64
	DefaultLimit   int
	MaxLimit       int
	DefaultSet     metrics.FactorSet
}

type RankingOptions struct {
	From      time.Time
	To        time.Time
	FactorSet string
	// Weights overrides per-factor weights; missing factors use the defaults.
	Weights      map[string]float64
	Limit        int
	CapMode      string
	CapThreshold string
	SkipSync     bool
	Force        bool
}

type Diagnostics struct {
	BarsRead         int    `json:"barsRead"`
	Codes            int    `json:"codes"`
	CodesWithHistory int    `json:"codesWithHistory"`
	CodesScored      int    `json:"codesScored"`
	CodesNonFinite   int    `json:"codesNonFinite"`
	MinHistory       int    `json:"minHistory"`
	Universe         int    `json:"universe,omitempty"`
	CapFilter        string `json:"capFilter"`
}

type RankingResult struct {
	From        string               `json:"from"`
	To          string               `json:"to"`
	FactorSet   metrics.FactorSet    `json:"factorSet"`
	Factors     []string             `json:"factors"`
	Weights     map[string]float64   `json:"weights"`
	Params      metrics.Params       `json:"params"`
	Items       []scoring.ScoredItem `json:"items"`
	Sync        *SyncResult          `json:"sync,omitempty"`
	Diagnostics Diagnostics          `json:"diagnostics"`
}

type rankingPlan struct {
	set     metrics.FactorSet
	params  metrics.Params
	names   []string
	weights []float64
	limit   int
	filter  universe.CapFilter
}

func (s *RankingService) Rank(ctx context.Context, opts RankingOptions) (RankingResult, error) {
	plan, err := s.plan(opts)
	if err != nil {
		return RankingResult{}, err
	}
	if s.Store == nil {
		return RankingResult{}, fmt.Errorf("ranking unavailable: store is nil")
	}
	result := RankingResult{
		From:      models.FormatDate(opts.From),
		To:        models.FormatDate(opts.To),
		FactorSet: plan.set,
		Factors:   plan.names,
		Weights:   weightMap(plan.names, plan.weights),
		Params:    plan.params,
		Items:     []scoring.ScoredItem{},
	}
	result.Diagnostics.CapFilter = plan.filter.String()
	result.Diagnostics.MinHistory = plan.set.MinHistory(plan.params)

	var dir *universe.Directory
	var codes []string
	if plan.filter.Active() {
		dir, err = s.Universe.Directory(ctx)
		if err != nil {
			return result, fmt.Errorf("company directory: %w", err)
		}
		codes = plan.filter.Codes(dir)
		if codes == nil {
			codes = []string{}
		}
		result.Diagnostics.Universe = len(codes)
	}

	if !opts.SkipSync && s.Sync != nil {
		res, err := s.Sync.Sync(ctx, SyncOptions{From: opts.From, To: opts.To, Codes: codes, Force: opts.Force})
		result.Sync = &res
		if err != nil {
			return result, err
		}
	}

	rows, err := s.Store.ListBars(ctx, repository.ListBarsParams{From: opts.From, To: opts.To})
	if err != nil {
		return result, fmt.Errorf("read bars: %w", err)
	}
	if plan.filter.Active() {
		rows = filterRows(rows, dir, plan.filter)
	}
	result.Diagnostics.BarsRead = len(rows)

	histories := metrics.GroupBars(rows)
	ms, summary := metrics.Compute(plan.set, plan.params, histories)
	result.Diagnostics.Codes = summary.Codes
	result.Diagnostics.CodesWithHistory = summary.CodesWithHistory
	result.Diagnostics.CodesScored = summary.CodesScored
	result.Diagnostics.CodesNonFinite = summary.CodesNonFinite

	items, err := scoring.Rank(ms, plan.names, plan.weights, plan.limit)
	if err != nil {
		return result, &ValidationError{Field: "weights", Reason: err.Error()}
	}

	if dir == nil && s.Universe != nil && len(items) > 0 {
		if d, err := s.Universe.Directory(ctx); err == nil {
			dir = d
		} else if s.Logger != nil {
			s.Logger.Warn("company directory unavailable; ranking without names", zap.Error(err))
		}
	}
	if dir != nil {
		for i := range items {
			if row, ok := dir.Lookup(items[i].Code); ok {
				r := row
				items[i].Company = &r
			}
		}
	}
	result.Items = items

	if s.Logger != nil {
		s.Logger.Info("ranking computed",
			zap.String("factor_set", string(plan.set)),
			zap.String("from", result.From),
			zap.String("to", result.To),
			zap.Int("bars", result.Diagnostics.BarsRead),
			zap.Int("scored", result.Diagnostics.CodesScored),
			zap.Int("items", len(items)),
		)
	}
	return result, nil
}

// plan validates every caller input before any network or store work.
func (s *RankingService) plan(opts RankingOptions) (rankingPlan, error) {
	maxDays := defaultMaxRangeDays
	if s.Sync != nil {
		maxDays = s.Sync.maxRangeDays()
	}
	if err := validateRange(opts.From, opts.To, maxDays); err != nil {
		return rankingPlan{}, err
	}

	set := s.DefaultSet
	if strings.TrimSpace(opts.FactorSet) != "" || set == "" {
		parsed, err := metrics.ParseFactorSet(opts.FactorSet)
		if err != nil {
			return rankingPlan{}, invalid("factorSet", "%s", err.Error())
		}
		set = parsed
	}
	params, ok := s.Params[set]
	if !ok {
		params = metrics.DefaultParams()
	}
	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return rankingPlan{}, invalid("params", "%s", err.Error())
	}

	limit := opts.Limit
	if limit == 0 {
		limit = s.DefaultLimit
	}
	if limit <= 0 {
		limit = 50
	}
	maxLimit := s.MaxLimit
	if maxLimit <= 0 {
		maxLimit = 500
	}
	if opts.Limit < 0 || limit > maxLimit {
		return rankingPlan{}, invalid("limit", "must be between 1 and %d", maxLimit)
	}

	names := set.Factors()
	weights, err := resolveWeights(names, s.DefaultWeights, opts.Weights)
	if err != nil {
		return rankingPlan{}, err
	}

	filter, err := universe.ParseCapFilter(opts.CapMode, opts.CapThreshold)
	if err != nil {
		return rankingPlan{}, invalid("cap", "%s", err.Error())
	}
	if filter.Active() && s.Universe == nil {
		return rankingPlan{}, invalid("cap", "company directory is not configured")
	}

	return rankingPlan{
		set:     set,
		params:  params,
		names:   names,
		weights: weights,
		limit:   limit,
		filter:  filter,
	}, nil
}

// resolveWeights aligns weights with names. Overrides win over defaults and a
// factor with neither gets 1.
func resolveWeights(names []string, defaults, overrides map[string]float64) ([]float64, error) {
	known := make(map[string]struct{}, len(names))
	for _, n := range names {
		known[n] = struct{}{}
	}
	unknown := make([]string, 0)
	for k := range overrides {
		if _, ok := known[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, invalid("weights", "unknown factor(s) %s (want %s)", strings.Join(unknown, ", "), strings.Join(names, ", "))
	}

	out := make([]float64, len(names))
	for i, n := range names {
		w := 1.0
		if v, ok := defaults[n]; ok {
			w = v
		}
		if v, ok := overrides[n]; ok {
			w = v
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, invalid("weights", "%s must be finite and >= 0", n)
		}
		out[i] = w
	}
	return out, nil
}

func weightMap(names []string, weights []float64) map[string]float64 {
	out := make(map[string]float64, len(names))
	for i, n := range names {
		out[n] = weights[i]
	}
	return out
}

func filterRows(rows []models.PriceDaily, dir *universe.Directory, filter universe.CapFilter) []models.PriceDaily {
	allowed := map[string]bool{}
	out := rows[:0:0]
	for _, r := range rows {
		ok, seen := allowed[r.Code]
		if !seen {
			row, found := dir.Lookup(r.Code)
			ok = found && filter.Allows(row)
			allowed[r.Code] = ok
		}
		if ok {
			out = append(out, r)
		}
	}
	return out
}
