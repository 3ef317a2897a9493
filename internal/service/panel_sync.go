package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"quotepanel/internal/archive"
	"quotepanel/internal/client/jquants"
	"quotepanel/internal/models"
	"quotepanel/internal/repository"
	"quotepanel/internal/runner"
)

const (
	SyncModeByDay  = "by_day"
	SyncModeByCode = "by_code"

	defaultMaxRangeDays = 400
)

// QuoteSource is the part of the market-data client the sync needs.
type QuoteSource interface {
	TradingDays(ctx context.Context, from, to time.Time) ([]time.Time, error)
	DailyQuotesByDate(ctx context.Context, day time.Time) ([]jquants.Quote, error)
	DailyQuotesByCode(ctx context.Context, code string, from, to time.Time) ([]jquants.Quote, error)
}

type PanelSyncService struct {
	Store   repository.PanelRepository
	Quotes  QuoteSource
	Archive *archive.Writer
	Logger  *zap.Logger

	Concurrency  int
	MaxRangeDays int
	// Location decides what "today" is for SyncRecent.
	Location *time.Location
}

// SyncOptions selects the date range and the fan-out shape. A nil Codes
// syncs the whole universe day by day; a non-nil Codes (even empty) syncs
// only those codes, in parallel.
type SyncOptions struct {
	From  time.Time
	To    time.Time
	Codes []string
	Force bool
}

type SyncResult struct {
	RunID          string      `json:"runId"`
	Mode           string      `json:"mode"`
	From           string      `json:"from"`
	To             string      `json:"to"`
	RequestedDays  int         `json:"requestedDays"`
	FetchedDays    int         `json:"fetchedDays"`
	SkippedDays    int         `json:"skippedDays"`
	EmptyDays      int         `json:"emptyDays"`
	Quotes         int         `json:"quotes"`
	Upserted       int64       `json:"upserted"`
	RequestedCodes int         `json:"requestedCodes,omitempty"`
	FetchedCodes   int         `json:"fetchedCodes,omitempty"`
	SkippedCodes   int         `json:"skippedCodes,omitempty"`
	FailedCodes    int         `json:"failedCodes,omitempty"`
	Errors         []ItemError `json:"errors,omitempty"`
	DurationMS     int64       `json:"durationMs"`
}

func (s *PanelSyncService) Sync(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	if err := validateRange(opts.From, opts.To, s.maxRangeDays()); err != nil {
		return SyncResult{}, err
	}
	if s == nil || s.Store == nil || s.Quotes == nil {
		return SyncResult{}, errSyncUnavailable
	}
	if opts.Codes != nil {
		return s.syncByCode(ctx, opts)
	}
	return s.syncByDay(ctx, opts)
}

// SyncRecent syncs the trailing lookbackDays calendar days up to today.
func (s *PanelSyncService) SyncRecent(ctx context.Context, lookbackDays int) (SyncResult, error) {
	if lookbackDays <= 0 {
		lookbackDays = 7
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	now := time.Now().In(loc)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, 0, -lookbackDays)
	return s.Sync(ctx, SyncOptions{From: from, To: to})
}

func (s *PanelSyncService) syncByDay(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	started := time.Now()
	result := s.newResult(SyncModeByDay, opts)
	scope := models.SyncScopeDailyQuotes

	days, err := s.Quotes.TradingDays(ctx, opts.From, opts.To)
	if err != nil {
		err = upstreamErr("trading_calendar", result.From+".."+result.To, err)
		s.writeSyncError(ctx, scope, result.RunID, err)
		return result, err
	}
	result.RequestedDays = len(days)

	var watermark *time.Time
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			s.writeSyncError(ctx, scope, result.RunID, err)
			return result, err
		}
		key := models.FormatDate(day)
		if !opts.Force {
			done, err := s.Store.IsDayIngested(ctx, day)
			if err != nil {
				err = fmt.Errorf("ledger lookup %s: %w", key, err)
				s.writeSyncError(ctx, scope, result.RunID, err)
				return result, err
			}
			if done {
				result.SkippedDays++
				continue
			}
		}

		quotes, err := s.Quotes.DailyQuotesByDate(ctx, day)
		if err != nil {
			err = upstreamErr("daily_quotes", key, err)
			s.writeSyncError(ctx, scope, result.RunID, err)
			return result, err
		}
		bars := quotesToBars(quotes)
		result.Quotes += len(quotes)
		if len(bars) == 0 {
			// nothing published yet; leave the day open for the next run
			result.EmptyDays++
			if s.Logger != nil {
				s.Logger.Info("no quotes for trading day", zap.String("date", key), zap.String("run_id", result.RunID))
			}
			continue
		}
		s.archiveDay(day, bars)

		n, err := s.Store.UpsertBars(ctx, bars)
		if err != nil {
			err = fmt.Errorf("upsert bars %s: %w", key, err)
			s.writeSyncError(ctx, scope, result.RunID, err)
			return result, err
		}
		result.Upserted += n
		if err := s.Store.MarkDayIngested(ctx, day, n); err != nil {
			err = fmt.Errorf("mark ingested %s: %w", key, err)
			s.writeSyncError(ctx, scope, result.RunID, err)
			return result, err
		}
		result.FetchedDays++
		d := day
		watermark = &d
		if s.Logger != nil {
			s.Logger.Info("trading day ingested",
				zap.String("date", key),
				zap.Int("quotes", len(quotes)),
				zap.Int64("upserted", n),
				zap.String("run_id", result.RunID),
			)
		}
	}

	result.DurationMS = time.Since(started).Milliseconds()
	s.writeSyncSuccess(ctx, scope, result, watermark, nil)
	return result, nil
}

type codeOutcome struct {
	skipped  bool
	quotes   int
	upserted int64
	lastDay  *time.Time
}

func (s *PanelSyncService) syncByCode(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	started := time.Now()
	result := s.newResult(SyncModeByCode, opts)
	scope := models.SyncScopeDailyQuotesByCode

	days, err := s.Quotes.TradingDays(ctx, opts.From, opts.To)
	if err != nil {
		err = upstreamErr("trading_calendar", result.From+".."+result.To, err)
		s.writeSyncError(ctx, scope, result.RunID, err)
		return result, err
	}
	result.RequestedDays = len(days)

	codes := cleanCodes(opts.Codes)
	result.RequestedCodes = len(codes)
	if len(days) == 0 || len(codes) == 0 {
		result.DurationMS = time.Since(started).Milliseconds()
		s.writeSyncSuccess(ctx, scope, result, nil, nil)
		return result, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	outcomes := make([]codeOutcome, len(codes))
	results := runner.Run(runCtx, indexes(len(codes)), s.Concurrency, func(ctx context.Context, i int) error {
		out, err := s.syncCode(ctx, codes[i], days, opts.Force)
		if isAuthError(err) {
			cancel()
		}
		outcomes[i] = out
		return err
	})

	var authErr error
	failed := runner.Failed(results)
	for _, r := range failed {
		if isAuthError(r.Err) && authErr == nil {
			authErr = r.Err
		}
		result.Errors = append(result.Errors, ItemError{Key: codes[r.Item], Error: r.Err.Error()})
	}
	result.FailedCodes = len(failed)

	var watermark *time.Time
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		out := outcomes[r.Item]
		if out.skipped {
			result.SkippedCodes++
			continue
		}
		result.FetchedCodes++
		result.Quotes += out.quotes
		result.Upserted += out.upserted
		if out.lastDay != nil && (watermark == nil || out.lastDay.After(*watermark)) {
			watermark = out.lastDay
		}
	}
	result.DurationMS = time.Since(started).Milliseconds()

	if authErr != nil {
		s.writeSyncError(ctx, scope, result.RunID, authErr)
		return result, authErr
	}
	if err := ctx.Err(); err != nil {
		s.writeSyncError(ctx, scope, result.RunID, err)
		return result, err
	}
	var partial error
	if result.FailedCodes > 0 {
		partial = fmt.Errorf("%d of %d codes failed", result.FailedCodes, result.RequestedCodes)
		if s.Logger != nil {
			s.Logger.Warn("per-code sync finished with failures",
				zap.Int("failed", result.FailedCodes),
				zap.Int("requested", result.RequestedCodes),
				zap.String("run_id", result.RunID),
			)
		}
	}
	s.writeSyncSuccess(ctx, scope, result, watermark, partial)
	return result, nil
}

// syncCode fetches the uncovered span of days for one code. Days are marked
// only up to the latest bar the provider returned, so a day that is not yet
// published stays open.
func (s *PanelSyncService) syncCode(ctx context.Context, code string, days []time.Time, force bool) (codeOutcome, error) {
	pending := days
	if !force {
		covered, err := s.Store.CodeCoveredDays(ctx, code, days)
		if err != nil {
			return codeOutcome{}, fmt.Errorf("ledger lookup %s: %w", code, err)
		}
		pending = subtractDays(days, covered)
	}
	if len(pending) == 0 {
		return codeOutcome{skipped: true}, nil
	}
	from, to := pending[0], pending[len(pending)-1]

	quotes, err := s.Quotes.DailyQuotesByCode(ctx, code, from, to)
	if err != nil {
		return codeOutcome{}, upstreamErr("daily_quotes_by_code", code, err)
	}
	bars := quotesToBars(quotes)
	out := codeOutcome{quotes: len(quotes)}
	if len(bars) == 0 {
		return out, nil
	}
	if s.Archive.Enabled() {
		if _, err := s.Archive.WriteCode(code, from, to, bars); err != nil && s.Logger != nil {
			s.Logger.Warn("archive write failed", zap.String("code", code), zap.Error(err))
		}
	}
	n, err := s.Store.UpsertBars(ctx, bars)
	if err != nil {
		return out, fmt.Errorf("upsert bars %s: %w", code, err)
	}
	out.upserted = n

	last := bars[0].Date
	for _, b := range bars[1:] {
		if b.Date.After(last) {
			last = b.Date
		}
	}
	var mark []time.Time
	for _, d := range pending {
		if !d.After(last) {
			mark = append(mark, d)
		}
	}
	if err := s.Store.MarkCodeDays(ctx, code, mark); err != nil {
		return out, fmt.Errorf("mark code days %s: %w", code, err)
	}
	out.lastDay = &last
	return out, nil
}

func (s *PanelSyncService) archiveDay(day time.Time, bars []models.PriceDaily) {
	if !s.Archive.Enabled() {
		return
	}
	if _, err := s.Archive.WriteDay(day, bars); err != nil && s.Logger != nil {
		s.Logger.Warn("archive write failed", zap.String("date", models.FormatDate(day)), zap.Error(err))
	}
}

func (s *PanelSyncService) newResult(mode string, opts SyncOptions) SyncResult {
	return SyncResult{
		RunID: uuid.NewString(),
		Mode:  mode,
		From:  models.FormatDate(opts.From),
		To:    models.FormatDate(opts.To),
	}
}

func (s *PanelSyncService) maxRangeDays() int {
	if s == nil || s.MaxRangeDays <= 0 {
		return defaultMaxRangeDays
	}
	return s.MaxRangeDays
}

func (s *PanelSyncService) writeSyncError(ctx context.Context, scope, runID string, err error) {
	if s.Logger != nil {
		s.Logger.Warn("panel sync failed", zap.String("scope", scope), zap.String("run_id", runID), zap.Error(err))
	}
	// the run may have failed because ctx ended; still record it
	ctx = context.WithoutCancel(ctx)
	now := time.Now().UTC()
	state, getErr := s.Store.GetSyncState(ctx, scope)
	if getErr != nil || state == nil {
		state = &models.SyncState{Scope: scope}
	}
	state.LastAttemptAt = &now
	state.LastError = strPtr(err.Error())
	state.LastRunID = strPtr(runID)
	if saveErr := s.Store.SaveSyncState(ctx, state); saveErr != nil && s.Logger != nil {
		s.Logger.Warn("save sync state failed", zap.String("scope", scope), zap.Error(saveErr))
	}
}

func (s *PanelSyncService) writeSyncSuccess(ctx context.Context, scope string, result SyncResult, watermark *time.Time, partial error) {
	now := time.Now().UTC()
	state, err := s.Store.GetSyncState(ctx, scope)
	if err != nil || state == nil {
		state = &models.SyncState{Scope: scope}
	}
	state.LastAttemptAt = &now
	state.LastSuccessAt = &now
	state.LastRunID = strPtr(result.RunID)
	state.LastError = nil
	if partial != nil {
		state.LastError = strPtr(partial.Error())
	}
	if watermark != nil && (state.WatermarkDate == nil || watermark.After(*state.WatermarkDate)) {
		w := *watermark
		state.WatermarkDate = &w
	}
	if b, err := json.Marshal(result); err == nil {
		state.StatsJSON = datatypes.JSON(b)
	}
	if err := s.Store.SaveSyncState(ctx, state); err != nil && s.Logger != nil {
		s.Logger.Warn("save sync state failed", zap.String("scope", scope), zap.Error(err))
	}
}

func validateRange(from, to time.Time, maxDays int) error {
	if from.IsZero() {
		return invalid("from", "date is required (YYYY-MM-DD)")
	}
	if to.IsZero() {
		return invalid("to", "date is required (YYYY-MM-DD)")
	}
	if from.After(to) {
		return invalid("from", "%s is after to %s", models.FormatDate(from), models.FormatDate(to))
	}
	if span := int(to.Sub(from).Hours()/24) + 1; maxDays > 0 && span > maxDays {
		return invalid("to", "range of %d days exceeds the limit of %d", span, maxDays)
	}
	return nil
}

func quotesToBars(quotes []jquants.Quote) []models.PriceDaily {
	out := make([]models.PriceDaily, 0, len(quotes))
	for _, q := range quotes {
		if q.Code == "" || q.Date.IsZero() {
			continue
		}
		out = append(out, models.PriceDaily{
			Code:   q.Code,
			Date:   q.Date,
			Open:   q.Open,
			High:   q.High,
			Low:    q.Low,
			Close:  q.Close,
			Volume: q.Volume,
		})
	}
	return out
}

func cleanCodes(codes []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(codes))
	for _, raw := range codes {
		code := jquants.CanonicalCode(raw)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func subtractDays(days, covered []time.Time) []time.Time {
	if len(covered) == 0 {
		return days
	}
	done := make(map[string]struct{}, len(covered))
	for _, d := range covered {
		done[models.FormatDate(d)] = struct{}{}
	}
	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		if _, ok := done[models.FormatDate(d)]; !ok {
			out = append(out, d)
		}
	}
	return out
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func strPtr(s string) *string {
	return &s
}

var errSyncUnavailable = errors.New("panel sync unavailable")
