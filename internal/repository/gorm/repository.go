package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quotepanel/internal/models"
	"quotepanel/internal/repository"
)

const defaultChunkSize = 400

type Store struct {
	db        *gorm.DB
	chunkSize int
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, chunkSize: defaultChunkSize}
}

// WithChunkSize sets how many bars go into one upsert statement.
func (s *Store) WithChunkSize(n int) *Store {
	if n > 0 {
		s.chunkSize = n
	}
	return s
}

// --- bars --------------------------------------------------------------------

func (s *Store) UpsertBars(ctx context.Context, bars []models.PriceDaily) (int64, error) {
	if s == nil || s.db == nil || len(bars) == 0 {
		return 0, nil
	}
	items := dedupeBars(bars)
	now := time.Now().UTC()
	for i := range items {
		items[i].UpdatedAt = now
	}
	chunk := s.chunkSize
	if chunk <= 0 {
		chunk = defaultChunkSize
	}
	var total int64
	for i := 0; i < len(items); i += chunk {
		end := i + chunk
		if end > len(items) {
			end = len(items)
		}
		batch := items[i:end]
		res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "code"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"open",
				"high",
				"low",
				"close",
				"volume",
				"updated_at",
			}),
		}).Create(&batch)
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
	}
	return total, nil
}

func (s *Store) ListBars(ctx context.Context, params repository.ListBarsParams) ([]models.PriceDaily, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.PriceDaily{})
	if !params.From.IsZero() {
		query = query.Where("date >= ?", dateOnly(params.From))
	}
	if !params.To.IsZero() {
		query = query.Where("date <= ?", dateOnly(params.To))
	}
	if codes := cleanStrings(params.Codes); len(codes) > 0 {
		query = query.Where("code IN ?", codes)
	}
	var items []models.PriceDaily
	if err := query.Order("code asc").Order("date asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountBars(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.PriceDaily{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// --- ingestion ledger ----------------------------------------------------------

func (s *Store) IsDayIngested(ctx context.Context, day time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.PanelIngestDay{}).
		Where("date = ?", dateOnly(day)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) MarkDayIngested(ctx context.Context, day time.Time, rowsUpserted int64) error {
	if s == nil || s.db == nil {
		return nil
	}
	item := models.PanelIngestDay{
		Date:         dateOnly(day),
		IngestedAt:   time.Now().UTC(),
		RowsUpserted: rowsUpserted,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"ingested_at", "rows_upserted"}),
	}).Create(&item).Error
}

func (s *Store) ListIngestedDays(ctx context.Context, from, to time.Time) ([]models.PanelIngestDay, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.PanelIngestDay{})
	if !from.IsZero() {
		query = query.Where("date >= ?", dateOnly(from))
	}
	if !to.IsZero() {
		query = query.Where("date <= ?", dateOnly(to))
	}
	var items []models.PanelIngestDay
	if err := query.Order("date asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CodeCoveredDays(ctx context.Context, code string, days []time.Time) ([]time.Time, error) {
	if s == nil || s.db == nil || len(days) == 0 {
		return nil, nil
	}
	code = strings.TrimSpace(code)
	keys := make([]time.Time, 0, len(days))
	for _, d := range days {
		keys = append(keys, dateOnly(d))
	}

	covered := map[string]struct{}{}
	var dayRows []models.PanelIngestDay
	if err := s.db.WithContext(ctx).
		Where("date IN ?", keys).
		Find(&dayRows).Error; err != nil {
		return nil, err
	}
	for _, r := range dayRows {
		covered[models.FormatDate(r.Date)] = struct{}{}
	}
	if code != "" {
		var codeRows []models.PanelIngestCode
		if err := s.db.WithContext(ctx).
			Where("code = ?", code).
			Where("date IN ?", keys).
			Find(&codeRows).Error; err != nil {
			return nil, err
		}
		for _, r := range codeRows {
			covered[models.FormatDate(r.Date)] = struct{}{}
		}
	}

	out := make([]time.Time, 0, len(covered))
	for _, d := range keys {
		if _, ok := covered[models.FormatDate(d)]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) MarkCodeDays(ctx context.Context, code string, days []time.Time) error {
	if s == nil || s.db == nil || len(days) == 0 {
		return nil
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return errors.New("code is required")
	}
	now := time.Now().UTC()
	items := make([]models.PanelIngestCode, 0, len(days))
	seen := map[string]struct{}{}
	for _, d := range days {
		key := models.FormatDate(d)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, models.PanelIngestCode{Code: code, Date: dateOnly(d), IngestedAt: now})
	}
	return createInBatches(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"ingested_at"}),
	}), items, s.chunkSize)
}

// --- sync state ----------------------------------------------------------------

func (s *Store) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var state models.SyncState
	err := s.db.WithContext(ctx).First(&state, "scope = ?", scope).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	if s == nil || s.db == nil || state == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"watermark_date",
			"last_success_at",
			"last_attempt_at",
			"last_error",
			"last_run_id",
			"stats_json",
		}),
	}).Create(state).Error
}

func (s *Store) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var states []models.SyncState
	if err := s.db.WithContext(ctx).Order("scope asc").Find(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}

// --- helpers -------------------------------------------------------------------

// dedupeBars keeps the last bar per (code, date). Postgres rejects an upsert
// statement that touches the same key twice.
func dedupeBars(bars []models.PriceDaily) []models.PriceDaily {
	type key struct {
		code string
		date string
	}
	index := make(map[key]int, len(bars))
	out := make([]models.PriceDaily, 0, len(bars))
	for _, b := range bars {
		b.Date = dateOnly(b.Date)
		k := key{code: b.Code, date: models.FormatDate(b.Date)}
		if i, ok := index[k]; ok {
			out[i] = b
			continue
		}
		index[k] = len(out)
		out = append(out, b)
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func createInBatches[T any](db *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = defaultChunkSize
	}
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		if err := db.CreateInBatches(items[i:end], batchSize).Error; err != nil {
			return err
		}
	}
	return nil
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, raw := range items {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}

var _ repository.PanelRepository = (*Store)(nil)
