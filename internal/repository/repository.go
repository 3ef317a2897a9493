package repository

import (
	"context"
	"time"

	"quotepanel/internal/models"
)

// PanelRepository is the persistence surface of the quote panel: the bar
// store, the ingestion ledger and per-scope sync state.
type PanelRepository interface {
	// UpsertBars inserts or overwrites bars keyed by (code, date) and returns
	// the affected row count.
	UpsertBars(ctx context.Context, bars []models.PriceDaily) (int64, error)
	ListBars(ctx context.Context, params ListBarsParams) ([]models.PriceDaily, error)
	CountBars(ctx context.Context) (int64, error)

	IsDayIngested(ctx context.Context, day time.Time) (bool, error)
	MarkDayIngested(ctx context.Context, day time.Time, rowsUpserted int64) error
	ListIngestedDays(ctx context.Context, from, to time.Time) ([]models.PanelIngestDay, error)
	// CodeCoveredDays returns the subset of days already ingested for code,
	// either through a full-universe day record or a per-code record.
	CodeCoveredDays(ctx context.Context, code string, days []time.Time) ([]time.Time, error)
	MarkCodeDays(ctx context.Context, code string, days []time.Time) error

	GetSyncState(ctx context.Context, scope string) (*models.SyncState, error)
	SaveSyncState(ctx context.Context, state *models.SyncState) error
	ListSyncStates(ctx context.Context) ([]models.SyncState, error)
}

type ListBarsParams struct {
	From  time.Time
	To    time.Time
	Codes []string
}
