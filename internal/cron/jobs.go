package cronrunner

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"quotepanel/internal/service"
)

// Syncer is the part of the panel sync service the daily job drives.
type Syncer interface {
	SyncRecent(ctx context.Context, lookbackDays int) (service.SyncResult, error)
}

// DailySync returns a job that syncs the trailing lookbackDays calendar days.
func DailySync(svc Syncer, lookbackDays int, logger *zap.Logger) func(context.Context) {
	return func(ctx context.Context) {
		result, err := svc.SyncRecent(ctx, lookbackDays)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if logger != nil {
				logger.Warn("cron daily sync failed", zap.String("run_id", result.RunID), zap.Error(err))
			}
			return
		}
		if logger != nil {
			logger.Info("cron daily sync ok",
				zap.String("run_id", result.RunID),
				zap.String("from", result.From),
				zap.String("to", result.To),
				zap.Int("fetched_days", result.FetchedDays),
				zap.Int("skipped_days", result.SkippedDays),
				zap.Int64("upserted", result.Upserted),
			)
		}
	}
}
