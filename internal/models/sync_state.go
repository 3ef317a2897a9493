package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SyncScopeDailyQuotes       = "daily_quotes"
	SyncScopeDailyQuotesByCode = "daily_quotes_by_code"
)

type SyncState struct {
	Scope         string         `gorm:"primaryKey;type:text;comment:sync scope"`
	WatermarkDate *time.Time     `gorm:"type:date;comment:latest trading day written"`
	LastSuccessAt *time.Time     `gorm:"comment:last successful run"`
	LastAttemptAt *time.Time     `gorm:"comment:last attempted run"`
	LastError     *string        `gorm:"type:text;comment:last error message"`
	LastRunID     *string        `gorm:"type:text;comment:id of the last run"`
	StatsJSON     datatypes.JSON `gorm:"comment:stats of the last run"`
}

func (SyncState) TableName() string {
	return "sync_state"
}
