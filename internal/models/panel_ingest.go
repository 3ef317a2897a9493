package models

import "time"

// PanelIngestDay marks a trading day whose full-universe fetch and write
// completed in one pass.
type PanelIngestDay struct {
	Date         time.Time `gorm:"primaryKey;type:date;comment:trading day"`
	IngestedAt   time.Time `gorm:"not null;comment:completion time"`
	RowsUpserted int64     `gorm:"not null;default:0;comment:rows written for the day"`
}

func (PanelIngestDay) TableName() string {
	return "panel_ingest_days"
}

// PanelIngestCode marks a (code, day) pair written by the per-code sync path.
type PanelIngestCode struct {
	Code       string    `gorm:"primaryKey;type:text"`
	Date       time.Time `gorm:"primaryKey;type:date;index"`
	IngestedAt time.Time `gorm:"not null"`
}

func (PanelIngestCode) TableName() string {
	return "panel_ingest_codes"
}
