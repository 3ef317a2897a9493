package db

import (
	"quotepanel/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.PriceDaily{},
		&models.PanelIngestDay{},
		&models.PanelIngestCode{},
		&models.SyncState{},
	)
}
