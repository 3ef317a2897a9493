package db

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"quotepanel/internal/config"
)

type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

func Open(cfg config.DBConfig) (*DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("db dsn is empty")
	}
	db, err := OpenDialector(postgres.Open(cfg.DSN))
	if err != nil {
		return nil, err
	}

	db.SQL.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SQL.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SQL.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SQL.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

// OpenDialector opens gorm over an arbitrary dialector. Tests use it with sqlite.
func OpenDialector(dialector gorm.Dialector) (*DB, error) {
	gcfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	gdb, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, err
	}

	sqldb, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	return &DB{Gorm: gdb, SQL: sqldb}, nil
}

func Close(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

func SetTimezone(db *DB, tz string) error {
	if tz == "" {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return err
	}
	_, err := db.SQL.Exec("SET TIME ZONE '" + tz + "'")
	return err
}
