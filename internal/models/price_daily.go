package models

import (
	"time"
)

// PriceDaily is one trading day's OHLCV for one security. Numeric columns are
// nullable because the provider omits values for suspended or unpriced codes.
type PriceDaily struct {
	Code      string    `gorm:"primaryKey;type:text;comment:normalized security code (digits only)"`
	Date      time.Time `gorm:"primaryKey;type:date;index;comment:trading day"`
	Open      *float64  `gorm:"type:double precision;comment:open price"`
	High      *float64  `gorm:"type:double precision;comment:high price"`
	Low       *float64  `gorm:"type:double precision;comment:low price"`
	Close     *float64  `gorm:"type:double precision;comment:close price"`
	Volume    *float64  `gorm:"type:double precision;comment:traded volume"`
	UpdatedAt time.Time `gorm:"not null;comment:last upsert time"`
}

func (PriceDaily) TableName() string {
	return "prices_daily"
}

// DateLayout is the ISO calendar date form used across the store and the API.
const DateLayout = "2006-01-02"

// ParseDate parses an ISO date into a UTC midnight time.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.UTC)
}

// FormatDate renders a stored date back into ISO form.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
