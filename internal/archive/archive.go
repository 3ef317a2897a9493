// Package archive keeps a raw parquet copy of every fetched batch of bars so a
// day can be replayed without calling the provider again.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"quotepanel/internal/models"
)

type Row struct {
	Code   string   `parquet:"code"`
	Date   string   `parquet:"date"`
	Open   *float64 `parquet:"open,optional"`
	High   *float64 `parquet:"high,optional"`
	Low    *float64 `parquet:"low,optional"`
	Close  *float64 `parquet:"close,optional"`
	Volume *float64 `parquet:"volume,optional"`
}

// Writer is disabled when Dir is empty; every method then returns "" and nil.
type Writer struct {
	Dir string
}

func New(dir string) *Writer {
	return &Writer{Dir: strings.TrimSpace(dir)}
}

func (w *Writer) Enabled() bool {
	return w != nil && w.Dir != ""
}

// WriteDay stores one full-universe day under daily/YYYY/YYYY-MM-DD.parquet.
func (w *Writer) WriteDay(day time.Time, bars []models.PriceDaily) (string, error) {
	if !w.Enabled() {
		return "", nil
	}
	date := models.FormatDate(day)
	path := filepath.Join(w.Dir, "daily", date[:4], date+".parquet")
	return path, write(path, bars)
}

// WriteCode stores one code's range under by_code/CODE/FROM_TO.parquet.
func (w *Writer) WriteCode(code string, from, to time.Time, bars []models.PriceDaily) (string, error) {
	if !w.Enabled() {
		return "", nil
	}
	name := models.FormatDate(from) + "_" + models.FormatDate(to) + ".parquet"
	path := filepath.Join(w.Dir, "by_code", code, name)
	return path, write(path, bars)
}

func Read(path string) ([]Row, error) {
	return parquet.ReadFile[Row](path)
}

func write(path string, bars []models.PriceDaily) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("archive mkdir: %w", err)
	}
	rows := make([]Row, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, Row{
			Code:   b.Code,
			Date:   models.FormatDate(b.Date),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, rows); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("archive write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("archive rename %s: %w", path, err)
	}
	return nil
}
