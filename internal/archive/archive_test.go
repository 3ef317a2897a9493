package archive

import (
	"path/filepath"
	"testing"
	"time"

	"quotepanel/internal/models"
)

func TestWriteDayRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)
	day := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	closePx := 102.0
	bars := []models.PriceDaily{
		{Code: "7203", Date: day, Close: &closePx},
		{Code: "6758", Date: day},
	}

	path, err := w.WriteDay(day, bars)
	if err != nil {
		t.Fatalf("WriteDay: %v", err)
	}
	if want := filepath.Join(dir, "daily", "2024", "2024-01-04.parquet"); path != want {
		t.Fatalf("path=%s want %s", path, want)
	}
	rows, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%d want 2", len(rows))
	}
	if rows[0].Code != "7203" || rows[0].Date != "2024-01-04" || rows[0].Close == nil || *rows[0].Close != 102 {
		t.Fatalf("row0=%+v", rows[0])
	}
	if rows[1].Close != nil || rows[1].Volume != nil {
		t.Fatalf("row1 expected null prices, got %+v", rows[1])
	}
}

func TestDisabledWriter(t *testing.T) {
	w := New("  ")
	if w.Enabled() {
		t.Fatalf("expected disabled writer")
	}
	path, err := w.WriteDay(time.Now(), nil)
	if path != "" || err != nil {
		t.Fatalf("path=%q err=%v", path, err)
	}
}
