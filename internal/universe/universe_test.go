package universe

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = `Code,CompanyName,CompanyNameEnglish,Sector33,MarketCap
7203,トヨタ自動車,Toyota Motor,Transportation Equipment,"45,000,000,000,000"
6758,ソニーグループ,Sony Group,Electric Appliances,15000000000000
1301,極洋,Kyokuyo,Fishery,35000000000
9999,No Cap Co,No Cap,Services,
abc,Broken,,,
`

func TestParseCompaniesCSV(t *testing.T) {
	dir, err := ParseCompaniesCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if dir.Len() != 4 {
		t.Fatalf("len=%d want 4", dir.Len())
	}
	row, ok := dir.Lookup("7203")
	if !ok || row.NameEnglish != "Toyota Motor" || row.MarketCap == nil {
		t.Fatalf("row=%+v ok=%v", row, ok)
	}
	if row.MarketCap.String() != "45000000000000" {
		t.Fatalf("cap=%s", row.MarketCap.String())
	}
	if r, ok := dir.Lookup("9999"); !ok || r.MarketCap != nil {
		t.Fatalf("row=%+v want nil market cap", r)
	}
}

func TestLookupMatchesCheckDigitForm(t *testing.T) {
	dir := NewDirectory([]CompanyRow{{Code: "7203"}, {Code: "67580"}})
	if _, ok := dir.Lookup("72030"); !ok {
		t.Fatalf("expected 72030 to match 7203")
	}
	if _, ok := dir.Lookup("6758"); !ok {
		t.Fatalf("expected 6758 to match 67580")
	}
	if _, ok := dir.Lookup("72031"); ok {
		t.Fatalf("unexpected match for 72031")
	}
}

func TestParseCompaniesCSVMissingCode(t *testing.T) {
	if _, err := ParseCompaniesCSV(strings.NewReader("Name,MarketCap\nx,1\n")); err == nil {
		t.Fatalf("expected error for missing code column")
	}
}

func TestCapFilterOverThreshold(t *testing.T) {
	dir, err := ParseCompaniesCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	f, err := ParseCapFilter("over", "1e11")
	if err != nil {
		t.Fatalf("ParseCapFilter: %v", err)
	}
	got := f.Codes(dir)
	want := []string{"6758", "7203"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("codes=%v want %v", got, want)
	}
	if row, _ := dir.Lookup("9999"); f.Allows(row) {
		t.Fatalf("company without market cap must be excluded")
	}
	if row, _ := dir.Lookup("1301"); f.Allows(row) {
		t.Fatalf("company below threshold must be excluded")
	}
}

func TestCapFilterUnder(t *testing.T) {
	dir, _ := ParseCompaniesCSV(strings.NewReader(sampleCSV))
	f, err := ParseCapFilter("under", "100000000000")
	if err != nil {
		t.Fatalf("ParseCapFilter: %v", err)
	}
	got := f.Codes(dir)
	if len(got) != 1 || got[0] != "1301" {
		t.Fatalf("codes=%v want [1301]", got)
	}
}

func TestParseCapFilterErrors(t *testing.T) {
	cases := []struct{ mode, threshold string }{
		{"over", ""},
		{"over", "abc"},
		{"sideways", "10"},
		{"under", "-1"},
	}
	for _, c := range cases {
		if _, err := ParseCapFilter(c.mode, c.threshold); err == nil {
			t.Fatalf("mode=%q threshold=%q expected error", c.mode, c.threshold)
		}
	}
	f, err := ParseCapFilter("", "")
	if err != nil || f.Active() {
		t.Fatalf("empty mode should give inactive filter, got %+v err=%v", f, err)
	}
}

func TestSourceReloadAndInvalidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.csv")
	if err := os.WriteFile(path, []byte("code,name\n7203,A\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctx := context.Background()
	src := NewSource(path, nil)
	dir, err := src.Directory(ctx)
	if err != nil || dir.Len() != 1 {
		t.Fatalf("dir=%v err=%v", dir, err)
	}

	if err := os.WriteFile(path, []byte("code,name\n7203,A\n6758,B\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if dir, _ := src.Directory(ctx); dir.Len() != 1 {
		t.Fatalf("cached directory should not change before reload")
	}
	src.Invalidate()
	if !src.LoadedAt().IsZero() {
		t.Fatalf("loadedAt should reset on invalidate")
	}
	if dir, _ := src.Directory(ctx); dir.Len() != 2 {
		t.Fatalf("len=%d want 2 after invalidate", dir.Len())
	}

	if err := os.WriteFile(path, []byte("code,name\n1301,C\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	dir, err = src.Reload(ctx)
	if err != nil || dir.Len() != 1 {
		t.Fatalf("reload dir=%v err=%v", dir, err)
	}
}

func TestSourceMissingFile(t *testing.T) {
	src := NewSource(filepath.Join(t.TempDir(), "missing.csv"), nil)
	if _, err := src.Directory(context.Background()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
