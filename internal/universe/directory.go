package universe

import (
	"sort"
	"strings"
)

// Directory is an immutable code → company mapping.
type Directory struct {
	rows  map[string]CompanyRow
	codes []string
}

func NewDirectory(rows []CompanyRow) *Directory {
	d := &Directory{rows: make(map[string]CompanyRow, len(rows))}
	for _, r := range rows {
		if _, dup := d.rows[r.Code]; !dup {
			d.codes = append(d.codes, r.Code)
		}
		d.rows[r.Code] = r
	}
	sort.Strings(d.codes)
	return d
}

func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.codes)
}

// Codes returns the codes as written in the reference file, ascending.
func (d *Directory) Codes() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.codes))
	copy(out, d.codes)
	return out
}

// Lookup matches exact codes first. Exchange codes carry a trailing check
// digit ("72030") that the reference file may omit ("7203"), so each form
// also matches the other.
func (d *Directory) Lookup(code string) (CompanyRow, bool) {
	if d == nil {
		return CompanyRow{}, false
	}
	code = strings.TrimSpace(code)
	if r, ok := d.rows[code]; ok {
		return r, true
	}
	if len(code) == 5 && strings.HasSuffix(code, "0") {
		if r, ok := d.rows[code[:4]]; ok {
			return r, true
		}
	}
	if len(code) == 4 {
		if r, ok := d.rows[code+"0"]; ok {
			return r, true
		}
	}
	return CompanyRow{}, false
}
