// Package metadata loads the tab-separated run metadata table and resolves
// per-accession library layouts from it.
//
// Two schema variants are accepted: the ENA-style naming (`run_accession` +
// `library_layout`) and the short naming (`run` + `lib_layout`). Any lookup
// miss degrades to an unknown layout rather than an error, since the fetch
// strategies must work correctly without one.
package metadata

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/docxology/seqfetch/iox"
	"github.com/docxology/seqfetch/types"
)

// Table is an immutable view over the loaded metadata rows, plus the
// resolved key/layout column names for the schema variant in use.
type Table struct {
	header    []string
	index     map[string]int
	rows      [][]string
	keyCol    string
	layoutCol string
}

// Load reads a TSV metadata table from path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata %s: %w", path, err)
	}
	defer iox.DiscardClose(f)

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse metadata %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("metadata %s is empty", path)
	}

	t := &Table{
		header: records[0],
		index:  make(map[string]int, len(records[0])),
		rows:   records[1:],
	}
	for i, name := range t.header {
		t.index[name] = i
	}

	// Schema variant detection. ENA naming wins when both are present.
	switch {
	case t.hasColumn("run_accession"):
		t.keyCol, t.layoutCol = "run_accession", "library_layout"
	case t.hasColumn("run"):
		t.keyCol, t.layoutCol = "run", "lib_layout"
	default:
		return nil, fmt.Errorf("metadata %s has neither run_accession nor run column", path)
	}
	return t, nil
}

func (t *Table) hasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

func (t *Table) field(row []string, col string) (string, bool) {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return "", false
	}
	return row[i], true
}

// Columns returns the header names in file order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.header...)
}

// Runs returns every run identifier in row order, blanks skipped.
func (t *Table) Runs() []string {
	runs := make([]string, 0, len(t.rows))
	for _, row := range t.rows {
		if id, ok := t.field(row, t.keyCol); ok && id != "" {
			runs = append(runs, id)
		}
	}
	return runs
}

// DuplicateRuns returns run identifiers that appear more than once, sorted.
// Duplicate runs are a fatal input error for the fetch pipeline: two workers
// would own the same output directory.
func (t *Table) DuplicateRuns() []string {
	seen := make(map[string]int)
	for _, id := range t.Runs() {
		seen[id]++
	}
	var dups []string
	for id, n := range seen {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	sort.Strings(dups)
	return dups
}

// UniqueValues returns the distinct non-empty values of a column, sorted.
// Returns false if the column does not exist.
func (t *Table) UniqueValues(col string) ([]string, bool) {
	if !t.hasColumn(col) {
		return nil, false
	}
	seen := make(map[string]struct{})
	for _, row := range t.rows {
		if v, ok := t.field(row, col); ok && v != "" {
			seen[v] = struct{}{}
		}
	}
	vals := make([]string, 0, len(seen))
	for v := range seen {
		vals = append(vals, v)
	}
	sort.Strings(vals)
	return vals, true
}

// ResolveLayout looks up the library layout for one accession.
// Any miss (unknown accession, missing layout column, blank value) yields
// LayoutUnknown; "paired" is matched case-insensitively, anything else that
// is present resolves to single.
func (t *Table) ResolveLayout(accession string) types.Layout {
	for _, row := range t.rows {
		id, ok := t.field(row, t.keyCol)
		if !ok || id != accession {
			continue
		}
		layout, ok := t.field(row, t.layoutCol)
		if !ok || layout == "" {
			return types.LayoutUnknown
		}
		if strings.EqualFold(strings.TrimSpace(layout), "paired") {
			return types.LayoutPaired
		}
		return types.LayoutSingle
	}
	return types.LayoutUnknown
}
