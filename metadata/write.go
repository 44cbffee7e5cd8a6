package metadata

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/docxology/seqfetch/iox"
)

// AppendColumn adds a column with values keyed by run identifier. Rows
// without a value get an empty field. An existing column of the same name
// is overwritten in place.
func (t *Table) AppendColumn(name string, values map[string]string) {
	col, exists := t.index[name]
	if !exists {
		col = len(t.header)
		t.header = append(t.header, name)
		t.index[name] = col
	}
	for i, row := range t.rows {
		for len(row) <= col {
			row = append(row, "")
		}
		if id, ok := t.field(row, t.keyCol); ok {
			if v, found := values[id]; found {
				row[col] = v
			}
		}
		t.rows[i] = row
	}
}

// Write serializes the table back to a TSV file at path.
func (t *Table) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.Write(t.header); err != nil {
		iox.DiscardClose(f)
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range t.rows {
		// Pad short rows so every record has the full column count.
		for len(row) < len(t.header) {
			row = append(row, "")
		}
		if err := w.Write(row); err != nil {
			iox.DiscardClose(f)
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		iox.DiscardClose(f)
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}
