package sheet

import (
	"strings"

	"github.com/andresuchdata/stockplanner/internal/domain"
)

// Table is a header row plus string cells, as read from one worksheet.
// Every row has exactly len(Headers) cells.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string

	index map[string]int
}

// NewTable trims header names, pads or cuts rows to the header width and
// drops rows whose cells are all blank.
func NewTable(name string, headers []string, rows [][]string) *Table {
	t := &Table{
		Name:    name,
		Headers: make([]string, len(headers)),
		index:   make(map[string]int, len(headers)),
	}
	for i, h := range headers {
		h = normalizeColumnName(h)
		t.Headers[i] = h
		// first occurrence wins on duplicate headers
		if _, ok := t.index[h]; !ok {
			t.index[h] = i
		}
	}

	for _, r := range rows {
		if isBlankRow(r) {
			continue
		}
		row := make([]string, len(headers))
		copy(row, r)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Len is the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Has reports whether the table has a column named col.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Value returns the cell of row i in column col, or "" when the column is absent.
func (t *Table) Value(i int, col string) string {
	idx, ok := t.index[col]
	if !ok {
		return ""
	}
	return t.Rows[i][idx]
}

// Missing lists the columns of cols that the table lacks, in the given order.
func (t *Table) Missing(cols ...string) []string {
	var missing []string
	for _, c := range cols {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Require fails with a MissingColumnError naming every absent column.
func (t *Table) Require(stage string, cols ...string) error {
	if missing := t.Missing(cols...); len(missing) > 0 {
		return &domain.MissingColumnError{Stage: stage, Columns: missing}
	}
	return nil
}

// normalizeColumnName trims surrounding whitespace and a UTF-8 BOM.
// Column matching stays case-sensitive.
func normalizeColumnName(name string) string {
	return strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))
}

func isBlankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
