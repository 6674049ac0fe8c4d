package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/xuri/excelize/v2"
)

// TemplateOptions locate the item and quantity columns in a customer
// order template.
type TemplateOptions struct {
	Sheet      string `json:"sheet" toml:"sheet"`
	HeaderRow  int    `json:"header_row" toml:"header_row"`
	StartRow   int    `json:"start_row" toml:"start_row"`
	ItemHeader string `json:"item_header" toml:"item_header"`
	QtyHeader  string `json:"qty_header" toml:"qty_header"`
}

// DefaultTemplateOptions match the production plan template in use: the
// sheet name keeps its original spelling.
func DefaultTemplateOptions() TemplateOptions {
	return TemplateOptions{
		Sheet:      "Clinet Orders",
		HeaderRow:  2,
		StartRow:   3,
		ItemHeader: "Item No.",
		QtyHeader:  "Qty",
	}
}

// FillResult is the filled workbook and how the template rows matched.
type FillResult struct {
	Data       []byte   `json:"-"`
	Filled     int      `json:"filled"`
	NotMatched int      `json:"not_matched"`
	Unmatched  []string `json:"unmatched"`
}

// QuantitiesByKey indexes final quantities by normalized item key. When an
// item appears on several machines the last row wins.
func QuantitiesByKey(decisions []domain.FinalDecision) map[string]int64 {
	out := make(map[string]int64, len(decisions))
	for _, d := range decisions {
		if k := domain.TemplateKey(d.ItemNo); k != "" {
			out[k] = d.FinalQty
		}
	}
	return out
}

// FillTemplate writes quantities into the template's quantity column on
// every row whose item key matches, zero included. Rows with no digits in
// the item cell are skipped; other unmatched rows are reported.
func FillTemplate(template []byte, qty map[string]int64, opts TemplateOptions) (*FillResult, error) {
	if opts.HeaderRow < 1 || opts.StartRow <= opts.HeaderRow {
		return nil, fmt.Errorf("invalid template rows: header %d, start %d", opts.HeaderRow, opts.StartRow)
	}

	f, err := excelize.OpenReader(bytes.NewReader(template))
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer f.Close()

	if idx, _ := f.GetSheetIndex(opts.Sheet); idx < 0 {
		return nil, &domain.SheetNotFoundError{Sheet: opts.Sheet}
	}

	rows, err := f.GetRows(opts.Sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read template sheet %s: %w", opts.Sheet, err)
	}

	var header []string
	if len(rows) >= opts.HeaderRow {
		header = rows[opts.HeaderRow-1]
	}
	itemCol := findHeader(header, opts.ItemHeader)
	if itemCol < 0 {
		return nil, &domain.MissingHeaderError{Header: opts.ItemHeader, Row: opts.HeaderRow}
	}
	qtyCol := findHeader(header, opts.QtyHeader)
	if qtyCol < 0 {
		return nil, &domain.MissingHeaderError{Header: opts.QtyHeader, Row: opts.HeaderRow}
	}

	res := &FillResult{Unmatched: []string{}}
	for r := opts.StartRow; r <= len(rows); r++ {
		row := rows[r-1]
		if itemCol >= len(row) {
			continue
		}
		key := domain.TemplateKey(row[itemCol])
		if key == "" {
			continue
		}

		q, ok := qty[key]
		if !ok {
			res.NotMatched++
			res.Unmatched = append(res.Unmatched, key)
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(qtyCol+1, r)
		if err := f.SetCellValue(opts.Sheet, cell, q); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", cell, err)
		}
		res.Filled++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write filled template: %w", err)
	}
	res.Data = buf.Bytes()
	return res, nil
}

func findHeader(header []string, name string) int {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i
		}
	}
	return -1
}
