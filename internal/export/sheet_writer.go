package export

import (
	"fmt"
	"strconv"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/xuri/excelize/v2"
)

type cellKind int

const (
	kindAuto cellKind = iota
	kindText
	kindDecimal
	kindInteger
	kindDate
)

// sheetSpec describes one formatted worksheet: a header row, data rows,
// optional alert painting, formulas and a filterable table.
type sheetSpec struct {
	Name    string
	Headers []string
	Rows    [][]any

	Table        string
	Palette      Palette
	AlertColumns []string
	Kinds        map[string]cellKind
	Formulas     map[string]func(row int) string
	Widths       widthRange
}

// colLetter returns the column letter of header, or "" when absent.
func (s sheetSpec) colLetter(header string) string {
	for i, h := range s.Headers {
		if h == header {
			name, _ := excelize.ColumnNumberToName(i + 1)
			return name
		}
	}
	return ""
}

func writeSheet(f *excelize.File, st *styleSet, spec sheetSpec) error {
	if idx, _ := f.GetSheetIndex(spec.Name); idx < 0 {
		if _, err := f.NewSheet(spec.Name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", spec.Name, err)
		}
	}

	header := make([]any, len(spec.Headers))
	widths := make([]int, len(spec.Headers))
	for i, h := range spec.Headers {
		header[i] = h
		widths[i] = cellWidth(h)
	}
	if err := f.SetSheetRow(spec.Name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", spec.Name, err)
	}

	for r, row := range spec.Rows {
		for c, v := range row {
			if c >= len(spec.Headers) || v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(spec.Name, cell, cellValue(v)); err != nil {
				return fmt.Errorf("failed to write %s!%s: %w", spec.Name, cell, err)
			}
			if w := cellWidth(v); w > widths[c] {
				widths[c] = w
			}
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(max(len(spec.Headers), 1))
	lastRow := len(spec.Rows) + 1

	// Formulas replace whatever value the column carried.
	for col, build := range spec.Formulas {
		letter := spec.colLetter(col)
		if letter == "" {
			continue
		}
		for r := 2; r <= lastRow; r++ {
			formula := build(r)
			if err := f.SetCellFormula(spec.Name, letter+strconv.Itoa(r), formula); err != nil {
				return fmt.Errorf("failed to set formula on %s!%s%d: %w", spec.Name, letter, r, err)
			}
		}
	}

	if err := applyStyles(f, st, spec, lastCol, lastRow); err != nil {
		return err
	}

	if err := f.SetPanes(spec.Name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header of %s: %w", spec.Name, err)
	}
	_ = f.SetRowHeight(spec.Name, 1, 22)

	if spec.Table != "" && len(spec.Rows) > 0 {
		stripes := true
		if err := f.AddTable(spec.Name, &excelize.Table{
			Range:          fmt.Sprintf("A1:%s%d", lastCol, lastRow),
			Name:           spec.Table,
			StyleName:      tableStyle,
			ShowRowStripes: &stripes,
		}); err != nil {
			return fmt.Errorf("failed to add table to %s: %w", spec.Name, err)
		}
	}

	for i, w := range widths {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(spec.Name, name, name, clampWidth(w, spec.Widths)); err != nil {
			return fmt.Errorf("failed to size column %s of %s: %w", name, spec.Name, err)
		}
	}
	return nil
}

func applyStyles(f *excelize.File, st *styleSet, spec sheetSpec, lastCol string, lastRow int) error {
	if err := f.SetCellStyle(spec.Name, "A1", lastCol+"1", st.header); err != nil {
		return err
	}
	if lastRow < 2 {
		return nil
	}
	if err := f.SetCellStyle(spec.Name, "A2", fmt.Sprintf("%s%d", lastCol, lastRow), st.body); err != nil {
		return err
	}

	for col, kind := range spec.Kinds {
		letter := spec.colLetter(col)
		if letter == "" {
			continue
		}
		id := st.body
		switch kind {
		case kindText:
			id = st.text
		case kindDecimal:
			id = st.decimal
		case kindInteger:
			id = st.integer
		case kindDate:
			id = st.date
		}
		if err := f.SetCellStyle(spec.Name, letter+"2", fmt.Sprintf("%s%d", letter, lastRow), id); err != nil {
			return err
		}
	}

	for _, col := range spec.AlertColumns {
		idx := -1
		for i, h := range spec.Headers {
			if h == col {
				idx = i
			}
		}
		if idx < 0 {
			continue
		}
		letter, _ := excelize.ColumnNumberToName(idx + 1)
		for r, row := range spec.Rows {
			if idx >= len(row) {
				continue
			}
			color, ok := spec.Palette[domain.NormalizeAlert(formatCell(row[idx]))]
			if !ok {
				continue
			}
			id, err := st.fill(color)
			if err != nil {
				return err
			}
			cell := letter + strconv.Itoa(r+2)
			if err := f.SetCellStyle(spec.Name, cell, cell, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// cellValue converts domain values into something excelize can store.
func cellValue(v any) any {
	switch x := v.(type) {
	case domain.AlertTier:
		return string(x)
	case domain.DemandClass:
		return string(x)
	case domain.Date:
		if x.IsZero() {
			return ""
		}
		return x.Time
	}
	return v
}

// formatCell renders a value the way it reads in a cell.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case domain.AlertTier:
		return string(x)
	case domain.DemandClass:
		return string(x)
	case domain.Date:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
