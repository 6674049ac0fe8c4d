package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ErrLegacyFormat is returned for BIFF .xls workbooks, which are not read.
var ErrLegacyFormat = errors.New("legacy .xls workbooks are not supported, save the file as .xlsx")

// ReadWorkbook reads sheet (or the first sheet when empty) of the xlsx
// workbook in r. The first row is the header row. Cell values are read raw
// so number formats never leak thousands separators into numeric columns.
func ReadWorkbook(r io.Reader, filename, sheet string) (*Table, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xls") {
		return nil, fmt.Errorf("%s: %w", filename, ErrLegacyFormat)
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx %s: %w", filename, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("xlsx file %s has no sheets", filename)
		}
		sheet = sheets[0]
	} else if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return nil, &domain.SheetNotFoundError{Sheet: sheet}
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	var header []string
	var data [][]string
	for rows.Next() {
		record, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read row from %s: %w", filename, err)
		}
		if header == nil {
			if isBlankRow(record) {
				continue
			}
			header = record
			continue
		}
		data = append(data, record)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("error iterating rows in %s: %w", filename, err)
	}

	return NewTable(sheet, header, data), nil
}

// ReadBytes is ReadWorkbook over an in-memory file.
func ReadBytes(b []byte, filename, sheet string) (*Table, error) {
	return ReadWorkbook(bytes.NewReader(b), filename, sheet)
}
