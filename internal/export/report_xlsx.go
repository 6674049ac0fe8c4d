package export

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/sheet"
)

const noData = "No data"

// ReportWorkbook writes the five management tables, one sheet each. Empty
// tables become a sheet reading "No data".
func ReportWorkbook(tables domain.ReportTables) ([]byte, error) {
	b, err := newBook(true)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	for i, rs := range reportSheets(tables) {
		spec := sheetSpec{
			Name:   SheetName(rs.Name),
			Widths: reportWidths,
		}
		if len(rs.Rows) == 0 {
			spec.Headers = []string{noData}
		} else {
			spec.Headers = rs.Headers
			spec.Rows = rs.Rows
			spec.Table = reportTableName(i+1, rs.Name)
			spec.Palette = LightPalette
			spec.AlertColumns = []string{sheet.ColProductAlert}
			spec.Kinds = planKinds
		}
		if err := b.add(spec); err != nil {
			return nil, fmt.Errorf("report sheet %s: %w", rs.Name, err)
		}
	}
	return b.bytes()
}

func reportTableName(idx int, sheetName string) string {
	name := fmt.Sprintf("T%d_%s", idx, strings.NewReplacer(" ", "", "-", "").Replace(sheetName))
	if len(name) > 28 {
		name = name[:28]
	}
	return name
}
