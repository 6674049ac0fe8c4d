package export

import (
	"fmt"
	"unicode/utf8"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	fontName = "Times New Roman"
	fontSize = 12

	tableStyle = "TableStyleMedium9"

	// ContentTypeXLSX is the MIME type of every workbook produced here.
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Palette maps alert tiers to cell fill colors.
type Palette map[domain.AlertTier]string

var (
	// StrongPalette paints alert cells in planning workbooks.
	StrongPalette = Palette{
		domain.AlertRed:    "#FF0000",
		domain.AlertOrange: "#FFA500",
		domain.AlertYellow: "#FFFF00",
		domain.AlertGreen:  "#00B050",
	}

	// LightPalette paints alert cells in the management report.
	LightPalette = Palette{
		domain.AlertRed:    "#FFC7CE",
		domain.AlertOrange: "#FFE699",
		domain.AlertGreen:  "#C6EFCE",
	}
)

// widthRange bounds autofit column widths.
type widthRange struct {
	min, max float64
}

var (
	planWidths   = widthRange{min: 10, max: 60}
	reportWidths = widthRange{min: 0, max: 55}
)

// styleSet caches the style IDs of one workbook.
type styleSet struct {
	f       *excelize.File
	border  bool
	header  int
	body    int
	text    int
	decimal int
	integer int
	date    int
	fills   map[string]int
}

func newStyleSet(f *excelize.File, border bool) (*styleSet, error) {
	s := &styleSet{f: f, border: border, fills: map[string]int{}}

	var err error
	if s.header, err = s.style(true, nil, ""); err != nil {
		return nil, err
	}
	if s.body, err = s.style(false, nil, ""); err != nil {
		return nil, err
	}
	textFmt := "@"
	if s.text, err = s.style(false, &textFmt, ""); err != nil {
		return nil, err
	}
	decimalFmt := "0.0"
	if s.decimal, err = s.style(false, &decimalFmt, ""); err != nil {
		return nil, err
	}
	integerFmt := "0"
	if s.integer, err = s.style(false, &integerFmt, ""); err != nil {
		return nil, err
	}
	dateFmt := "yyyy-mm-dd"
	if s.date, err = s.style(false, &dateFmt, ""); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *styleSet) style(bold bool, numFmt *string, fill string) (int, error) {
	st := &excelize.Style{
		Font: &excelize.Font{Family: fontName, Size: fontSize, Bold: bold},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
			WrapText:   true,
		},
		CustomNumFmt: numFmt,
	}
	if fill != "" {
		st.Fill = excelize.Fill{Type: "pattern", Color: []string{fill}, Pattern: 1}
	}
	if s.border {
		for _, side := range []string{"left", "right", "top", "bottom"} {
			st.Border = append(st.Border, excelize.Border{Type: side, Color: "999999", Style: 1})
		}
	}
	id, err := s.f.NewStyle(st)
	if err != nil {
		return 0, fmt.Errorf("failed to create style: %w", err)
	}
	return id, nil
}

// fill returns the body style painted with color, created on first use.
func (s *styleSet) fill(color string) (int, error) {
	if id, ok := s.fills[color]; ok {
		return id, nil
	}
	id, err := s.style(false, nil, color)
	if err != nil {
		return 0, err
	}
	s.fills[color] = id
	return id, nil
}

// cellWidth is the display length of a cell value.
func cellWidth(v any) int {
	if v == nil {
		return 0
	}
	return utf8.RuneCountInString(formatCell(v))
}

func clampWidth(n int, r widthRange) float64 {
	w := float64(n + 2)
	if w > r.max {
		w = r.max
	}
	if w < r.min {
		w = r.min
	}
	return w
}
