package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/report"
	"github.com/go-pdf/fpdf"
)

// DefaultReportTitle heads the management summary.
const DefaultReportTitle = "Stock Planner - Management Summary"

// ContentTypePDF is the MIME type of the management summary.
const ContentTypePDF = "application/pdf"

const (
	pdfFont       = "Times"
	pdfRowPadding = 2.0
	pdfMinColumn  = 12.0
)

// ReportPDF renders an A4 summary: KPIs, the top critical items, the top of
// the production priority list and the machine load rollup.
func ReportPDF(tables domain.ReportTables, title string, generatedAt time.Time) ([]byte, error) {
	if title == "" {
		title = DefaultReportTitle
	}
	sheets := reportSheets(tables)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreationDate(generatedAt)
	pdf.SetAutoPageBreak(false, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont(pdfFont, "B", 18)
	pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
	pdf.SetFont(pdfFont, "", 11)
	pdf.CellFormat(0, 6, "Generated on: "+generatedAt.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	kpis := sheets[0]
	if len(kpis.Rows) > 0 {
		heading(pdf, tr, "Executive Summary (KPIs)")
		drawTable(pdf, tr, kpis.Headers, kpis.Rows, 10)
		pdf.Ln(4)
	}

	top := sheets[1]
	if len(top.Rows) > 0 {
		heading(pdf, tr, "Top 10 Critical Items (Production)")
		drawTable(pdf, tr, top.Headers, top.Rows, 9)
		pdf.Ln(6)
	}

	priority := priorityRows(report.Top(tables.ProductionPriority, report.PDFPriorityLimit), priorityColumns)
	heading(pdf, tr, fmt.Sprintf("Production Priority (Top %d)", report.PDFPriorityLimit))
	if len(priority) > 0 {
		drawTable(pdf, tr, priorityColumns, priority, 8)
	} else {
		paragraph(pdf, tr, "No priority data.")
	}
	pdf.Ln(4)

	load := sheets[3]
	heading(pdf, tr, "Machine Load Summary")
	if len(load.Rows) > 0 {
		drawTable(pdf, tr, load.Headers, load.Rows, 9)
	} else {
		paragraph(pdf, tr, "No machine load data.")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func heading(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	ensureSpace(pdf, 20)
	pdf.SetFont(pdfFont, "B", 13)
	pdf.CellFormat(0, 8, tr(text), "", 1, "L", false, 0, "")
}

func paragraph(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	pdf.SetFont(pdfFont, "", 10)
	pdf.CellFormat(0, 6, tr(text), "", 1, "L", false, 0, "")
}

// ensureSpace starts a new page when less than h millimetres remain.
func ensureSpace(pdf *fpdf.Fpdf, h float64) bool {
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+h > pageH-bottom {
		pdf.AddPage()
		return true
	}
	return false
}

// drawTable draws a gridded table with a grey header row repeated on every
// page. Column widths follow content length within the printable width.
func drawTable(pdf *fpdf.Fpdf, tr func(string) string, headers []string, rows [][]any, size float64) {
	pdf.SetFont(pdfFont, "", size)
	widths := columnWidths(pdf, headers, rows)
	rowH := size*0.3528 + 2*pdfRowPadding

	drawHeader := func() {
		pdf.SetFont(pdfFont, "B", size)
		pdf.SetFillColor(211, 211, 211)
		for i, h := range headers {
			pdf.CellFormat(widths[i], rowH, fit(pdf, tr(h), widths[i]), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(pdfFont, "", size)
	}

	drawHeader()
	for _, row := range rows {
		if ensureSpace(pdf, rowH) {
			drawHeader()
		}
		for i := range headers {
			var v any
			if i < len(row) {
				v = row[i]
			}
			pdf.CellFormat(widths[i], rowH, fit(pdf, tr(formatCell(v)), widths[i]), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func columnWidths(pdf *fpdf.Fpdf, headers []string, rows [][]any) []float64 {
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	avail := pageW - left - right

	widths := make([]float64, len(headers))
	total := 0.0
	for i, h := range headers {
		w := pdf.GetStringWidth(h)
		for _, row := range rows {
			if i < len(row) {
				if cw := pdf.GetStringWidth(formatCell(row[i])); cw > w {
					w = cw
				}
			}
		}
		w += 2 * pdfRowPadding
		if w < pdfMinColumn {
			w = pdfMinColumn
		}
		widths[i] = w
		total += w
	}
	if total > avail {
		for i := range widths {
			widths[i] = widths[i] * avail / total
		}
	}
	return widths
}

// fit cuts text with an ellipsis until it fits in width.
func fit(pdf *fpdf.Fpdf, text string, width float64) string {
	limit := width - pdfRowPadding
	if pdf.GetStringWidth(text) <= limit {
		return text
	}
	r := []rune(text)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > limit {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
