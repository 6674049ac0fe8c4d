package export

import (
	"fmt"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/sheet"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the planning workbooks.
const (
	SheetMaster        = "Master"
	SheetMachinePlan   = "Machine_Plan"
	SheetProductAlert  = "Product_Alert"
	SheetCustomerAlert = "Customer_Alert"

	defaultSheet         = "Sheet1"
	masterTableName      = "MasterTable"
	machinePlanTableName = "MachinePlanTable"
)

// book is a new workbook whose first added sheet takes over the default one.
type book struct {
	f      *excelize.File
	styles *styleSet
	sheets int
}

func newBook(border bool) (*book, error) {
	f := excelize.NewFile()
	st, err := newStyleSet(f, border)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &book{f: f, styles: st}, nil
}

func (b *book) add(spec sheetSpec) error {
	if b.sheets == 0 {
		if err := b.f.SetSheetName(defaultSheet, spec.Name); err != nil {
			return fmt.Errorf("failed to name sheet %s: %w", spec.Name, err)
		}
	}
	b.sheets++
	return writeSheet(b.f, b.styles, spec)
}

func (b *book) bytes() ([]byte, error) {
	b.f.SetActiveSheet(0)
	buf, err := b.f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *book) Close() error {
	return b.f.Close()
}

// FullWorkbook writes the Master sheet and, when plan has rows, the
// Machine_Plan sheet. Planner input cells are left blank and the what-if
// columns become live formulas over them.
func FullWorkbook(items []domain.Item, plan domain.Plan) ([]byte, error) {
	b, err := newBook(false)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if err := b.add(masterSpec(SheetMaster, items)); err != nil {
		return nil, err
	}

	if len(plan.Rows) > 0 {
		if err := b.add(sheetSpec{
			Name:         SheetMachinePlan,
			Headers:      FullPlanColumns,
			Rows:         planRows(plan.Rows, FullPlanColumns),
			Table:        machinePlanTableName,
			Palette:      StrongPalette,
			AlertColumns: []string{sheet.ColProductAlert},
			Kinds:        planKinds,
			Widths:       planWidths,
		}); err != nil {
			return nil, err
		}
	}

	return b.bytes()
}

// AlertWorkbook writes one alert extract in the Master layout under sheetName.
func AlertWorkbook(sheetName string, items []domain.Item) ([]byte, error) {
	b, err := newBook(false)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if err := b.add(masterSpec(sheetName, items)); err != nil {
		return nil, err
	}
	return b.bytes()
}

func masterSpec(name string, items []domain.Item) sheetSpec {
	rows := itemRows(items, sheet.MasterColumns)

	// Planner inputs are typed into the exported sheet.
	for i, h := range sheet.MasterColumns {
		if h == sheet.ColPlanQtyInput || h == sheet.ColPlanMonthsInput {
			for _, r := range rows {
				r[i] = nil
			}
		}
	}

	spec := sheetSpec{
		Name:         name,
		Headers:      sheet.MasterColumns,
		Rows:         rows,
		Table:        masterTableName,
		Palette:      StrongPalette,
		AlertColumns: []string{sheet.ColProductAlert, sheet.ColCustAlert},
		Kinds:        masterKinds,
		Widths:       planWidths,
	}

	pq := spec.colLetter(sheet.ColPlanQtyInput)
	pm := spec.colLetter(sheet.ColPlanMonthsInput)
	md := spec.colLetter(sheet.ColMonthlyDemandOut)
	spec.Formulas = map[string]func(int) string{
		sheet.ColMonthsCoveredByPlan: func(r int) string { return fmt.Sprintf("IFERROR(%s%d/%s%d,0)", pq, r, md, r) },
		sheet.ColQtyNeededForPlan:    func(r int) string { return fmt.Sprintf("IFERROR(%s%d*%s%d,0)", pm, r, md, r) },
	}
	return spec
}
