package stockplan

import (
	"math"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/sheet"
)

// CoercionReport counts non-blank cells per column that failed to parse and
// were treated as zero.
type CoercionReport map[string]int

func (c CoercionReport) add(col string, raw string, ok bool) {
	if !ok && raw != "" {
		c[col]++
	}
}

// Total is the number of coerced cells across all columns.
func (c CoercionReport) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// MetricsDeriver turns raw stock rows into demand and coverage figures.
type MetricsDeriver struct {
	workingDays int
}

// NewMetricsDeriver creates a deriver for the given working days per month.
func NewMetricsDeriver(workingDays int) *MetricsDeriver {
	return &MetricsDeriver{workingDays: workingDays}
}

// Derive computes the metric columns for every row. Bad numeric cells become
// zero and are counted in the report; no row is ever rejected.
func (m *MetricsDeriver) Derive(raw []domain.RawItem) ([]domain.Item, CoercionReport) {
	report := CoercionReport{}
	out := make([]domain.Item, len(raw))
	for i, r := range raw {
		out[i] = m.derive(r, report)
	}
	return out, report
}

func (m *MetricsDeriver) derive(r domain.RawItem, report CoercionReport) domain.Item {
	num := func(col, raw string) float64 {
		v, ok := parseNumber(raw)
		report.add(col, raw, ok)
		return v
	}

	item := domain.Item{
		ItemNo:      r.ItemNo,
		ItemName:    r.ItemName,
		Description: r.Description,
		MachineSpec: r.MachineSpec,
	}

	// 1. Monthly demand is whole pieces, daily demand spreads it over working days
	item.MonthlyDemand = roundToInt(num(sheet.ColMonthlyDemand, r.MonthlyDemand))
	item.DailyDemand = roundToInt(float64(item.MonthlyDemand) / float64(m.workingDays))

	// 2. Quantities
	item.MPIStockQty = roundToInt(num(sheet.ColMPIStock, r.MPIStock))
	item.CustStockQty = roundToInt(num(sheet.ColCustStock, r.CustStock))
	item.TotalStockQty = roundToInt(num(sheet.ColTotalStock, r.TotalStock))

	// 3. Day figures keep one decimal
	item.MPIStockDays = roundHalfEven(num(sheet.ColMPIStockDays, r.MPIStockDays), 1)
	item.CustStockDays = roundHalfEven(num(sheet.ColCustStockDays, r.CustStockDays), 1)

	// 4. Coverage, never negative
	item.TotalCoverageDays = roundHalfEven(math.Max(0, item.MPIStockDays+item.CustStockDays), 1)
	item.TotalCoverageMonths = roundHalfEven(item.TotalCoverageDays/float64(m.workingDays), 1)

	// 5. Optional planner inputs stay absent when blank
	item.PlanQtyInput = parseOptional(r.PlanQtyInput)
	item.PlanMonthsInput = parseOptional(r.PlanMonthsInput)
	item.TargetMonthsOverride = parseOptional(r.TargetMonthsInput)
	item.SafetyDaysOverride = parseOptional(r.SafetyDaysInput)

	return item
}
