package export

import (
	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/sheet"
)

// FullPlanColumns is the Machine_Plan sheet of the full export.
var FullPlanColumns = []string{
	sheet.ColProductionRank,
	sheet.ColItemNo,
	sheet.ColItemName,
	sheet.ColDescription,
	sheet.ColMachine,
	sheet.ColProductAlert,
	sheet.ColMonthlyDemandOut,
	sheet.ColDailyDemand,
	sheet.ColTotalCoverageDays,
	sheet.ColDemandClass,
	sheet.ColTargetMonthsFinal,
	sheet.ColSafetyDaysFinal,
	sheet.ColTargetCoverageDays,
	sheet.ColPlanCoverageDays,
	sheet.ColGapDays,
	sheet.ColProposedQty,
}

var planKinds = map[string]cellKind{
	sheet.ColItemNo: kindText,
}

var masterKinds = map[string]cellKind{
	sheet.ColItemNo:              kindText,
	sheet.ColMonthsCoveredByPlan: kindDecimal,
	sheet.ColQtyNeededForPlan:    kindInteger,
	sheet.ColStartDate:           kindDate,
	sheet.ColEndDate:             kindDate,
}

func optional(o domain.OptionalFloat) any {
	if !o.Valid {
		return nil
	}
	return o.Value
}

// itemValues maps an item onto the Master columns.
func itemValues(it domain.Item) map[string]any {
	return map[string]any{
		sheet.ColItemNo:              it.ItemNo,
		sheet.ColItemName:            it.ItemName,
		sheet.ColDescription:         it.Description,
		sheet.ColMachineSpec:         it.MachineSpec,
		sheet.ColMonthlyDemandOut:    it.MonthlyDemand,
		sheet.ColDailyDemand:         it.DailyDemand,
		sheet.ColMPIStockQty:         it.MPIStockQty,
		sheet.ColCustStockQty:        it.CustStockQty,
		sheet.ColStock:               it.TotalStockQty,
		sheet.ColMPIStockDays:        it.MPIStockDays,
		sheet.ColCustStockDays:       it.CustStockDays,
		sheet.ColTotalCoverageDays:   it.TotalCoverageDays,
		sheet.ColTotalCoverageMonth:  it.TotalCoverageMonths,
		sheet.ColProductAlert:        it.ProductAlert,
		sheet.ColCustAlert:           it.CustAlert,
		sheet.ColPlanQtyInput:        optional(it.PlanQtyInput),
		sheet.ColMonthsCoveredByPlan: it.MonthsCoveredByPlanQty,
		sheet.ColPlanMonthsInput:     optional(it.PlanMonthsInput),
		sheet.ColQtyNeededForPlan:    it.QtyNeededForPlanMonths,
		sheet.ColStartDate:           it.PlanStartDate,
		sheet.ColEndDate:             it.PlanEndDate,
		sheet.ColTargetMonthsInput:   optional(it.TargetMonthsOverride),
		sheet.ColSafetyDaysInput:     optional(it.SafetyDaysOverride),
	}
}

// planValues maps a plan row onto the plan columns.
func planValues(r domain.PlanRow) map[string]any {
	return map[string]any{
		sheet.ColProductionRank:     r.ProductionRank,
		sheet.ColItemNo:             r.ItemNo,
		sheet.ColItemName:           r.ItemName,
		sheet.ColDescription:        r.Description,
		sheet.ColMachine:            r.Machine,
		sheet.ColProductAlert:       r.ProductAlert,
		sheet.ColMonthlyDemandOut:   r.MonthlyDemand,
		sheet.ColDailyDemand:        r.DailyDemand,
		sheet.ColTotalCoverageDays:  r.TotalCoverageDays,
		sheet.ColDemandClass:        r.DemandClass,
		sheet.ColTargetMonthsFinal:  r.TargetMonthsFinal,
		sheet.ColSafetyDaysFinal:    r.SafetyDaysFinal,
		sheet.ColTargetCoverageDays: r.TargetCoverageDays,
		sheet.ColPlanCoverageDays:   r.PlanCoverageDays,
		sheet.ColGapDays:            r.GapDays,
		sheet.ColProposedQty:        r.ProposedProductionQty,
	}
}

func project(values map[string]any, cols []string) []any {
	row := make([]any, len(cols))
	for i, c := range cols {
		row[i] = values[c]
	}
	return row
}

func itemRows(items []domain.Item, cols []string) [][]any {
	out := make([][]any, len(items))
	for i, it := range items {
		out[i] = project(itemValues(it), cols)
	}
	return out
}

func planRows(rows []domain.PlanRow, cols []string) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = project(planValues(r), cols)
	}
	return out
}
