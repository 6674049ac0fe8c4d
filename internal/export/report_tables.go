package export

import (
	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/sheet"
)

// Machine load headers.
const (
	ColKPI              = "KPI"
	ColValue            = "Value"
	ColItemsCount       = "Items Count"
	ColTotalProposedPcs = "Total Proposed Qty (pcs)"
	ColRedCount         = "RED Count"
	ColOrangeCount      = "ORANGE Count"
)

var (
	kpiColumns = []string{ColKPI, ColValue}

	topCriticalColumns = []string{
		sheet.ColItemNo, sheet.ColItemName, sheet.ColMachine, sheet.ColProductAlert,
		sheet.ColTotalCoverageDays, sheet.ColGapDays, sheet.ColProposedQty,
	}

	priorityColumns = []string{
		sheet.ColItemNo, sheet.ColItemName, sheet.ColMachine, sheet.ColProductAlert,
		sheet.ColMonthlyDemandOut, sheet.ColTotalCoverageDays, sheet.ColGapDays, sheet.ColProposedQty,
	}

	machineLoadColumns = []string{
		sheet.ColMachine, ColItemsCount, ColTotalProposedPcs, ColRedCount, ColOrangeCount,
	}

	finalDecisionColumns = []string{
		sheet.ColItemNo, sheet.ColItemName, sheet.ColMachine, sheet.ColProposedQty, sheet.ColFinalQty,
	}
)

// reportSheet is one management table ready for rendering.
type reportSheet struct {
	Name    string
	Headers []string
	Rows    [][]any
}

func reportSheets(t domain.ReportTables) []reportSheet {
	kpis := make([][]any, len(t.ExecutiveSummary))
	for i, k := range t.ExecutiveSummary {
		kpis[i] = []any{k.Name, k.Value}
	}

	loads := make([][]any, len(t.MachineLoad))
	for i, m := range t.MachineLoad {
		loads[i] = []any{m.Machine, m.ItemsCount, m.TotalProposedQty, m.RedCount, m.OrangeCount}
	}

	final := make([][]any, len(t.FinalDecision))
	for i, d := range t.FinalDecision {
		final[i] = []any{d.ItemNo, d.ItemName, d.Machine, d.ProposedProductionQty, d.FinalQty}
	}

	return []reportSheet{
		{Name: domain.SheetExecutiveSummary, Headers: kpiColumns, Rows: kpis},
		{Name: domain.SheetTop10Critical, Headers: topCriticalColumns, Rows: priorityRows(t.Top10Critical, topCriticalColumns)},
		{Name: domain.SheetProductionPriority, Headers: priorityColumns, Rows: priorityRows(t.ProductionPriority, priorityColumns)},
		{Name: domain.SheetMachineLoad, Headers: machineLoadColumns, Rows: loads},
		{Name: domain.SheetFinalDecision, Headers: finalDecisionColumns, Rows: final},
	}
}

// priorityRows leaves plan-derived cells blank for items without a plan row.
func priorityRows(rows []domain.PriorityRow, cols []string) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		values := map[string]any{
			sheet.ColItemNo:            r.ItemNo,
			sheet.ColItemName:          r.ItemName,
			sheet.ColProductAlert:      r.ProductAlert,
			sheet.ColMonthlyDemandOut:  r.MonthlyDemand,
			sheet.ColTotalCoverageDays: r.TotalCoverageDays,
		}
		if r.HasPlan {
			values[sheet.ColMachine] = r.Machine
			values[sheet.ColGapDays] = r.GapDays
			values[sheet.ColProposedQty] = r.ProposedProductionQty
		}
		out[i] = project(values, cols)
	}
	return out
}
