package report

import (
	"sort"

	"github.com/andresuchdata/stockplanner/internal/domain"
)

// Extract sizes.
const (
	TopCriticalLimit = 10
	PDFPriorityLimit = 30
)

// KPI labels of the executive summary, in display order.
const (
	KPITotalItems       = "Total Items"
	KPIRedItems         = "RED Items (Production)"
	KPIOrangeItems      = "ORANGE Items (Production)"
	KPIGreenItems       = "GREEN Items (Production)"
	KPITotalProposed    = "Total Proposed Qty (pcs)"
	KPIMachinesImpacted = "Machines Impacted"
)

// Build derives the five management tables from one run. It only filters,
// sorts and sums: no figure here is computed anew.
func Build(items []domain.Item, plan domain.Plan, final []domain.FinalDecision) domain.ReportTables {
	priority := priorityRows(items, plan)

	return domain.ReportTables{
		ExecutiveSummary:   executiveSummary(items, plan),
		Top10Critical:      topCritical(priority, TopCriticalLimit),
		ProductionPriority: sortPriority(priority),
		MachineLoad:        MachineLoads(plan),
		FinalDecision:      final,
	}
}

func executiveSummary(items []domain.Item, plan domain.Plan) []domain.KPI {
	var red, orange, green int64
	for _, it := range items {
		switch domain.NormalizeAlert(string(it.ProductAlert)) {
		case domain.AlertRed:
			red++
		case domain.AlertOrange:
			orange++
		case domain.AlertGreen:
			green++
		}
	}

	return []domain.KPI{
		{Name: KPITotalItems, Value: int64(len(items))},
		{Name: KPIRedItems, Value: red},
		{Name: KPIOrangeItems, Value: orange},
		{Name: KPIGreenItems, Value: green},
		{Name: KPITotalProposed, Value: plan.TotalProposedQty()},
		{Name: KPIMachinesImpacted, Value: int64(len(plan.Machines()))},
	}
}

// priorityRows joins each item with its first plan row, in item order.
func priorityRows(items []domain.Item, plan domain.Plan) []domain.PriorityRow {
	first := make(map[string]domain.PlanRow, len(items))
	for _, r := range plan.Rows {
		if _, ok := first[r.ItemNo]; !ok {
			first[r.ItemNo] = r
		}
	}

	out := make([]domain.PriorityRow, len(items))
	for i, it := range items {
		row := domain.PriorityRow{
			ItemNo:            it.ItemNo,
			ItemName:          it.ItemName,
			ProductAlert:      domain.NormalizeAlert(string(it.ProductAlert)),
			MonthlyDemand:     it.MonthlyDemand,
			TotalCoverageDays: it.TotalCoverageDays,
		}
		if p, ok := first[it.ItemNo]; ok {
			row.Machine = p.Machine
			row.GapDays = p.GapDays
			row.ProposedProductionQty = p.ProposedProductionQty
			row.HasPlan = true
		}
		out[i] = row
	}
	return out
}

// lessPriority orders by alert priority, then gap days descending with
// unplanned rows last, then coverage ascending.
func lessPriority(a, b domain.PriorityRow) bool {
	if pa, pb := a.ProductAlert.Priority(), b.ProductAlert.Priority(); pa != pb {
		return pa < pb
	}
	if a.HasPlan != b.HasPlan {
		return a.HasPlan
	}
	if a.GapDays != b.GapDays {
		return a.GapDays > b.GapDays
	}
	return a.TotalCoverageDays < b.TotalCoverageDays
}

func sortPriority(rows []domain.PriorityRow) []domain.PriorityRow {
	out := append([]domain.PriorityRow(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return lessPriority(out[i], out[j]) })
	return out
}

func topCritical(rows []domain.PriorityRow, limit int) []domain.PriorityRow {
	var critical []domain.PriorityRow
	for _, r := range rows {
		if r.ProductAlert == domain.AlertRed || r.ProductAlert == domain.AlertOrange {
			critical = append(critical, r)
		}
	}
	critical = sortPriority(critical)
	if len(critical) > limit {
		critical = critical[:limit]
	}
	return critical
}

// MachineLoads rolls plan rows up per machine, heaviest machine first.
// Machines with equal load keep name order.
func MachineLoads(plan domain.Plan) []domain.MachineLoad {
	byMachine := map[string]*domain.MachineLoad{}
	var names []string
	for _, r := range plan.Rows {
		m, ok := byMachine[r.Machine]
		if !ok {
			m = &domain.MachineLoad{Machine: r.Machine}
			byMachine[r.Machine] = m
			names = append(names, r.Machine)
		}
		m.ItemsCount++
		m.TotalProposedQty += r.ProposedProductionQty
		switch domain.NormalizeAlert(string(r.ProductAlert)) {
		case domain.AlertRed:
			m.RedCount++
		case domain.AlertOrange:
			m.OrangeCount++
		}
	}
	sort.Strings(names)

	out := make([]domain.MachineLoad, 0, len(names))
	for _, n := range names {
		out = append(out, *byMachine[n])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalProposedQty > out[j].TotalProposedQty
	})
	return out
}

// Top returns at most n rows of the production priority table.
func Top(rows []domain.PriorityRow, n int) []domain.PriorityRow {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}
