package domain

// Report table names, in workbook order.
const (
	SheetExecutiveSummary   = "Executive Summary"
	SheetTop10Critical      = "Top 10 Critical"
	SheetProductionPriority = "Production Priority"
	SheetMachineLoad        = "Machine Load"
	SheetFinalDecision      = "Final Decision"
)

// KPI is one labelled figure of the executive summary.
type KPI struct {
	Name  string `json:"kpi"`
	Value int64  `json:"value"`
}

// PriorityRow is an item-level view carrying the first plan row's machine,
// gap and proposed quantity.
type PriorityRow struct {
	ItemNo                string    `json:"item_no"`
	ItemName              string    `json:"item_name"`
	Machine               string    `json:"machine"`
	ProductAlert          AlertTier `json:"product_alert"`
	MonthlyDemand         int64     `json:"monthly_demand"`
	TotalCoverageDays     float64   `json:"total_coverage_days"`
	GapDays               float64   `json:"gap_days"`
	ProposedProductionQty int64     `json:"proposed_production_qty"`
	HasPlan               bool      `json:"has_plan"`
}

// MachineLoad is the per-machine rollup of proposed production.
type MachineLoad struct {
	Machine          string `json:"machine"`
	ItemsCount       int    `json:"items_count"`
	TotalProposedQty int64  `json:"total_proposed_qty"`
	RedCount         int    `json:"red_count"`
	OrangeCount      int    `json:"orange_count"`
}

// FinalDecision is a plan row with the planner's confirmed quantity.
type FinalDecision struct {
	ItemNo                string `json:"item_no"`
	ItemName              string `json:"item_name"`
	Machine               string `json:"machine"`
	ProposedProductionQty int64  `json:"proposed_production_qty"`
	FinalQty              int64  `json:"final_qty"`
}

// ReportTables is the management report: five derived views over one run.
type ReportTables struct {
	ExecutiveSummary   []KPI           `json:"executive_summary"`
	Top10Critical      []PriorityRow   `json:"top10_critical"`
	ProductionPriority []PriorityRow   `json:"production_priority"`
	MachineLoad        []MachineLoad   `json:"machine_load"`
	FinalDecision      []FinalDecision `json:"final_decision"`
}
