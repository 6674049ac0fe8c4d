package domain

// UnspecifiedMachine is the machine assigned to items with a blank spec token.
const UnspecifiedMachine = "UNSPECIFIED"

// PlanRow is one item on one machine. Items naming several machines produce
// several rows sharing the same item-level figures.
type PlanRow struct {
	ItemNo      string `json:"item_no"`
	ItemName    string `json:"item_name"`
	Description string `json:"description"`
	Machine     string `json:"machine"`

	ProductAlert      AlertTier `json:"product_alert"`
	MonthlyDemand     int64     `json:"monthly_demand"`
	DailyDemand       int64     `json:"daily_demand"`
	TotalCoverageDays float64   `json:"total_coverage_days"`

	DemandClass        DemandClass `json:"demand_class"`
	TargetMonthsFinal  float64     `json:"target_months_final"`
	SafetyDaysFinal    float64     `json:"safety_days_final"`
	TargetCoverageDays float64     `json:"target_coverage_days"`
	PlanCoverageDays   float64     `json:"plan_coverage_days"`
	GapDays            float64     `json:"gap_days"`

	ProposedProductionQty int64 `json:"proposed_production_qty"`
	ProductionRank        int   `json:"production_rank"`
}

// Plan is the ordered output of one plan build, grouped by machine with
// ranks assigned inside each group.
type Plan struct {
	Rows []PlanRow `json:"rows"`
}

// Machines returns the distinct machines in row order.
func (p Plan) Machines() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range p.Rows {
		if !seen[r.Machine] {
			seen[r.Machine] = true
			out = append(out, r.Machine)
		}
	}
	return out
}

// ForMachine returns the rows assigned to machine, in rank order.
func (p Plan) ForMachine(machine string) []PlanRow {
	var out []PlanRow
	for _, r := range p.Rows {
		if r.Machine == machine {
			out = append(out, r)
		}
	}
	return out
}

// TotalProposedQty sums the proposed quantity over every row.
func (p Plan) TotalProposedQty() int64 {
	var total int64
	for _, r := range p.Rows {
		total += r.ProposedProductionQty
	}
	return total
}
