package stockplan

import (
	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/sheet"
)

// StagePlanBuilder names the plan stage in precondition errors.
const StagePlanBuilder = "production plan"

// PlanInputColumns must be present in a table handed to the plan builder.
var PlanInputColumns = []string{
	sheet.ColMachineSpec,
	sheet.ColMonthlyDemandOut,
	sheet.ColDailyDemand,
	sheet.ColTotalCoverageDays,
}

// ItemsFromMasterTable reads plan inputs from a previously exported Master
// sheet. Planners edit overrides in that sheet and feed it back, so only the
// columns the builder needs are required. Missing alert cells are treated as
// unknown.
func ItemsFromMasterTable(t *sheet.Table) ([]domain.Item, error) {
	if err := t.Require(StagePlanBuilder, PlanInputColumns...); err != nil {
		return nil, err
	}

	items := make([]domain.Item, t.Len())
	for i := range items {
		monthly, _ := parseNumber(t.Value(i, sheet.ColMonthlyDemandOut))
		daily, _ := parseNumber(t.Value(i, sheet.ColDailyDemand))
		coverage, _ := parseNumber(t.Value(i, sheet.ColTotalCoverageDays))

		items[i] = domain.Item{
			ItemNo:               domain.DisplayItemNo(t.Value(i, sheet.ColItemNo)),
			ItemName:             t.Value(i, sheet.ColItemName),
			Description:          t.Value(i, sheet.ColDescription),
			MachineSpec:          t.Value(i, sheet.ColMachineSpec),
			MonthlyDemand:        roundToInt(monthly),
			DailyDemand:          roundToInt(daily),
			TotalCoverageDays:    roundHalfEven(coverage, 1),
			ProductAlert:         domain.NormalizeAlert(t.Value(i, sheet.ColProductAlert)),
			CustAlert:            domain.NormalizeAlert(t.Value(i, sheet.ColCustAlert)),
			TargetMonthsOverride: parseOptional(t.Value(i, sheet.ColTargetMonthsInput)),
			SafetyDaysOverride:   parseOptional(t.Value(i, sheet.ColSafetyDaysInput)),
		}
	}
	return items, nil
}
