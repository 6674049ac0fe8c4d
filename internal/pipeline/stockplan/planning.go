package stockplan

import (
	"github.com/andresuchdata/stockplanner/internal/domain"
)

// PlanningAugmenter fills the what-if planning columns and the plan window.
// Its output never feeds the production plan.
type PlanningAugmenter struct {
	start domain.Date
}

// NewPlanningAugmenter creates an augmenter for a plan window starting at start.
func NewPlanningAugmenter(start domain.Date) *PlanningAugmenter {
	return &PlanningAugmenter{start: start}
}

// Apply sets the derived planning fields in place.
func (p *PlanningAugmenter) Apply(items []domain.Item) {
	for i := range items {
		it := &items[i]
		it.MonthsCoveredByPlanQty = MonthsCovered(it.PlanQtyInput, it.MonthlyDemand)
		it.QtyNeededForPlanMonths = QtyNeeded(it.PlanMonthsInput, it.MonthlyDemand)
		it.PlanStartDate = p.start
		it.PlanEndDate = p.start.AddDays(int(roundToInt(it.TotalCoverageDays)))
	}
}

// MonthsCovered is planQty / monthly to one decimal. Absent input and zero
// demand yield 0.
func MonthsCovered(planQty domain.OptionalFloat, monthly int64) float64 {
	if !planQty.Valid || monthly == 0 {
		return 0
	}
	return roundHalfEven(planQty.Value/float64(monthly), 1)
}

// QtyNeeded is planMonths * monthly rounded to whole pieces. Absent input yields 0.
func QtyNeeded(planMonths domain.OptionalFloat, monthly int64) int64 {
	if !planMonths.Valid {
		return 0
	}
	return roundToInt(planMonths.Value * float64(monthly))
}
