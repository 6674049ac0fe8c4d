package report

import (
	"fmt"

	"github.com/andresuchdata/stockplanner/internal/domain"
)

// FinalQtyOverrides maps normalized item keys to the planner's quantity.
type FinalQtyOverrides map[string]int64

// Set records qty for itemNo. Negative quantities are rejected.
func (o FinalQtyOverrides) Set(itemNo string, qty int64) error {
	key := domain.TemplateKey(itemNo)
	if key == "" {
		return fmt.Errorf("item number %q has no digits", itemNo)
	}
	if qty < 0 {
		return fmt.Errorf("final qty for %s must not be negative, got %d", itemNo, qty)
	}
	o[key] = qty
	return nil
}

// FinalDecisions lists every plan row with its final quantity: the override
// for the item when one exists, the proposed quantity otherwise.
func FinalDecisions(plan domain.Plan, overrides FinalQtyOverrides) []domain.FinalDecision {
	out := make([]domain.FinalDecision, 0, len(plan.Rows))
	for _, r := range plan.Rows {
		final := r.ProposedProductionQty
		if q, ok := overrides[domain.TemplateKey(r.ItemNo)]; ok {
			final = q
		}
		out = append(out, domain.FinalDecision{
			ItemNo:                r.ItemNo,
			ItemName:              r.ItemName,
			Machine:               r.Machine,
			ProposedProductionQty: r.ProposedProductionQty,
			FinalQty:              final,
		})
	}
	return out
}
