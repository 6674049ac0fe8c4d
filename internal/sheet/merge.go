package sheet

import (
	"github.com/andresuchdata/stockplanner/internal/domain"
)

// StageStockIngest names the stock validation stage in precondition errors.
const StageStockIngest = "stock ingest"

// StageItemsIngest names the items master validation stage.
const StageItemsIngest = "items master"

// MergeStats reports how the items master join went.
type MergeStats struct {
	StockRows        int
	ItemsRows        int
	Matched          int
	DuplicateItemIDs int
}

// BuildRawItems validates the stock table, formats item numbers and left
// joins Description from items on the last-10-digit key. items may be nil.
func BuildRawItems(stock, items *Table) ([]domain.RawItem, MergeStats, error) {
	var stats MergeStats
	if err := stock.Require(StageStockIngest, RequiredStockColumns...); err != nil {
		return nil, stats, err
	}
	stats.StockRows = stock.Len()

	descriptions := map[string]string{}
	if items != nil {
		if err := items.Require(StageItemsIngest, ColItemsID); err != nil {
			return nil, stats, err
		}
		stats.ItemsRows = items.Len()
		for i := 0; i < items.Len(); i++ {
			key := domain.MergeKey(items.Value(i, ColItemsID))
			if key == "" {
				continue
			}
			if _, dup := descriptions[key]; dup {
				stats.DuplicateItemIDs++
				continue
			}
			descriptions[key] = items.Value(i, ColItemsDescription)
		}
	}

	out := make([]domain.RawItem, 0, stock.Len())
	for i := 0; i < stock.Len(); i++ {
		itemNo := domain.DisplayItemNo(stock.Value(i, ColItemNo))
		desc, ok := descriptions[domain.MergeKey(itemNo)]
		if ok && itemNo != "" {
			stats.Matched++
		} else {
			desc = ""
		}

		out = append(out, domain.RawItem{
			ItemNo:      itemNo,
			ItemName:    stock.Value(i, ColItemName),
			Description: desc,
			MachineSpec: stock.Value(i, ColMachineSpec),

			MonthlyDemand: stock.Value(i, ColMonthlyDemand),
			MPIStock:      stock.Value(i, ColMPIStock),
			CustStock:     stock.Value(i, ColCustStock),
			TotalStock:    stock.Value(i, ColTotalStock),
			MPIStockDays:  stock.Value(i, ColMPIStockDays),
			CustStockDays: stock.Value(i, ColCustStockDays),

			PlanQtyInput:      stock.Value(i, ColPlanQtyInput),
			PlanMonthsInput:   stock.Value(i, ColPlanMonthsInput),
			TargetMonthsInput: stock.Value(i, ColTargetMonthsInput),
			SafetyDaysInput:   stock.Value(i, ColSafetyDaysInput),
		})
	}
	return out, stats, nil
}
