package report

import (
	"sort"

	"github.com/andresuchdata/stockplanner/internal/domain"
)

// ProductAlertView lists RED and ORANGE product alerts, RED first, lowest
// total coverage first within a tier.
func ProductAlertView(items []domain.Item) []domain.Item {
	return alertView(items, func(it domain.Item) (domain.AlertTier, float64) {
		return it.ProductAlert, it.TotalCoverageDays
	})
}

// CustomerAlertView lists RED and ORANGE customer alerts, ordered by
// customer stock days. Excluded items carry a blank alert and never appear.
func CustomerAlertView(items []domain.Item) []domain.Item {
	return alertView(items, func(it domain.Item) (domain.AlertTier, float64) {
		return it.CustAlert, it.CustStockDays
	})
}

func alertView(items []domain.Item, key func(domain.Item) (domain.AlertTier, float64)) []domain.Item {
	var out []domain.Item
	for _, it := range items {
		if a, _ := key(it); a == domain.AlertRed || a == domain.AlertOrange {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ai, di := key(out[i])
		aj, dj := key(out[j])
		if ai != aj {
			return ai.Priority() < aj.Priority()
		}
		return di < dj
	})
	return out
}
