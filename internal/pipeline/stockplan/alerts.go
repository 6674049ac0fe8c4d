package stockplan

import (
	"math"

	"github.com/andresuchdata/stockplanner/internal/domain"
)

// Classify maps a coverage-day figure onto a tier using strict less-than
// cut points. NaN yields the unknown tier.
func Classify(days float64, t domain.Thresholds) domain.AlertTier {
	switch {
	case math.IsNaN(days):
		return domain.AlertUnknown
	case days < t.RedLT:
		return domain.AlertRed
	case days < t.OrangeLT:
		return domain.AlertOrange
	case days < t.YellowLT:
		return domain.AlertYellow
	default:
		return domain.AlertGreen
	}
}

// AlertClassifier sets the product and customer alerts of items.
type AlertClassifier struct {
	product domain.Thresholds
	cust    domain.Thresholds
	exclude domain.KeySet
}

// NewAlertClassifier creates a classifier from the run configuration.
func NewAlertClassifier(cfg domain.PlanConfig) *AlertClassifier {
	return &AlertClassifier{
		product: cfg.ProductThresholds,
		cust:    cfg.CustThresholds,
		exclude: cfg.CustAlertExclude,
	}
}

// Apply classifies items in place and returns how many customer alerts were
// blanked by the exclusion set.
func (a *AlertClassifier) Apply(items []domain.Item) int {
	excluded := 0
	for i := range items {
		items[i].ProductAlert = Classify(items[i].TotalCoverageDays, a.product)
		items[i].CustAlert = Classify(items[i].CustStockDays, a.cust)

		// Excluded items never surface in customer alerting.
		if a.exclude.Has(items[i].ItemNo) {
			items[i].CustAlert = domain.AlertUnknown
			excluded++
		}
	}
	return excluded
}
