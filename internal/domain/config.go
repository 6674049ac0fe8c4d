package domain

import (
	"fmt"
	"sort"
	"time"
)

// Fallbacks for demand classes absent from the configured maps.
const (
	FallbackTargetMonths = 6.0
	FallbackSafetyDays   = 5.0
)

// DefaultPlanStart is the plan window start used when the caller picks none.
var DefaultPlanStart = NewDate(time.Date(2026, time.January, 30, 0, 0, 0, 0, time.UTC))

// defaultCustAlertExclude lists items supplied only through the internal
// channel. Their customer alert is always blank.
var defaultCustAlertExclude = []string{
	"1002010105", "1002010107", "1002010301", "1002010302", "1002010303",
	"1002010304", "1002010305", "1002010308", "1002010401", "1002010405",
	"1002010410", "1002010411", "1002010412", "1002010413", "1002010414",
	"1002020101", "1002080101", "1002080102", "1002080103", "1002080104",
	"1002080201", "1002080202", "1002080203", "1002080204", "1002080302",
	"1002080303", "1002080304", "1002080401", "1002080402", "1002080501",
	"1002080502", "1002080601", "1002080701", "1002080801", "1002080901",
	"1002090101", "1002080301", "1002100102", "1001060606", "1001060607",
	"1001090305",
}

// ClassValues maps demand classes to a per-class parameter.
type ClassValues map[DemandClass]float64

// Clone returns an independent copy.
func (c ClassValues) Clone() ClassValues {
	out := make(ClassValues, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Get returns the value for class, or fallback when unconfigured.
func (c ClassValues) Get(class DemandClass, fallback float64) float64 {
	if v, ok := c[class]; ok {
		return v
	}
	return fallback
}

// KeySet is a set of normalized item keys.
type KeySet map[string]struct{}

// NewKeySet normalizes every id with TemplateKey and drops empty keys.
func NewKeySet(ids ...string) KeySet {
	s := make(KeySet, len(ids))
	for _, id := range ids {
		if k := TemplateKey(id); k != "" {
			s[k] = struct{}{}
		}
	}
	return s
}

// Has reports whether the normalized form of id is in the set.
func (s KeySet) Has(id string) bool {
	_, ok := s[TemplateKey(id)]
	return ok
}

// Sorted returns the keys in ascending order.
func (s KeySet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// PlanConfig is the parameter bag for one planning run. It is passed by
// value into each stage and never shared between runs.
type PlanConfig struct {
	WorkingDays       int         `json:"working_days"`
	TargetMonths      ClassValues `json:"target_months"`
	SafetyDays        ClassValues `json:"safety_days"`
	MinBatchMonths    ClassValues `json:"min_batch_months"`
	BatchRoundTo      int64       `json:"batch_round_to"`
	ProductThresholds Thresholds  `json:"product_thresholds"`
	CustThresholds    Thresholds  `json:"cust_thresholds"`
	CustAlertExclude  KeySet      `json:"-"`
	DedupMachines     bool        `json:"dedup_machines"`
	PlanStartDate     Date        `json:"plan_start_date"`
}

// DefaultPlanConfig returns the stock configuration.
func DefaultPlanConfig() PlanConfig {
	return PlanConfig{
		WorkingDays: 26,
		TargetMonths: ClassValues{
			DemandVeryHigh: 3,
			DemandHigh:     4,
			DemandMedium:   6,
			DemandLow:      9,
			DemandVeryLow:  12,
		},
		SafetyDays: ClassValues{
			DemandVeryHigh: 14,
			DemandHigh:     10,
			DemandMedium:   7,
			DemandLow:      5,
			DemandVeryLow:  3,
		},
		MinBatchMonths: ClassValues{
			DemandLow:     4,
			DemandVeryLow: 6,
		},
		BatchRoundTo:      1000,
		ProductThresholds: DefaultProductThresholds(),
		CustThresholds:    DefaultCustThresholds(),
		CustAlertExclude:  NewKeySet(defaultCustAlertExclude...),
		DedupMachines:     true,
		PlanStartDate:     DefaultPlanStart,
	}
}

// Clone returns a deep copy so per-invocation overrides never leak.
func (c PlanConfig) Clone() PlanConfig {
	out := c
	out.TargetMonths = c.TargetMonths.Clone()
	out.SafetyDays = c.SafetyDays.Clone()
	out.MinBatchMonths = c.MinBatchMonths.Clone()
	out.CustAlertExclude = make(KeySet, len(c.CustAlertExclude))
	for k := range c.CustAlertExclude {
		out.CustAlertExclude[k] = struct{}{}
	}
	return out
}

// Validate checks the parameters that would make the arithmetic meaningless.
func (c PlanConfig) Validate() error {
	if c.WorkingDays <= 0 {
		return fmt.Errorf("working days must be positive, got %d", c.WorkingDays)
	}
	if c.BatchRoundTo < 0 {
		return fmt.Errorf("batch round size must not be negative, got %d", c.BatchRoundTo)
	}
	for class, v := range c.TargetMonths {
		if v <= 0 {
			return fmt.Errorf("target months for %s must be positive, got %v", class, v)
		}
	}
	for class, v := range c.SafetyDays {
		if v < 0 {
			return fmt.Errorf("safety days for %s must not be negative, got %v", class, v)
		}
	}
	for class, v := range c.MinBatchMonths {
		if v < 0 {
			return fmt.Errorf("min batch months for %s must not be negative, got %v", class, v)
		}
	}
	if !c.ProductThresholds.Valid() {
		return fmt.Errorf("product alert thresholds must be strictly increasing: %+v", c.ProductThresholds)
	}
	if !c.CustThresholds.Valid() {
		return fmt.Errorf("customer alert thresholds must be strictly increasing: %+v", c.CustThresholds)
	}
	return nil
}

// ExcludedKeys lists the customer-alert exclusions, sorted.
func (c PlanConfig) ExcludedKeys() []string {
	return c.CustAlertExclude.Sorted()
}
