package domain

import (
	"encoding/json"
	"time"
)

// OptionalFloat is a user-entered number that may be absent.
type OptionalFloat struct {
	Value float64
	Valid bool
}

// Some wraps v as a present value.
func Some(v float64) OptionalFloat {
	return OptionalFloat{Value: v, Valid: true}
}

// MarshalJSON renders an absent value as null.
func (o OptionalFloat) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON accepts a number or null.
func (o *OptionalFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = OptionalFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// RawItem is one merged stock row before metric derivation. Numeric fields
// hold the cell text exactly as ingested.
type RawItem struct {
	ItemNo      string
	ItemName    string
	Description string
	MachineSpec string

	MonthlyDemand string
	MPIStock      string
	CustStock     string
	TotalStock    string
	MPIStockDays  string
	CustStockDays string

	PlanQtyInput      string
	PlanMonthsInput   string
	TargetMonthsInput string
	SafetyDaysInput   string
}

// Item is the per-SKU record after metrics, alerts and planning columns
// have been derived.
type Item struct {
	ItemNo      string `json:"item_no"`
	ItemName    string `json:"item_name"`
	Description string `json:"description"`
	MachineSpec string `json:"machine_spec"`

	MonthlyDemand int64 `json:"monthly_demand"`
	DailyDemand   int64 `json:"daily_demand"`

	MPIStockQty   int64   `json:"mpi_stock_qty"`
	CustStockQty  int64   `json:"cust_stock_qty"`
	TotalStockQty int64   `json:"total_stock_qty"`
	MPIStockDays  float64 `json:"mpi_stock_days"`
	CustStockDays float64 `json:"cust_stock_days"`

	TotalCoverageDays   float64 `json:"total_coverage_days"`
	TotalCoverageMonths float64 `json:"total_coverage_months"`

	ProductAlert AlertTier `json:"product_alert"`
	CustAlert    AlertTier `json:"cust_alert"`

	PlanQtyInput           OptionalFloat `json:"plan_qty_input"`
	PlanMonthsInput        OptionalFloat `json:"plan_months_input"`
	MonthsCoveredByPlanQty float64       `json:"months_covered_by_plan_qty"`
	QtyNeededForPlanMonths int64         `json:"qty_needed_for_plan_months"`
	PlanStartDate          Date          `json:"plan_start_date"`
	PlanEndDate            Date          `json:"plan_end_date"`

	TargetMonthsOverride OptionalFloat `json:"target_months_override"`
	SafetyDaysOverride   OptionalFloat `json:"safety_days_override"`
}

// Date is a calendar date without a time component.
type Date struct {
	time.Time
}

// DateLayout is the wire and display format for Date.
const DateLayout = "2006-01-02"

// NewDate truncates t to its calendar date in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return NewDate(t), nil
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
