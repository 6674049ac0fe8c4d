package domain

import "strings"

// AlertTier is a four-level severity over a coverage-day metric.
// The empty tier means the coverage input was unknown or the item is excluded.
type AlertTier string

const (
	AlertRed     AlertTier = "RED"
	AlertOrange  AlertTier = "ORANGE"
	AlertYellow  AlertTier = "YELLOW"
	AlertGreen   AlertTier = "GREEN"
	AlertUnknown AlertTier = ""
)

var alertPriorities = map[AlertTier]int{
	AlertRed:    0,
	AlertOrange: 1,
	AlertYellow: 2,
	AlertGreen:  3,
}

// UnknownAlertPriority sorts after every known tier.
const UnknownAlertPriority = 9

// Priority returns the urgency order of the tier, lower is more urgent.
func (a AlertTier) Priority() int {
	if p, ok := alertPriorities[a]; ok {
		return p
	}
	return UnknownAlertPriority
}

func (a AlertTier) String() string {
	return string(a)
}

// NormalizeAlert maps free-form alert labels ("red ", "RED!", "Green") onto
// RED/ORANGE/GREEN by case-insensitive substring match. Anything else is
// returned upper-cased and trimmed.
func NormalizeAlert(s string) AlertTier {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.Contains(v, "RED"):
		return AlertRed
	case strings.Contains(v, "ORANGE"):
		return AlertOrange
	case strings.Contains(v, "GREEN"):
		return AlertGreen
	}
	return AlertTier(v)
}

// Thresholds are strict less-than cut points for a four-tier classifier.
// A value equal to a cut point falls into the better tier.
type Thresholds struct {
	RedLT    float64 `json:"red_lt" toml:"red_lt"`
	OrangeLT float64 `json:"orange_lt" toml:"orange_lt"`
	YellowLT float64 `json:"yellow_lt" toml:"yellow_lt"`
}

// DefaultProductThresholds are applied to total coverage days.
func DefaultProductThresholds() Thresholds {
	return Thresholds{RedLT: 7, OrangeLT: 21, YellowLT: 60}
}

// DefaultCustThresholds are applied to customer-held stock days.
func DefaultCustThresholds() Thresholds {
	return Thresholds{RedLT: 5, OrangeLT: 10, YellowLT: 20}
}

// Valid reports whether the cut points are strictly increasing.
func (t Thresholds) Valid() bool {
	return t.RedLT < t.OrangeLT && t.OrangeLT < t.YellowLT
}
