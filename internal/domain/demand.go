package domain

// DemandClass is a relative-velocity bucket derived from where an item's
// monthly demand sits in the current catalog's non-zero demand distribution.
type DemandClass string

const (
	DemandVeryHigh DemandClass = "VERY_HIGH"
	DemandHigh     DemandClass = "HIGH"
	DemandMedium   DemandClass = "MEDIUM"
	DemandLow      DemandClass = "LOW"
	DemandVeryLow  DemandClass = "VERY_LOW"
)

// DemandClasses lists every class from fastest to slowest mover.
var DemandClasses = []DemandClass{
	DemandVeryHigh,
	DemandHigh,
	DemandMedium,
	DemandLow,
	DemandVeryLow,
}

// ParseDemandClass accepts the canonical upper-case class names.
func ParseDemandClass(s string) (DemandClass, bool) {
	for _, c := range DemandClasses {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}
