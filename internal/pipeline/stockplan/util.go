package stockplan

import (
	"math"
	"strconv"
	"strings"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/shopspring/decimal"
)

// parseNumber parses a spreadsheet cell as a number. Thousands separators
// are stripped. Blank, non-numeric, NaN and infinite cells report false.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseOptional returns an absent value for blank or unparseable cells.
func parseOptional(s string) domain.OptionalFloat {
	if v, ok := parseNumber(s); ok {
		return domain.Some(v)
	}
	return domain.OptionalFloat{}
}

// roundHalfEven rounds v to places decimals, ties to even.
func roundHalfEven(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).RoundBank(places).Float64()
	return f
}

// roundToInt rounds v to the nearest integer, ties to even.
func roundToInt(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).RoundBank(0).IntPart()
}

// ceilProduct returns ceil(max(0, a*b)) computed exactly on the decimal
// representations of a and b.
func ceilProduct(a float64, b int64) int64 {
	p := decimal.NewFromFloat(a).Mul(decimal.NewFromInt(b))
	if !p.IsPositive() {
		return 0
	}
	return p.Ceil().IntPart()
}

// roundUpToMultiple rounds q up to the next multiple of batch. Zero and
// negative quantities, and batch <= 0, return q clamped at zero.
func roundUpToMultiple(q, batch int64) int64 {
	if q <= 0 {
		return 0
	}
	if batch <= 0 {
		return q
	}
	return (q + batch - 1) / batch * batch
}
