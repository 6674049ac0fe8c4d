package stockplan

import (
	"math"
	"sort"

	"github.com/andresuchdata/stockplanner/internal/domain"
)

// DemandCutPoints are the percentile boundaries of one demand distribution.
// Valid is false when the distribution had no positive values.
type DemandCutPoints struct {
	P90   float64 `json:"p90"`
	P70   float64 `json:"p70"`
	P40   float64 `json:"p40"`
	P15   float64 `json:"p15"`
	Valid bool    `json:"valid"`
}

// NewDemandCutPoints computes the cut points over the positive values only,
// so a mass of zero-demand items does not drag every boundary down.
func NewDemandCutPoints(values []float64) DemandCutPoints {
	nz := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 {
			nz = append(nz, v)
		}
	}
	if len(nz) == 0 {
		return DemandCutPoints{}
	}
	sort.Float64s(nz)

	return DemandCutPoints{
		P90:   quantile(nz, 0.90),
		P70:   quantile(nz, 0.70),
		P40:   quantile(nz, 0.40),
		P15:   quantile(nz, 0.15),
		Valid: true,
	}
}

// Classify buckets v, including zero, against the cut points.
func (c DemandCutPoints) Classify(v float64) domain.DemandClass {
	if !c.Valid {
		return domain.DemandVeryLow
	}
	switch {
	case v >= c.P90:
		return domain.DemandVeryHigh
	case v >= c.P70:
		return domain.DemandHigh
	case v >= c.P40:
		return domain.DemandMedium
	case v >= c.P15:
		return domain.DemandLow
	default:
		return domain.DemandVeryLow
	}
}

// ClassifyDemand buckets every value against cut points derived from the
// same values.
func ClassifyDemand(values []float64) ([]domain.DemandClass, DemandCutPoints) {
	cuts := NewDemandCutPoints(values)
	out := make([]domain.DemandClass, len(values))
	for i, v := range values {
		out[i] = cuts.Classify(v)
	}
	return out, cuts
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := math.Floor(pos)
	hi := math.Ceil(pos)
	a, b := sorted[int(lo)], sorted[int(hi)]
	return a + (b-a)*(pos-lo)
}
