package stockplan

import (
	"math"
	"testing"

	"github.com/andresuchdata/stockplanner/internal/domain"
)

func TestNewDemandCutPoints(t *testing.T) {
	cuts := NewDemandCutPoints([]float64{0, 10000, 0, 100, 2600, 1000, 5000})
	want := DemandCutPoints{P90: 8000, P70: 4520, P40: 1960, P15: 640, Valid: true}

	near := func(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
	if !cuts.Valid || !near(cuts.P90, want.P90) || !near(cuts.P70, want.P70) ||
		!near(cuts.P40, want.P40) || !near(cuts.P15, want.P15) {
		t.Fatalf("cut points = %+v, want %+v", cuts, want)
	}
}

func TestDemandCutPointsClassify(t *testing.T) {
	cuts := DemandCutPoints{P90: 8000, P70: 4520, P40: 1960, P15: 640, Valid: true}
	tests := []struct {
		v    float64
		want domain.DemandClass
	}{
		{10000, domain.DemandVeryHigh},
		{8000, domain.DemandVeryHigh},
		{7999, domain.DemandHigh},
		{4520, domain.DemandHigh},
		{2600, domain.DemandMedium},
		{1960, domain.DemandMedium},
		{640, domain.DemandLow},
		{639, domain.DemandVeryLow},
		{0, domain.DemandVeryLow},
	}
	for _, tt := range tests {
		if got := cuts.Classify(tt.v); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.v, got, tt.want)
		}
	}
}

func TestClassifyDemandEdgeCases(t *testing.T) {
	t.Run("no positive values", func(t *testing.T) {
		classes, cuts := ClassifyDemand([]float64{0, 0, -3})
		if cuts.Valid {
			t.Fatalf("cuts should be invalid")
		}
		for i, c := range classes {
			if c != domain.DemandVeryLow {
				t.Errorf("class[%d] = %s, want VERY_LOW", i, c)
			}
		}
	})

	t.Run("single positive value", func(t *testing.T) {
		classes, _ := ClassifyDemand([]float64{0, 42})
		if classes[0] != domain.DemandVeryLow || classes[1] != domain.DemandVeryHigh {
			t.Fatalf("classes = %v, want [VERY_LOW VERY_HIGH]", classes)
		}
	})

	t.Run("empty", func(t *testing.T) {
		classes, cuts := ClassifyDemand(nil)
		if len(classes) != 0 || cuts.Valid {
			t.Fatalf("classes = %v, cuts = %+v", classes, cuts)
		}
	})
}
