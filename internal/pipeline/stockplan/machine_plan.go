package stockplan

import (
	"math"
	"sort"
	"strings"

	"github.com/andresuchdata/stockplanner/internal/domain"
)

// PlanBuilder derives the per-machine production plan from classified items.
// A builder is stateless between calls: identical items and configuration
// always produce identical rows in identical order.
type PlanBuilder struct {
	cfg domain.PlanConfig
}

// NewPlanBuilder creates a builder bound to one run configuration.
func NewPlanBuilder(cfg domain.PlanConfig) *PlanBuilder {
	return &PlanBuilder{cfg: cfg}
}

// Result is a built plan plus the demand boundaries it was classified with.
type Result struct {
	Plan      domain.Plan
	CutPoints DemandCutPoints
}

// Build explodes items onto machines, classifies demand, resolves targets,
// computes gap and quantity and ranks rows within each machine.
func (b *PlanBuilder) Build(items []domain.Item) Result {
	// 1. Explode machine specs, one row per machine token
	var rows []domain.PlanRow
	var overrides []itemOverrides
	for _, it := range items {
		for _, m := range ExplodeMachines(it.MachineSpec, b.cfg.DedupMachines) {
			rows = append(rows, domain.PlanRow{
				ItemNo:            it.ItemNo,
				ItemName:          it.ItemName,
				Description:       it.Description,
				Machine:           m,
				ProductAlert:      it.ProductAlert,
				MonthlyDemand:     it.MonthlyDemand,
				DailyDemand:       it.DailyDemand,
				TotalCoverageDays: it.TotalCoverageDays,
			})
			overrides = append(overrides, itemOverrides{
				targetMonths: it.TargetMonthsOverride,
				safetyDays:   it.SafetyDaysOverride,
			})
		}
	}

	// 2. Demand class over the exploded rows
	demand := make([]float64, len(rows))
	for i, r := range rows {
		demand[i] = float64(r.MonthlyDemand)
	}
	classes, cuts := ClassifyDemand(demand)

	wd := float64(b.cfg.WorkingDays)
	for i := range rows {
		r := &rows[i]
		r.DemandClass = classes[i]

		// 3. Targets from class defaults, then valid per-item overrides
		r.TargetMonthsFinal = b.cfg.TargetMonths.Get(r.DemandClass, domain.FallbackTargetMonths)
		if o := overrides[i].targetMonths; o.Valid && o.Value > 0 {
			r.TargetMonthsFinal = o.Value
		}
		r.SafetyDaysFinal = b.cfg.SafetyDays.Get(r.DemandClass, domain.FallbackSafetyDays)
		if o := overrides[i].safetyDays; o.Valid && o.Value >= 0 {
			r.SafetyDaysFinal = o.Value
		}

		// 4. Plan coverage, floored by the class minimum batch
		r.TargetCoverageDays = roundHalfEven(r.TargetMonthsFinal*wd, 1)
		plan := roundHalfEven(r.TargetCoverageDays+r.SafetyDaysFinal, 1)
		minDays := roundHalfEven(b.cfg.MinBatchMonths.Get(r.DemandClass, 0)*wd, 1)
		r.PlanCoverageDays = roundHalfEven(math.Max(plan, minDays), 1)

		// 5. Gap and quantity
		r.GapDays = roundHalfEven(math.Max(0, r.PlanCoverageDays-r.TotalCoverageDays), 1)
		qty := ceilProduct(r.GapDays, r.DailyDemand)
		if b.cfg.BatchRoundTo > 0 {
			qty = roundUpToMultiple(qty, b.cfg.BatchRoundTo)
		}
		r.ProposedProductionQty = qty
	}

	// 6. Rank inside each machine group
	SortPlanRows(rows)
	rank := map[string]int{}
	for i := range rows {
		rank[rows[i].Machine]++
		rows[i].ProductionRank = rank[rows[i].Machine]
	}

	return Result{Plan: domain.Plan{Rows: rows}, CutPoints: cuts}
}

type itemOverrides struct {
	targetMonths domain.OptionalFloat
	safetyDays   domain.OptionalFloat
}

// ExplodeMachines splits a hyphen-delimited machine spec into trimmed tokens.
// Blank and "nan"/"None" tokens become UnspecifiedMachine. With dedup, a
// machine named twice yields one token.
func ExplodeMachines(spec string, dedup bool) []string {
	parts := strings.Split(spec, "-")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		m := strings.TrimSpace(p)
		switch m {
		case "", "nan", "None":
			m = domain.UnspecifiedMachine
		}
		if dedup {
			if seen[m] {
				continue
			}
			seen[m] = true
		}
		out = append(out, m)
	}
	return out
}

// LessPlanRow orders rows by machine, then alert priority ascending, gap
// days descending, proposed quantity descending and monthly demand descending.
func LessPlanRow(a, b domain.PlanRow) bool {
	if a.Machine != b.Machine {
		return a.Machine < b.Machine
	}
	if pa, pb := a.ProductAlert.Priority(), b.ProductAlert.Priority(); pa != pb {
		return pa < pb
	}
	if a.GapDays != b.GapDays {
		return a.GapDays > b.GapDays
	}
	if a.ProposedProductionQty != b.ProposedProductionQty {
		return a.ProposedProductionQty > b.ProposedProductionQty
	}
	return a.MonthlyDemand > b.MonthlyDemand
}

// SortPlanRows sorts rows with LessPlanRow, keeping input order on full ties.
func SortPlanRows(rows []domain.PlanRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return LessPlanRow(rows[i], rows[j])
	})
}
