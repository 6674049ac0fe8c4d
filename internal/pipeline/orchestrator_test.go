package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/sheet"
	"github.com/rs/zerolog"
)

func stockFixture(rows ...[]string) *sheet.Table {
	if len(rows) == 0 {
		rows = [][]string{
			{"1002010", "Cap", "M1-M2", "100", "50", "150", "1", "0.5", "2600"},
			{"1002011", "Lid", "M1", "0", "0", "0", "0", "0", "1000"},
		}
	}
	return sheet.NewTable("stock", sheet.RequiredStockColumns, rows)
}

func newInput() Input {
	return Input{Source: "stock.xlsx", Stock: stockFixture(), Config: domain.DefaultPlanConfig()}
}

func TestOrchestratorRun(t *testing.T) {
	res, err := NewOrchestrator(zerolog.Nop()).Run(context.Background(), newInput())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	run := res.Run
	if run.ID == "" || run.Status != StatusCompleted || run.CompletedAt == nil {
		t.Fatalf("run = %+v", run)
	}

	var stages []string
	for _, s := range run.Stages {
		stages = append(stages, s.Stage)
	}
	want := []string{StageIngest, StageMetrics, StageAlerts, StagePlanning, StagePlan, StageReport}
	if !reflect.DeepEqual(stages, want) {
		t.Errorf("stages = %v, want %v", stages, want)
	}

	if run.TotalItems != 2 || run.PlanRows != 3 || len(res.Plan.Rows) != 3 {
		t.Errorf("items = %d, plan rows = %d", run.TotalItems, run.PlanRows)
	}
	if len(res.Final) != 3 {
		t.Errorf("final decisions = %d, want one per plan row", len(res.Final))
	}
	if len(res.Report.ExecutiveSummary) == 0 {
		t.Errorf("report was not built")
	}
	if res.Items[0].ItemNo != "00001002010" {
		t.Errorf("item no = %q", res.Items[0].ItemNo)
	}
}

func TestOrchestratorCoercions(t *testing.T) {
	in := newInput()
	in.Stock = stockFixture([]string{"1", "Cap", "M1", "abc", "0", "0", "0", "0", "n/a"})

	res, err := NewOrchestrator(zerolog.Nop()).Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Run.Coercions[sheet.ColMPIStock] != 1 || res.Run.Coercions[sheet.ColMonthlyDemand] != 1 {
		t.Errorf("coercions = %v", res.Run.Coercions)
	}
}

func TestOrchestratorFailures(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	badConfig := newInput()
	badConfig.Config.WorkingDays = 0

	missing := newInput()
	missing.Stock = sheet.NewTable("stock", []string{sheet.ColItemNo}, nil)

	noStock := newInput()
	noStock.Stock = nil

	tests := []struct {
		name  string
		ctx   context.Context
		in    Input
		check func(error) bool
	}{
		{"canceled", canceled, newInput(), func(err error) bool { return errors.Is(err, context.Canceled) }},
		{"bad config", context.Background(), badConfig, func(err error) bool { return err != nil }},
		{"missing columns", context.Background(), missing, func(err error) bool { return errors.Is(err, domain.ErrPrecondition) }},
		{"no stock", context.Background(), noStock, func(err error) bool { return errors.Is(err, ErrNoStock) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewOrchestrator(zerolog.Nop()).Run(tt.ctx, tt.in)
			if !tt.check(err) {
				t.Fatalf("err = %v", err)
			}
			if res.Run.Status != StatusFailed || res.Run.ErrorMessage == "" {
				t.Errorf("run = %+v", res.Run)
			}
		})
	}
}

func masterFixture() *sheet.Table {
	headers := []string{
		sheet.ColItemNo, sheet.ColItemName, sheet.ColMachineSpec, sheet.ColMonthlyDemandOut,
		sheet.ColDailyDemand, sheet.ColTotalCoverageDays, sheet.ColProductAlert,
	}
	return sheet.NewTable("Master", headers, [][]string{
		{"00001002010", "Cap", "M1-M2", "2600", "100", "10", "Red"},
		{"00001002011", "Lid", "M1", "0", "0", "0", "Unknown"},
	})
}

func TestOrchestratorReplan(t *testing.T) {
	in := newInput()
	in.Stock = nil
	in.Master = masterFixture()

	res, err := NewOrchestrator(zerolog.Nop()).Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var stages []string
	for _, s := range res.Run.Stages {
		stages = append(stages, s.Stage)
	}
	if want := []string{StageIngest, StagePlan, StageReport}; !reflect.DeepEqual(stages, want) {
		t.Errorf("stages = %v, want %v", stages, want)
	}
	if res.Run.TotalItems != 2 || res.Run.PlanRows != 3 || len(res.Final) != 3 {
		t.Errorf("items = %d, plan rows = %d, final = %d", res.Run.TotalItems, res.Run.PlanRows, len(res.Final))
	}
	if res.Items[0].ItemNo != "00001002010" || res.Items[0].ProductAlert != domain.AlertRed {
		t.Errorf("item = %+v", res.Items[0])
	}
}

func TestOrchestratorReplanMissingColumns(t *testing.T) {
	in := newInput()
	in.Master = sheet.NewTable("Master", []string{sheet.ColItemNo, sheet.ColMachineSpec}, [][]string{{"1", "M1"}})

	res, err := NewOrchestrator(zerolog.Nop()).Run(context.Background(), in)
	var mce *domain.MissingColumnError
	if !errors.As(err, &mce) {
		t.Fatalf("err = %v, want *MissingColumnError", err)
	}
	want := []string{sheet.ColMonthlyDemandOut, sheet.ColDailyDemand, sheet.ColTotalCoverageDays}
	if !reflect.DeepEqual(mce.Columns, want) {
		t.Errorf("missing = %v, want %v", mce.Columns, want)
	}
	if res.Run.Status != StatusFailed {
		t.Errorf("status = %s", res.Run.Status)
	}
}

func TestOrchestratorDoesNotMutateConfig(t *testing.T) {
	in := newInput()
	in.Config.TargetMonths[domain.DemandMedium] = 2

	if _, err := NewOrchestrator(zerolog.Nop()).Run(context.Background(), in); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := domain.DefaultPlanConfig().TargetMonths[domain.DemandMedium]; got != 6 {
		t.Errorf("defaults changed to %v", got)
	}
}
