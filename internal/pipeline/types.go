package pipeline

import (
	"time"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/pipeline/stockplan"
	"github.com/andresuchdata/stockplanner/internal/report"
	"github.com/andresuchdata/stockplanner/internal/sheet"
)

// Stage names, in execution order.
const (
	StageIngest   = "ingest"
	StageMetrics  = "metrics"
	StageAlerts   = "alerts"
	StagePlanning = "planning"
	StagePlan     = "plan"
	StageReport   = "report"
)

// RunStatus represents the current state of a planning run
type RunStatus string

const (
	StatusPending    RunStatus = "pending"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// StageTiming records one finished stage.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Rows     int           `json:"rows"`
	Duration time.Duration `json:"duration_ns"`
}

// PipelineRun tracks a single execution of the planning pipeline
type PipelineRun struct {
	ID           string        `json:"id"`
	Source       string        `json:"source,omitempty"`
	Status       RunStatus     `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	ErrorMessage string        `json:"error,omitempty"`
	Stages       []StageTiming `json:"stages"`

	TotalItems    int            `json:"total_items"`
	PlanRows      int            `json:"plan_rows"`
	CustExcluded  int            `json:"cust_alert_excluded"`
	Coercions     map[string]int `json:"coercions,omitempty"`
	ItemsMatched  int            `json:"items_master_matched"`
	DuplicateKeys int            `json:"items_master_duplicates"`
}

// Duration is the wall time of a finished run, zero while it is running.
func (r *PipelineRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Input is everything one run needs. Items and FinalQty may be nil. When
// Master is set the run re-plans from that table and Stock is ignored.
type Input struct {
	Source   string
	Stock    *sheet.Table
	Items    *sheet.Table
	Master   *sheet.Table
	Config   domain.PlanConfig
	FinalQty report.FinalQtyOverrides
}

// Result is the output of a completed run.
type Result struct {
	Run       *PipelineRun              `json:"run"`
	Items     []domain.Item             `json:"items"`
	Plan      domain.Plan               `json:"plan"`
	CutPoints stockplan.DemandCutPoints `json:"demand_cut_points"`
	Final     []domain.FinalDecision    `json:"final_decision"`
	Report    domain.ReportTables       `json:"report"`
}

// BatchConfig holds configuration for running several inputs at once
type BatchConfig struct {
	WorkerCount   int           // Number of concurrent runs
	RetryAttempts int           // Number of retries on a non-precondition failure
	RetryBackoff  time.Duration // Backoff duration between retries
}

// DefaultBatchConfig returns sensible defaults
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		WorkerCount:   4,
		RetryAttempts: 0,
		RetryBackoff:  time.Second,
	}
}
