package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/stockplanner/internal/cache"
	"github.com/andresuchdata/stockplanner/internal/export"
	"github.com/andresuchdata/stockplanner/internal/pipeline"
	"github.com/andresuchdata/stockplanner/internal/report"
	"github.com/andresuchdata/stockplanner/internal/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ExportKind names a downloadable artifact of a run.
type ExportKind string

const (
	ExportFull          ExportKind = "full"
	ExportMachines      ExportKind = "machines"
	ExportMachine       ExportKind = "machine"
	ExportReportXLSX    ExportKind = "report-xlsx"
	ExportReportPDF     ExportKind = "report-pdf"
	ExportProductAlert  ExportKind = "product-alert"
	ExportCustomerAlert ExportKind = "customer-alert"
)

// PublishKinds are the artifacts written when a run is published.
var PublishKinds = []ExportKind{
	ExportFull,
	ExportMachines,
	ExportReportXLSX,
	ExportReportPDF,
	ExportProductAlert,
	ExportCustomerAlert,
}

// ParseExportKind accepts the kind names above, case-insensitively.
func ParseExportKind(s string) (ExportKind, error) {
	k := ExportKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case ExportFull, ExportMachines, ExportMachine, ExportReportXLSX,
		ExportReportPDF, ExportProductAlert, ExportCustomerAlert:
		return k, nil
	}
	return "", fmt.Errorf("unknown export kind %q", s)
}

// Export renders one artifact of res. machine is only used by ExportMachine.
func Export(res *pipeline.Result, kind ExportKind, machine string) (*cache.Export, error) {
	contentType := export.ContentTypeXLSX
	var name string
	var data []byte
	var err error

	switch kind {
	case ExportFull:
		name = "Stock_Planning_Output.xlsx"
		data, err = export.FullWorkbook(res.Items, res.Plan)
	case ExportMachines:
		name = "Machine_Plan_All_Machines.xlsx"
		data, err = export.MachinesWorkbook(res.Plan)
	case ExportMachine:
		if machine == "" {
			return nil, fmt.Errorf("machine is required for the %s export", kind)
		}
		name = export.MachineFileName(machine)
		data, err = export.MachineWorkbook(res.Plan, machine)
	case ExportReportXLSX:
		name = "Stock_Planner_Management_Report.xlsx"
		data, err = export.ReportWorkbook(res.Report)
	case ExportReportPDF:
		name, contentType = "Stock_Planner_Management_Summary.pdf", export.ContentTypePDF
		data, err = export.ReportPDF(res.Report, export.DefaultReportTitle, time.Now())
	case ExportProductAlert:
		name = "Product_Alert.xlsx"
		data, err = export.AlertWorkbook(export.SheetProductAlert, report.ProductAlertView(res.Items))
	case ExportCustomerAlert:
		name = "Customer_Alert.xlsx"
		data, err = export.AlertWorkbook(export.SheetCustomerAlert, report.CustomerAlertView(res.Items))
	default:
		return nil, fmt.Errorf("unknown export kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%s export: %w", kind, err)
	}
	return &cache.Export{FileName: name, ContentType: contentType, Data: data}, nil
}

// FillTemplate writes the run's final quantities into a customer template.
func FillTemplate(res *pipeline.Result, template []byte, opts export.TemplateOptions) (*cache.Export, *export.FillResult, error) {
	filled, err := export.FillTemplate(template, export.QuantitiesByKey(res.Final), opts)
	if err != nil {
		return nil, nil, err
	}
	return &cache.Export{
		FileName:    "Production Plan - Filled.xlsx",
		ContentType: export.ContentTypeXLSX,
		Data:        filled.Data,
	}, filled, nil
}

// Publish renders kinds and uploads them under <prefix>/<run id>/ in
// parallel. It returns the written keys.
func (s *PlanService) Publish(ctx context.Context, res *pipeline.Result, kinds []ExportKind) ([]string, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no object storage configured")
	}

	keys := make([]string, len(kinds))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, kind := range kinds {
		g.Go(func() error {
			e, err := Export(res, kind, "")
			if err != nil {
				return err
			}
			key := storage.ExportKey(s.prefix, res.Run.ID, e.FileName)
			if err := s.store.UploadObject(ctx, key, e.Data, e.ContentType); err != nil {
				return err
			}
			keys[i] = key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info().Str("run_id", res.Run.ID).Int("files", len(keys)).Msg("plan: exports published")
	return keys, nil
}
