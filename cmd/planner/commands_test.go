package main

import (
	"reflect"
	"testing"

	"github.com/andresuchdata/stockplanner/internal/service"
	"github.com/urfave/cli/v2"
)

func TestParseFinalQty(t *testing.T) {
	got, err := parseFinalQty([]string{"1002010=500", " 0001002011 = 0"})
	if err != nil {
		t.Fatalf("parseFinalQty: %v", err)
	}
	if got["1002010"] != 500 || len(got) != 2 {
		t.Errorf("overrides = %v", got)
	}

	for _, bad := range []string{"1002010", "1002010=x", "1002010=-1", "abc=5"} {
		if _, err := parseFinalQty([]string{bad}); err == nil {
			t.Errorf("parseFinalQty(%q) should fail", bad)
		}
	}

	if got, err := parseFinalQty(nil); err != nil || got != nil {
		t.Errorf("empty = %v, %v", got, err)
	}
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"data/stock-jan.xlsx":       "stock-jan",
		"s3://bucket/in/stock.xlsx": "stock",
		"stock":                     "stock",
	}
	for in, want := range tests {
		if got := stem(in); got != want {
			t.Errorf("stem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExportKinds(t *testing.T) {
	parse := func(args ...string) ([]service.ExportKind, error) {
		var kinds []service.ExportKind
		var err error
		app := &cli.App{
			Name:  "planner",
			Flags: []cli.Flag{exportFlag()},
			Action: func(c *cli.Context) error {
				kinds, err = exportKinds(c)
				return nil
			},
		}
		if runErr := app.Run(append([]string{"planner"}, args...)); runErr != nil {
			t.Fatalf("Run: %v", runErr)
		}
		return kinds, err
	}

	got, err := parse()
	if err != nil || !reflect.DeepEqual(got, []service.ExportKind{service.ExportFull}) {
		t.Errorf("default = %v, %v", got, err)
	}
	got, err = parse("--export", "report-pdf", "--export", "machines")
	if err != nil || !reflect.DeepEqual(got, []service.ExportKind{service.ExportReportPDF, service.ExportMachines}) {
		t.Errorf("kinds = %v, %v", got, err)
	}
	for _, bad := range []string{"machine", "csv"} {
		if _, err := parse("--export", bad); err == nil {
			t.Errorf("--export %s should fail", bad)
		}
	}
}
