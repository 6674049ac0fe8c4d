package sheet

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/xuri/excelize/v2"
)

func stockTable(rows ...[]string) *Table {
	return NewTable("stock", RequiredStockColumns, rows)
}

func stockRow(itemNo, name, spec, demand string) []string {
	return []string{itemNo, name, spec, "100", "50", "150", "1", "0.5", demand}
}

func TestNewTable(t *testing.T) {
	tbl := NewTable("s", []string{"\uFEFFA ", " B", "A"}, [][]string{
		{"1", "2", "3", "extra"},
		{"", " ", ""},
		{"4"},
	})

	if !reflect.DeepEqual(tbl.Headers, []string{"A", "B", "A"}) {
		t.Fatalf("headers = %q", tbl.Headers)
	}
	if tbl.Len() != 2 {
		t.Fatalf("rows = %d, want blank row dropped", tbl.Len())
	}
	if got := tbl.Value(0, "A"); got != "1" {
		t.Errorf("first duplicate header should win, got %q", got)
	}
	if got := tbl.Value(1, "B"); got != "" {
		t.Errorf("short row should be padded, got %q", got)
	}
	if got := tbl.Value(0, "C"); got != "" {
		t.Errorf("absent column should read blank, got %q", got)
	}
	if len(tbl.Rows[0]) != 3 {
		t.Errorf("long row should be cut to header width")
	}
}

func TestRequire(t *testing.T) {
	tbl := NewTable("s", []string{ColItemNo, ColItemName}, nil)
	err := tbl.Require(StageStockIngest, RequiredStockColumns...)

	var mce *domain.MissingColumnError
	if !errors.As(err, &mce) {
		t.Fatalf("err = %v, want MissingColumnError", err)
	}
	if len(mce.Columns) != len(RequiredStockColumns)-2 || mce.Columns[0] != ColMachineSpec {
		t.Errorf("missing = %v", mce.Columns)
	}
	if !errors.Is(err, domain.ErrPrecondition) {
		t.Errorf("missing columns should be a precondition failure")
	}
	if !strings.HasPrefix(err.Error(), StageStockIngest+":") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestBuildRawItems(t *testing.T) {
	stock := stockTable(
		stockRow("123", "Cap", "M1", "2600"),
		stockRow("1002010.0", "Lid", "M1-M2", "1000"),
		stockRow("777", "Box", "", ""),
	)
	items := NewTable("items", []string{ColItemsID, ColItemsDescription}, [][]string{
		{"0000000123", "Blue cap"},
		{"123", "Duplicate"},
		{"01002010", "Round lid"},
	})

	raw, stats, err := BuildRawItems(stock, items)
	if err != nil {
		t.Fatalf("BuildRawItems: %v", err)
	}
	if len(raw) != 3 {
		t.Fatalf("rows = %d", len(raw))
	}

	want := []struct{ itemNo, desc string }{
		{"00000000123", "Blue cap"},
		{"00001002010", "Round lid"},
		{"00000000777", ""},
	}
	for i, w := range want {
		if raw[i].ItemNo != w.itemNo || raw[i].Description != w.desc {
			t.Errorf("row %d = %q/%q, want %q/%q", i, raw[i].ItemNo, raw[i].Description, w.itemNo, w.desc)
		}
	}
	if raw[1].MonthlyDemand != "1000" || raw[1].MachineSpec != "M1-M2" {
		t.Errorf("row 1 = %+v", raw[1])
	}

	wantStats := MergeStats{StockRows: 3, ItemsRows: 3, Matched: 2, DuplicateItemIDs: 1}
	if stats != wantStats {
		t.Errorf("stats = %+v, want %+v", stats, wantStats)
	}
}

func TestBuildRawItemsWithoutMaster(t *testing.T) {
	raw, stats, err := BuildRawItems(stockTable(stockRow("5", "A", "M1", "10")), nil)
	if err != nil {
		t.Fatalf("BuildRawItems: %v", err)
	}
	if len(raw) != 1 || raw[0].Description != "" || stats.Matched != 0 {
		t.Errorf("raw = %+v, stats = %+v", raw, stats)
	}

	_, _, err = BuildRawItems(stockTable(), NewTable("items", []string{"Code"}, nil))
	var mce *domain.MissingColumnError
	if !errors.As(err, &mce) || mce.Stage != StageItemsIngest {
		t.Errorf("err = %v, want items master precondition", err)
	}
}

func writeWorkbook(t *testing.T, sheet string, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		row := r
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestReadWorkbook(t *testing.T) {
	data := writeWorkbook(t, "Stock", [][]any{
		{"Item No.", "Item Name", "Min Stock / M.D."},
		{1002010, "Cap", 2600},
		{"00123", "Lid", 12.5},
	})

	tbl, err := ReadBytes(data, "stock.xlsx", "")
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if tbl.Name != "Stock" || tbl.Len() != 2 {
		t.Fatalf("table = %s with %d rows", tbl.Name, tbl.Len())
	}
	if got := tbl.Value(0, ColItemNo); got != "1002010" {
		t.Errorf("numeric item no = %q", got)
	}
	if got := tbl.Value(1, ColItemNo); got != "00123" {
		t.Errorf("text item no = %q", got)
	}
	if got := tbl.Value(1, ColMonthlyDemand); got != "12.5" {
		t.Errorf("demand = %q", got)
	}

	if _, err := ReadBytes(data, "stock.xlsx", "Missing"); !errors.Is(err, domain.ErrPrecondition) {
		t.Errorf("missing sheet err = %v", err)
	}
	if _, err := ReadBytes(data, "legacy.XLS", ""); !errors.Is(err, ErrLegacyFormat) {
		t.Errorf("xls err = %v", err)
	}
	if _, err := ReadBytes([]byte("not a zip"), "bad.xlsx", ""); err == nil {
		t.Errorf("garbage input should fail")
	}
}
