package sheet

import (
	"encoding/json"
	"testing"
)

func newTestEngine() *Engine {
	e := NewEngine()
	e.Load(NewWorkbook("Test"))
	return e
}

func TestInferType(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  CellType
	}{
		{"float", 3.14, TypeNumber},
		{"int", 42, TypeNumber},
		{"bool", true, TypeBoolean},
		{"string", "hello", TypeString},
		{"numeric string", "123", TypeString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferType(tt.value); got != tt.want {
				t.Errorf("InferType(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestNewSheetDimensionFloors(t *testing.T) {
	sh := NewSheet("Sheet1")
	if sh.RowCount != MinRowCount {
		t.Errorf("RowCount = %d, want %d", sh.RowCount, MinRowCount)
	}
	if sh.ColumnCount != MinColumnCount {
		t.Errorf("ColumnCount = %d, want %d", sh.ColumnCount, MinColumnCount)
	}
}

func TestSetCellGrowsDeclaredDimensions(t *testing.T) {
	e := newTestEngine()

	if err := e.SetCell("", MinRowCount+50, MinColumnCount+5, "far"); err != nil {
		t.Fatalf("SetCell: %v", err)
	}

	sh := e.Workbook().ActiveSheet()
	if sh.RowCount < MinRowCount+51 {
		t.Errorf("RowCount = %d, want at least %d", sh.RowCount, MinRowCount+51)
	}
	if sh.ColumnCount < MinColumnCount+6 {
		t.Errorf("ColumnCount = %d, want at least %d", sh.ColumnCount, MinColumnCount+6)
	}

	// Dimensions never shrink back below what they reached.
	if err := e.SetCell("", 1, 1, "near"); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
	if sh.RowCount < MinRowCount+51 {
		t.Errorf("RowCount shrank to %d", sh.RowCount)
	}
}

func TestSetCellTyping(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		name     string
		value    interface{}
		wantType CellType
	}{
		{"number", 12.5, TypeNumber},
		{"boolean", true, TypeBoolean},
		{"text", "hi", TypeString},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := e.SetCell("", 1, i, tt.value); err != nil {
				t.Fatalf("SetCell: %v", err)
			}
			cell := e.Workbook().ActiveSheet().GetCell(1, i)
			if cell == nil {
				t.Fatal("cell not stored")
			}
			if cell.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", cell.Type, tt.wantType)
			}
		})
	}
}

func TestSetCellFormula(t *testing.T) {
	e := newTestEngine()

	if err := e.SetCell("", 2, 0, "=SUM(A1:A10)"); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
	cell := e.Workbook().ActiveSheet().GetCell(2, 0)
	if cell.Formula != "=SUM(A1:A10)" {
		t.Errorf("Formula = %q, want %q", cell.Formula, "=SUM(A1:A10)")
	}
	// The raw text stands in as the displayed value; formulas are never
	// evaluated.
	if cell.Value != "=SUM(A1:A10)" {
		t.Errorf("Value = %v", cell.Value)
	}
}

func TestGetCellEmptyReadsAsEmptyString(t *testing.T) {
	e := newTestEngine()

	v, err := e.GetCell("", 500, 500)
	if err != nil {
		t.Fatalf("GetCell: %v", err)
	}
	if v != "" {
		t.Errorf("empty cell = %v, want \"\"", v)
	}
}

func TestSetRangeHeaderRowRemap(t *testing.T) {
	e := newTestEngine()

	applied, err := e.SetRange("", 0, 0, [][]interface{}{{"a", "b"}, {"c", "d"}}, false)
	if err != nil {
		t.Fatalf("SetRange: %v", err)
	}
	if applied != 1 {
		t.Errorf("applied row = %d, want 1", applied)
	}

	sh := e.Workbook().ActiveSheet()
	if sh.GetCell(0, 0) != nil {
		t.Error("row 0 should be untouched")
	}
	if got := sh.GetCell(1, 0); got == nil || got.Value != "a" {
		t.Errorf("cell (1,0) = %v, want a", got)
	}
	if got := sh.GetCell(2, 1); got == nil || got.Value != "d" {
		t.Errorf("cell (2,1) = %v, want d", got)
	}
}

func TestSetRangeAllowHeaderRow(t *testing.T) {
	e := newTestEngine()

	applied, err := e.SetRange("", 0, 0, [][]interface{}{{"Name", "Age"}}, true)
	if err != nil {
		t.Fatalf("SetRange: %v", err)
	}
	if applied != 0 {
		t.Errorf("applied row = %d, want 0", applied)
	}
	if got := e.Workbook().ActiveSheet().GetCell(0, 1); got == nil || got.Value != "Age" {
		t.Errorf("header cell = %v, want Age", got)
	}
}

func TestSetColumnHeader(t *testing.T) {
	e := newTestEngine()

	if err := e.SetColumnHeader("", 3, "Revenue"); err != nil {
		t.Fatalf("SetColumnHeader: %v", err)
	}
	cell := e.Workbook().ActiveSheet().GetCell(0, 3)
	if cell == nil || cell.Value != "Revenue" {
		t.Errorf("header = %v, want Revenue", cell)
	}
}

func TestGetRangeDense(t *testing.T) {
	e := newTestEngine()
	e.SetCell("", 1, 0, "x")
	e.SetCell("", 2, 1, 7)

	values, err := e.GetRange("", 1, 0, 2, 1)
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(values) != 2 || len(values[0]) != 2 {
		t.Fatalf("shape = %dx%d, want 2x2", len(values), len(values[0]))
	}
	if values[0][0] != "x" {
		t.Errorf("values[0][0] = %v", values[0][0])
	}
	if values[0][1] != "" {
		t.Errorf("gap cell = %v, want \"\"", values[0][1])
	}
	if values[1][1] != 7 {
		t.Errorf("values[1][1] = %v (%T)", values[1][1], values[1][1])
	}
}

func TestInsertRowsShiftsData(t *testing.T) {
	e := newTestEngine()
	e.SetCell("", 2, 0, "below")
	e.SetCell("", 1, 0, "above")

	if err := e.InsertRows("", 2, 3); err != nil {
		t.Fatalf("InsertRows: %v", err)
	}

	sh := e.Workbook().ActiveSheet()
	if got := sh.GetCell(1, 0); got == nil || got.Value != "above" {
		t.Errorf("row above insert moved: %v", got)
	}
	if sh.GetCell(2, 0) != nil {
		t.Error("inserted row should be empty")
	}
	if got := sh.GetCell(5, 0); got == nil || got.Value != "below" {
		t.Errorf("row below insert = %v, want below at row 5", got)
	}
}

func TestDeleteRowsShiftsData(t *testing.T) {
	e := newTestEngine()
	e.SetCell("", 1, 0, "keep")
	e.SetCell("", 2, 0, "drop")
	e.SetCell("", 3, 0, "slide")

	if err := e.DeleteRows("", 2, 1); err != nil {
		t.Fatalf("DeleteRows: %v", err)
	}

	sh := e.Workbook().ActiveSheet()
	if got := sh.GetCell(1, 0); got == nil || got.Value != "keep" {
		t.Errorf("row 1 = %v", got)
	}
	if got := sh.GetCell(2, 0); got == nil || got.Value != "slide" {
		t.Errorf("row 2 = %v, want slide", got)
	}
	if sh.GetCell(3, 0) != nil {
		t.Error("row 3 should be empty after delete")
	}
}

func TestInsertDeleteColumns(t *testing.T) {
	e := newTestEngine()
	e.SetCell("", 1, 1, "b")
	e.SetCell("", 1, 2, "c")

	if err := e.InsertColumns("", 2, 2); err != nil {
		t.Fatalf("InsertColumns: %v", err)
	}
	sh := e.Workbook().ActiveSheet()
	if got := sh.GetCell(1, 4); got == nil || got.Value != "c" {
		t.Errorf("col 4 = %v, want c", got)
	}

	if err := e.DeleteColumns("", 1, 1); err != nil {
		t.Fatalf("DeleteColumns: %v", err)
	}
	if got := sh.GetCell(1, 3); got == nil || got.Value != "c" {
		t.Errorf("col 3 after delete = %v, want c", got)
	}
}

func TestInsertRowsShiftsMergesAndHeights(t *testing.T) {
	e := newTestEngine()
	if err := e.MergeCells("", 5, 0, 6, 1); err != nil {
		t.Fatalf("MergeCells: %v", err)
	}
	sh := e.Workbook().ActiveSheet()
	sh.RowHeights = map[int]float64{5: 30}

	if err := e.InsertRows("", 2, 2); err != nil {
		t.Fatalf("InsertRows: %v", err)
	}

	if len(sh.Merges) != 1 || sh.Merges[0].StartRow != 7 || sh.Merges[0].EndRow != 8 {
		t.Errorf("merge after insert = %+v", sh.Merges)
	}
	if sh.RowHeights[7] != 30 {
		t.Errorf("row height map = %v", sh.RowHeights)
	}
}

func TestMergeCellsValidation(t *testing.T) {
	e := newTestEngine()

	if err := e.MergeCells("", 3, 3, 1, 1); err == nil {
		t.Error("inverted range should fail")
	}
	if err := e.MergeCells("", -1, 0, 2, 2); err == nil {
		t.Error("negative coords should fail")
	}
}

func TestSheetLifecycle(t *testing.T) {
	e := newTestEngine()

	id, err := e.CreateSheet("Data")
	if err != nil {
		t.Fatalf("CreateSheet: %v", err)
	}
	if id == "" {
		t.Fatal("empty sheet id")
	}

	if _, err := e.CreateSheet("Data"); err == nil {
		t.Error("duplicate sheet name should fail")
	}

	if err := e.RenameSheet("Data", "Facts"); err != nil {
		t.Fatalf("RenameSheet: %v", err)
	}
	if e.Workbook().SheetByName("Facts") == nil {
		t.Error("renamed sheet not found")
	}

	if err := e.SetActiveSheet("Facts"); err != nil {
		t.Fatalf("SetActiveSheet: %v", err)
	}
	if e.ActiveSheetName() != "Facts" {
		t.Errorf("active = %q", e.ActiveSheetName())
	}

	names := e.ListSheets()
	if len(names) != 2 {
		t.Fatalf("ListSheets = %v", names)
	}

	if err := e.DeleteSheet("Facts"); err != nil {
		t.Fatalf("DeleteSheet: %v", err)
	}
	// Active sheet falls back to a remaining sheet.
	if e.ActiveSheetName() == "Facts" {
		t.Error("deleted sheet still active")
	}

	if err := e.DeleteSheet(e.ActiveSheetName()); err == nil {
		t.Error("deleting the last sheet should fail")
	}
}

func TestResolveSheetUnknownName(t *testing.T) {
	e := newTestEngine()

	if _, err := e.GetCell("Nope", 0, 0); err == nil {
		t.Error("unknown sheet should fail")
	}
}

func TestSearchCells(t *testing.T) {
	e := newTestEngine()
	e.SetCell("", 1, 0, "Alpha Report")
	e.SetCell("", 3, 2, "alphabet")
	e.SetCell("", 2, 1, 42)
	e.CreateSheet("Other")
	e.SetCell("Other", 0, 0, "ALPHA")

	hits, err := e.SearchCells("", "alpha")
	if err != nil {
		t.Fatalf("SearchCells: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("hits = %d, want 3 (all sheets, case-insensitive)", len(hits))
	}

	// Row-major order within a sheet.
	if hits[0].Row > hits[1].Row && hits[0].Sheet == hits[1].Sheet {
		t.Errorf("hits out of order: %+v", hits)
	}

	scoped, err := e.SearchCells("Other", "alpha")
	if err != nil {
		t.Fatalf("SearchCells: %v", err)
	}
	if len(scoped) != 1 {
		t.Errorf("scoped hits = %d, want 1", len(scoped))
	}
}

func TestSnapshotIsolatedFromMutations(t *testing.T) {
	e := newTestEngine()
	e.SetCell("", 1, 1, "before")

	snap := e.Snapshot()
	e.SetCell("", 1, 1, "after")
	e.SetCell("", 2, 2, 99)

	sh := snap.ActiveSheet()
	if got := sh.GetCell(1, 1); got == nil || got.Value != "before" {
		t.Errorf("snapshot cell = %+v, want value %q", got, "before")
	}
	if got := sh.GetCell(2, 2); got != nil {
		t.Errorf("snapshot picked up later write: %+v", got)
	}
}

func TestSnapshotMarshalsDuringMutations(t *testing.T) {
	e := newTestEngine()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			e.SetCell("", i%200, i%40, i)
		}
	}()

	for i := 0; i < 50; i++ {
		if _, err := json.Marshal(e.Snapshot()); err != nil {
			t.Fatalf("marshal snapshot: %v", err)
		}
	}
	<-done
}
