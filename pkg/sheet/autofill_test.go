package sheet

import "testing"

func TestAutoFillNumericSeriesDown(t *testing.T) {
	e := newTestEngine()
	e.SetCell("", 1, 0, 2)
	e.SetCell("", 2, 0, 4)
	e.SetCell("", 3, 0, 6)

	if err := e.AutoFill("", 1, 0, 3, 0, 6, 0); err != nil {
		t.Fatalf("AutoFill: %v", err)
	}

	sh := e.Workbook().ActiveSheet()
	wants := map[int]float64{4: 8, 5: 10, 6: 12}
	for row, want := range wants {
		cell := sh.GetCell(row, 0)
		if cell == nil {
			t.Fatalf("row %d empty", row)
		}
		if got, ok := cell.Value.(float64); !ok || got != want {
			t.Errorf("row %d = %v, want %v", row, cell.Value, want)
		}
		if cell.Type != TypeNumber {
			t.Errorf("row %d type = %q", row, cell.Type)
		}
	}
}

func TestAutoFillSingleValueRepeats(t *testing.T) {
	e := newTestEngine()
	e.SetCell("", 1, 0, 5)

	if err := e.AutoFill("", 1, 0, 1, 0, 3, 0); err != nil {
		t.Fatalf("AutoFill: %v", err)
	}

	sh := e.Workbook().ActiveSheet()
	for _, row := range []int{2, 3} {
		cell := sh.GetCell(row, 0)
		if cell == nil || cell.Value.(float64) != 5 {
			t.Errorf("row %d = %v, want 5 (step 0)", row, cell)
		}
	}
}

func TestAutoFillTextCyclesRight(t *testing.T) {
	e := newTestEngine()
	e.SetCell("", 1, 0, "Mon")
	e.SetCell("", 1, 1, "Tue")

	if err := e.AutoFill("", 1, 0, 1, 1, 1, 5); err != nil {
		t.Fatalf("AutoFill: %v", err)
	}

	sh := e.Workbook().ActiveSheet()
	wants := map[int]string{2: "Mon", 3: "Tue", 4: "Mon", 5: "Tue"}
	for col, want := range wants {
		cell := sh.GetCell(1, col)
		if cell == nil || cell.Value != want {
			t.Errorf("col %d = %v, want %q", col, cell, want)
		}
	}
}

func TestAutoFillDirectionValidation(t *testing.T) {
	e := newTestEngine()
	e.SetCell("", 1, 0, 1)

	// Neither direction extends.
	if err := e.AutoFill("", 1, 0, 1, 0, 1, 0); err == nil {
		t.Error("no-direction fill should fail")
	}
	// Both directions extend.
	if err := e.AutoFill("", 1, 0, 1, 0, 5, 5); err == nil {
		t.Error("two-direction fill should fail")
	}
}

func TestAutoFillMixedValuesCycle(t *testing.T) {
	e := newTestEngine()
	e.SetCell("", 1, 0, 1)
	e.SetCell("", 2, 0, "x")

	if err := e.AutoFill("", 1, 0, 2, 0, 4, 0); err != nil {
		t.Fatalf("AutoFill: %v", err)
	}

	sh := e.Workbook().ActiveSheet()
	if got := sh.GetCell(3, 0); got == nil || got.Value != 1 {
		t.Errorf("row 3 = %v, want cycled 1", got)
	}
	if got := sh.GetCell(4, 0); got == nil || got.Value != "x" {
		t.Errorf("row 4 = %v, want cycled x", got)
	}
}
