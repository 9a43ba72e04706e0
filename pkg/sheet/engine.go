package sheet

import (
	"fmt"
	"strconv"
	"sync"
)

// Engine is the live spreadsheet backend. It owns one workbook and
// exposes the primitive operations the tool dispatcher executes.
// All methods resolve an empty sheet name to the active sheet.
type Engine struct {
	mu sync.RWMutex
	wb *Workbook
}

func NewEngine() *Engine {
	return &Engine{wb: NewWorkbook("Workbook")}
}

// Load replaces the engine's workbook wholesale (import, snapshot restore).
func (e *Engine) Load(wb *Workbook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wb = wb
}

// Workbook returns the live workbook model. Reads through it bypass the
// engine lock; callers that may run alongside tool calls use Snapshot.
func (e *Engine) Workbook() *Workbook {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.wb
}

// Snapshot returns a deep copy of the workbook taken under the read
// lock, safe to marshal or export while tool calls mutate the live model.
func (e *Engine) Snapshot() *Workbook {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.wb == nil {
		return nil
	}
	return e.wb.Clone()
}

func (e *Engine) resolveSheet(name string) (*Sheet, error) {
	if name == "" {
		if sh := e.wb.ActiveSheet(); sh != nil {
			return sh, nil
		}
		return nil, fmt.Errorf("no active sheet")
	}
	if sh := e.wb.SheetByName(name); sh != nil {
		return sh, nil
	}
	return nil, fmt.Errorf("sheet %q not found", name)
}

// GetCell reads a single cell. Unpopulated cells read as empty string.
func (e *Engine) GetCell(sheetName string, row, col int) (interface{}, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sh, err := e.resolveSheet(sheetName)
	if err != nil {
		return nil, err
	}
	if err := checkCoords(row, col); err != nil {
		return nil, err
	}
	if c := sh.GetCell(row, col); c != nil {
		return c.Value, nil
	}
	return "", nil
}

// SetCell writes a single cell, inferring the type tag from the value.
// A string value beginning with "=" is stored as a formula with the raw
// text kept as the displayed value.
func (e *Engine) SetCell(sheetName string, row, col int, value interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	sh, err := e.resolveSheet(sheetName)
	if err != nil {
		return err
	}
	if err := checkCoords(row, col); err != nil {
		return err
	}
	sh.SetCell(row, col, buildCell(value))
	return nil
}

// GetRange reads an inclusive rectangular range as a dense 2D slice.
func (e *Engine) GetRange(sheetName string, startRow, startCol, endRow, endCol int) ([][]interface{}, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sh, err := e.resolveSheet(sheetName)
	if err != nil {
		return nil, err
	}
	if err := checkRange(startRow, startCol, endRow, endCol); err != nil {
		return nil, err
	}
	out := make([][]interface{}, 0, endRow-startRow+1)
	for r := startRow; r <= endRow; r++ {
		rowVals := make([]interface{}, 0, endCol-startCol+1)
		for c := startCol; c <= endCol; c++ {
			if cell := sh.GetCell(r, c); cell != nil {
				rowVals = append(rowVals, cell.Value)
			} else {
				rowVals = append(rowVals, "")
			}
		}
		out = append(out, rowVals)
	}
	return out, nil
}

// SetRange writes values row-by-row, cell-by-cell, starting at
// (startRow, startCol). Row 0 is reserved for headers: a write starting
// there is remapped to row 1 unless allowHeaderRow is set. Returns the
// row the write actually began at.
func (e *Engine) SetRange(sheetName string, startRow, startCol int, values [][]interface{}, allowHeaderRow bool) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sh, err := e.resolveSheet(sheetName)
	if err != nil {
		return 0, err
	}
	if err := checkCoords(startRow, startCol); err != nil {
		return 0, err
	}
	if startRow == 0 && !allowHeaderRow {
		startRow = 1
	}
	for i, rowVals := range values {
		for j, v := range rowVals {
			sh.SetCell(startRow+i, startCol+j, buildCell(v))
		}
	}
	return startRow, nil
}

// SetColumnHeader writes a title into row 0 of the given column.
func (e *Engine) SetColumnHeader(sheetName string, col int, title string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	sh, err := e.resolveSheet(sheetName)
	if err != nil {
		return err
	}
	if err := checkCoords(0, col); err != nil {
		return err
	}
	sh.SetCell(0, col, &Cell{Value: title, Type: TypeString})
	return nil
}

// InsertRows shifts all rows at or below `at` down by count.
func (e *Engine) InsertRows(sheetName string, at, count int) error {
	return e.shiftRows(sheetName, at, count)
}

// DeleteRows removes count rows starting at `at` and shifts the rest up.
func (e *Engine) DeleteRows(sheetName string, at, count int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	sh, err := e.resolveSheet(sheetName)
	if err != nil {
		return err
	}
	if err := checkSpan(at, count); err != nil {
		return err
	}
	next := make(map[int]map[int]*Cell, len(sh.Cells))
	for r, cols := range sh.Cells {
		switch {
		case r < at:
			next[r] = cols
		case r >= at+count:
			next[r-count] = cols
		}
	}
	sh.Cells = next
	sh.RowHeights = shiftIndexMap(sh.RowHeights, at, -count)
	sh.Merges = shiftMerges(sh.Merges, at, -count, true)
	return nil
}

// InsertColumns shifts all columns at or right of `at` right by count.
func (e *Engine) InsertColumns(sheetName string, at, count int) error {
	return e.shiftColumns(sheetName, at, count)
}

// DeleteColumns removes count columns starting at `at`.
func (e *Engine) DeleteColumns(sheetName string, at, count int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	sh, err := e.resolveSheet(sheetName)
	if err != nil {
		return err
	}
	if err := checkSpan(at, count); err != nil {
		return err
	}
	for r, cols := range sh.Cells {
		next := make(map[int]*Cell, len(cols))
		for c, cell := range cols {
			switch {
			case c < at:
				next[c] = cell
			case c >= at+count:
				next[c-count] = cell
			}
		}
		sh.Cells[r] = next
	}
	sh.ColumnWidths = shiftIndexMap(sh.ColumnWidths, at, -count)
	sh.Merges = shiftMerges(sh.Merges, at, -count, false)
	return nil
}

// MergeCells records an inclusive merged region.
func (e *Engine) MergeCells(sheetName string, startRow, startCol, endRow, endCol int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	sh, err := e.resolveSheet(sheetName)
	if err != nil {
		return err
	}
	if err := checkRange(startRow, startCol, endRow, endCol); err != nil {
		return err
	}
	sh.Merges = append(sh.Merges, MergeRange{
		StartRow:    startRow,
		StartColumn: startCol,
		EndRow:      endRow,
		EndColumn:   endCol,
	})
	return nil
}

// CreateSheet appends a new named sheet and returns its id.
func (e *Engine) CreateSheet(name string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if name == "" {
		return "", fmt.Errorf("sheet name is required")
	}
	if e.wb.SheetByName(name) != nil {
		return "", fmt.Errorf("sheet %q already exists", name)
	}
	sh := NewSheet(name)
	e.wb.Sheets[sh.Id] = sh
	e.wb.SheetOrder = append(e.wb.SheetOrder, sh.Id)
	return sh.Id, nil
}

// RenameSheet changes a sheet's display name.
func (e *Engine) RenameSheet(oldName, newName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if newName == "" {
		return fmt.Errorf("new sheet name is required")
	}
	if e.wb.SheetByName(newName) != nil {
		return fmt.Errorf("sheet %q already exists", newName)
	}
	sh := e.wb.SheetByName(oldName)
	if sh == nil {
		return fmt.Errorf("sheet %q not found", oldName)
	}
	sh.Name = newName
	return nil
}

// DeleteSheet removes a sheet. The last remaining sheet cannot be deleted.
func (e *Engine) DeleteSheet(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	sh := e.wb.SheetByName(name)
	if sh == nil {
		return fmt.Errorf("sheet %q not found", name)
	}
	if len(e.wb.SheetOrder) == 1 {
		return fmt.Errorf("cannot delete the last sheet")
	}
	order := make([]string, 0, len(e.wb.SheetOrder)-1)
	for _, id := range e.wb.SheetOrder {
		if id != sh.Id {
			order = append(order, id)
		}
	}
	e.wb.SheetOrder = order
	delete(e.wb.Sheets, sh.Id)
	if e.wb.ActiveSheetId == sh.Id {
		e.wb.ActiveSheetId = order[0]
	}
	return nil
}

// SetActiveSheet switches the active sheet by display name.
func (e *Engine) SetActiveSheet(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	sh := e.wb.SheetByName(name)
	if sh == nil {
		return fmt.Errorf("sheet %q not found", name)
	}
	e.wb.ActiveSheetId = sh.Id
	return nil
}

// ListSheets returns display names in sheet order, active sheet first flagged
// by the caller via ActiveSheetName.
func (e *Engine) ListSheets() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.wb.SheetOrder))
	for _, id := range e.wb.SheetOrder {
		if sh := e.wb.Sheets[id]; sh != nil {
			names = append(names, sh.Name)
		}
	}
	return names
}

// ActiveSheetName returns the display name of the active sheet.
func (e *Engine) ActiveSheetName() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if sh := e.wb.ActiveSheet(); sh != nil {
		return sh.Name
	}
	return ""
}

func (e *Engine) shiftRows(sheetName string, at, count int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	sh, err := e.resolveSheet(sheetName)
	if err != nil {
		return err
	}
	if err := checkSpan(at, count); err != nil {
		return err
	}
	next := make(map[int]map[int]*Cell, len(sh.Cells))
	for r, cols := range sh.Cells {
		if r >= at {
			next[r+count] = cols
		} else {
			next[r] = cols
		}
	}
	sh.Cells = next
	sh.RowHeights = shiftIndexMap(sh.RowHeights, at, count)
	sh.Merges = shiftMerges(sh.Merges, at, count, true)
	if mr, _, ok := sh.Extent(); ok && mr+1 > sh.RowCount {
		sh.RowCount = mr + 1
	}
	return nil
}

func (e *Engine) shiftColumns(sheetName string, at, count int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	sh, err := e.resolveSheet(sheetName)
	if err != nil {
		return err
	}
	if err := checkSpan(at, count); err != nil {
		return err
	}
	for r, cols := range sh.Cells {
		next := make(map[int]*Cell, len(cols))
		for c, cell := range cols {
			if c >= at {
				next[c+count] = cell
			} else {
				next[c] = cell
			}
		}
		sh.Cells[r] = next
	}
	sh.ColumnWidths = shiftIndexMap(sh.ColumnWidths, at, count)
	sh.Merges = shiftMerges(sh.Merges, at, count, false)
	if _, mc, ok := sh.Extent(); ok && mc+1 > sh.ColumnCount {
		sh.ColumnCount = mc + 1
	}
	return nil
}

func buildCell(value interface{}) *Cell {
	if s, ok := value.(string); ok && len(s) > 0 && s[0] == '=' {
		return &Cell{Value: s, Type: TypeString, Formula: s}
	}
	return &Cell{Value: value, Type: InferType(value)}
}

func checkCoords(row, col int) error {
	if row < 0 || col < 0 {
		return fmt.Errorf("cell coordinates must be non-negative, got row=%d col=%d", row, col)
	}
	return nil
}

func checkRange(startRow, startCol, endRow, endCol int) error {
	if err := checkCoords(startRow, startCol); err != nil {
		return err
	}
	if endRow < startRow || endCol < startCol {
		return fmt.Errorf("range end %s precedes start %s", CellRef(endRow, endCol), CellRef(startRow, startCol))
	}
	return nil
}

func checkSpan(at, count int) error {
	if at < 0 {
		return fmt.Errorf("index must be non-negative, got %d", at)
	}
	if count <= 0 {
		return fmt.Errorf("count must be positive, got %d", count)
	}
	return nil
}

func shiftIndexMap(m map[int]float64, at, delta int) map[int]float64 {
	if m == nil {
		return nil
	}
	next := make(map[int]float64, len(m))
	for idx, v := range m {
		switch {
		case idx < at:
			next[idx] = v
		case delta < 0 && idx < at-delta:
			// index fell inside a deleted span, drop it
		default:
			next[idx+delta] = v
		}
	}
	return next
}

func shiftMerges(merges []MergeRange, at, delta int, rows bool) []MergeRange {
	out := make([]MergeRange, 0, len(merges))
	for _, m := range merges {
		start, end := m.StartColumn, m.EndColumn
		if rows {
			start, end = m.StartRow, m.EndRow
		}
		if start >= at {
			start += delta
		}
		if end >= at {
			end += delta
		}
		if end < start || end < 0 {
			continue
		}
		if start < 0 {
			start = 0
		}
		if rows {
			m.StartRow, m.EndRow = start, end
		} else {
			m.StartColumn, m.EndColumn = start, end
		}
		out = append(out, m)
	}
	return out
}

// parseNumber is shared by search and autofill helpers.
func parseNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
