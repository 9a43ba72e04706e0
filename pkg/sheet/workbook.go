// Package sheet implements the in-memory workbook model and the
// spreadsheet engine the tool dispatcher executes against.
package sheet

import (
	"github.com/google/uuid"
)

// Declared sheet dimensions are padded to these floors so clients can
// virtual-scroll regardless of actual data extent.
const (
	MinRowCount    = 100000
	MinColumnCount = 1000
)

type CellType string

const (
	TypeNumber  CellType = "n"
	TypeBoolean CellType = "b"
	TypeString  CellType = "s"
)

// Cell holds a displayed value, a type tag, and an optional formula.
// The formula is stored as entered, never recomputed.
type Cell struct {
	Value   interface{} `json:"v"`
	Type    CellType    `json:"t,omitempty"`
	Formula string      `json:"f,omitempty"`
}

// MergeRange is an inclusive rectangular region of merged cells.
type MergeRange struct {
	StartRow    int `json:"startRow"`
	StartColumn int `json:"startColumn"`
	EndRow      int `json:"endRow"`
	EndColumn   int `json:"endColumn"`
}

// Sheet is a sparse 2D grid addressed by zero-based (row, column).
type Sheet struct {
	Id           string              `json:"id"`
	Name         string              `json:"name"`
	Cells        map[int]map[int]*Cell `json:"cellData"`
	RowCount     int                 `json:"rowCount"`
	ColumnCount  int                 `json:"columnCount"`
	ColumnWidths map[int]float64     `json:"columnWidths,omitempty"` // pixels
	RowHeights   map[int]float64     `json:"rowHeights,omitempty"`   // points
	Merges       []MergeRange        `json:"merges,omitempty"`
}

// Workbook is an ordered collection of named sheets.
type Workbook struct {
	Id            string            `json:"id"`
	Name          string            `json:"name"`
	SheetOrder    []string          `json:"sheetOrder"`
	Sheets        map[string]*Sheet `json:"sheets"`
	ActiveSheetId string            `json:"activeSheetId"`
}

func NewSheet(name string) *Sheet {
	return &Sheet{
		Id:          uuid.NewString(),
		Name:        name,
		Cells:       make(map[int]map[int]*Cell),
		RowCount:    MinRowCount,
		ColumnCount: MinColumnCount,
	}
}

func NewWorkbook(name string) *Workbook {
	first := NewSheet("Sheet1")
	return &Workbook{
		Id:            uuid.NewString(),
		Name:          name,
		SheetOrder:    []string{first.Id},
		Sheets:        map[string]*Sheet{first.Id: first},
		ActiveSheetId: first.Id,
	}
}

// SetCell stores a cell and grows the declared dimensions monotonically.
func (s *Sheet) SetCell(row, col int, c *Cell) {
	if s.Cells == nil {
		s.Cells = make(map[int]map[int]*Cell)
	}
	if s.Cells[row] == nil {
		s.Cells[row] = make(map[int]*Cell)
	}
	s.Cells[row][col] = c
	if row+1 > s.RowCount {
		s.RowCount = row + 1
	}
	if col+1 > s.ColumnCount {
		s.ColumnCount = col + 1
	}
}

// GetCell returns the cell at (row, col) or nil if unpopulated.
func (s *Sheet) GetCell(row, col int) *Cell {
	if r, ok := s.Cells[row]; ok {
		return r[col]
	}
	return nil
}

// Extent reports the maximum populated row and column, and whether the
// sheet holds any data at all.
func (s *Sheet) Extent() (maxRow, maxCol int, ok bool) {
	for r, cols := range s.Cells {
		for c := range cols {
			ok = true
			if r > maxRow {
				maxRow = r
			}
			if c > maxCol {
				maxCol = c
			}
		}
	}
	return maxRow, maxCol, ok
}

// Clone returns a deep copy sharing no mutable state with the receiver.
func (s *Sheet) Clone() *Sheet {
	c := *s
	c.Cells = make(map[int]map[int]*Cell, len(s.Cells))
	for r, cols := range s.Cells {
		row := make(map[int]*Cell, len(cols))
		for col, cell := range cols {
			cp := *cell
			row[col] = &cp
		}
		c.Cells[r] = row
	}
	if s.ColumnWidths != nil {
		c.ColumnWidths = make(map[int]float64, len(s.ColumnWidths))
		for k, v := range s.ColumnWidths {
			c.ColumnWidths[k] = v
		}
	}
	if s.RowHeights != nil {
		c.RowHeights = make(map[int]float64, len(s.RowHeights))
		for k, v := range s.RowHeights {
			c.RowHeights[k] = v
		}
	}
	c.Merges = append([]MergeRange(nil), s.Merges...)
	return &c
}

// Clone returns a deep copy of the workbook and every sheet in it.
func (w *Workbook) Clone() *Workbook {
	c := *w
	c.SheetOrder = append([]string(nil), w.SheetOrder...)
	c.Sheets = make(map[string]*Sheet, len(w.Sheets))
	for id, sh := range w.Sheets {
		c.Sheets[id] = sh.Clone()
	}
	return &c
}

// SheetByName resolves a sheet by display name. Returns nil when absent.
func (w *Workbook) SheetByName(name string) *Sheet {
	for _, id := range w.SheetOrder {
		if sh := w.Sheets[id]; sh != nil && sh.Name == name {
			return sh
		}
	}
	return nil
}

// ActiveSheet returns the currently active sheet.
func (w *Workbook) ActiveSheet() *Sheet {
	return w.Sheets[w.ActiveSheetId]
}

// InferType derives a type tag from a native Go value.
func InferType(v interface{}) CellType {
	switch v.(type) {
	case float64, float32, int, int32, int64, uint, uint32, uint64:
		return TypeNumber
	case bool:
		return TypeBoolean
	default:
		return TypeString
	}
}
