package xlsx

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"sheetgrid-be/pkg/sheet"
)

// Export writes the workbook model to w as an XLSX file. Sheets are
// emitted in declared order; any conversion error aborts the export
// before anything is written.
func Export(wb *sheet.Workbook, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, id := range wb.SheetOrder {
		sh := wb.Sheets[id]
		if sh == nil {
			return fmt.Errorf("sheet order references unknown sheet %q", id)
		}
		if i == 0 {
			// excelize seeds new files with "Sheet1"
			if err := f.SetSheetName("Sheet1", sh.Name); err != nil {
				return fmt.Errorf("sheet %q: %w", sh.Name, err)
			}
		} else {
			if _, err := f.NewSheet(sh.Name); err != nil {
				return fmt.Errorf("sheet %q: %w", sh.Name, err)
			}
		}
		if err := exportSheet(f, sh); err != nil {
			return fmt.Errorf("sheet %q: %w", sh.Name, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func exportSheet(f *excelize.File, sh *sheet.Sheet) error {
	maxRow, maxCol, hasData := sh.Extent()
	if hasData {
		// Materialize the dense rectangle, empty string for unpopulated cells
		for r := 0; r <= maxRow; r++ {
			for c := 0; c <= maxCol; c++ {
				axis, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return err
				}
				cell := sh.GetCell(r, c)
				if cell == nil {
					if err := f.SetCellValue(sh.Name, axis, ""); err != nil {
						return err
					}
					continue
				}
				if err := exportCell(f, sh.Name, axis, cell); err != nil {
					return fmt.Errorf("cell %s: %w", axis, err)
				}
			}
		}
	}

	for c, px := range sh.ColumnWidths {
		letters := sheet.ColumnLetter(c)
		width := px / columnWidthDivisor
		if width < minColumnWidth {
			width = minColumnWidth
		}
		if err := f.SetColWidth(sh.Name, letters, letters, width); err != nil {
			return err
		}
	}
	for r, h := range sh.RowHeights {
		if err := f.SetRowHeight(sh.Name, r+1, h); err != nil {
			return err
		}
	}
	for _, m := range sh.Merges {
		start, err := excelize.CoordinatesToCellName(m.StartColumn+1, m.StartRow+1)
		if err != nil {
			return err
		}
		end, err := excelize.CoordinatesToCellName(m.EndColumn+1, m.EndRow+1)
		if err != nil {
			return err
		}
		if err := f.MergeCell(sh.Name, start, end); err != nil {
			return err
		}
	}
	return nil
}

// exportCell resolves the stored value by its type tag. Formula text is
// written as both formula and cached value so readers that skip
// recalculation still see the displayed value.
func exportCell(f *excelize.File, sheetName, axis string, cell *sheet.Cell) error {
	if cell.Formula != "" {
		if err := f.SetCellFormula(sheetName, axis, cell.Formula); err != nil {
			return err
		}
	}
	switch cell.Type {
	case sheet.TypeNumber:
		n, ok := parseFloat(cell.Value)
		if !ok {
			return fmt.Errorf("value %v is tagged numeric but is not a number", cell.Value)
		}
		return f.SetCellValue(sheetName, axis, n)
	case sheet.TypeBoolean:
		b, ok := cell.Value.(bool)
		if !ok {
			b = fmt.Sprintf("%v", cell.Value) == "true"
		}
		return f.SetCellValue(sheetName, axis, b)
	default:
		return f.SetCellValue(sheetName, axis, fmt.Sprintf("%v", cell.Value))
	}
}

func parseFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
