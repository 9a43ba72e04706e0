package xlsx

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"sheetgrid-be/pkg/sheet"
)

// Import reads an XLSX stream into a fresh workbook model. Every stored
// cell is scanned directly; the file's declared used range is ignored
// because source libraries place cells outside their own declared bounds.
func Import(r io.Reader, name string) (*sheet.Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheetNames := f.GetSheetList()
	if len(sheetNames) == 0 {
		return nil, fmt.Errorf("xlsx file has no sheets")
	}

	wb := &sheet.Workbook{
		Id:     uuid.NewString(),
		Name:   name,
		Sheets: make(map[string]*sheet.Sheet, len(sheetNames)),
	}

	for _, sheetName := range sheetNames {
		sh, err := importSheet(f, sheetName)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheetName, err)
		}
		wb.Sheets[sh.Id] = sh
		wb.SheetOrder = append(wb.SheetOrder, sh.Id)
	}
	wb.ActiveSheetId = wb.SheetOrder[0]
	return wb, nil
}

func importSheet(f *excelize.File, sheetName string) (*sheet.Sheet, error) {
	sh := sheet.NewSheet(sheetName)

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	maxCol := -1
	for rowIdx, row := range rows {
		for colIdx, raw := range row {
			axis, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return nil, err
			}
			if raw == "" {
				// A blank result can still carry a formula worth keeping.
				formula, ferr := f.GetCellFormula(sheetName, axis)
				if ferr != nil || formula == "" {
					continue
				}
			}
			cell, err := importCell(f, sheetName, axis, raw)
			if err != nil {
				return nil, fmt.Errorf("cell %s: %w", axis, err)
			}
			sh.SetCell(rowIdx, colIdx, cell)
			if colIdx > maxCol {
				maxCol = colIdx
			}
		}
	}

	if err := importColumnWidths(f, sheetName, sh, maxCol); err != nil {
		return nil, err
	}
	if err := importRowHeights(f, sheetName, sh, len(rows)); err != nil {
		return nil, err
	}
	if err := importMerges(f, sheetName, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

// importCell derives the cell descriptor: explicit source type first,
// then inference from the raw text, defaulting to string. A formula is
// preserved alongside the displayed value, never recomputed.
func importCell(f *excelize.File, sheetName, axis, raw string) (*sheet.Cell, error) {
	cell := &sheet.Cell{Value: raw, Type: sheet.TypeString}

	if formula, err := f.GetCellFormula(sheetName, axis); err == nil && formula != "" {
		if !strings.HasPrefix(formula, "=") {
			formula = "=" + formula
		}
		cell.Formula = formula
	}

	ct, err := f.GetCellType(sheetName, axis)
	if err != nil {
		return nil, err
	}
	switch ct {
	case excelize.CellTypeBool:
		cell.Type = sheet.TypeBoolean
		cell.Value = strings.EqualFold(raw, "TRUE")
	case excelize.CellTypeNumber, excelize.CellTypeDate:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			cell.Type = sheet.TypeNumber
			cell.Value = n
		}
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		// already string
	default:
		// No explicit type recorded, infer from the text
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			cell.Type = sheet.TypeNumber
			cell.Value = n
		} else if strings.EqualFold(raw, "TRUE") || strings.EqualFold(raw, "FALSE") {
			cell.Type = sheet.TypeBoolean
			cell.Value = strings.EqualFold(raw, "TRUE")
		}
	}
	return cell, nil
}

func importColumnWidths(f *excelize.File, sheetName string, sh *sheet.Sheet, maxCol int) error {
	for c := 0; c <= maxCol; c++ {
		letters := sheet.ColumnLetter(c)
		w, err := f.GetColWidth(sheetName, letters)
		if err != nil {
			return fmt.Errorf("column width %s: %w", letters, err)
		}
		if w != defaultColumnWidth {
			if sh.ColumnWidths == nil {
				sh.ColumnWidths = make(map[int]float64)
			}
			sh.ColumnWidths[c] = w * columnWidthDivisor
		}
	}
	return nil
}

func importRowHeights(f *excelize.File, sheetName string, sh *sheet.Sheet, rowCount int) error {
	for r := 0; r < rowCount; r++ {
		h, err := f.GetRowHeight(sheetName, r+1)
		if err != nil {
			return fmt.Errorf("row height %d: %w", r+1, err)
		}
		if h != defaultRowHeight {
			if sh.RowHeights == nil {
				sh.RowHeights = make(map[int]float64)
			}
			sh.RowHeights[r] = h
		}
	}
	return nil
}

func importMerges(f *excelize.File, sheetName string, sh *sheet.Sheet) error {
	merges, err := f.GetMergeCells(sheetName)
	if err != nil {
		return fmt.Errorf("merge cells: %w", err)
	}
	for _, m := range merges {
		sc, sr, err := excelize.CellNameToCoordinates(m.GetStartAxis())
		if err != nil {
			return err
		}
		ec, er, err := excelize.CellNameToCoordinates(m.GetEndAxis())
		if err != nil {
			return err
		}
		sh.Merges = append(sh.Merges, sheet.MergeRange{
			StartRow:    sr - 1,
			StartColumn: sc - 1,
			EndRow:      er - 1,
			EndColumn:   ec - 1,
		})
	}
	return nil
}
