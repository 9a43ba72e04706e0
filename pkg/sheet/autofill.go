package sheet

import (
	"fmt"
)

// AutoFill extends the pattern in the source range downward to fillToRow
// or rightward to fillToCol (both inclusive, zero-based). Numeric source
// series continue as a linear progression; anything else repeats in a
// cycle. Exactly one direction may extend beyond the source range.
func (e *Engine) AutoFill(sheetName string, startRow, startCol, endRow, endCol, fillToRow, fillToCol int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	sh, err := e.resolveSheet(sheetName)
	if err != nil {
		return err
	}
	if err := checkRange(startRow, startCol, endRow, endCol); err != nil {
		return err
	}
	down := fillToRow > endRow
	right := fillToCol > endCol
	if down == right {
		return fmt.Errorf("autofill must extend in exactly one direction")
	}

	if down {
		for c := startCol; c <= endCol; c++ {
			src := make([]*Cell, 0, endRow-startRow+1)
			for r := startRow; r <= endRow; r++ {
				src = append(src, sh.GetCell(r, c))
			}
			for r := endRow + 1; r <= fillToRow; r++ {
				sh.SetCell(r, c, continueSeries(src, r-endRow))
			}
		}
		return nil
	}

	for r := startRow; r <= endRow; r++ {
		src := make([]*Cell, 0, endCol-startCol+1)
		for c := startCol; c <= endCol; c++ {
			src = append(src, sh.GetCell(r, c))
		}
		for c := endCol + 1; c <= fillToCol; c++ {
			sh.SetCell(r, c, continueSeries(src, c-endCol))
		}
	}
	return nil
}

// continueSeries produces the value `offset` steps past the end of src.
func continueSeries(src []*Cell, offset int) *Cell {
	nums, numeric := numericSeries(src)
	if numeric && len(nums) > 0 {
		step := 0.0
		if len(nums) > 1 {
			step = (nums[len(nums)-1] - nums[0]) / float64(len(nums)-1)
		}
		return &Cell{Value: nums[len(nums)-1] + step*float64(offset), Type: TypeNumber}
	}
	// Cycle through the source values
	c := src[(offset-1)%len(src)]
	if c == nil {
		return &Cell{Value: "", Type: TypeString}
	}
	cp := *c
	return &cp
}

func numericSeries(src []*Cell) ([]float64, bool) {
	nums := make([]float64, 0, len(src))
	for _, c := range src {
		if c == nil {
			return nil, false
		}
		n, ok := parseNumber(c.Value)
		if !ok {
			return nil, false
		}
		nums = append(nums, n)
	}
	return nums, len(nums) > 0
}
