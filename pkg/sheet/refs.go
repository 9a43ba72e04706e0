package sheet

import (
	"fmt"
	"strings"
)

// ColumnLetter converts a zero-based column index to its A1-style letter
// (0 -> "A", 25 -> "Z", 26 -> "AA").
func ColumnLetter(col int) string {
	var b strings.Builder
	n := col
	for {
		b.WriteByte(byte('A' + n%26))
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	// Built least-significant first, reverse it
	runes := []rune(b.String())
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// CellRef formats a zero-based (row, col) pair as a conventional cell
// reference, e.g. (0,0) -> "A1".
func CellRef(row, col int) string {
	return fmt.Sprintf("%s%d", ColumnLetter(col), row+1)
}

// RangeRef formats an inclusive zero-based range as "A1:C3".
func RangeRef(startRow, startCol, endRow, endCol int) string {
	return CellRef(startRow, startCol) + ":" + CellRef(endRow, endCol)
}
