// Package xlsx converts between XLSX files and the in-memory workbook
// model. Import and export are strict: any failure aborts the whole
// operation and leaves prior state untouched.
package xlsx

const (
	// XLSX column widths are measured in characters, the workbook model
	// stores pixels.
	columnWidthDivisor = 7.5
	minColumnWidth     = 1.0

	// excelize reports these for rows/columns that were never sized.
	defaultRowHeight  = 15.0
	defaultColumnWidth = 9.140625
)
