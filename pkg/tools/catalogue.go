// Package tools holds the catalogue of operations exposed to the model
// and the dispatcher that executes them against the spreadsheet engine
// or a remote tool endpoint.
package tools

// Descriptor declares one callable tool: unique name, human readable
// description, and a JSON-schema parameter object.
type Descriptor struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

func schema(props map[string]interface{}, required ...string) map[string]interface{} {
	s := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func prop(typ, desc string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": desc}
}

var sheetProp = prop("string", "Sheet name. Omit to target the active sheet.")

// Builtin returns the fixed local tool catalogue. The slice is rebuilt on
// every call so callers may mutate their copy freely.
func Builtin() []Descriptor {
	return []Descriptor{
		{
			Name:        "get_cell_value",
			Description: "Read the value of a single cell at a zero-based row and column.",
			Parameters: schema(map[string]interface{}{
				"sheet": sheetProp,
				"row":   prop("integer", "Zero-based row index."),
				"col":   prop("integer", "Zero-based column index."),
			}, "row", "col"),
		},
		{
			Name:        "set_cell_value",
			Description: "Write a value into a single cell. A value starting with '=' is stored as a formula.",
			Parameters: schema(map[string]interface{}{
				"sheet": sheetProp,
				"row":   prop("integer", "Zero-based row index."),
				"col":   prop("integer", "Zero-based column index."),
				"value": prop("string", "The value to write."),
			}, "row", "col", "value"),
		},
		{
			Name:        "get_range_values",
			Description: "Read a rectangular range of cells as a 2D array.",
			Parameters: schema(map[string]interface{}{
				"sheet":    sheetProp,
				"startRow": prop("integer", "Zero-based first row of the range."),
				"startCol": prop("integer", "Zero-based first column of the range."),
				"endRow":   prop("integer", "Zero-based last row of the range, inclusive."),
				"endCol":   prop("integer", "Zero-based last column of the range, inclusive."),
			}, "startRow", "startCol", "endRow", "endCol"),
		},
		{
			Name:        "set_range_values",
			Description: "Write a 2D array of values starting at a cell. Row 0 is reserved for headers; writes starting there begin at row 1 instead.",
			Parameters: schema(map[string]interface{}{
				"sheet":    sheetProp,
				"startRow": prop("integer", "Zero-based row the write begins at."),
				"startCol": prop("integer", "Zero-based column the write begins at."),
				"values": map[string]interface{}{
					"type":        "array",
					"description": "Rows of values, applied row by row.",
					"items":       map[string]interface{}{"type": "array"},
				},
			}, "startRow", "startCol", "values"),
		},
		{
			Name:        "set_column_header",
			Description: "Write a column title into the reserved header row (row 0).",
			Parameters: schema(map[string]interface{}{
				"sheet": sheetProp,
				"col":   prop("integer", "Zero-based column index."),
				"title": prop("string", "Header text."),
			}, "col", "title"),
		},
		{
			Name:        "insert_rows",
			Description: "Insert empty rows, shifting existing rows down.",
			Parameters: schema(map[string]interface{}{
				"sheet": sheetProp,
				"index": prop("integer", "Zero-based row index to insert at."),
				"count": prop("integer", "Number of rows to insert."),
			}, "index", "count"),
		},
		{
			Name:        "delete_rows",
			Description: "Delete rows, shifting later rows up.",
			Parameters: schema(map[string]interface{}{
				"sheet": sheetProp,
				"index": prop("integer", "Zero-based first row to delete."),
				"count": prop("integer", "Number of rows to delete."),
			}, "index", "count"),
		},
		{
			Name:        "insert_columns",
			Description: "Insert empty columns, shifting existing columns right.",
			Parameters: schema(map[string]interface{}{
				"sheet": sheetProp,
				"index": prop("integer", "Zero-based column index to insert at."),
				"count": prop("integer", "Number of columns to insert."),
			}, "index", "count"),
		},
		{
			Name:        "delete_columns",
			Description: "Delete columns, shifting later columns left.",
			Parameters: schema(map[string]interface{}{
				"sheet": sheetProp,
				"index": prop("integer", "Zero-based first column to delete."),
				"count": prop("integer", "Number of columns to delete."),
			}, "index", "count"),
		},
		{
			Name:        "merge_cells",
			Description: "Merge a rectangular range of cells.",
			Parameters: schema(map[string]interface{}{
				"sheet":    sheetProp,
				"startRow": prop("integer", "Zero-based first row of the merge."),
				"startCol": prop("integer", "Zero-based first column of the merge."),
				"endRow":   prop("integer", "Zero-based last row of the merge, inclusive."),
				"endCol":   prop("integer", "Zero-based last column of the merge, inclusive."),
			}, "startRow", "startCol", "endRow", "endCol"),
		},
		{
			Name:        "create_sheet",
			Description: "Create a new sheet with the given name.",
			Parameters: schema(map[string]interface{}{
				"name": prop("string", "Display name for the new sheet."),
			}, "name"),
		},
		{
			Name:        "rename_sheet",
			Description: "Rename an existing sheet.",
			Parameters: schema(map[string]interface{}{
				"name":    prop("string", "Current sheet name."),
				"newName": prop("string", "New sheet name."),
			}, "name", "newName"),
		},
		{
			Name:        "delete_sheet",
			Description: "Delete a sheet. The last remaining sheet cannot be deleted.",
			Parameters: schema(map[string]interface{}{
				"name": prop("string", "Sheet name to delete."),
			}, "name"),
		},
		{
			Name:        "set_active_sheet",
			Description: "Switch the active sheet.",
			Parameters: schema(map[string]interface{}{
				"name": prop("string", "Sheet name to activate."),
			}, "name"),
		},
		{
			Name:        "list_sheets",
			Description: "List all sheet names in order.",
			Parameters:  schema(map[string]interface{}{}),
		},
		{
			Name:        "search_cells",
			Description: "Search cell contents for a case-insensitive substring.",
			Parameters: schema(map[string]interface{}{
				"sheet": prop("string", "Sheet name. Omit to search every sheet."),
				"query": prop("string", "Text to search for."),
			}, "query"),
		},
		{
			Name:        "autofill_range",
			Description: "Extend the pattern in a source range downward or rightward. Numeric series continue linearly, other values repeat.",
			Parameters: schema(map[string]interface{}{
				"sheet":     sheetProp,
				"startRow":  prop("integer", "Zero-based first row of the source range."),
				"startCol":  prop("integer", "Zero-based first column of the source range."),
				"endRow":    prop("integer", "Zero-based last row of the source range, inclusive."),
				"endCol":    prop("integer", "Zero-based last column of the source range, inclusive."),
				"fillToRow": prop("integer", "Zero-based last row to fill to when extending downward."),
				"fillToCol": prop("integer", "Zero-based last column to fill to when extending rightward."),
			}, "startRow", "startCol", "endRow", "endCol"),
		},
	}
}

// MergeCatalogues combines the local catalogue with remotely discovered
// descriptors. A remote descriptor whose name collides with a local one
// replaces it in place; remaining remote descriptors are appended in
// their declared order.
func MergeCatalogues(local, remote []Descriptor) []Descriptor {
	remoteByName := make(map[string]Descriptor, len(remote))
	for _, d := range remote {
		remoteByName[d.Name] = d
	}

	effective := make([]Descriptor, 0, len(local)+len(remote))
	seen := make(map[string]bool, len(local))
	for _, d := range local {
		if override, ok := remoteByName[d.Name]; ok {
			effective = append(effective, override)
		} else {
			effective = append(effective, d)
		}
		seen[d.Name] = true
	}
	for _, d := range remote {
		if !seen[d.Name] {
			effective = append(effective, d)
		}
	}
	return effective
}
