package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"sheetgrid-be/pkg/sheet"
)

// SpreadsheetAPI is the live spreadsheet backend the local tools execute
// against. It is injected at construction so tests can substitute a fake.
type SpreadsheetAPI interface {
	GetCell(sheetName string, row, col int) (interface{}, error)
	SetCell(sheetName string, row, col int, value interface{}) error
	GetRange(sheetName string, startRow, startCol, endRow, endCol int) ([][]interface{}, error)
	SetRange(sheetName string, startRow, startCol int, values [][]interface{}, allowHeaderRow bool) (int, error)
	SetColumnHeader(sheetName string, col int, title string) error
	InsertRows(sheetName string, at, count int) error
	DeleteRows(sheetName string, at, count int) error
	InsertColumns(sheetName string, at, count int) error
	DeleteColumns(sheetName string, at, count int) error
	MergeCells(sheetName string, startRow, startCol, endRow, endCol int) error
	CreateSheet(name string) (string, error)
	RenameSheet(oldName, newName string) error
	DeleteSheet(name string) error
	SetActiveSheet(name string) error
	ListSheets() []string
	SearchCells(sheetName, query string) ([]sheet.SearchHit, error)
	AutoFill(sheetName string, startRow, startCol, endRow, endCol, fillToRow, fillToCol int) error
}

// RemoteExecutor proxies a tool call to the remote execution endpoint.
type RemoteExecutor interface {
	CallTool(ctx context.Context, name string, args map[string]interface{}) (string, error)
}

// Dispatcher routes a named tool call to its executing implementation.
// Tool failures are always returned as result data, never as errors: the
// orchestration loop feeds them back into the model's context.
type Dispatcher struct {
	api         SpreadsheetAPI
	remote      RemoteExecutor
	remoteNames map[string]bool
	catalogue   []Descriptor
}

// NewDispatcher builds the effective catalogue from the built-in tools
// and the remotely discovered descriptors. Remote names always route to
// the remote executor, even when they shadow a built-in tool.
func NewDispatcher(api SpreadsheetAPI, remote RemoteExecutor, remoteTools []Descriptor) *Dispatcher {
	remoteNames := make(map[string]bool, len(remoteTools))
	for _, d := range remoteTools {
		remoteNames[d.Name] = true
	}
	return &Dispatcher{
		api:         api,
		remote:      remote,
		remoteNames: remoteNames,
		catalogue:   MergeCatalogues(Builtin(), remoteTools),
	}
}

// Catalogue returns the effective tool catalogue presented to the model.
func (d *Dispatcher) Catalogue() []Descriptor {
	return d.catalogue
}

// IsRemote reports whether a tool name routes to the remote endpoint.
func (d *Dispatcher) IsRemote(name string) bool {
	return d.remoteNames[name]
}

// Dispatch executes a named tool with raw JSON arguments and returns the
// result as text: remote results verbatim, local results as a small JSON
// object. Panics and errors become {"error": message}.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, rawArgs json.RawMessage) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = errorResult(fmt.Errorf("tool %s panicked: %v", name, r))
		}
	}()

	if d.remoteNames[name] {
		var args map[string]interface{}
		if len(rawArgs) > 0 {
			if err := json.Unmarshal(rawArgs, &args); err != nil {
				return errorResult(fmt.Errorf("invalid arguments: %w", err))
			}
		}
		out, err := d.remote.CallTool(ctx, name, args)
		if err != nil {
			return errorResult(err)
		}
		return out
	}

	out, err := d.dispatchLocal(name, rawArgs)
	if err != nil {
		return errorResult(err)
	}
	return out
}

func (d *Dispatcher) dispatchLocal(name string, rawArgs json.RawMessage) (string, error) {
	if d.api == nil {
		return "", fmt.Errorf("spreadsheet backend is not available")
	}
	switch name {
	case "get_cell_value":
		var a struct {
			Sheet string `json:"sheet"`
			Row   int    `json:"row"`
			Col   int    `json:"col"`
		}
		if err := parseArgs(rawArgs, &a); err != nil {
			return "", err
		}
		v, err := d.api.GetCell(a.Sheet, a.Row, a.Col)
		if err != nil {
			return "", err
		}
		return okResult(map[string]interface{}{
			"cell":  sheet.CellRef(a.Row, a.Col),
			"value": v,
		})

	case "set_cell_value":
		var a struct {
			Sheet string      `json:"sheet"`
			Row   int         `json:"row"`
			Col   int         `json:"col"`
			Value interface{} `json:"value"`
		}
		if err := parseArgs(rawArgs, &a); err != nil {
			return "", err
		}
		if err := d.api.SetCell(a.Sheet, a.Row, a.Col, a.Value); err != nil {
			return "", err
		}
		return okResult(map[string]interface{}{
			"cell": sheet.CellRef(a.Row, a.Col),
		})

	case "get_range_values":
		var a struct {
			Sheet    string `json:"sheet"`
			StartRow int    `json:"startRow"`
			StartCol int    `json:"startCol"`
			EndRow   int    `json:"endRow"`
			EndCol   int    `json:"endCol"`
		}
		if err := parseArgs(rawArgs, &a); err != nil {
			return "", err
		}
		values, err := d.api.GetRange(a.Sheet, a.StartRow, a.StartCol, a.EndRow, a.EndCol)
		if err != nil {
			return "", err
		}
		return okResult(map[string]interface{}{
			"range":  sheet.RangeRef(a.StartRow, a.StartCol, a.EndRow, a.EndCol),
			"values": values,
		})

	case "set_range_values":
		var a struct {
			Sheet    string          `json:"sheet"`
			StartRow int             `json:"startRow"`
			StartCol int             `json:"startCol"`
			Values   [][]interface{} `json:"values"`
		}
		if err := parseArgs(rawArgs, &a); err != nil {
			return "", err
		}
		if len(a.Values) == 0 {
			return "", fmt.Errorf("values must not be empty")
		}
		appliedRow, err := d.api.SetRange(a.Sheet, a.StartRow, a.StartCol, a.Values, false)
		if err != nil {
			return "", err
		}
		return okResult(map[string]interface{}{
			"startCell": sheet.CellRef(appliedRow, a.StartCol),
			"rows":      len(a.Values),
		})

	case "set_column_header":
		var a struct {
			Sheet string `json:"sheet"`
			Col   int    `json:"col"`
			Title string `json:"title"`
		}
		if err := parseArgs(rawArgs, &a); err != nil {
			return "", err
		}
		if err := d.api.SetColumnHeader(a.Sheet, a.Col, a.Title); err != nil {
			return "", err
		}
		return okResult(map[string]interface{}{
			"cell": sheet.CellRef(0, a.Col),
		})

	case "insert_rows", "delete_rows", "insert_columns", "delete_columns":
		var a struct {
			Sheet string `json:"sheet"`
			Index int    `json:"index"`
			Count int    `json:"count"`
		}
		if err := parseArgs(rawArgs, &a); err != nil {
			return "", err
		}
		var err error
		switch name {
		case "insert_rows":
			err = d.api.InsertRows(a.Sheet, a.Index, a.Count)
		case "delete_rows":
			err = d.api.DeleteRows(a.Sheet, a.Index, a.Count)
		case "insert_columns":
			err = d.api.InsertColumns(a.Sheet, a.Index, a.Count)
		case "delete_columns":
			err = d.api.DeleteColumns(a.Sheet, a.Index, a.Count)
		}
		if err != nil {
			return "", err
		}
		return okResult(map[string]interface{}{
			"index": a.Index,
			"count": a.Count,
		})

	case "merge_cells":
		var a struct {
			Sheet    string `json:"sheet"`
			StartRow int    `json:"startRow"`
			StartCol int    `json:"startCol"`
			EndRow   int    `json:"endRow"`
			EndCol   int    `json:"endCol"`
		}
		if err := parseArgs(rawArgs, &a); err != nil {
			return "", err
		}
		if err := d.api.MergeCells(a.Sheet, a.StartRow, a.StartCol, a.EndRow, a.EndCol); err != nil {
			return "", err
		}
		return okResult(map[string]interface{}{
			"range": sheet.RangeRef(a.StartRow, a.StartCol, a.EndRow, a.EndCol),
		})

	case "create_sheet":
		var a struct {
			Name string `json:"name"`
		}
		if err := parseArgs(rawArgs, &a); err != nil {
			return "", err
		}
		id, err := d.api.CreateSheet(a.Name)
		if err != nil {
			return "", err
		}
		return okResult(map[string]interface{}{
			"sheetId": id,
			"name":    a.Name,
		})

	case "rename_sheet":
		var a struct {
			Name    string `json:"name"`
			NewName string `json:"newName"`
		}
		if err := parseArgs(rawArgs, &a); err != nil {
			return "", err
		}
		if err := d.api.RenameSheet(a.Name, a.NewName); err != nil {
			return "", err
		}
		return okResult(map[string]interface{}{
			"name": a.NewName,
		})

	case "delete_sheet":
		var a struct {
			Name string `json:"name"`
		}
		if err := parseArgs(rawArgs, &a); err != nil {
			return "", err
		}
		if err := d.api.DeleteSheet(a.Name); err != nil {
			return "", err
		}
		return okResult(map[string]interface{}{
			"deleted": a.Name,
		})

	case "set_active_sheet":
		var a struct {
			Name string `json:"name"`
		}
		if err := parseArgs(rawArgs, &a); err != nil {
			return "", err
		}
		if err := d.api.SetActiveSheet(a.Name); err != nil {
			return "", err
		}
		return okResult(map[string]interface{}{
			"active": a.Name,
		})

	case "list_sheets":
		return okResult(map[string]interface{}{
			"sheets": d.api.ListSheets(),
		})

	case "search_cells":
		var a struct {
			Sheet string `json:"sheet"`
			Query string `json:"query"`
		}
		if err := parseArgs(rawArgs, &a); err != nil {
			return "", err
		}
		hits, err := d.api.SearchCells(a.Sheet, a.Query)
		if err != nil {
			return "", err
		}
		return okResult(map[string]interface{}{
			"matches": hits,
			"count":   len(hits),
		})

	case "autofill_range":
		var a struct {
			Sheet     string `json:"sheet"`
			StartRow  int    `json:"startRow"`
			StartCol  int    `json:"startCol"`
			EndRow    int    `json:"endRow"`
			EndCol    int    `json:"endCol"`
			FillToRow int    `json:"fillToRow"`
			FillToCol int    `json:"fillToCol"`
		}
		if err := parseArgs(rawArgs, &a); err != nil {
			return "", err
		}
		if a.FillToRow == 0 {
			a.FillToRow = a.EndRow
		}
		if a.FillToCol == 0 {
			a.FillToCol = a.EndCol
		}
		if err := d.api.AutoFill(a.Sheet, a.StartRow, a.StartCol, a.EndRow, a.EndCol, a.FillToRow, a.FillToCol); err != nil {
			return "", err
		}
		return okResult(map[string]interface{}{
			"source": sheet.RangeRef(a.StartRow, a.StartCol, a.EndRow, a.EndCol),
		})

	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

func parseArgs(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func okResult(fields map[string]interface{}) (string, error) {
	fields["success"] = true
	b, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func errorResult(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(b)
}
