package sheet

import (
	"fmt"
	"sort"
	"strings"
)

// SearchHit is a single match from SearchCells.
type SearchHit struct {
	Sheet string      `json:"sheet"`
	Row   int         `json:"row"`
	Col   int         `json:"col"`
	Cell  string      `json:"cell"`
	Value interface{} `json:"value"`
}

// SearchCells scans cell contents for a case-insensitive substring match.
// An empty sheet name searches every sheet in order; hits are returned in
// row-major order within each sheet.
func (e *Engine) SearchCells(sheetName, query string) ([]SearchHit, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}
	var sheets []*Sheet
	if sheetName == "" {
		for _, id := range e.wb.SheetOrder {
			sheets = append(sheets, e.wb.Sheets[id])
		}
	} else {
		sh, err := e.resolveSheet(sheetName)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, sh)
	}

	needle := strings.ToLower(query)
	var hits []SearchHit
	for _, sh := range sheets {
		var local []SearchHit
		for r, cols := range sh.Cells {
			for c, cell := range cols {
				if cell == nil {
					continue
				}
				text := strings.ToLower(fmt.Sprintf("%v", cell.Value))
				if strings.Contains(text, needle) {
					local = append(local, SearchHit{
						Sheet: sh.Name,
						Row:   r,
						Col:   c,
						Cell:  CellRef(r, c),
						Value: cell.Value,
					})
				}
			}
		}
		sort.Slice(local, func(i, j int) bool {
			if local[i].Row != local[j].Row {
				return local[i].Row < local[j].Row
			}
			return local[i].Col < local[j].Col
		})
		hits = append(hits, local...)
	}
	return hits, nil
}
