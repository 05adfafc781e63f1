// Package sheets reads and writes category spreadsheets, either through the
// Google Sheets API or from local .xlsx exports.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is one tab of a spreadsheet
type Sheet struct {
	Title string
}

// Reader lists tabs and reads cell ranges as strings
type Reader interface {
	ListSheets(ctx context.Context, spreadsheetID string) ([]Sheet, error)
	ReadRange(ctx context.Context, spreadsheetID, sheetTitle, rng string) ([][]string, error)
}

// Writer overwrites a cell range
type Writer interface {
	WriteRange(ctx context.Context, spreadsheetID, sheetTitle, rng string, rows [][]string) error
}

// ReadWriter is what a full spreadsheet backend provides
type ReadWriter interface {
	Reader
	Writer
}

// A1 quotes sheetTitle and joins it with rng, e.g. 'Pool A'!A2:M
func A1(sheetTitle, rng string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheetTitle, "'", "''"), rng)
}

// Bounds is a parsed A1 range. EndRow is 0 when the range is open-ended.
type Bounds struct {
	StartCol, StartRow int
	EndCol, EndRow     int
}

// ParseRange parses "A2:M", "G5:M5" or a single cell "B3"
func ParseRange(rng string) (Bounds, error) {
	parts := strings.SplitN(rng, ":", 2)

	startCol, startRow, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return Bounds{}, fmt.Errorf("invalid range start %q: %w", parts[0], err)
	}
	b := Bounds{StartCol: startCol, StartRow: startRow, EndCol: startCol, EndRow: startRow}
	if len(parts) == 1 {
		return b, nil
	}

	end := parts[1]
	if endCol, endRow, err := excelize.CellNameToCoordinates(end); err == nil {
		b.EndCol, b.EndRow = endCol, endRow
	} else {
		endCol, err := excelize.ColumnNameToNumber(end)
		if err != nil {
			return Bounds{}, fmt.Errorf("invalid range end %q: %w", end, err)
		}
		b.EndCol, b.EndRow = endCol, 0
	}

	if b.EndCol < b.StartCol || (b.EndRow != 0 && b.EndRow < b.StartRow) {
		return Bounds{}, fmt.Errorf("invalid range %q: end before start", rng)
	}
	return b, nil
}

// Clip cuts full-sheet rows (1-based row 1 at index 0) down to the bounds
func (b Bounds) Clip(rows [][]string) [][]string {
	var out [][]string
	for i, row := range rows {
		rowNum := i + 1
		if rowNum < b.StartRow {
			continue
		}
		if b.EndRow != 0 && rowNum > b.EndRow {
			break
		}
		var cells []string
		if b.StartCol-1 < len(row) {
			end := b.EndCol
			if end > len(row) {
				end = len(row)
			}
			cells = append([]string(nil), row[b.StartCol-1:end]...)
		}
		out = append(out, cells)
	}
	return out
}
