package sheets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"leaguesync/pkg/errors"
)

// XLSXStore serves spreadsheets from <dir>/<spreadsheetID>.xlsx. It backs
// offline runs and the sheetcheck tool.
type XLSXStore struct {
	dir string
	mu  sync.Mutex
}

func NewXLSXStore(dir string) *XLSXStore {
	return &XLSXStore{dir: dir}
}

// Path returns the file backing spreadsheetID
func (s *XLSXStore) Path(spreadsheetID string) string {
	return filepath.Join(s.dir, spreadsheetID+".xlsx")
}

func (s *XLSXStore) open(spreadsheetID string) (*excelize.File, error) {
	path := s.Path(spreadsheetID)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(fmt.Sprintf("spreadsheet %s not found", spreadsheetID))
		}
		return nil, errors.NewUpstreamError("Failed to stat spreadsheet file", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.NewUpstreamError("Failed to open spreadsheet file", err)
	}
	return f, nil
}

func (s *XLSXStore) ListSheets(_ context.Context, spreadsheetID string) ([]Sheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open(spreadsheetID)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names := f.GetSheetList()
	out := make([]Sheet, len(names))
	for i, n := range names {
		out[i] = Sheet{Title: n}
	}
	return out, nil
}

func (s *XLSXStore) ReadRange(_ context.Context, spreadsheetID, sheetTitle, rng string) ([][]string, error) {
	bounds, err := ParseRange(rng)
	if err != nil {
		return nil, errors.NewValidationError(err.Error(), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open(spreadsheetID)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheetTitle)
	if err != nil {
		return nil, errors.NewUpstreamError(fmt.Sprintf("Failed to read sheet %s", sheetTitle), err)
	}
	return bounds.Clip(rows), nil
}

func (s *XLSXStore) WriteRange(_ context.Context, spreadsheetID, sheetTitle, rng string, rows [][]string) error {
	bounds, err := ParseRange(rng)
	if err != nil {
		return errors.NewValidationError(err.Error(), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open(spreadsheetID)
	if err != nil {
		return err
	}
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(bounds.StartCol, bounds.StartRow+i)
		if err != nil {
			return errors.NewValidationError(err.Error(), nil)
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheetTitle, cell, &values); err != nil {
			return errors.NewUpstreamError("Failed to write spreadsheet row", err)
		}
	}

	if err := f.Save(); err != nil {
		return errors.NewUpstreamError("Failed to save spreadsheet file", err)
	}
	return nil
}
