package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"github.com/xuri/excelize/v2"

	"leaguesync/internal/service/tracking"
	"leaguesync/pkg/sheets"
)

func writeWorkbook(t *testing.T, path string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet("Squadre")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Squadre", "A1", &[]string{"Squadra"}))
	require.NoError(t, f.SetSheetRow("Squadre", "A2", &[]string{"Club X Team A"}))
	require.NoError(t, f.SetSheetRow("Squadre", "A3", &[]string{"Club Y Team A"}))

	_, err = f.NewSheet("Pool A")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Pool A", "A1", &[]string{"N", "Data", "Ora", "Campo", "Fase", "Squadre", "Ris", "1A", "1B"}))
	require.NoError(t, f.SetSheetRow("Pool A", "A2", &[]string{"07A", "2-mag", "18:00", "Court 1", "Pool A", "Club X Team A vs Club Y Team A", "1-0", "21", "15"}))
	require.NoError(t, f.SetSheetRow("Pool A", "A3", &[]string{"07B", "2-mag", "18:30", "Court 2", "Pool A", "no pairing here"}))

	require.NoError(t, f.DeleteSheet("Sheet1"))
	require.NoError(t, f.SaveAs(path))
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "u21.xlsx"))

	rep, err := inspect(context.Background(), sheets.NewXLSXStore(dir), "u21", options{
		Category:    "U21",
		RosterSheet: "Squadre",
		SeasonYear:  2025,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Club X Team A", "Club Y Team A"}, rep.Roster)
	require.Len(t, rep.Candidates, 1)
	assert.Equal(t, "Club X Team A", rep.Candidates[0].TeamAName)
	assert.Len(t, rep.Skips, 1)

	want, err := tracking.Fingerprint(rep.Candidates)
	require.NoError(t, err)
	assert.Equal(t, want, rep.Fingerprint)
}

func TestParseCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "u21.xlsx")
	writeWorkbook(t, path)

	var out bytes.Buffer
	app := &cli.App{
		Writer:   &out,
		Commands: []*cli.Command{newParseCommand()},
	}

	require.NoError(t, app.Run([]string{"sheetcheck", "parse", "--category", "U21", "--season-year", "2025", "--json", path}))

	var rep report
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.Len(t, rep.Candidates, 1)
	assert.NotEmpty(t, rep.Fingerprint)

	out.Reset()
	require.NoError(t, app.Run([]string{"sheetcheck", "parse", "--category", "U21", path}))
	assert.Contains(t, out.String(), "1 candidates, 1 skipped, 2 roster teams")
}
