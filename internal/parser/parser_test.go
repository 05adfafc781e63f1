package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaguesync/internal/domain"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *time.Time
	}{
		{"italian day-month", "2-mag", date(2025, time.May, 2)},
		{"italian with weekday", "sab 14 giu", date(2025, time.June, 14)},
		{"italian full month name", "3 settembre", date(2025, time.September, 3)},
		{"italian with year", "2-mag-24", date(2024, time.May, 2)},
		{"english abbreviation", "12-Oct", date(2025, time.October, 12)},
		{"slash full year", "02/05/2025", date(2025, time.May, 2)},
		{"slash two digit year", "2/5/25", date(2025, time.May, 2)},
		{"iso fallback", "2025-05-02", date(2025, time.May, 2)},
		{"iso with slashes", "2025/05/12", date(2025, time.May, 12)},
		{"weekday before slash date", "sab 2/5", date(2025, time.May, 2)},
		{"empty", "", nil},
		{"whitespace", "   ", nil},
		{"overflowing day", "31-feb", nil},
		{"bad slash month", "10/13/2025", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.input, 2025)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.expected.Equal(*got), "got %s", got)
		})
	}
}

func TestParseDate_NeverPanics(t *testing.T) {
	inputs := []string{"à", "99-zzz", "1-", "-mag", "//", "1/1/", "mag mag mag", "TBD"}
	for _, in := range inputs {
		assert.NotPanics(t, func() { ParseDate(in, 2025) }, in)
	}
}

func TestFindTeamInText(t *testing.T) {
	known := []string{"Club X", "Club Y", "Pallavolo Roma"}

	tests := []struct {
		name     string
		text     string
		known    []string
		expected TeamMatch
	}{
		{"exact with suffix A", "Club X Team A", known, TeamMatch{"Club X", domain.TeamCodeA}},
		{"suffix B lowercase", "Club Y team b", known, TeamMatch{"Club Y", domain.TeamCodeB}},
		{"suffix G", "Club Y Team G", known, TeamMatch{"Club Y", domain.TeamCodeG}},
		{"golden marker mid-text", "Club X team G (spareggio)", known, TeamMatch{"Club X", domain.TeamCodeG}},
		{"case-insensitive exact", "club x", known, TeamMatch{"Club X", domain.TeamCodeNone}},
		{"text contains known", "ASD Pallavolo Roma", known, TeamMatch{"Pallavolo Roma", domain.TeamCodeNone}},
		{"known contains text", "Roma Team A", known, TeamMatch{"Pallavolo Roma", domain.TeamCodeA}},
		{"unknown returns cleaned", "Volley Milano Team A", known, TeamMatch{"Volley Milano", domain.TeamCodeA}},
		{"no roster", "Volley Milano", nil, TeamMatch{"Volley Milano", domain.TeamCodeNone}},
		{"empty", "", known, TeamMatch{"", domain.TeamCodeNone}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FindTeamInText(tt.text, tt.known))
		})
	}
}

func TestFindTeamInText_FirstContainmentWins(t *testing.T) {
	// "Club" is a substring of both; list order decides
	got := FindTeamInText("Club", []string{"Club Y", "Club X"})
	assert.Equal(t, "Club Y", got.Name)
}

func TestParseRow_ExampleRow(t *testing.T) {
	row := []string{"07A", "2-mag", "18:00", "Court 1", "Pool A", "Club X Team A vs Club Y Team A", "2-0", "21", "15", "21", "18"}
	res := ParseRow(row, RowContext{
		Category:   "Under 21 M",
		SheetName:  "Pool A",
		RowNumber:  5,
		SeasonYear: 2025,
		KnownTeams: []string{"Club X", "Club Y"},
	})

	require.False(t, res.Skipped())
	c := res.Candidate
	assert.Equal(t, "Under 21 M_Pool A_07A", c.MatchID)
	require.NotNil(t, c.Date)
	assert.True(t, date(2025, time.May, 2).Equal(*c.Date))
	assert.Equal(t, "18:00", c.Time)
	assert.Equal(t, "Court 1", c.Court)
	assert.Equal(t, "Pool A", c.Phase)
	assert.Equal(t, "Club X", c.TeamAName)
	assert.Equal(t, "Club Y", c.TeamBName)
	assert.Equal(t, domain.TeamCodeA, c.TeamACode)
	assert.Equal(t, domain.TeamCodeA, c.TeamBCode)
	assert.Equal(t, []string{"21", "21"}, c.OfficialScoreA)
	assert.Equal(t, []string{"15", "18"}, c.OfficialScoreB)
	assert.Equal(t, domain.ResultTeamA, c.OfficialResult)
	assert.False(t, c.IsGoldenSet)
	assert.Equal(t, 5, c.SpreadsheetRow)
}

func TestParseRow_GoldenSet(t *testing.T) {
	tests := []struct {
		name string
		row  []string
	}{
		{"number ends in G", []string{"07G", "", "", "", "Pool A", "Club X Team A vs Club Y Team B"}},
		{"marker in pairing", []string{"07", "", "", "", "Pool A", "Club X Team G vs Club Y Team G"}},
		{"marker on one side", []string{"07", "", "", "", "Pool A", "Club X team g vs Club Y Team A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseRow(tt.row, RowContext{Category: "Under 21 M", SheetName: "Pool A", SeasonYear: 2025})
			require.False(t, res.Skipped())
			assert.True(t, res.Candidate.IsGoldenSet)
			assert.Equal(t, domain.TeamCodeG, res.Candidate.TeamACode)
			assert.Equal(t, domain.TeamCodeG, res.Candidate.TeamBCode)
		})
	}
}

func TestParseRow_Skips(t *testing.T) {
	tests := []struct {
		name   string
		row    []string
		reason string
	}{
		{"nil row", nil, SkipEmptyRow},
		{"blank cells", []string{" ", "", ""}, SkipEmptyRow},
		{"no number", []string{"", "2-mag", "", "", "", "A vs B"}, SkipNoMatchNumber},
		{"no pairing", []string{"01A", "2-mag"}, SkipNoPairing},
		{"no separator", []string{"01A", "", "", "", "", "Club X - Club Y"}, SkipBadPairing},
		{"one-sided", []string{"01A", "", "", "", "", "Club X vs "}, SkipBadPairing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseRow(tt.row, RowContext{Category: "c", SheetName: "s"})
			assert.True(t, res.Skipped())
			assert.Equal(t, tt.reason, res.SkipReason)
		})
	}
}

func TestParseRow_DefaultsOnMalformedCells(t *testing.T) {
	row := []string{"03B", "boh", "", "", "", "A vs B", "w/o", "21", ""}
	res := ParseRow(row, RowContext{Category: "c", SheetName: "s", SeasonYear: 2025})

	require.False(t, res.Skipped())
	assert.Nil(t, res.Candidate.Date)
	assert.Equal(t, domain.ResultPending, res.Candidate.OfficialResult)
	assert.Empty(t, res.Candidate.OfficialScoreA)
	assert.Empty(t, res.Candidate.OfficialScoreB)
}

func TestMapResultCell(t *testing.T) {
	tests := map[string]domain.Result{
		"2-0":   domain.ResultTeamA,
		"2-1":   domain.ResultTeamA,
		"0-2":   domain.ResultTeamB,
		"1-2":   domain.ResultTeamB,
		"1-1":   domain.ResultDraw,
		"2 - 1": domain.ResultTeamA,
		"3-0":   domain.ResultPending,
		"":      domain.ResultPending,
	}
	for in, expected := range tests {
		assert.Equal(t, expected, MapResultCell(in), in)
	}
}

func TestFormatResultCell(t *testing.T) {
	assert.Equal(t, "2-1", FormatResultCell([]string{"21", "18", "15"}, []string{"19", "21", "10"}))
	assert.Equal(t, "", FormatResultCell(nil, nil))
	assert.Equal(t, "G7:M7", WriteBackRange(7))
}

func TestParseSheetAndRoster(t *testing.T) {
	roster := ParseRoster([][]string{{"Club X"}, {""}, {"Club Y"}, {"Club X"}, nil})
	assert.Equal(t, []string{"Club X", "Club Y"}, roster)

	rows := [][]string{
		{"01A", "2-mag", "18:00", "C1", "Pool A", "Club X Team A vs Club Y Team A"},
		{},
		{"", "", "", "", "", "Club X vs Club Y"},
		{"01G", "", "", "", "Pool A", "Club X Team G vs Club Y Team G"},
	}
	cands, skips := ParseSheet(rows, SheetContext{Category: "U21", SheetName: "Pool A", SeasonYear: 2025, KnownTeams: roster})

	require.Len(t, cands, 2)
	assert.Equal(t, "U21_Pool A_01A", cands[0].MatchID)
	assert.Equal(t, 2, cands[0].SpreadsheetRow)
	assert.Equal(t, 5, cands[1].SpreadsheetRow)
	assert.Equal(t, []Skip{{SheetName: "Pool A", RowNumber: 4, Reason: SkipNoMatchNumber}}, skips)

	assert.True(t, IsRosterSheet("squadre", ""))
	assert.False(t, IsRosterSheet("Pool A", "Squadre"))
}
