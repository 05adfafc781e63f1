package parser

import (
	"strconv"
	"strings"

	"leaguesync/internal/domain"
)

// Match sheet column layout, read from A2:M
const (
	ColMatchNumber = 0
	ColDate        = 1
	ColTime        = 2
	ColCourt       = 3
	ColPhase       = 4
	ColPairing     = 5
	ColResult      = 6
	ColSet1A       = 7
	ColSet1B       = 8
	ColSet2A       = 9
	ColSet2B       = 10
	ColSet3A       = 11
	ColSet3B       = 12
)

// MatchRange is the A1 range holding match rows; its first row is sheet row FirstDataRow
const (
	MatchRange   = "A2:M"
	FirstDataRow = 2
)

// WriteBackRange is where a confirmed result lands on the match's own row
func WriteBackRange(row int) string {
	return "G" + strconv.Itoa(row) + ":M" + strconv.Itoa(row)
}

// PairingSeparator splits the two sides of the pairing cell
const PairingSeparator = " vs "

var setColumns = [3][2]int{
	{ColSet1A, ColSet1B},
	{ColSet2A, ColSet2B},
	{ColSet3A, ColSet3B},
}

var resultTable = map[string]domain.Result{
	"2-0": domain.ResultTeamA,
	"2-1": domain.ResultTeamA,
	"0-2": domain.ResultTeamB,
	"1-2": domain.ResultTeamB,
	"1-1": domain.ResultDraw,
}

// Skip reasons
const (
	SkipEmptyRow      = "empty row"
	SkipNoMatchNumber = "missing match number"
	SkipNoPairing     = "missing team pairing"
	SkipBadPairing    = "pairing is not of the form 'X vs Y'"
)

// RowContext is what a row needs besides its cells
type RowContext struct {
	Category   string
	SheetName  string
	RowNumber  int
	SeasonYear int
	KnownTeams []string
}

// RowResult is either a candidate or the reason the row was skipped
type RowResult struct {
	Candidate  *domain.MatchCandidate
	SkipReason string
}

// Skipped reports whether the row produced no candidate
func (r RowResult) Skipped() bool {
	return r.Candidate == nil
}

// ParseRow converts one match row into a candidate. It never panics on short
// or malformed rows; optional cells default to empty values.
func ParseRow(row []string, rc RowContext) RowResult {
	if isBlank(row) {
		return RowResult{SkipReason: SkipEmptyRow}
	}

	number := cell(row, ColMatchNumber)
	if number == "" {
		return RowResult{SkipReason: SkipNoMatchNumber}
	}

	pairing := cell(row, ColPairing)
	if pairing == "" {
		return RowResult{SkipReason: SkipNoPairing}
	}
	sides := strings.SplitN(pairing, PairingSeparator, 2)
	if len(sides) != 2 || strings.TrimSpace(sides[0]) == "" || strings.TrimSpace(sides[1]) == "" {
		return RowResult{SkipReason: SkipBadPairing}
	}

	teamA := FindTeamInText(sides[0], rc.KnownTeams)
	teamB := FindTeamInText(sides[1], rc.KnownTeams)

	golden := strings.HasSuffix(strings.ToUpper(number), "G") ||
		goldenMarkerRe.MatchString(sides[0]) ||
		goldenMarkerRe.MatchString(sides[1])
	if golden {
		teamA.Code = domain.TeamCodeG
		teamB.Code = domain.TeamCodeG
	}

	scoreA, scoreB := extractScores(row)

	return RowResult{Candidate: &domain.MatchCandidate{
		MatchID:        BuildMatchID(rc.Category, rc.SheetName, number),
		MatchNumber:    number,
		Category:       rc.Category,
		Phase:          cell(row, ColPhase),
		Date:           ParseDate(cell(row, ColDate), rc.SeasonYear),
		Time:           cell(row, ColTime),
		Court:          cell(row, ColCourt),
		SheetName:      rc.SheetName,
		SpreadsheetRow: rc.RowNumber,
		TeamAName:      teamA.Name,
		TeamBName:      teamB.Name,
		TeamACode:      teamA.Code,
		TeamBCode:      teamB.Code,
		OfficialScoreA: scoreA,
		OfficialScoreB: scoreB,
		OfficialResult: MapResultCell(cell(row, ColResult)),
		IsGoldenSet:    golden,
	}}
}

// BuildMatchID derives the stable key of a match row
func BuildMatchID(category, sheetName, number string) string {
	return category + "_" + sheetName + "_" + number
}

// MapResultCell maps "2-0" style cells; anything unrecognised is pending
func MapResultCell(s string) domain.Result {
	if r, ok := resultTable[strings.ReplaceAll(strings.TrimSpace(s), " ", "")]; ok {
		return r
	}
	return domain.ResultPending
}

// FormatResultCell is the inverse of MapResultCell given the set tally
func FormatResultCell(scoreA, scoreB []string) string {
	winsA, winsB := domain.TallySets(scoreA, scoreB)
	if winsA == 0 && winsB == 0 {
		return ""
	}
	return strconv.Itoa(winsA) + "-" + strconv.Itoa(winsB)
}

func extractScores(row []string) (scoreA, scoreB []string) {
	scoreA, scoreB = []string{}, []string{}
	for _, cols := range setColumns {
		a, b := cell(row, cols[0]), cell(row, cols[1])
		if a == "" || b == "" {
			continue
		}
		scoreA = append(scoreA, a)
		scoreB = append(scoreB, b)
	}
	return scoreA, scoreB
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
