package parser

import (
	"strings"

	"leaguesync/internal/domain"
)

const (
	// DefaultRosterSheet lists team names in column A from row 2
	DefaultRosterSheet = "Squadre"
	RosterRange        = "A2:A"
)

// Skip records why a sheet row produced no candidate
type Skip struct {
	SheetName string
	RowNumber int
	Reason    string
}

// SheetContext is shared by every row of one match sheet
type SheetContext struct {
	Category   string
	SheetName  string
	SeasonYear int
	KnownTeams []string
}

// ParseRoster returns the distinct non-empty names from column A, in sheet order
func ParseRoster(rows [][]string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, row := range rows {
		name := cell(row, 0)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// ParseSheet parses rows read from MatchRange. Blank rows are dropped silently;
// other skipped rows are returned with their reason.
func ParseSheet(rows [][]string, sc SheetContext) ([]domain.MatchCandidate, []Skip) {
	var (
		candidates []domain.MatchCandidate
		skips      []Skip
	)

	for i, row := range rows {
		rowNumber := FirstDataRow + i
		res := ParseRow(row, RowContext{
			Category:   sc.Category,
			SheetName:  sc.SheetName,
			RowNumber:  rowNumber,
			SeasonYear: sc.SeasonYear,
			KnownTeams: sc.KnownTeams,
		})
		if res.Skipped() {
			if res.SkipReason != SkipEmptyRow {
				skips = append(skips, Skip{SheetName: sc.SheetName, RowNumber: rowNumber, Reason: res.SkipReason})
			}
			continue
		}
		candidates = append(candidates, *res.Candidate)
	}

	return candidates, skips
}

// IsRosterSheet reports whether title names the roster tab
func IsRosterSheet(title, rosterSheet string) bool {
	if rosterSheet == "" {
		rosterSheet = DefaultRosterSheet
	}
	return strings.EqualFold(strings.TrimSpace(title), rosterSheet)
}
