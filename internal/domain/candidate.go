package domain

import "time"

// MatchCandidate is one parsed spreadsheet row, not yet persisted
type MatchCandidate struct {
	MatchID        string     `json:"matchId"`
	MatchNumber    string     `json:"matchNumber"`
	Category       string     `json:"category"`
	Phase          string     `json:"phase"`
	Date           *time.Time `json:"date"`
	Time           string     `json:"time"`
	Court          string     `json:"court"`
	SheetName      string     `json:"sheetName"`
	SpreadsheetRow int        `json:"spreadsheetRow"`
	TeamAName      string     `json:"teamA"`
	TeamBName      string     `json:"teamB"`
	TeamACode      TeamCode   `json:"teamACode"`
	TeamBCode      TeamCode   `json:"teamBCode"`
	OfficialScoreA []string   `json:"officialScoreA"`
	OfficialScoreB []string   `json:"officialScoreB"`
	OfficialResult Result     `json:"officialResult"`
	IsGoldenSet    bool       `json:"isGoldenSet"`
}
