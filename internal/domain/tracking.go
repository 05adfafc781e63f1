package domain

import "time"

// SheetTracking is the last fingerprint seen for one (spreadsheet, category)
type SheetTracking struct {
	SpreadsheetID string    `json:"spreadsheet_id"`
	Category      string    `json:"category"`
	MatchesHash   string    `json:"matches_hash"`
	LastChecked   time.Time `json:"last_checked"`
	LastModified  time.Time `json:"last_modified"`
}
