package domain

import (
	"slices"
	"time"
)

// Result is the outcome of a match, official or team-submitted
type Result string

const (
	ResultPending Result = "pending"
	ResultTeamA   Result = "teamA"
	ResultTeamB   Result = "teamB"
	ResultDraw    Result = "draw"
)

// Side identifies one of the two participants
type Side int

const (
	SideNone Side = iota
	SideA
	SideB
)

// Other returns the opposing side
func (s Side) Other() Side {
	switch s {
	case SideA:
		return SideB
	case SideB:
		return SideA
	}
	return SideNone
}

// Match is keyed by MatchID. The sync path owns provenance, team references and
// the official result; the result lifecycle owns the user result fields.
type Match struct {
	ID             string     `json:"id"`
	MatchID        string     `json:"match_id"`
	Category       string     `json:"category"`
	Phase          string     `json:"phase"`
	Date           *time.Time `json:"date,omitempty"`
	Time           string     `json:"time"`
	Court          string     `json:"court"`
	SheetName      string     `json:"sheet_name"`
	SpreadsheetRow int        `json:"spreadsheet_row"`

	TeamAID   string   `json:"team_a_id"`
	TeamBID   string   `json:"team_b_id"`
	TeamACode TeamCode `json:"team_a_code"`
	TeamBCode TeamCode `json:"team_b_code"`

	OfficialScoreA []string `json:"official_score_a"`
	OfficialScoreB []string `json:"official_score_b"`
	OfficialResult Result   `json:"official_result"`

	UserScoreA       []string `json:"user_score_a"`
	UserScoreB       []string `json:"user_score_b"`
	ConfirmedByTeamA bool     `json:"confirmed_by_team_a"`
	ConfirmedByTeamB bool     `json:"confirmed_by_team_b"`
	Result           Result   `json:"result"`

	IsGoldenSet    bool   `json:"is_golden_set"`
	RelatedMatchID string `json:"related_match_id,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SideOf returns which side teamID plays on, or SideNone
func (m *Match) SideOf(teamID string) Side {
	switch teamID {
	case m.TeamAID:
		return SideA
	case m.TeamBID:
		return SideB
	}
	return SideNone
}

// TeamID returns the team playing on side
func (m *Match) TeamID(side Side) string {
	switch side {
	case SideA:
		return m.TeamAID
	case SideB:
		return m.TeamBID
	}
	return ""
}

// ConfirmedBy returns the confirmation flag of side
func (m *Match) ConfirmedBy(side Side) bool {
	switch side {
	case SideA:
		return m.ConfirmedByTeamA
	case SideB:
		return m.ConfirmedByTeamB
	}
	return false
}

// SetConfirmed sets the confirmation flag of side
func (m *Match) SetConfirmed(side Side, v bool) {
	switch side {
	case SideA:
		m.ConfirmedByTeamA = v
	case SideB:
		m.ConfirmedByTeamB = v
	}
}

// FullyConfirmed is true once both teams confirmed the submitted result
func (m *Match) FullyConfirmed() bool {
	return m.ConfirmedByTeamA && m.ConfirmedByTeamB
}

// HasOfficialScore reports whether at least one set was read from the sheet
func (m *Match) HasOfficialScore() bool {
	return len(m.OfficialScoreA) > 0 && len(m.OfficialScoreB) > 0
}

// SameSchedule compares the fields a "match scheduled" notification is about
func (m *Match) SameSchedule(o *Match) bool {
	return sameDate(m.Date, o.Date) && m.Time == o.Time && m.Court == o.Court
}

// SameOfficialResult compares the official score and result
func (m *Match) SameOfficialResult(o *Match) bool {
	return slices.Equal(m.OfficialScoreA, o.OfficialScoreA) &&
		slices.Equal(m.OfficialScoreB, o.OfficialScoreB) &&
		m.OfficialResult == o.OfficialResult
}

// SameSyncFields compares every field the sync path writes
func (m *Match) SameSyncFields(o *Match) bool {
	return m.MatchID == o.MatchID &&
		m.Category == o.Category &&
		m.Phase == o.Phase &&
		m.SheetName == o.SheetName &&
		m.SpreadsheetRow == o.SpreadsheetRow &&
		m.TeamAID == o.TeamAID &&
		m.TeamBID == o.TeamBID &&
		m.TeamACode == o.TeamACode &&
		m.TeamBCode == o.TeamBCode &&
		m.IsGoldenSet == o.IsGoldenSet &&
		m.SameSchedule(o) &&
		m.SameOfficialResult(o)
}

// Clone returns a deep copy
func (m *Match) Clone() *Match {
	c := *m
	if m.Date != nil {
		d := *m.Date
		c.Date = &d
	}
	c.OfficialScoreA = slices.Clone(m.OfficialScoreA)
	c.OfficialScoreB = slices.Clone(m.OfficialScoreB)
	c.UserScoreA = slices.Clone(m.UserScoreA)
	c.UserScoreB = slices.Clone(m.UserScoreB)
	return &c
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
