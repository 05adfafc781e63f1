package domain

import "time"

// MatchEventsTopic is the bus topic business operations publish to
const MatchEventsTopic = "match.events"

// MatchEvent asks the fanout engine to notify subscribers about a match.
// MatchID is the record id (Match.ID). When Teams is non-empty only
// subscribers of those teams are notified. ActorTeam is the team whose
// action caused the event, empty for spreadsheet changes.
type MatchEvent struct {
	Type       NotificationType `json:"type"`
	MatchID    string           `json:"match_id"`
	Teams      []string         `json:"teams,omitempty"`
	ActorTeam  string           `json:"actor_team,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
