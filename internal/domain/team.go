package domain

import "time"

// Team is unique by (Name, Category). CredentialHash authorizes result submission.
type Team struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	CredentialHash string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TeamCode is the squad suffix parsed from "Team A", "Team B" or "Team G"
type TeamCode string

const (
	TeamCodeNone TeamCode = ""
	TeamCodeA    TeamCode = "A"
	TeamCodeB    TeamCode = "B"
	TeamCodeG    TeamCode = "G"
)
