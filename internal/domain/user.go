package domain

// User only carries what recipient resolution and delivery need
type User struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	PushToken       string   `json:"push_token,omitempty"`
	SubscribedTeams []string `json:"subscribed_teams"`
}

// IsSubscribedTo reports whether teamID is among the user's subscriptions
func (u *User) IsSubscribedTo(teamID string) bool {
	for _, id := range u.SubscribedTeams {
		if id == teamID {
			return true
		}
	}
	return false
}
