package domain

import "time"

// NotificationType enumerates the lifecycle events users are told about
type NotificationType string

const (
	NotificationMatchScheduled  NotificationType = "match_scheduled"
	NotificationMatchResult     NotificationType = "match_result"
	NotificationResultEntered   NotificationType = "result_entered"
	NotificationResultConfirmed NotificationType = "result_confirmed"
	NotificationResultRejected  NotificationType = "result_rejected"
)

// NotificationStatus tracks delivery
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	// NotificationSending marks a record leased by one delivery path
	NotificationSending NotificationStatus = "sending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

type Notification struct {
	ID           string             `json:"id"`
	UserID       string             `json:"user_id"`
	TeamID       string             `json:"team_id"`
	MatchID      string             `json:"match_id,omitempty"`
	Type         NotificationType   `json:"type"`
	Title        string             `json:"title"`
	Message      string             `json:"message"`
	Status       NotificationStatus `json:"status"`
	Read         bool               `json:"read"`
	SentAt       *time.Time         `json:"sent_at,omitempty"`
	ErrorDetails string             `json:"error_details,omitempty"`
	Attempts     int                `json:"attempts"`
	ClaimedAt    *time.Time         `json:"claimed_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}
