package repository

import (
	"context"
	"errors"
	"time"

	"leaguesync/internal/domain"
	"leaguesync/pkg/database"
)

// ErrVersionConflict is returned by MatchRepository.UpdateResult when the
// stored version moved since the caller read the match.
var ErrVersionConflict = errors.New("match version conflict")

// Lookups return (nil, nil) when the record does not exist.

// TeamRepository stores teams keyed by (name, category)
type TeamRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	FindByNameAndCategory(ctx context.Context, name, category string) (*domain.Team, error)
	ListByCategory(ctx context.Context, category string) ([]*domain.Team, error)

	// Upsert inserts team unless (name, category) already exists and returns
	// the stored record. An existing team is never modified.
	Upsert(ctx context.Context, team *domain.Team) (stored *domain.Team, created bool, err error)
}

// MatchRepository stores matches keyed by MatchID
type MatchRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Match, error)
	GetByMatchID(ctx context.Context, matchID string) (*domain.Match, error)
	ListByCategory(ctx context.Context, category string) ([]*domain.Match, error)

	// UpsertSynced writes the fields owned by the sync path. On update it keeps
	// ID, CreatedAt, the user result fields, RelatedMatchID and Version.
	UpsertSynced(ctx context.Context, match *domain.Match) (*domain.Match, error)

	// SetRelated points the match with matchID at relatedID
	SetRelated(ctx context.Context, matchID, relatedID string) error

	// UpdateResult writes the user result fields and bumps Version, provided the
	// stored Version equals expectedVersion.
	UpdateResult(ctx context.Context, match *domain.Match, expectedVersion int64) error
}

// TrackingRepository stores one fingerprint record per (spreadsheet, category)
type TrackingRepository interface {
	Get(ctx context.Context, spreadsheetID, category string) (*domain.SheetTracking, error)
	Save(ctx context.Context, tracking *domain.SheetTracking) error
	Delete(ctx context.Context, spreadsheetID, category string) error
}

// NotificationRepository stores notification records and their delivery state
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)

	// FindRecent returns the newest notification of typ for (userID, matchID) created at or after since
	FindRecent(ctx context.Context, userID, matchID string, typ domain.NotificationType, since time.Time) (*domain.Notification, error)

	// Claim leases one pending record for delivery. It reports false when the
	// record is no longer pending, e.g. a delivery pass already holds it.
	Claim(ctx context.Context, id string, at time.Time) (bool, error)

	// ClaimDeliverable atomically leases up to limit records, oldest first:
	// pending ones, failed ones with fewer than maxAttempts attempts, and
	// sending ones whose lease was taken before staleBefore.
	ClaimDeliverable(ctx context.Context, maxAttempts, limit int, at, staleBefore time.Time) ([]*domain.Notification, error)

	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, details string) error

	// DeleteOlderThan removes delivered or exhausted records created before cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time, maxAttempts int) (int64, error)
}

// UserRepository resolves notification recipients
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	ListSubscribers(ctx context.Context, teamIDs []string) ([]*domain.User, error)
	Save(ctx context.Context, user *domain.User) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Teams         TeamRepository
	Matches       MatchRepository
	Tracking      TrackingRepository
	Notifications NotificationRepository
	Users         UserRepository
}

// NewPostgresRepositories builds every repository on one connection pool
func NewPostgresRepositories(db *database.PostgresDB) *Repositories {
	return &Repositories{
		Teams:         NewTeamRepository(db),
		Matches:       NewMatchRepository(db),
		Tracking:      NewTrackingRepository(db),
		Notifications: NewNotificationRepository(db),
		Users:         NewUserRepository(db),
	}
}
