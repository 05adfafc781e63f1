package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"

	"leaguesync/internal/domain"
	"leaguesync/pkg/database"
)

type PostgresNotificationRepository struct {
	db *database.PostgresDB
}

func NewNotificationRepository(db *database.PostgresDB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

const notificationColumns = `
	id, user_id, team_id, COALESCE(match_id, ''), type, title, message,
	status, read, sent_at, COALESCE(error_details, ''), attempts, claimed_at, created_at`

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var (
		n           domain.Notification
		typ, status string
	)
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.TeamID,
		&n.MatchID,
		&typ,
		&n.Title,
		&n.Message,
		&status,
		&n.Read,
		&n.SentAt,
		&n.ErrorDetails,
		&n.Attempts,
		&n.ClaimedAt,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.Type = domain.NotificationType(typ)
	n.Status = domain.NotificationStatus(status)
	return &n, nil
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, team_id, match_id, type, title, message, status, read, attempts, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		n.ID,
		n.UserID,
		n.TeamID,
		n.MatchID,
		string(n.Type),
		n.Title,
		n.Message,
		string(n.Status),
		n.Read,
		n.Attempts,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	n, err := scanNotification(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

func (r *PostgresNotificationRepository) FindRecent(ctx context.Context, userID, matchID string, typ domain.NotificationType, since time.Time) (*domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND match_id = $2 AND type = $3 AND created_at >= $4
		ORDER BY created_at DESC
		LIMIT 1
	`

	n, err := scanNotification(r.db.Pool.QueryRow(ctx, query, userID, matchID, string(typ), since))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find recent notification: %w", err)
	}
	return n, nil
}

func (r *PostgresNotificationRepository) Claim(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'sending', claimed_at = $2
		WHERE id = $1 AND status = 'pending'
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to claim notification: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresNotificationRepository) ClaimDeliverable(ctx context.Context, maxAttempts, limit int, at, staleBefore time.Time) ([]*domain.Notification, error) {
	// SKIP LOCKED lets concurrent passes on other replicas take disjoint batches
	query := `
		UPDATE notifications
		SET status = 'sending', claimed_at = $3
		WHERE id IN (
			SELECT id
			FROM notifications
			WHERE status = 'pending'
				OR (status = 'failed' AND attempts < $1)
				OR (status = 'sending' AND claimed_at < $4)
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + notificationColumns

	rows, err := r.db.Pool.Query(ctx, query, maxAttempts, limit, at, staleBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to claim deliverable notifications: %w", err)
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to claim deliverable notifications: %w", err)
	}

	// RETURNING does not keep the subquery order
	slices.SortStableFunc(out, func(a, b *domain.Notification) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (r *PostgresNotificationRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'sent', sent_at = $2, claimed_at = NULL, error_details = NULL, attempts = attempts + 1
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) MarkFailed(ctx context.Context, id string, details string) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'failed', claimed_at = NULL, error_details = $2, attempts = attempts + 1
		WHERE id = $1
	`, id, details)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time, maxAttempts int) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE created_at < $1 AND (status = 'sent' OR (status = 'failed' AND attempts >= $2))
	`, cutoff, maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}
