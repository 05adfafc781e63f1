package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"leaguesync/internal/domain"
	"leaguesync/pkg/database"
)

type PostgresUserRepository struct {
	db *database.PostgresDB
}

func NewUserRepository(db *database.PostgresDB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	query := `
		SELECT u.id, u.name, COALESCE(u.push_token, ''),
		       COALESCE(array_agg(s.team_id ORDER BY s.team_id) FILTER (WHERE s.team_id IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_team_subscriptions s ON s.user_id = u.id
		WHERE u.id = $1
		GROUP BY u.id
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Name, &u.PushToken, &u.SubscribedTeams)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// ListSubscribers returns each user subscribed to any of teamIDs exactly once
func (r *PostgresUserRepository) ListSubscribers(ctx context.Context, teamIDs []string) ([]*domain.User, error) {
	query := `
		SELECT u.id, u.name, COALESCE(u.push_token, ''),
		       array_agg(s.team_id ORDER BY s.team_id)
		FROM users u
		JOIN user_team_subscriptions s ON s.user_id = u.id
		WHERE u.id IN (SELECT user_id FROM user_team_subscriptions WHERE team_id = ANY($1))
		GROUP BY u.id
		ORDER BY u.id
	`

	rows, err := r.db.Pool.Query(ctx, query, teamIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.PushToken, &u.SubscribedTeams); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// Save upserts the user and replaces its subscriptions
func (r *PostgresUserRepository) Save(ctx context.Context, u *domain.User) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, name, push_token)
			VALUES ($1, $2, NULLIF($3, ''))
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, push_token = EXCLUDED.push_token
		`, u.ID, u.Name, u.PushToken)
		if err != nil {
			return fmt.Errorf("failed to save user: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM user_team_subscriptions WHERE user_id = $1`, u.ID); err != nil {
			return fmt.Errorf("failed to clear subscriptions: %w", err)
		}

		for _, teamID := range u.SubscribedTeams {
			_, err := tx.Exec(ctx, `
				INSERT INTO user_team_subscriptions (user_id, team_id)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING
			`, u.ID, teamID)
			if err != nil {
				return fmt.Errorf("failed to save subscription: %w", err)
			}
		}
		return nil
	})
}
