package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"leaguesync/internal/domain"
	"leaguesync/pkg/database"
)

type PostgresTeamRepository struct {
	db *database.PostgresDB
}

func NewTeamRepository(db *database.PostgresDB) *PostgresTeamRepository {
	return &PostgresTeamRepository{db: db}
}

const teamColumns = `id, name, category, credential_hash, created_at, updated_at`

func scanTeam(row pgx.Row) (*domain.Team, error) {
	var t domain.Team
	err := row.Scan(&t.ID, &t.Name, &t.Category, &t.CredentialHash, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PostgresTeamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`

	team, err := scanTeam(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

func (r *PostgresTeamRepository) FindByNameAndCategory(ctx context.Context, name, category string) (*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE name = $1 AND category = $2`

	team, err := scanTeam(r.db.Pool.QueryRow(ctx, query, name, category))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find team: %w", err)
	}
	return team, nil
}

func (r *PostgresTeamRepository) ListByCategory(ctx context.Context, category string) ([]*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE category = $1 ORDER BY name`

	rows, err := r.db.Pool.Query(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []*domain.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

func (r *PostgresTeamRepository) Upsert(ctx context.Context, team *domain.Team) (*domain.Team, bool, error) {
	query := `
		INSERT INTO teams (id, name, category, credential_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (name, category) DO NOTHING
		RETURNING ` + teamColumns

	stored, err := scanTeam(r.db.Pool.QueryRow(ctx, query,
		team.ID,
		team.Name,
		team.Category,
		team.CredentialHash,
		team.CreatedAt,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to upsert team: %w", err)
	}

	existing, err := r.FindByNameAndCategory(ctx, team.Name, team.Category)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("team %q vanished during upsert", team.Name)
	}
	return existing, false, nil
}
