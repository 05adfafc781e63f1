package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"leaguesync/internal/domain"
	"leaguesync/pkg/database"
)

type PostgresMatchRepository struct {
	db *database.PostgresDB
}

func NewMatchRepository(db *database.PostgresDB) *PostgresMatchRepository {
	return &PostgresMatchRepository{db: db}
}

const matchColumns = `
	id, match_id, category, phase, match_date, match_time, court, sheet_name, spreadsheet_row,
	team_a_id, team_b_id, team_a_code, team_b_code,
	official_score_a, official_score_b, official_result,
	user_score_a, user_score_b, confirmed_by_team_a, confirmed_by_team_b, result,
	is_golden_set, COALESCE(related_match_id, ''), version, created_at, updated_at`

func scanMatch(row pgx.Row) (*domain.Match, error) {
	var (
		m                      domain.Match
		teamACode, teamBCode   string
		officialResult, result string
	)

	err := row.Scan(
		&m.ID,
		&m.MatchID,
		&m.Category,
		&m.Phase,
		&m.Date,
		&m.Time,
		&m.Court,
		&m.SheetName,
		&m.SpreadsheetRow,
		&m.TeamAID,
		&m.TeamBID,
		&teamACode,
		&teamBCode,
		&m.OfficialScoreA,
		&m.OfficialScoreB,
		&officialResult,
		&m.UserScoreA,
		&m.UserScoreB,
		&m.ConfirmedByTeamA,
		&m.ConfirmedByTeamB,
		&result,
		&m.IsGoldenSet,
		&m.RelatedMatchID,
		&m.Version,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.TeamACode = domain.TeamCode(teamACode)
	m.TeamBCode = domain.TeamCode(teamBCode)
	m.OfficialResult = domain.Result(officialResult)
	m.Result = domain.Result(result)
	return &m, nil
}

func (r *PostgresMatchRepository) getOne(ctx context.Context, where string, arg interface{}) (*domain.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE ` + where

	match, err := scanMatch(r.db.Pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

func (r *PostgresMatchRepository) GetByID(ctx context.Context, id string) (*domain.Match, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *PostgresMatchRepository) GetByMatchID(ctx context.Context, matchID string) (*domain.Match, error) {
	return r.getOne(ctx, `match_id = $1`, matchID)
}

func (r *PostgresMatchRepository) ListByCategory(ctx context.Context, category string) ([]*domain.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE category = $1 ORDER BY match_id`

	rows, err := r.db.Pool.Query(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []*domain.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *PostgresMatchRepository) UpsertSynced(ctx context.Context, m *domain.Match) (*domain.Match, error) {
	query := `
		INSERT INTO matches (
			id, match_id, category, phase, match_date, match_time, court, sheet_name, spreadsheet_row,
			team_a_id, team_b_id, team_a_code, team_b_code,
			official_score_a, official_score_b, official_result,
			user_score_a, user_score_b, confirmed_by_team_a, confirmed_by_team_b, result,
			is_golden_set, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			'{}', '{}', FALSE, FALSE, 'pending', $17, 0, $18, $19)
		ON CONFLICT (match_id) DO UPDATE SET
			category = EXCLUDED.category,
			phase = EXCLUDED.phase,
			match_date = EXCLUDED.match_date,
			match_time = EXCLUDED.match_time,
			court = EXCLUDED.court,
			sheet_name = EXCLUDED.sheet_name,
			spreadsheet_row = EXCLUDED.spreadsheet_row,
			team_a_id = EXCLUDED.team_a_id,
			team_b_id = EXCLUDED.team_b_id,
			team_a_code = EXCLUDED.team_a_code,
			team_b_code = EXCLUDED.team_b_code,
			official_score_a = EXCLUDED.official_score_a,
			official_score_b = EXCLUDED.official_score_b,
			official_result = EXCLUDED.official_result,
			is_golden_set = EXCLUDED.is_golden_set,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + matchColumns

	stored, err := scanMatch(r.db.Pool.QueryRow(ctx, query,
		m.ID,
		m.MatchID,
		m.Category,
		m.Phase,
		m.Date,
		m.Time,
		m.Court,
		m.SheetName,
		m.SpreadsheetRow,
		m.TeamAID,
		m.TeamBID,
		string(m.TeamACode),
		string(m.TeamBCode),
		nonNil(m.OfficialScoreA),
		nonNil(m.OfficialScoreB),
		string(m.OfficialResult),
		m.IsGoldenSet,
		m.CreatedAt,
		m.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert match: %w", err)
	}
	return stored, nil
}

func (r *PostgresMatchRepository) SetRelated(ctx context.Context, matchID, relatedID string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE matches SET related_match_id = $2 WHERE match_id = $1`,
		matchID, relatedID)
	if err != nil {
		return fmt.Errorf("failed to link match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to link match: %s not found", matchID)
	}
	return nil
}

func (r *PostgresMatchRepository) UpdateResult(ctx context.Context, m *domain.Match, expectedVersion int64) error {
	query := `
		UPDATE matches SET
			user_score_a = $2,
			user_score_b = $3,
			confirmed_by_team_a = $4,
			confirmed_by_team_b = $5,
			result = $6,
			version = version + 1,
			updated_at = $7
		WHERE id = $1 AND version = $8
		RETURNING version
	`

	err := r.db.Pool.QueryRow(ctx, query,
		m.ID,
		nonNil(m.UserScoreA),
		nonNil(m.UserScoreB),
		m.ConfirmedByTeamA,
		m.ConfirmedByTeamB,
		string(m.Result),
		m.UpdatedAt,
		expectedVersion,
	).Scan(&m.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update match result: %w", err)
	}
	return nil
}

// nonNil keeps NOT NULL text[] columns from receiving NULL
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
