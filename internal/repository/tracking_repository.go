package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"leaguesync/internal/domain"
	"leaguesync/pkg/database"
)

type PostgresTrackingRepository struct {
	db *database.PostgresDB
}

func NewTrackingRepository(db *database.PostgresDB) *PostgresTrackingRepository {
	return &PostgresTrackingRepository{db: db}
}

func (r *PostgresTrackingRepository) Get(ctx context.Context, spreadsheetID, category string) (*domain.SheetTracking, error) {
	var t domain.SheetTracking
	query := `
		SELECT spreadsheet_id, category, matches_hash, last_checked, last_modified
		FROM sheet_tracking
		WHERE spreadsheet_id = $1 AND category = $2
	`

	err := r.db.Pool.QueryRow(ctx, query, spreadsheetID, category).Scan(
		&t.SpreadsheetID,
		&t.Category,
		&t.MatchesHash,
		&t.LastChecked,
		&t.LastModified,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sheet tracking: %w", err)
	}
	return &t, nil
}

func (r *PostgresTrackingRepository) Save(ctx context.Context, t *domain.SheetTracking) error {
	query := `
		INSERT INTO sheet_tracking (spreadsheet_id, category, matches_hash, last_checked, last_modified)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (spreadsheet_id, category) DO UPDATE SET
			matches_hash = EXCLUDED.matches_hash,
			last_checked = EXCLUDED.last_checked,
			last_modified = EXCLUDED.last_modified
	`

	_, err := r.db.Pool.Exec(ctx, query, t.SpreadsheetID, t.Category, t.MatchesHash, t.LastChecked, t.LastModified)
	if err != nil {
		return fmt.Errorf("failed to save sheet tracking: %w", err)
	}
	return nil
}

func (r *PostgresTrackingRepository) Delete(ctx context.Context, spreadsheetID, category string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM sheet_tracking WHERE spreadsheet_id = $1 AND category = $2`,
		spreadsheetID, category)
	if err != nil {
		return fmt.Errorf("failed to delete sheet tracking: %w", err)
	}
	return nil
}
