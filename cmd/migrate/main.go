package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

const usage = "Usage: go run ./cmd/migrate [up|drop]"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := run(ctx, conn, dropQueries); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := run(ctx, conn, createQueries); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

// run applies queries in one transaction
func run(ctx context.Context, conn *pgx.Conn, queries []string) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, query := range queries {
		if _, err := tx.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return tx.Commit(ctx)
}

var dropQueries = []string{
	`DROP TABLE IF EXISTS notifications CASCADE`,
	`DROP TABLE IF EXISTS user_team_subscriptions CASCADE`,
	`DROP TABLE IF EXISTS users CASCADE`,
	`DROP TABLE IF EXISTS sheet_tracking CASCADE`,
	`DROP TABLE IF EXISTS matches CASCADE`,
	`DROP TABLE IF EXISTS teams CASCADE`,
}

var createQueries = []string{
	`CREATE TABLE IF NOT EXISTS teams (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		credential_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (name, category)
	)`,

	`CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		match_id TEXT UNIQUE NOT NULL,
		category TEXT NOT NULL,
		phase TEXT NOT NULL DEFAULT '',
		match_date DATE,
		match_time TEXT NOT NULL DEFAULT '',
		court TEXT NOT NULL DEFAULT '',
		sheet_name TEXT NOT NULL,
		spreadsheet_row INTEGER NOT NULL,
		team_a_id TEXT NOT NULL REFERENCES teams(id),
		team_b_id TEXT NOT NULL REFERENCES teams(id),
		team_a_code TEXT NOT NULL DEFAULT '',
		team_b_code TEXT NOT NULL DEFAULT '',
		official_score_a TEXT[] NOT NULL DEFAULT '{}',
		official_score_b TEXT[] NOT NULL DEFAULT '{}',
		official_result TEXT NOT NULL DEFAULT 'pending',
		user_score_a TEXT[] NOT NULL DEFAULT '{}',
		user_score_b TEXT[] NOT NULL DEFAULT '{}',
		confirmed_by_team_a BOOLEAN NOT NULL DEFAULT FALSE,
		confirmed_by_team_b BOOLEAN NOT NULL DEFAULT FALSE,
		result TEXT NOT NULL DEFAULT 'pending',
		is_golden_set BOOLEAN NOT NULL DEFAULT FALSE,
		related_match_id TEXT,
		version BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_category ON matches(category)`,

	`CREATE TABLE IF NOT EXISTS sheet_tracking (
		spreadsheet_id TEXT NOT NULL,
		category TEXT NOT NULL,
		matches_hash TEXT NOT NULL,
		last_checked TIMESTAMPTZ NOT NULL,
		last_modified TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (spreadsheet_id, category)
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		push_token TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS user_team_subscriptions (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		team_id TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		PRIMARY KEY (user_id, team_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_team ON user_team_subscriptions(team_id)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		team_id TEXT NOT NULL,
		match_id TEXT,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		read BOOLEAN NOT NULL DEFAULT FALSE,
		sent_at TIMESTAMPTZ,
		error_details TEXT,
		attempts INTEGER NOT NULL DEFAULT 0,
		claimed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_dedup ON notifications(user_id, match_id, type, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications(status, created_at)`,
	`ALTER TABLE notifications ADD COLUMN IF NOT EXISTS claimed_at TIMESTAMPTZ`,
}
