package database

import (
	"context"
	"fmt"
)

// Column types are chosen to be valid on SQLite, PostgreSQL and MySQL.
// Timestamps are stored as RFC 3339 text.
var schema = []struct {
	table string
	ddl   string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(191) PRIMARY KEY,
			name VARCHAR(191) NOT NULL,
			points INTEGER NOT NULL DEFAULT 0,
			streak INTEGER NOT NULL DEFAULT 0,
			last_studied VARCHAR(40),
			updated_at VARCHAR(40) NOT NULL
		)
	`},
	{"user_progress", `
		CREATE TABLE IF NOT EXISTS user_progress (
			id VARCHAR(191) PRIMARY KEY,
			user_id VARCHAR(191) NOT NULL,
			topic_id VARCHAR(191) NOT NULL,
			mastery_level DOUBLE PRECISION NOT NULL DEFAULT 0,
			study_count INTEGER NOT NULL DEFAULT 0,
			confidence INTEGER NOT NULL DEFAULT 1,
			time_spent_minutes INTEGER NOT NULL DEFAULT 0,
			last_studied VARCHAR(40),
			updated_at VARCHAR(40) NOT NULL
		)
	`},
	{"achievements", `
		CREATE TABLE IF NOT EXISTS achievements (
			id VARCHAR(191) PRIMARY KEY,
			user_id VARCHAR(191) NOT NULL,
			achievement_id VARCHAR(191) NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			points INTEGER NOT NULL DEFAULT 0,
			earned_at VARCHAR(40) NOT NULL,
			updated_at VARCHAR(40) NOT NULL
		)
	`},
	{"challenges", `
		CREATE TABLE IF NOT EXISTS challenges (
			id VARCHAR(191) PRIMARY KEY,
			challenger_id VARCHAR(191) NOT NULL,
			challenged_id VARCHAR(191) NOT NULL,
			challenge_type VARCHAR(64) NOT NULL,
			description TEXT,
			target_value INTEGER NOT NULL,
			deadline VARCHAR(40) NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'active',
			winner_id VARCHAR(191),
			created_at VARCHAR(40) NOT NULL,
			completed_at VARCHAR(40),
			updated_at VARCHAR(40) NOT NULL
		)
	`},
}

// InitializeSchema creates the remote tables if they don't exist
func InitializeSchema(ctx context.Context, exec Executor) error {
	for _, t := range schema {
		if _, err := exec.Execute(ctx, t.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.table, err)
		}
	}
	return nil
}
