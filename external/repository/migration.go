package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS meetings (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT 'Untitled Meeting',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		transcript JSONB NOT NULL DEFAULT '[]',
		summary TEXT NOT NULL DEFAULT '',
		key_points JSONB NOT NULL DEFAULT '[]',
		action_items JSONB NOT NULL DEFAULT '[]',
		decisions JSONB NOT NULL DEFAULT '[]',
		open_questions JSONB NOT NULL DEFAULT '[]',
		participants JSONB NOT NULL DEFAULT '[]',
		agenda JSONB NOT NULL DEFAULT '[]',
		previous_summary TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_meetings_updated ON meetings (updated_at DESC)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
