package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE job_status AS ENUM ('pending', 'processing', 'completed', 'error'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS transcription_jobs (
		id UUID PRIMARY KEY,
		status job_status NOT NULL DEFAULT 'pending',
		transcript TEXT,
		error_reason TEXT,
		provider_job_id TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_transcription_jobs_provider ON transcription_jobs (provider_job_id) WHERE provider_job_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_transcription_jobs_status ON transcription_jobs (status)`,
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
