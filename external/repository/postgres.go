package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/siriusverse/voicebridge/internal/repository"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateJob(ctx context.Context, input repository.CreateJobInput) (*repository.TranscriptionJob, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO transcription_jobs (id, status, created_at, updated_at)
		 VALUES ($1, 'pending', $2, $2)
		 RETURNING id, status, created_at, updated_at`,
		uuid.NewString(), input.CreatedAt)
	var j repository.TranscriptionJob
	if err := row.Scan(&j.ID, &j.Status, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *PostgresRepository) GetJob(ctx context.Context, jobID string) (*repository.TranscriptionJob, error) {
	return r.getByColumn(ctx, "id", jobID)
}

func (r *PostgresRepository) GetJobByProviderID(ctx context.Context, providerJobID string) (*repository.TranscriptionJob, error) {
	return r.getByColumn(ctx, "provider_job_id", providerJobID)
}

func (r *PostgresRepository) getByColumn(ctx context.Context, column, value string) (*repository.TranscriptionJob, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, status, COALESCE(transcript, ''), COALESCE(error_reason, ''), COALESCE(provider_job_id, ''), created_at, updated_at
		 FROM transcription_jobs WHERE `+column+` = $1
		 LIMIT 1`,
		value)
	var j repository.TranscriptionJob
	err := row.Scan(&j.ID, &j.Status, &j.Transcript, &j.ErrorReason, &j.ProviderJobID, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &j, nil
}

func (r *PostgresRepository) MarkProcessing(ctx context.Context, jobID string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE transcription_jobs SET status = 'processing', updated_at = $2
		 WHERE id = $1 AND status = 'pending'`,
		jobID, at)
	return err
}

func (r *PostgresRepository) SetProviderJobID(ctx context.Context, jobID, providerJobID string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE transcription_jobs SET provider_job_id = $2, updated_at = $3
		 WHERE id = $1 AND provider_job_id IS NULL`,
		jobID, providerJobID, at)
	return err
}

func (r *PostgresRepository) CompleteJob(ctx context.Context, input repository.CompleteJobInput) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE transcription_jobs SET status = 'completed', transcript = $2, updated_at = $3
		 WHERE id = $1 AND status NOT IN ('completed', 'error')`,
		input.JobID, input.Transcript, input.CompletedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) FailJob(ctx context.Context, input repository.FailJobInput) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE transcription_jobs SET status = 'error', error_reason = $2, updated_at = $3
		 WHERE id = $1 AND status NOT IN ('completed', 'error')`,
		input.JobID, input.Reason, input.FailedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
