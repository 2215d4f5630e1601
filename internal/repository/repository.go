package repository

import (
	"context"
	"time"
)

type CreateJobInput struct {
	CreatedAt time.Time
}

type CompleteJobInput struct {
	JobID       string
	Transcript  string
	CompletedAt time.Time
}

type FailJobInput struct {
	JobID    string
	Reason   string
	FailedAt time.Time
}

// Repository persists transcription jobs. Lookups return (nil, nil) when no
// job matches. CompleteJob and FailJob only write when the job is not already
// terminal and report whether the write was applied, so duplicate completion
// signals can be detected and ignored by the caller.
type Repository interface {
	CreateJob(ctx context.Context, input CreateJobInput) (*TranscriptionJob, error)
	GetJob(ctx context.Context, jobID string) (*TranscriptionJob, error)
	GetJobByProviderID(ctx context.Context, providerJobID string) (*TranscriptionJob, error)
	MarkProcessing(ctx context.Context, jobID string, at time.Time) error
	SetProviderJobID(ctx context.Context, jobID, providerJobID string, at time.Time) error
	CompleteJob(ctx context.Context, input CompleteJobInput) (bool, error)
	FailJob(ctx context.Context, input FailJobInput) (bool, error)
}
