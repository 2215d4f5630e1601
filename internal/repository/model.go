package repository

import "time"

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// Terminal reports whether no further status transitions are permitted.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

type TranscriptionJob struct {
	ID            string
	Status        JobStatus
	Transcript    string
	ErrorReason   string
	ProviderJobID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
