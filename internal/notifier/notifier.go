package notifier

import "context"

// ResultPayload is the terminal outcome of a transcription job, pushed to a
// downstream consumer once the job completes or fails.
type ResultPayload struct {
	JobID      string `json:"id"`
	Status     string `json:"status"`
	Transcript string `json:"transcript,omitempty"`
	Error      string `json:"error,omitempty"`
}

type Sender interface {
	SendResult(ctx context.Context, payload ResultPayload) error
}
