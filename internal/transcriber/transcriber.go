package transcriber

import "context"

type State string

const (
	StateQueued     State = "queued"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Result is one observation of a remote transcription job. Transcript is only
// meaningful when State is StateCompleted, Reason only when State is
// StateFailed.
type Result struct {
	State      State
	Transcript string
	Reason     string
}

// Engine drives a remote speech-to-text service. Submit hands off the audio
// and returns the provider's job identifier; it performs no retries. PollStatus
// performs a single live status read for a previously submitted job.
type Engine interface {
	Submit(ctx context.Context, audio []byte) (string, error)
	PollStatus(ctx context.Context, providerJobID string) (Result, error)
}
