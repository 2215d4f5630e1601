package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/siriusverse/voicebridge/internal/config"
	"github.com/siriusverse/voicebridge/internal/metrics"
	"github.com/siriusverse/voicebridge/internal/notifier"
	"github.com/siriusverse/voicebridge/internal/repository"
	"github.com/siriusverse/voicebridge/internal/transcriber"
)

const timeoutReason = "transcription timed out"

// Manager owns the transcription job lifecycle: it creates the pending record,
// drives the provider engine in the background, and applies terminal results
// arriving from either the poll loop or the provider webhook. Status
// transitions are monotonic; the store's not-already-terminal guard makes
// duplicate completion signals no-ops.
type Manager struct {
	cfg      *config.Config
	repo     repository.Repository
	engine   transcriber.Engine
	notifier notifier.Sender
	metrics  *metrics.Metrics
}

// ProviderNotification is one status update pushed by the provider webhook.
type ProviderNotification struct {
	ProviderJobID string
	Status        string
	Text          string
	Error         string
}

func NewManager(cfg *config.Config, repo repository.Repository, engine transcriber.Engine, sender notifier.Sender, m *metrics.Metrics) *Manager {
	return &Manager{
		cfg:      cfg,
		repo:     repo,
		engine:   engine,
		notifier: sender,
		metrics:  m,
	}
}

// Submit creates a pending job and returns its id without waiting for the
// provider. The upload and everything after it run detached; failures there
// are recorded in the store, never returned to the submitting caller.
func (m *Manager) Submit(ctx context.Context, audio []byte) (string, error) {
	created, err := m.repo.CreateJob(ctx, repository.CreateJobInput{CreatedAt: time.Now()})
	if err != nil {
		return "", err
	}
	m.metrics.JobsSubmitted.Inc()
	m.metrics.JobsInFlight.Inc()
	slog.Info("transcription job created", "job_id", created.ID, "audio_bytes", len(audio))

	go m.drive(created.ID, audio)
	return created.ID, nil
}

func (m *Manager) GetJob(ctx context.Context, jobID string) (*repository.TranscriptionJob, error) {
	return m.repo.GetJob(ctx, jobID)
}

func (m *Manager) drive(jobID string, audio []byte) {
	ctx := context.Background()

	if err := m.repo.MarkProcessing(ctx, jobID, time.Now()); err != nil {
		slog.Error("failed to mark job processing", "error", err, "job_id", jobID)
	}

	providerJobID, err := m.engine.Submit(ctx, audio)
	if err != nil {
		slog.Error("provider submit failed", "error", err, "job_id", jobID)
		m.failJob(ctx, jobID, "Upload failed: "+err.Error(), false)
		return
	}
	slog.Info("provider job created", "job_id", jobID, "provider_job_id", providerJobID)

	if err := m.repo.SetProviderJobID(ctx, jobID, providerJobID, time.Now()); err != nil {
		slog.Error("failed to store provider job id", "error", err, "job_id", jobID, "provider_job_id", providerJobID)
	}

	if m.cfg.CompletionMode == config.CompletionModePoll {
		m.pollUntilTerminal(ctx, jobID, providerJobID)
	}
	// Webhook mode: the provider pushes the terminal state to the webhook
	// endpoint, which lands in HandleProviderNotification.
}

func (m *Manager) pollUntilTerminal(ctx context.Context, jobID, providerJobID string) {
	for attempt := 1; attempt <= m.cfg.PollMaxAttempts; attempt++ {
		time.Sleep(m.cfg.PollInterval)
		m.metrics.PollAttempts.Inc()

		res, err := m.engine.PollStatus(ctx, providerJobID)
		if err != nil {
			slog.Warn("provider status poll failed", "error", err, "job_id", jobID, "provider_job_id", providerJobID, "attempt", attempt)
			continue
		}

		switch res.State {
		case transcriber.StateCompleted:
			m.completeJob(ctx, jobID, res.Transcript)
			return
		case transcriber.StateFailed:
			m.failJob(ctx, jobID, res.Reason, false)
			return
		case transcriber.StateQueued, transcriber.StateProcessing:
			slog.Debug("job still in progress at provider", "job_id", jobID, "provider_job_id", providerJobID, "attempt", attempt)
		}
	}

	slog.Warn("poll budget exhausted", "job_id", jobID, "provider_job_id", providerJobID, "attempts", m.cfg.PollMaxAttempts)
	m.failJob(ctx, jobID, timeoutReason, true)
}

// HandleProviderNotification applies one webhook update. Unknown provider job
// ids are logged and ignored rather than rejected, since the provider may
// retry-deliver. Non-terminal updates are no-ops.
func (m *Manager) HandleProviderNotification(ctx context.Context, n ProviderNotification) error {
	j, err := m.repo.GetJobByProviderID(ctx, n.ProviderJobID)
	if err != nil {
		return err
	}
	if j == nil {
		slog.Warn("webhook notification for unknown provider job; ignoring", "provider_job_id", n.ProviderJobID, "status", n.Status)
		m.metrics.WebhookUnmatched.Inc()
		return nil
	}

	switch n.Status {
	case "completed":
		m.completeJob(ctx, j.ID, n.Text)
	case "error":
		reason := n.Error
		if reason == "" {
			reason = "provider reported an unspecified transcription error"
		}
		m.failJob(ctx, j.ID, reason, false)
	default:
		slog.Debug("non-terminal webhook update ignored", "job_id", j.ID, "provider_job_id", n.ProviderJobID, "status", n.Status)
	}
	return nil
}

func (m *Manager) completeJob(ctx context.Context, jobID, transcript string) {
	applied, err := m.repo.CompleteJob(ctx, repository.CompleteJobInput{
		JobID:       jobID,
		Transcript:  transcript,
		CompletedAt: time.Now(),
	})
	if err != nil {
		slog.Error("failed to complete job", "error", err, "job_id", jobID)
		return
	}
	if !applied {
		slog.Info("job already terminal; ignoring duplicate completion", "job_id", jobID)
		return
	}
	m.metrics.JobsCompleted.Inc()
	m.metrics.JobsInFlight.Dec()
	slog.Info("job completed", "job_id", jobID, "transcript_chars", len(transcript))

	go m.notifyResult(jobID, notifier.ResultPayload{
		JobID:      jobID,
		Status:     string(repository.JobStatusCompleted),
		Transcript: transcript,
	})
}

func (m *Manager) failJob(ctx context.Context, jobID, reason string, timedOut bool) {
	applied, err := m.repo.FailJob(ctx, repository.FailJobInput{
		JobID:    jobID,
		Reason:   reason,
		FailedAt: time.Now(),
	})
	if err != nil {
		slog.Error("failed to mark job errored", "error", err, "job_id", jobID, "reason", reason)
		return
	}
	if !applied {
		slog.Info("job already terminal; ignoring duplicate failure", "job_id", jobID, "reason", reason)
		return
	}
	m.metrics.JobsFailed.Inc()
	m.metrics.JobsInFlight.Dec()
	if timedOut {
		m.metrics.JobsTimedOut.Inc()
	}
	slog.Info("job failed", "job_id", jobID, "reason", reason, "timed_out", timedOut)

	go m.notifyResult(jobID, notifier.ResultPayload{
		JobID:  jobID,
		Status: string(repository.JobStatusError),
		Error:  reason,
	})
}

func (m *Manager) notifyResult(jobID string, payload notifier.ResultPayload) {
	if err := m.notifier.SendResult(context.Background(), payload); err != nil {
		slog.Error("failed to send result webhook", "error", err, "job_id", jobID)
	}
}
