package job

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/siriusverse/voicebridge/internal/config"
	"github.com/siriusverse/voicebridge/internal/metrics"
	"github.com/siriusverse/voicebridge/internal/notifier"
	"github.com/siriusverse/voicebridge/internal/repository"
	"github.com/siriusverse/voicebridge/internal/transcriber"
)

type memoryRepository struct {
	mu      sync.Mutex
	jobs    map[string]*repository.TranscriptionJob
	nextID  int
	history map[string][]repository.JobStatus
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		jobs:    make(map[string]*repository.TranscriptionJob),
		history: make(map[string][]repository.JobStatus),
	}
}

func (r *memoryRepository) CreateJob(_ context.Context, input repository.CreateJobInput) (*repository.TranscriptionJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	j := &repository.TranscriptionJob{
		ID:        fmt.Sprintf("job-%d", r.nextID),
		Status:    repository.JobStatusPending,
		CreatedAt: input.CreatedAt,
		UpdatedAt: input.CreatedAt,
	}
	r.jobs[j.ID] = j
	r.history[j.ID] = []repository.JobStatus{repository.JobStatusPending}
	return copyJob(j), nil
}

func (r *memoryRepository) GetJob(_ context.Context, jobID string) (*repository.TranscriptionJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return nil, nil
	}
	return copyJob(j), nil
}

func (r *memoryRepository) GetJobByProviderID(_ context.Context, providerJobID string) (*repository.TranscriptionJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.ProviderJobID == providerJobID && providerJobID != "" {
			return copyJob(j), nil
		}
	}
	return nil, nil
}

func (r *memoryRepository) MarkProcessing(_ context.Context, jobID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok || j.Status != repository.JobStatusPending {
		return nil
	}
	j.Status = repository.JobStatusProcessing
	j.UpdatedAt = at
	r.history[jobID] = append(r.history[jobID], repository.JobStatusProcessing)
	return nil
}

func (r *memoryRepository) SetProviderJobID(_ context.Context, jobID, providerJobID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok || j.ProviderJobID != "" {
		return nil
	}
	j.ProviderJobID = providerJobID
	j.UpdatedAt = at
	return nil
}

func (r *memoryRepository) CompleteJob(_ context.Context, input repository.CompleteJobInput) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[input.JobID]
	if !ok || j.Status.Terminal() {
		return false, nil
	}
	j.Status = repository.JobStatusCompleted
	j.Transcript = input.Transcript
	j.UpdatedAt = input.CompletedAt
	r.history[input.JobID] = append(r.history[input.JobID], repository.JobStatusCompleted)
	return true, nil
}

func (r *memoryRepository) FailJob(_ context.Context, input repository.FailJobInput) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[input.JobID]
	if !ok || j.Status.Terminal() {
		return false, nil
	}
	j.Status = repository.JobStatusError
	j.ErrorReason = input.Reason
	j.UpdatedAt = input.FailedAt
	r.history[input.JobID] = append(r.history[input.JobID], repository.JobStatusError)
	return true, nil
}

func (r *memoryRepository) statusHistory(jobID string) []repository.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]repository.JobStatus(nil), r.history[jobID]...)
}

func copyJob(j *repository.TranscriptionJob) *repository.TranscriptionJob {
	c := *j
	return &c
}

type mockEngine struct {
	mu          sync.Mutex
	submitErr   error
	submitGate  chan struct{}
	pollResults []transcriber.Result
	pollErr     error
	pollCalls   int
}

func (e *mockEngine) Submit(_ context.Context, _ []byte) (string, error) {
	if e.submitGate != nil {
		<-e.submitGate
	}
	if e.submitErr != nil {
		return "", e.submitErr
	}
	return "prov-1", nil
}

func (e *mockEngine) PollStatus(_ context.Context, _ string) (transcriber.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pollCalls++
	if e.pollErr != nil {
		return transcriber.Result{}, e.pollErr
	}
	if len(e.pollResults) == 0 {
		return transcriber.Result{State: transcriber.StateProcessing}, nil
	}
	res := e.pollResults[0]
	if len(e.pollResults) > 1 {
		e.pollResults = e.pollResults[1:]
	}
	return res, nil
}

func (e *mockEngine) polls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pollCalls
}

type mockNotifier struct {
	mu    sync.Mutex
	calls []notifier.ResultPayload
}

func (n *mockNotifier) SendResult(_ context.Context, payload notifier.ResultPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, payload)
	return nil
}

func newTestManager(repo repository.Repository, engine transcriber.Engine, sender notifier.Sender, mode string) *Manager {
	cfg := &config.Config{
		Env:                       "test",
		DefaultTranscribeLanguage: "es",
		TranscribeProvider:        config.ProviderAssemblyAI,
		CompletionMode:            mode,
		PollMaxAttempts:           3,
		PollInterval:              time.Millisecond,
	}
	m := metrics.New(prometheus.NewRegistry())
	return NewManager(cfg, repo, engine, sender, m)
}

func waitForTerminal(t *testing.T, repo repository.Repository, jobID string) *repository.TranscriptionJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		j, err := repo.GetJob(context.Background(), jobID)
		if err != nil {
			t.Fatalf("failed to read job: %v", err)
		}
		if j != nil && j.Status.Terminal() {
			return j
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", jobID)
	return nil
}

func TestSubmit_ReturnsBeforeTranscriptionCompletes(t *testing.T) {
	repo := newMemoryRepository()
	engine := &mockEngine{submitGate: make(chan struct{})}
	manager := newTestManager(repo, engine, &mockNotifier{}, config.CompletionModeWebhook)

	jobID, err := manager.Submit(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if jobID == "" {
		t.Fatal("expected a job id")
	}

	// The provider upload is still blocked, so the job must not be terminal.
	j, err := repo.GetJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("failed to read job: %v", err)
	}
	if j == nil {
		t.Fatal("expected job record to exist")
	}
	if j.Status.Terminal() {
		t.Fatalf("job terminal before provider finished: %s", j.Status)
	}

	close(engine.submitGate)
}

func TestDrive_UploadFailureMarksError(t *testing.T) {
	repo := newMemoryRepository()
	engine := &mockEngine{submitErr: errors.New("provider returned status 503")}
	manager := newTestManager(repo, engine, &mockNotifier{}, config.CompletionModePoll)

	jobID, err := manager.Submit(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	j := waitForTerminal(t, repo, jobID)
	if j.Status != repository.JobStatusError {
		t.Fatalf("unexpected status: %s", j.Status)
	}
	if !strings.HasPrefix(j.ErrorReason, "Upload failed: ") {
		t.Fatalf("unexpected error reason: %q", j.ErrorReason)
	}
	if got := engine.polls(); got != 0 {
		t.Fatalf("expected no polls after upload failure, got %d", got)
	}
}

func TestPoll_CompletedWritesTranscript(t *testing.T) {
	repo := newMemoryRepository()
	engine := &mockEngine{pollResults: []transcriber.Result{
		{State: transcriber.StateProcessing},
		{State: transcriber.StateCompleted, Transcript: "hola mundo"},
	}}
	sender := &mockNotifier{}
	manager := newTestManager(repo, engine, sender, config.CompletionModePoll)

	jobID, err := manager.Submit(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	j := waitForTerminal(t, repo, jobID)
	if j.Status != repository.JobStatusCompleted {
		t.Fatalf("unexpected status: %s", j.Status)
	}
	if j.Transcript != "hola mundo" {
		t.Fatalf("unexpected transcript: %q", j.Transcript)
	}
	if j.ProviderJobID != "prov-1" {
		t.Fatalf("unexpected provider job id: %q", j.ProviderJobID)
	}

	history := repo.statusHistory(jobID)
	want := []repository.JobStatus{repository.JobStatusPending, repository.JobStatusProcessing, repository.JobStatusCompleted}
	if len(history) != len(want) {
		t.Fatalf("unexpected transition history: %v", history)
	}
	for i := range want {
		if history[i] != want[i] {
			t.Fatalf("unexpected transition history: %v", history)
		}
	}
}

func TestPoll_ProviderErrorMarksJobFailed(t *testing.T) {
	repo := newMemoryRepository()
	engine := &mockEngine{pollResults: []transcriber.Result{
		{State: transcriber.StateFailed, Reason: "audio too short"},
	}}
	manager := newTestManager(repo, engine, &mockNotifier{}, config.CompletionModePoll)

	jobID, err := manager.Submit(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	j := waitForTerminal(t, repo, jobID)
	if j.Status != repository.JobStatusError {
		t.Fatalf("unexpected status: %s", j.Status)
	}
	if j.ErrorReason != "audio too short" {
		t.Fatalf("unexpected error reason: %q", j.ErrorReason)
	}
}

func TestPoll_BudgetExhaustionTimesOut(t *testing.T) {
	repo := newMemoryRepository()
	engine := &mockEngine{}
	manager := newTestManager(repo, engine, &mockNotifier{}, config.CompletionModePoll)

	jobID, err := manager.Submit(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	j := waitForTerminal(t, repo, jobID)
	if j.Status != repository.JobStatusError {
		t.Fatalf("unexpected status: %s", j.Status)
	}
	if j.ErrorReason != timeoutReason {
		t.Fatalf("unexpected error reason: %q", j.ErrorReason)
	}
	if got := engine.polls(); got != 3 {
		t.Fatalf("expected exactly 3 poll attempts, got %d", got)
	}
}

func TestPoll_TransportErrorsConsumeBudget(t *testing.T) {
	repo := newMemoryRepository()
	engine := &mockEngine{pollErr: errors.New("gateway timeout")}
	manager := newTestManager(repo, engine, &mockNotifier{}, config.CompletionModePoll)

	jobID, err := manager.Submit(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	j := waitForTerminal(t, repo, jobID)
	if j.ErrorReason != timeoutReason {
		t.Fatalf("unexpected error reason: %q", j.ErrorReason)
	}
}

func TestHandleProviderNotification_CompletesJob(t *testing.T) {
	repo := newMemoryRepository()
	engine := &mockEngine{}
	sender := &mockNotifier{}
	manager := newTestManager(repo, engine, sender, config.CompletionModeWebhook)

	jobID, err := manager.Submit(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	waitForProviderID(t, repo, jobID)

	err = manager.HandleProviderNotification(context.Background(), ProviderNotification{
		ProviderJobID: "prov-1",
		Status:        "completed",
		Text:          "hola mundo",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	j, err := repo.GetJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("failed to read job: %v", err)
	}
	if j.Status != repository.JobStatusCompleted || j.Transcript != "hola mundo" {
		t.Fatalf("unexpected job state: %+v", j)
	}
}

func TestHandleProviderNotification_DuplicateTerminalIgnored(t *testing.T) {
	repo := newMemoryRepository()
	manager := newTestManager(repo, &mockEngine{}, &mockNotifier{}, config.CompletionModeWebhook)

	jobID, err := manager.Submit(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	waitForProviderID(t, repo, jobID)

	first := ProviderNotification{ProviderJobID: "prov-1", Status: "completed", Text: "hola mundo"}
	if err := manager.HandleProviderNotification(context.Background(), first); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// A retry delivery with different text must not overwrite the result.
	second := ProviderNotification{ProviderJobID: "prov-1", Status: "error", Error: "late failure"}
	if err := manager.HandleProviderNotification(context.Background(), second); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	j, err := repo.GetJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("failed to read job: %v", err)
	}
	if j.Status != repository.JobStatusCompleted || j.Transcript != "hola mundo" || j.ErrorReason != "" {
		t.Fatalf("duplicate delivery mutated job: %+v", j)
	}
}

func TestHandleProviderNotification_UnknownProviderJobIgnored(t *testing.T) {
	repo := newMemoryRepository()
	manager := newTestManager(repo, &mockEngine{}, &mockNotifier{}, config.CompletionModeWebhook)

	err := manager.HandleProviderNotification(context.Background(), ProviderNotification{
		ProviderJobID: "prov-unknown",
		Status:        "completed",
		Text:          "hola",
	})
	if err != nil {
		t.Fatalf("expected unknown provider job to be ignored, got %v", err)
	}
}

func TestHandleProviderNotification_IntermediateUpdateIsNoOp(t *testing.T) {
	repo := newMemoryRepository()
	manager := newTestManager(repo, &mockEngine{}, &mockNotifier{}, config.CompletionModeWebhook)

	jobID, err := manager.Submit(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	waitForProviderID(t, repo, jobID)

	err = manager.HandleProviderNotification(context.Background(), ProviderNotification{
		ProviderJobID: "prov-1",
		Status:        "processing",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	j, err := repo.GetJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("failed to read job: %v", err)
	}
	if j.Status != repository.JobStatusProcessing {
		t.Fatalf("unexpected status after intermediate update: %s", j.Status)
	}
}

func TestTerminalJob_NotifiesResultWebhook(t *testing.T) {
	repo := newMemoryRepository()
	engine := &mockEngine{pollResults: []transcriber.Result{
		{State: transcriber.StateCompleted, Transcript: "hola mundo"},
	}}
	sender := &mockNotifier{}
	manager := newTestManager(repo, engine, sender, config.CompletionModePoll)

	jobID, err := manager.Submit(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	waitForTerminal(t, repo, jobID)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sender.mu.Lock()
		n := len(sender.calls)
		sender.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.calls) != 1 {
		t.Fatalf("expected one result notification, got %d", len(sender.calls))
	}
	got := sender.calls[0]
	if got.JobID != jobID || got.Status != "completed" || got.Transcript != "hola mundo" {
		t.Fatalf("unexpected notification payload: %+v", got)
	}
}

func waitForProviderID(t *testing.T, repo repository.Repository, jobID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		j, err := repo.GetJob(context.Background(), jobID)
		if err != nil {
			t.Fatalf("failed to read job: %v", err)
		}
		if j != nil && j.ProviderJobID != "" {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("job %s never received a provider job id", jobID)
}
