package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/siriusverse/voicebridge/internal/transcriber"
)

const (
	uploadPath     = "/v2/upload"
	transcriptPath = "/v2/transcript"
)

type AssemblyAIConfig struct {
	APIKey        string
	BaseURL       string
	Language      string
	WebhookURL    string
	WebhookSecret string
}

type AssemblyAIEngine struct {
	apiKey        string
	baseURL       string
	language      string
	webhookURL    string
	webhookSecret string
	client        *http.Client
}

func NewAssemblyAIEngine(cfg AssemblyAIConfig) transcriber.Engine {
	return &AssemblyAIEngine{
		apiKey:        cfg.APIKey,
		baseURL:       cfg.BaseURL,
		language:      cfg.Language,
		webhookURL:    cfg.WebhookURL,
		webhookSecret: cfg.WebhookSecret,
		client:        &http.Client{},
	}
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type createTranscriptRequest struct {
	AudioURL              string `json:"audio_url"`
	LanguageCode          string `json:"language_code"`
	WebhookURL            string `json:"webhook_url,omitempty"`
	WebhookAuthHeaderName string `json:"webhook_auth_header_name,omitempty"`
	WebhookAuthHeaderVal  string `json:"webhook_auth_header_value,omitempty"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

func (e *AssemblyAIEngine) Submit(ctx context.Context, audio []byte) (string, error) {
	uploadURL, err := e.uploadAudio(ctx, audio)
	if err != nil {
		return "", err
	}
	return e.createTranscript(ctx, uploadURL)
}

func (e *AssemblyAIEngine) uploadAudio(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+uploadPath, bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", e.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		return "", fmt.Errorf("upload audio: %s", readErrorDetail(resp))
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("upload audio: decode response: %w", err)
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("upload audio: provider returned no upload url")
	}
	return out.UploadURL, nil
}

func (e *AssemblyAIEngine) createTranscript(ctx context.Context, audioURL string) (string, error) {
	payload := createTranscriptRequest{
		AudioURL:     audioURL,
		LanguageCode: e.language,
	}
	if e.webhookURL != "" {
		payload.WebhookURL = e.webhookURL
		payload.WebhookAuthHeaderName = "Authorization"
		payload.WebhookAuthHeaderVal = "Bearer " + e.webhookSecret
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+transcriptPath, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("create transcript: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		return "", fmt.Errorf("create transcript: %s", readErrorDetail(resp))
	}

	var out transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("create transcript: decode response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("create transcript: provider returned no job id")
	}
	return out.ID, nil
}

func (e *AssemblyAIEngine) PollStatus(ctx context.Context, providerJobID string) (transcriber.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+transcriptPath+"/"+providerJobID, nil)
	if err != nil {
		return transcriber.Result{}, err
	}
	req.Header.Set("Authorization", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return transcriber.Result{}, fmt.Errorf("poll status: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		return transcriber.Result{}, fmt.Errorf("poll status: %s", readErrorDetail(resp))
	}

	var out transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return transcriber.Result{}, fmt.Errorf("poll status: decode response: %w", err)
	}
	return mapProviderStatus(out), nil
}

// mapProviderStatus translates the provider's reported status into the local
// state machine. A status the service does not know is mapped to a terminal
// failure rather than left to poll forever.
func mapProviderStatus(resp transcriptResponse) transcriber.Result {
	switch resp.Status {
	case "queued":
		return transcriber.Result{State: transcriber.StateQueued}
	case "processing":
		return transcriber.Result{State: transcriber.StateProcessing}
	case "completed":
		return transcriber.Result{State: transcriber.StateCompleted, Transcript: resp.Text}
	case "error":
		reason := resp.Error
		if reason == "" {
			reason = "provider reported an unspecified transcription error"
		}
		return transcriber.Result{State: transcriber.StateFailed, Reason: reason}
	default:
		return transcriber.Result{
			State:  transcriber.StateFailed,
			Reason: fmt.Sprintf("unknown status %q reported by provider", resp.Status),
		}
	}
}

func readErrorDetail(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		return fmt.Sprintf("provider returned status %d", resp.StatusCode)
	}
	return fmt.Sprintf("provider returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
