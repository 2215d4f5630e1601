package config

import (
	"fmt"
	"time"
)

const (
	ProviderAssemblyAI = "assemblyai"
	ProviderGoogle     = "google"

	CompletionModeWebhook = "webhook"
	CompletionModePoll    = "poll"
)

type Config struct {
	Env                        string
	HTTPListenAddr             string
	DatabaseURL                string
	DefaultTranscribeLanguage  string
	TranscribeProvider         string
	CompletionMode             string
	MaxUploadBytes             int64
	PollMaxAttempts            int
	PollInterval               time.Duration
	AssemblyAIAPIKey           string
	AssemblyAIBaseURL          string
	ProviderWebhookSecret      string
	PublicWebhookURL           string
	ResultWebhookURL           string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	switch c.TranscribeProvider {
	case ProviderAssemblyAI:
		if c.AssemblyAIAPIKey == "" {
			return fmt.Errorf("ASSEMBLYAI_API_KEY is required when TRANSCRIBE_PROVIDER=assemblyai")
		}
	case ProviderGoogle:
		if c.GoogleCloudProjectID == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID is required when TRANSCRIBE_PROVIDER=google")
		}
		if c.GoogleCloudCredentialsJSON == "" {
			return fmt.Errorf("GOOGLE_CLOUD_CREDENTIALS_JSON is required when TRANSCRIBE_PROVIDER=google")
		}
	default:
		return fmt.Errorf("TRANSCRIBE_PROVIDER must be %q or %q, got %q", ProviderAssemblyAI, ProviderGoogle, c.TranscribeProvider)
	}
	switch c.CompletionMode {
	case CompletionModeWebhook:
		if c.TranscribeProvider != ProviderAssemblyAI {
			return fmt.Errorf("COMPLETION_MODE=webhook requires TRANSCRIBE_PROVIDER=assemblyai")
		}
		if c.ProviderWebhookSecret == "" {
			return fmt.Errorf("PROVIDER_WEBHOOK_SECRET is required when COMPLETION_MODE=webhook")
		}
		if c.PublicWebhookURL == "" {
			return fmt.Errorf("PUBLIC_WEBHOOK_URL is required when COMPLETION_MODE=webhook")
		}
	case CompletionModePoll:
	default:
		return fmt.Errorf("COMPLETION_MODE must be %q or %q, got %q", CompletionModeWebhook, CompletionModePoll, c.CompletionMode)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.PollMaxAttempts <= 0 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS must be positive, got %d", c.PollMaxAttempts)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "HTTP_LISTEN_ADDR", value: c.HTTPListenAddr},
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "DEFAULT_TRANSCRIBE_LANGUAGE", value: c.DefaultTranscribeLanguage},
		{name: "TRANSCRIBE_PROVIDER", value: c.TranscribeProvider},
		{name: "COMPLETION_MODE", value: c.CompletionMode},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
