package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	internalconfig "github.com/siriusverse/voicebridge/internal/config"
)

type envConfig struct {
	Env                        string        `env:"ENV" envDefault:"production"`
	HTTPListenAddr             string        `env:"HTTP_LISTEN_ADDR" envDefault:":8080"`
	DatabaseURL                string        `env:"DATABASE_URL,required"`
	DefaultTranscribeLanguage  string        `env:"DEFAULT_TRANSCRIBE_LANGUAGE" envDefault:"es"`
	TranscribeProvider         string        `env:"TRANSCRIBE_PROVIDER" envDefault:"assemblyai"`
	CompletionMode             string        `env:"COMPLETION_MODE" envDefault:"webhook"`
	MaxUploadBytes             int64         `env:"MAX_UPLOAD_BYTES" envDefault:"26214400"`
	PollMaxAttempts            int           `env:"POLL_MAX_ATTEMPTS" envDefault:"30"`
	PollInterval               time.Duration `env:"POLL_INTERVAL" envDefault:"10s"`
	AssemblyAIAPIKey           string        `env:"ASSEMBLYAI_API_KEY"`
	AssemblyAIBaseURL          string        `env:"ASSEMBLYAI_BASE_URL" envDefault:"https://api.assemblyai.com"`
	ProviderWebhookSecret      string        `env:"PROVIDER_WEBHOOK_SECRET"`
	PublicWebhookURL           string        `env:"PUBLIC_WEBHOOK_URL"`
	ResultWebhookURL           string        `env:"RESULT_WEBHOOK_URL"`
	GoogleCloudProjectID       string        `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string        `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string        `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string        `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_3"`
}

func Load() (*internalconfig.Config, error) {
	// A missing .env file is fine; real environments set variables directly.
	_ = godotenv.Load()

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		HTTPListenAddr:             raw.HTTPListenAddr,
		DatabaseURL:                raw.DatabaseURL,
		DefaultTranscribeLanguage:  raw.DefaultTranscribeLanguage,
		TranscribeProvider:         raw.TranscribeProvider,
		CompletionMode:             raw.CompletionMode,
		MaxUploadBytes:             raw.MaxUploadBytes,
		PollMaxAttempts:            raw.PollMaxAttempts,
		PollInterval:               raw.PollInterval,
		AssemblyAIAPIKey:           raw.AssemblyAIAPIKey,
		AssemblyAIBaseURL:          raw.AssemblyAIBaseURL,
		ProviderWebhookSecret:      raw.ProviderWebhookSecret,
		PublicWebhookURL:           raw.PublicWebhookURL,
		ResultWebhookURL:           raw.ResultWebhookURL,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
