package transcriber

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/siriusverse/voicebridge/internal/config"
	"github.com/siriusverse/voicebridge/internal/transcriber"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Engine, error) {
		c := do.MustInvoke[*config.Config](i)
		switch c.TranscribeProvider {
		case config.ProviderAssemblyAI:
			webhookURL := ""
			if c.CompletionMode == config.CompletionModeWebhook {
				webhookURL = c.PublicWebhookURL
			}
			return NewAssemblyAIEngine(AssemblyAIConfig{
				APIKey:        c.AssemblyAIAPIKey,
				BaseURL:       c.AssemblyAIBaseURL,
				Language:      c.DefaultTranscribeLanguage,
				WebhookURL:    webhookURL,
				WebhookSecret: c.ProviderWebhookSecret,
			}), nil
		case config.ProviderGoogle:
			return NewCloudSpeechEngine(CloudSpeechConfig{
				ProjectID:       c.GoogleCloudProjectID,
				CredentialsJSON: c.GoogleCloudCredentialsJSON,
				Language:        c.DefaultTranscribeLanguage,
				Location:        c.GoogleCloudSpeechLocation,
				Model:           c.GoogleCloudSpeechModel,
			}), nil
		default:
			return nil, fmt.Errorf("unknown transcribe provider %q", c.TranscribeProvider)
		}
	})
}
