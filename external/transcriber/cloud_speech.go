package transcriber

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/google/uuid"
	"github.com/siriusverse/voicebridge/internal/transcriber"
	"google.golang.org/api/option"
)

const speechAPIEndpointPort = 443

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Language        string
	Location        string
	Model           string
}

// CloudSpeechEngine adapts Google Cloud Speech's synchronous Recognize call
// to the asynchronous submit/poll contract. Recognition runs during Submit;
// the terminal result is held in memory and handed out on the first poll.
// Only usable with pull-style completion, since the service never calls back.
type CloudSpeechEngine struct {
	projectID       string
	credentialsJSON string
	language        string
	location        string
	model           string

	mu      sync.Mutex
	results map[string]transcriber.Result
}

func NewCloudSpeechEngine(cfg CloudSpeechConfig) transcriber.Engine {
	return &CloudSpeechEngine{
		projectID:       cfg.ProjectID,
		credentialsJSON: cfg.CredentialsJSON,
		language:        cfg.Language,
		location:        strings.TrimSpace(cfg.Location),
		model:           strings.TrimSpace(cfg.Model),
		results:         make(map[string]transcriber.Result),
	}
}

func (e *CloudSpeechEngine) Submit(ctx context.Context, audio []byte) (string, error) {
	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(e.credentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return "", fmt.Errorf("detect credentials: %w", err)
	}

	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if e.location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", e.location, speechAPIEndpointPort)))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = client.Close()
	}()

	recognizer := fmt.Sprintf("projects/%s/locations/%s/recognizers/_", e.projectID, e.location)
	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Recognizer: recognizer,
		Config: &speechpb.RecognitionConfig{
			DecodingConfig: &speechpb.RecognitionConfig_AutoDecodingConfig{
				AutoDecodingConfig: &speechpb.AutoDetectDecodingConfig{},
			},
			LanguageCodes: []string{e.language},
			Model:         e.model,
		},
		AudioSource: &speechpb.RecognizeRequest_Content{Content: audio},
	})
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}

	providerJobID := uuid.NewString()
	e.mu.Lock()
	e.results[providerJobID] = transcriber.Result{
		State:      transcriber.StateCompleted,
		Transcript: joinTranscripts(resp),
	}
	e.mu.Unlock()
	return providerJobID, nil
}

func (e *CloudSpeechEngine) PollStatus(_ context.Context, providerJobID string) (transcriber.Result, error) {
	e.mu.Lock()
	res, ok := e.results[providerJobID]
	e.mu.Unlock()
	if !ok {
		return transcriber.Result{}, fmt.Errorf("no recognition result for job %s", providerJobID)
	}
	return res, nil
}

func joinTranscripts(resp *speechpb.RecognizeResponse) string {
	var parts []string
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		text := strings.TrimSpace(alts[0].GetTranscript())
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
