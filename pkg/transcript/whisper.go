package transcript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/voicepay/voicegate/pkg/audio"
)

// Whisper implements [Transcriber] using the OpenAI audio transcription
// API. It can also be used with any OpenAI-compatible provider by setting
// WithBaseURL.
type Whisper struct {
	client *openai.Client
	model  openai.AudioModel
}

var _ Transcriber = (*Whisper)(nil)

// whisperConfig holds construction options for Whisper.
type whisperConfig struct {
	model      openai.AudioModel
	baseURL    string
	httpClient *http.Client
}

// WhisperOption configures a Whisper transcriber.
type WhisperOption func(*whisperConfig)

// WithModel sets the transcription model (default whisper-1).
func WithModel(model string) WhisperOption {
	return func(c *whisperConfig) { c.model = openai.AudioModel(model) }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) WhisperOption {
	return func(c *whisperConfig) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) WhisperOption {
	return func(c *whisperConfig) { c.httpClient = client }
}

// NewWhisper creates a Whisper transcriber. The apiKey is required.
func NewWhisper(apiKey string, opts ...WhisperOption) *Whisper {
	cfg := whisperConfig{
		model:      openai.AudioModelWhisper1,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(&cfg)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(cfg.httpClient),
	}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}
	client := openai.NewClient(clientOpts...)

	return &Whisper{client: &client, model: cfg.model}
}

// Transcribe uploads the sample and returns the transcript text.
// A 401 from the API maps to ErrUnauthorized; other API failures map to
// errors wrapping ErrTranscriptionFailed so the retry policy can act on
// them uniformly.
func (w *Whisper) Transcribe(ctx context.Context, sample audio.Sample) (string, error) {
	if sample.Empty() {
		return "", audio.ErrEmptyAudio
	}

	resp, err := w.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: w.model,
		File:  openai.File(bytes.NewReader(sample.Data), "sample.wav", "audio/wav"),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}
	return resp.Text, nil
}
