package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/voicepay/voicegate/pkg/audio"
)

const defaultDimension = 192

// config holds shared configuration for embedder implementations.
type config struct {
	dim        int
	httpClient *http.Client
}

// Option configures an embedder.
type Option func(*config)

// WithDimension sets the expected output vector dimensionality.
func WithDimension(dim int) Option {
	return func(c *config) { c.dim = dim }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.httpClient = client }
}

// HTTP implements [Embedder] against a remote speaker-embedding service.
//
// The service accepts a JSON body with base64 audio and the declared sample
// rate, and responds with the embedding vector:
//
//	POST {endpoint}
//	{"audio": "<base64>", "sample_rate": 16000}
//	→ {"embedding": [0.01, ...]}
type HTTP struct {
	endpoint string
	apiKey   string
	dim      int
	client   *http.Client
}

var _ Embedder = (*HTTP)(nil)

// NewHTTP creates an embedder talking to the given service endpoint.
func NewHTTP(endpoint, apiKey string, opts ...Option) *HTTP {
	cfg := config{
		dim:        defaultDimension,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &HTTP{
		endpoint: endpoint,
		apiKey:   apiKey,
		dim:      cfg.dim,
		client:   cfg.httpClient,
	}
}

// Embed sends the sample to the remote service and returns the vector.
func (h *HTTP) Embed(ctx context.Context, sample audio.Sample) ([]float32, error) {
	if sample.Empty() {
		return nil, ErrEmptyInput
	}

	body, err := json.Marshal(struct {
		Audio      string `json:"audio"`
		SampleRate int    `json:"sample_rate"`
	}{
		Audio:      base64.StdEncoding.EncodeToString(sample.Data),
		SampleRate: sample.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedding: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding: service returned %d: %s", resp.StatusCode, respBody)
	}

	var out struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("embedding: unmarshal response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embedding: service returned empty vector")
	}
	if h.dim > 0 && len(out.Embedding) != h.dim {
		return nil, fmt.Errorf("embedding: service returned %d dims, want %d", len(out.Embedding), h.dim)
	}
	return out.Embedding, nil
}

// Dimension returns the configured vector dimensionality.
func (h *HTTP) Dimension() int { return h.dim }
