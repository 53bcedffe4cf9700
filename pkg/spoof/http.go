package spoof

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

// HTTPClassifier talks to a remote deepfake-scoring service.
//
// The service accepts a JSON body with base64 audio and the declared sample
// rate, and responds with a label and confidence:
//
//	POST {endpoint}
//	{"audio": "<base64>", "sample_rate": 16000}
//	→ {"label": "genuine", "confidence": 0.97}
type HTTPClassifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

var _ Classifier = (*HTTPClassifier)(nil)

// HTTPOption configures an HTTPClassifier.
type HTTPOption func(*HTTPClassifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *HTTPClassifier) { c.client = client }
}

// NewHTTP creates a classifier talking to the given service endpoint.
func NewHTTP(endpoint, apiKey string, opts ...HTTPOption) *HTTPClassifier {
	c := &HTTPClassifier{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify sends the sample to the scoring service and parses the verdict.
func (c *HTTPClassifier) Classify(ctx context.Context, sample audio.Sample) (Result, error) {
	if sample.Empty() {
		return Result{}, audio.ErrEmptyAudio
	}

	body, err := json.Marshal(struct {
		Audio      string `json:"audio"`
		SampleRate int    `json:"sample_rate"`
	}{
		Audio:      base64.StdEncoding.EncodeToString(sample.Data),
		SampleRate: sample.SampleRate,
	})
	if err != nil {
		return Result{}, fmt.Errorf("spoof: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("spoof: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("spoof: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("spoof: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("spoof: service returned %d: %s", resp.StatusCode, respBody)
	}

	var out struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return Result{}, fmt.Errorf("spoof: unmarshal response: %w", err)
	}
	label, err := ParseLabel(out.Label)
	if err != nil {
		return Result{}, err
	}
	return Result{Label: label, Confidence: out.Confidence}, nil
}
