// Package embedding provides the speaker-embedding interface and a remote
// HTTP implementation.
//
// An Embedder converts an audio sample into a dense fixed-length vector
// suitable for cosine-similarity comparison between speakers. The actual
// model lives behind a remote scoring service; this package only handles
// transport and vector math.
package embedding

import (
	"context"
	"errors"
	"math"

	"github.com/voicepay/voicegate/pkg/audio"
)

// Common errors.
var (
	// ErrEmptyInput is returned when the input sample is empty.
	ErrEmptyInput = errors.New("embedding: empty input")
)

// Embedder converts audio samples into dense float32 vectors.
type Embedder interface {
	// Embed returns the speaker embedding for a sample.
	Embed(ctx context.Context, sample audio.Sample) ([]float32, error)

	// Dimension returns the dimensionality of the output vectors.
	Dimension() int
}

// Cosine computes cosine similarity between two vectors.
// Returns 0 when either vector has zero norm or the lengths differ.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	denom := math.Sqrt(na) * math.Sqrt(nb)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}
