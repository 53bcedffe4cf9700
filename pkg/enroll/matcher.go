package enroll

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voicepay/voicegate/pkg/audio"
	"github.com/voicepay/voicegate/pkg/embedding"
	"github.com/voicepay/voicegate/pkg/storage"
	"github.com/voicepay/voicegate/pkg/vault"
)

// Default decision constants. Kept as configuration for tuning, but the
// defaults are the contract.
const (
	// DefaultThreshold is the minimum cosine similarity for a prior
	// sample to count as a match.
	DefaultThreshold = 0.85

	// DefaultMinVotes is the number of matching prior samples required
	// when two or more priors are available.
	DefaultMinVotes = 2
)

// MatcherConfig tunes the voting decision.
type MatcherConfig struct {
	// Threshold is the similarity cut-off. Zero means DefaultThreshold.
	Threshold float32

	// MinVotes is the vote requirement for n >= 2 priors.
	// Zero means DefaultMinVotes.
	MinVotes int
}

func (c *MatcherConfig) defaults() {
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.MinVotes == 0 {
		c.MinVotes = DefaultMinVotes
	}
}

// Matcher compares a fresh sample against a principal's stored baseline.
type Matcher struct {
	registry  *Registry
	artifacts storage.BlobStore
	keys      storage.BlobStore
	embedder  embedding.Embedder
	cfg       MatcherConfig
	logger    *slog.Logger
}

// NewMatcher creates a Matcher. The artifacts store holds ciphertext
// blobs, the keys store holds the corresponding artifact keys.
func NewMatcher(registry *Registry, artifacts, keys storage.BlobStore, embedder embedding.Embedder, cfg MatcherConfig, logger *slog.Logger) *Matcher {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		registry:  registry,
		artifacts: artifacts,
		keys:      keys,
		embedder:  embedder,
		cfg:       cfg,
		logger:    logger,
	}
}

// Verify compares the fresh sample against up to MaxRecords stored
// enrollment samples and applies the voting rule:
//
//   - n >= 2 retrievable priors: at least MinVotes must match
//   - n == 1: the single prior must match
//   - n == 0: allow — first-time enrollment bootstrap
//
// A retrieval or decryption failure for one slot excludes that slot from
// n; it never aborts the whole comparison.
func (m *Matcher) Verify(ctx context.Context, principal string, fresh audio.Sample) (bool, error) {
	if err := fresh.Validate(); err != nil {
		return false, err
	}

	records, err := m.registry.List(ctx, principal)
	if err != nil {
		return false, err
	}
	if len(records) > MaxRecords {
		records = records[:MaxRecords]
	}

	var freshVec []float32
	if len(records) > 0 {
		freshVec, err = m.embedder.Embed(ctx, fresh)
		if err != nil {
			return false, fmt.Errorf("enroll: embed fresh sample: %w", err)
		}
	}

	n, matches := 0, 0
	for _, rec := range records {
		vec, err := m.priorEmbedding(ctx, rec)
		if err != nil {
			m.logger.Warn("enrollment slot unavailable",
				"principal", principal, "slot", rec.Slot, "error", err)
			continue
		}
		n++
		sim := embedding.Cosine(freshVec, vec)
		if sim > m.cfg.Threshold {
			matches++
		}
		m.logger.Debug("enrollment similarity",
			"principal", principal, "slot", rec.Slot, "similarity", sim)
	}

	return decide(n, matches, m.cfg.MinVotes), nil
}

// priorEmbedding fetches, decrypts, and embeds one stored enrollment sample.
func (m *Matcher) priorEmbedding(ctx context.Context, rec Record) ([]float32, error) {
	key, err := m.keys.Get(ctx, rec.KeyLocator)
	if err != nil {
		return nil, fmt.Errorf("fetch key: %w", err)
	}
	ciphertext, err := m.artifacts.Get(ctx, rec.CipherLocator)
	if err != nil {
		return nil, fmt.Errorf("fetch ciphertext: %w", err)
	}
	plaintext, err := vault.Open(ciphertext, key)
	if err != nil {
		return nil, err
	}
	return m.embedder.Embed(ctx, audio.New(plaintext, rec.SampleRate))
}

// decide applies the voting table.
func decide(n, matches, minVotes int) bool {
	switch {
	case n == 0:
		return true
	case n == 1:
		return matches == 1
	default:
		return matches >= minVotes
	}
}
