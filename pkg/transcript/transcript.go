// Package transcript wraps the external speech-to-text collaborator and
// implements the challenge text-matching rule.
//
// Matching is deliberately strict: lowercase, trim, collapse whitespace,
// then exact equality. No fuzzy or partial-credit matching is allowed in
// the authenticated decision path — a near-miss is a miss.
package transcript

import (
	"context"
	"errors"
	"strings"

	"github.com/voicepay/voicegate/pkg/audio"
)

// Sentinel errors.
var (
	// ErrTranscriptionFailed is returned when the collaborator could not
	// produce a transcript after its retry budget. Retryable at the
	// attempt level: the caller asks the speaker to repeat the prompt.
	ErrTranscriptionFailed = errors.New("transcript: transcription failed")

	// ErrUnauthorized is returned when the transcription credential is
	// rejected. Non-retryable and fatal to the request (not the session):
	// retrying with the same credential cannot succeed.
	ErrUnauthorized = errors.New("transcript: unauthorized credential")
)

// Transcriber is the interface that wraps the Transcribe method.
type Transcriber interface {
	// Transcribe converts an audio sample to text.
	Transcribe(ctx context.Context, sample audio.Sample) (string, error)
}

// TranscriberFunc is an adapter to allow the use of ordinary functions as
// Transcribers.
type TranscriberFunc func(ctx context.Context, sample audio.Sample) (string, error)

// Transcribe calls the underlying function.
func (f TranscriberFunc) Transcribe(ctx context.Context, sample audio.Sample) (string, error) {
	return f(ctx, sample)
}

// Normalize lowercases the text, trims surrounding whitespace, and
// collapses internal runs of whitespace to single spaces.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Matches reports whether a transcribed text matches the expected prompt.
// Pure and deterministic: both sides are normalized, then compared for
// exact equality.
func Matches(transcribed, expected string) bool {
	return Normalize(transcribed) == Normalize(expected)
}
