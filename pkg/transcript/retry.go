package transcript

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/googleapis/gax-go/v2"

	"github.com/voicepay/voicegate/pkg/audio"
)

// DefaultMaxAttempts is the default transcription retry budget.
const DefaultMaxAttempts = 3

// RetryPolicy retries a Transcriber a bounded number of times with
// exponential backoff. ErrUnauthorized and context cancellation are never
// retried. The zero value is usable and applies the defaults.
type RetryPolicy struct {
	// MaxAttempts bounds the total number of Transcribe calls.
	// Zero means DefaultMaxAttempts.
	MaxAttempts int

	// Backoff controls the pause between attempts. The zero value uses
	// gax defaults (30ms initial, 30s cap, 2x multiplier).
	Backoff gax.Backoff
}

// Transcribe runs t.Transcribe under the policy. On exhaustion it returns
// an error wrapping ErrTranscriptionFailed and the last underlying error.
func (p RetryPolicy) Transcribe(ctx context.Context, t Transcriber, sample audio.Sample) (string, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	bo := p.Backoff

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := t.Transcribe(ctx, sample)
		if err == nil {
			return text, nil
		}
		if errors.Is(err, ErrUnauthorized) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}
		if err := sleep(ctx, bo.Pause()); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %v", ErrTranscriptionFailed, maxAttempts, lastErr)
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	return gax.Sleep(ctx, d)
}
