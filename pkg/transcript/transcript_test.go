package transcript_test

import (
	"context"
	"errors"
	"testing"

	"github.com/googleapis/gax-go/v2"

	"github.com/voicepay/voicegate/pkg/audio"
	"github.com/voicepay/voicegate/pkg/transcript"
)

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Hello World", "hello world"},
		{"  Hello   World  ", "hello world"},
		{"HELLO\tWORLD\n", "hello world"},
		{"", ""},
		{"   ", ""},
	}
	for _, c := range cases {
		if got := transcript.Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMatches(t *testing.T) {
	cases := []struct {
		got, want string
		match     bool
	}{
		{"Technology is evolving every single day.", "technology is evolving every single day.", true},
		{"  technology is evolving  every single day. ", "Technology is evolving every single day.", true},
		{"technology is evolving every day.", "Technology is evolving every single day.", false},
		{"", "anything", false},
		{"", "", true},
	}
	for _, c := range cases {
		if got := transcript.Matches(c.got, c.want); got != c.match {
			t.Errorf("Matches(%q, %q) = %v, want %v", c.got, c.want, got, c.match)
		}
	}
}

// fastBackoff keeps retry tests quick.
var fastBackoff = gax.Backoff{Initial: 1, Max: 1}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	tr := transcript.TranscriberFunc(func(context.Context, audio.Sample) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "hello", nil
	})

	p := transcript.RetryPolicy{MaxAttempts: 3, Backoff: fastBackoff}
	text, err := p.Transcribe(context.Background(), tr, audio.New([]byte("x"), 0))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello" || calls != 3 {
		t.Fatalf("text = %q, calls = %d", text, calls)
	}
}

func TestRetryExhaustion(t *testing.T) {
	calls := 0
	tr := transcript.TranscriberFunc(func(context.Context, audio.Sample) (string, error) {
		calls++
		return "", errors.New("always failing")
	})

	p := transcript.RetryPolicy{MaxAttempts: 3, Backoff: fastBackoff}
	_, err := p.Transcribe(context.Background(), tr, audio.New([]byte("x"), 0))
	if !errors.Is(err, transcript.ErrTranscriptionFailed) {
		t.Fatalf("err = %v, want ErrTranscriptionFailed", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryUnauthorizedIsFatal(t *testing.T) {
	calls := 0
	tr := transcript.TranscriberFunc(func(context.Context, audio.Sample) (string, error) {
		calls++
		return "", transcript.ErrUnauthorized
	})

	p := transcript.RetryPolicy{MaxAttempts: 3, Backoff: fastBackoff}
	_, err := p.Transcribe(context.Background(), tr, audio.New([]byte("x"), 0))
	if !errors.Is(err, transcript.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on bad credential)", calls)
	}
}

func TestRetryRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := transcript.TranscriberFunc(func(ctx context.Context, _ audio.Sample) (string, error) {
		return "", ctx.Err()
	})

	p := transcript.RetryPolicy{MaxAttempts: 3, Backoff: fastBackoff}
	_, err := p.Transcribe(ctx, tr, audio.New([]byte("x"), 0))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRetryDefaults(t *testing.T) {
	calls := 0
	tr := transcript.TranscriberFunc(func(context.Context, audio.Sample) (string, error) {
		calls++
		return "", errors.New("nope")
	})

	// Zero-value policy: DefaultMaxAttempts applies. Cap the pause so the
	// test stays fast.
	p := transcript.RetryPolicy{Backoff: fastBackoff}
	_, err := p.Transcribe(context.Background(), tr, audio.New([]byte("x"), 0))
	if !errors.Is(err, transcript.ErrTranscriptionFailed) {
		t.Fatalf("err = %v", err)
	}
	if calls != transcript.DefaultMaxAttempts {
		t.Fatalf("calls = %d, want %d", calls, transcript.DefaultMaxAttempts)
	}
}
