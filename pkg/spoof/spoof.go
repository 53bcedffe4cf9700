// Package spoof implements the anti-deepfake admission gate. It wraps an
// external classifier that scores an audio sample as genuine or synthetic.
//
// The gate's decision policy is binary and not threshold-tunable at this
// layer: a Synthetic label is always fatal to the calling session,
// regardless of confidence; an Inconclusive label (feature extraction
// failure, model unavailable) is a retryable condition, never treated as
// Synthetic.
package spoof

import (
	"context"
	"fmt"

	"github.com/voicepay/voicegate/pkg/audio"
)

// Label is the classifier verdict for a sample.
type Label int

const (
	// LabelInconclusive means the classifier could not reach a verdict
	// (e.g., feature extraction failed). Retryable.
	LabelInconclusive Label = iota

	// LabelGenuine means the sample passed the deepfake check.
	LabelGenuine

	// LabelSynthetic means the sample was flagged as AI-generated voice.
	// Always fatal to the session.
	LabelSynthetic
)

func (l Label) String() string {
	switch l {
	case LabelInconclusive:
		return "inconclusive"
	case LabelGenuine:
		return "genuine"
	case LabelSynthetic:
		return "synthetic"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

// ParseLabel maps a wire label string to a Label.
func ParseLabel(s string) (Label, error) {
	switch s {
	case "genuine":
		return LabelGenuine, nil
	case "synthetic":
		return LabelSynthetic, nil
	case "inconclusive":
		return LabelInconclusive, nil
	default:
		return LabelInconclusive, fmt.Errorf("spoof: unknown label %q", s)
	}
}

// Result is the classifier output for one sample.
type Result struct {
	// Label is the verdict.
	Label Label

	// Confidence is the classifier's confidence in [0, 1].
	Confidence float64
}

// Classifier is the interface that wraps the Classify method.
type Classifier interface {
	// Classify scores an audio sample. A transport or model failure is
	// returned as an error; callers treat it like an Inconclusive verdict.
	Classify(ctx context.Context, sample audio.Sample) (Result, error)
}

// ClassifierFunc is an adapter to allow the use of ordinary functions as
// Classifiers.
type ClassifierFunc func(ctx context.Context, sample audio.Sample) (Result, error)

// Classify calls the underlying function.
func (f ClassifierFunc) Classify(ctx context.Context, sample audio.Sample) (Result, error) {
	return f(ctx, sample)
}
