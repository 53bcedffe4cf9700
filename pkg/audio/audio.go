// Package audio defines the sample value type shared by the verification
// pipeline. Samples are ephemeral: they live in memory for the duration of
// a single request and are never persisted unencrypted.
package audio

import "errors"

// ErrEmptyAudio is returned when a sample contains no data.
var ErrEmptyAudio = errors.New("audio: empty sample")

// DefaultSampleRate is assumed when a client does not declare a rate.
const DefaultSampleRate = 16000

// Sample is a captured audio clip: raw bytes plus the declared sample rate.
type Sample struct {
	// Data is the raw audio payload as captured (container format is
	// opaque to this package; collaborators decode it).
	Data []byte

	// SampleRate is the declared sample rate in Hz.
	SampleRate int
}

// New returns a Sample with the given data and rate.
// A non-positive rate falls back to DefaultSampleRate.
func New(data []byte, rate int) Sample {
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	return Sample{Data: data, SampleRate: rate}
}

// Validate reports whether the sample can enter the pipeline.
func (s Sample) Validate() error {
	if len(s.Data) == 0 {
		return ErrEmptyAudio
	}
	return nil
}

// Empty reports whether the sample holds no data.
func (s Sample) Empty() bool { return len(s.Data) == 0 }
