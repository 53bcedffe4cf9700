package audio

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	s := New([]byte{1, 2, 3}, 48000)
	if s.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", s.SampleRate)
	}

	s = New([]byte{1, 2, 3}, 0)
	if s.SampleRate != DefaultSampleRate {
		t.Errorf("SampleRate = %d, want default %d", s.SampleRate, DefaultSampleRate)
	}
}

func TestValidate(t *testing.T) {
	if err := New([]byte{1}, 0).Validate(); err != nil {
		t.Errorf("non-empty sample: %v", err)
	}
	if err := (Sample{}).Validate(); !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("empty sample: got %v, want ErrEmptyAudio", err)
	}
	if !(Sample{}).Empty() {
		t.Error("Empty() = false for zero sample")
	}
}

// wavHeader builds a minimal RIFF/WAVE header with the given rate.
func wavHeader(rate uint32) []byte {
	var b []byte
	b = append(b, "RIFF"...)
	b = binary.LittleEndian.AppendUint32(b, 36)
	b = append(b, "WAVE"...)
	b = append(b, "fmt "...)
	b = binary.LittleEndian.AppendUint32(b, 16)
	b = binary.LittleEndian.AppendUint16(b, 1) // PCM
	b = binary.LittleEndian.AppendUint16(b, 1) // mono
	b = binary.LittleEndian.AppendUint32(b, rate)
	b = binary.LittleEndian.AppendUint32(b, rate*2)
	b = binary.LittleEndian.AppendUint16(b, 2)
	b = binary.LittleEndian.AppendUint16(b, 16)
	b = append(b, "data"...)
	b = binary.LittleEndian.AppendUint32(b, 0)
	return b
}

func TestSniffSampleRate(t *testing.T) {
	if got := SniffSampleRate(wavHeader(16000)); got != 16000 {
		t.Errorf("SniffSampleRate = %d, want 16000", got)
	}
	if got := SniffSampleRate(wavHeader(44100)); got != 44100 {
		t.Errorf("SniffSampleRate = %d, want 44100", got)
	}
	if got := SniffSampleRate([]byte("not audio at all")); got != 0 {
		t.Errorf("SniffSampleRate(garbage) = %d, want 0", got)
	}
	if got := SniffSampleRate(nil); got != 0 {
		t.Errorf("SniffSampleRate(nil) = %d, want 0", got)
	}

	// Truncated header must not be read out of bounds.
	if got := SniffSampleRate(wavHeader(16000)[:20]); got != 0 {
		t.Errorf("SniffSampleRate(truncated) = %d, want 0", got)
	}
}
