// Package session implements the verification orchestration protocol: a
// bounded challenge-response run per principal, gated by the anti-spoofing
// check, transcript matching, and encrypted artifact storage.
//
// # State machine
//
// A session moves Uninitialized → Active(index 0..2) → Terminal. The
// attempt index increases only when a submitted sample passes both the
// spoof gate and the transcript match and its encrypted artifact upload
// is confirmed. A synthetic-voice verdict destroys the session
// immediately; reaching index 3 completes it successfully. Either way the
// session is gone afterwards and the principal must start over.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/voicepay/voicegate/pkg/spoof"
)

// Sentinel errors.
var (
	// ErrInvalidPrincipal is returned when the principal identifier is
	// blank or contains characters outside [a-zA-Z0-9._@-].
	ErrInvalidPrincipal = errors.New("session: invalid principal")

	// ErrSessionExpired is returned when no active session exists for
	// the principal (never started, already terminal, spoof-destroyed,
	// or idle-evicted).
	ErrSessionExpired = errors.New("session: session expired")

	// ErrEmptyAudio is returned when a submitted sample holds no data.
	ErrEmptyAudio = errors.New("session: empty audio")
)

// NumPrompts is the number of challenge prompts per session.
const NumPrompts = 3

// Session is the per-principal verification state. It is owned by the
// Store and must only be mutated while the principal's lock is held.
type Session struct {
	// ID identifies this session run for logging.
	ID string

	// Principal is the identity under verification.
	Principal string

	// Prompts are the challenges, in presentation order. Fixed at start.
	Prompts []string

	// Index is the current attempt index, in [0, len(Prompts)].
	Index int

	// Artifacts holds the references committed so far, one per verified
	// attempt.
	Artifacts []ArtifactRef

	// StartedAt is when the session was created.
	StartedAt time.Time
}

// ArtifactRef locates one committed encrypted artifact: the ciphertext
// and its single-use key live under independent locators.
type ArtifactRef struct {
	CipherLocator string `json:"cipher_locator"`
	CipherURL     string `json:"cipher_url"`
	KeyLocator    string `json:"key_locator"`
	KeyURL        string `json:"key_url"`
}

// Outcome is the machine-readable result of a submit or signature call.
type Outcome int

const (
	// OutcomeSuccess means the session completed: all prompts verified
	// (or, for signatures, the voice matched and the signature was stored).
	OutcomeSuccess Outcome = iota

	// OutcomeNextPrompt means the attempt verified and the session
	// advanced; the caller should present the next prompt.
	OutcomeNextPrompt

	// OutcomeSpoofDetected means the sample was flagged as synthetic
	// voice. The session is destroyed.
	OutcomeSpoofDetected

	// OutcomeTranscriptMismatch means the transcript did not match the
	// expected prompt. The same prompt must be repeated.
	OutcomeTranscriptMismatch

	// OutcomeTranscriptionFailed means the transcription collaborator
	// failed after its retry budget. The same prompt must be repeated.
	OutcomeTranscriptionFailed

	// OutcomeInconclusive means the spoof gate could not reach a
	// verdict. The caller should resubmit; the session survives.
	OutcomeInconclusive

	// OutcomeStorageFailure means the artifact upload did not confirm.
	// The attempt is not counted; the same prompt must be repeated.
	OutcomeStorageFailure

	// OutcomeVoiceMismatch means enrollment re-verification voted
	// against the fresh sample (signature flow only).
	OutcomeVoiceMismatch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNextPrompt:
		return "next_prompt"
	case OutcomeSpoofDetected:
		return "spoof_detected"
	case OutcomeTranscriptMismatch:
		return "transcript_mismatch"
	case OutcomeTranscriptionFailed:
		return "transcription_failed"
	case OutcomeInconclusive:
		return "inconclusive"
	case OutcomeStorageFailure:
		return "storage_failure"
	case OutcomeVoiceMismatch:
		return "voice_mismatch"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Retryable reports whether the caller may resubmit within the same
// session after this outcome.
func (o Outcome) Retryable() bool {
	switch o {
	case OutcomeTranscriptMismatch, OutcomeTranscriptionFailed, OutcomeInconclusive, OutcomeStorageFailure:
		return true
	}
	return false
}

// AttemptResult reports one SubmitAttempt call. The spoof result that led
// to the outcome is always included.
type AttemptResult struct {
	Outcome Outcome
	Spoof   spoof.Result

	// NextPrompt is the prompt the caller must present next: the
	// following prompt after an advance, or the same prompt again after
	// a retryable failure. Empty on terminal outcomes.
	NextPrompt string

	// Artifacts is the full committed artifact list, set on
	// OutcomeSuccess only.
	Artifacts []ArtifactRef

	// Message is a human-readable summary for clients.
	Message string
}

// SignatureResult reports one CreateSignature call.
type SignatureResult struct {
	Outcome Outcome
	Spoof   spoof.Result

	// Artifact locates the stored signature, set on OutcomeSuccess.
	Artifact *ArtifactRef

	// Message is a human-readable summary for clients.
	Message string
}
