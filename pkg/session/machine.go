package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voicepay/voicegate/pkg/audio"
	"github.com/voicepay/voicegate/pkg/challenge"
	"github.com/voicepay/voicegate/pkg/enroll"
	"github.com/voicepay/voicegate/pkg/spoof"
	"github.com/voicepay/voicegate/pkg/storage"
	"github.com/voicepay/voicegate/pkg/transcript"
	"github.com/voicepay/voicegate/pkg/vault"
)

// DefaultCallTimeout bounds each external collaborator call.
const DefaultCallTimeout = 30 * time.Second

// Deps are the collaborators the machine orchestrates. All fields are
// required except Logger.
type Deps struct {
	// Catalog supplies challenge prompts.
	Catalog *challenge.Catalog

	// Gate is the anti-deepfake classifier.
	Gate spoof.Classifier

	// Transcriber converts audio to text; Retry bounds its retries.
	Transcriber transcript.Transcriber
	Retry       transcript.RetryPolicy

	// Artifacts stores ciphertext blobs; Keys stores artifact keys.
	// They must be independent stores so keys can sit behind stricter
	// access control than the ciphertext.
	Artifacts storage.BlobStore
	Keys      storage.BlobStore

	// Registry tracks enrollment records; Matcher votes on them.
	Registry *enroll.Registry
	Matcher  *enroll.Matcher

	// Sessions holds active sessions.
	Sessions *Store

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Config tunes the machine.
type Config struct {
	// Prompts is the number of challenges per session.
	// Zero means NumPrompts.
	Prompts int

	// CallTimeout bounds each external collaborator call.
	// Zero means DefaultCallTimeout.
	CallTimeout time.Duration
}

func (c *Config) defaults() {
	if c.Prompts <= 0 {
		c.Prompts = NumPrompts
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
}

// Machine is the session state machine. It is safe for concurrent use;
// operations for the same principal are serialized, different principals
// proceed in parallel.
type Machine struct {
	deps Deps
	cfg  Config
	log  *slog.Logger
}

// NewMachine validates the dependencies and creates a Machine.
func NewMachine(deps Deps, cfg Config) (*Machine, error) {
	switch {
	case deps.Catalog == nil:
		return nil, errors.New("session: Deps.Catalog is required")
	case deps.Gate == nil:
		return nil, errors.New("session: Deps.Gate is required")
	case deps.Transcriber == nil:
		return nil, errors.New("session: Deps.Transcriber is required")
	case deps.Artifacts == nil:
		return nil, errors.New("session: Deps.Artifacts is required")
	case deps.Keys == nil:
		return nil, errors.New("session: Deps.Keys is required")
	case deps.Registry == nil:
		return nil, errors.New("session: Deps.Registry is required")
	case deps.Matcher == nil:
		return nil, errors.New("session: Deps.Matcher is required")
	case deps.Sessions == nil:
		return nil, errors.New("session: Deps.Sessions is required")
	}
	cfg.defaults()
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Machine{deps: deps, cfg: cfg, log: log}, nil
}

// cleanPrincipal trims and validates a principal identifier. Principals
// become path segments in blob locators and key segments in the
// enrollment registry, so the charset is restricted to characters that
// cannot alter either namespace.
func cleanPrincipal(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" || p == "." || p == ".." {
		return "", ErrInvalidPrincipal
	}
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == '@':
		default:
			return "", ErrInvalidPrincipal
		}
	}
	return p, nil
}

// StartSession begins a fresh verification run for the principal,
// atomically replacing any prior session (last-writer-wins). It returns
// the ordered challenge prompts the speaker must read.
func (m *Machine) StartSession(ctx context.Context, principal string) ([]string, error) {
	principal, err := cleanPrincipal(principal)
	if err != nil {
		return nil, err
	}
	prompts, err := m.deps.Catalog.Draw(m.cfg.Prompts)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        uuid.NewString(),
		Principal: principal,
		Prompts:   prompts,
		StartedAt: time.Now(),
	}

	h := m.deps.Sessions.Acquire(principal)
	h.Replace(sess)
	h.Release()

	m.log.Info("session started",
		"session", sess.ID, "principal", principal, "prompts", len(prompts))
	return prompts, nil
}

// SubmitAttempt runs one challenge attempt through the pipeline:
// spoof gate, transcript match, seal, upload, commit. It returns the
// outcome; an error return is reserved for invalid input, missing
// sessions, and fatal conditions like a rejected transcription credential.
func (m *Machine) SubmitAttempt(ctx context.Context, principal string, sample audio.Sample) (*AttemptResult, error) {
	principal, err := cleanPrincipal(principal)
	if err != nil {
		return nil, err
	}
	if sample.Empty() {
		return nil, ErrEmptyAudio
	}

	h := m.deps.Sessions.Acquire(principal)
	defer h.Release()

	sess := h.Session()
	if sess == nil {
		return nil, ErrSessionExpired
	}
	expected := sess.Prompts[sess.Index]
	log := m.log.With("session", sess.ID, "principal", principal, "attempt", sess.Index)

	// 1. Spoof gate. Synthetic destroys the session; a classifier error
	// counts as inconclusive and the caller resubmits.
	verdict, err := m.classify(ctx, sample)
	if err != nil {
		log.Warn("spoof gate unavailable", "error", err)
		return &AttemptResult{
			Outcome:    OutcomeInconclusive,
			NextPrompt: expected,
			Message:    "Audio check unavailable. Please try again.",
		}, nil
	}
	switch verdict.Label {
	case spoof.LabelSynthetic:
		h.Delete()
		log.Warn("synthetic voice detected, session destroyed",
			"confidence", verdict.Confidence)
		return &AttemptResult{
			Outcome: OutcomeSpoofDetected,
			Spoof:   verdict,
			Message: "Deepfake detected! Restart the process with new sentences.",
		}, nil
	case spoof.LabelInconclusive:
		return &AttemptResult{
			Outcome:    OutcomeInconclusive,
			Spoof:      verdict,
			NextPrompt: expected,
			Message:    "Audio check inconclusive. Please try again.",
		}, nil
	}

	// 2. Transcript match. Failures never advance the index; the same
	// prompt must be repeated.
	text, err := m.transcribe(ctx, sample)
	if err != nil {
		if errors.Is(err, transcript.ErrUnauthorized) {
			// Fatal to the request, not to the session.
			return nil, err
		}
		log.Warn("transcription failed", "error", err)
		return &AttemptResult{
			Outcome:    OutcomeTranscriptionFailed,
			Spoof:      verdict,
			NextPrompt: expected,
			Message:    "Audio processing failed. Please try again.",
		}, nil
	}
	if !transcript.Matches(text, expected) {
		log.Info("transcript mismatch")
		return &AttemptResult{
			Outcome:    OutcomeTranscriptMismatch,
			Spoof:      verdict,
			NextPrompt: expected,
			Message:    fmt.Sprintf("Incorrect! Please repeat: %q", expected),
		}, nil
	}

	// 3. Seal and upload. Upload confirmation is the commit point: on
	// any failure (including cancellation mid-upload) the artifact is
	// not counted and the attempt repeats.
	ref, err := m.sealAndUpload(ctx, principal, sample, sess.Index)
	if err != nil {
		log.Error("artifact upload failed", "error", err)
		return &AttemptResult{
			Outcome:    OutcomeStorageFailure,
			Spoof:      verdict,
			NextPrompt: expected,
			Message:    "Could not store the sample. Please try again.",
		}, nil
	}

	// 4. Commit: record the enrollment slot and advance.
	if _, err := m.deps.Registry.Add(ctx, enroll.Record{
		Principal:     principal,
		CipherLocator: ref.CipherLocator,
		CipherURL:     ref.CipherURL,
		KeyLocator:    ref.KeyLocator,
		KeyURL:        ref.KeyURL,
		SampleRate:    sample.SampleRate,
	}); err != nil {
		log.Error("enrollment record failed, rolling back artifact", "error", err)
		m.discard(ref)
		return &AttemptResult{
			Outcome:    OutcomeStorageFailure,
			Spoof:      verdict,
			NextPrompt: expected,
			Message:    "Could not store the sample. Please try again.",
		}, nil
	}

	sess.Artifacts = append(sess.Artifacts, ref)
	sess.Index++
	log.Info("attempt verified", "index", sess.Index)

	if sess.Index == len(sess.Prompts) {
		artifacts := sess.Artifacts
		h.Delete()
		log.Info("session complete", "artifacts", len(artifacts))
		return &AttemptResult{
			Outcome:   OutcomeSuccess,
			Spoof:     verdict,
			Artifacts: artifacts,
			Message:   "All sentences verified!",
		}, nil
	}
	next := sess.Prompts[sess.Index]
	return &AttemptResult{
		Outcome:    OutcomeNextPrompt,
		Spoof:      verdict,
		NextPrompt: next,
		Message:    fmt.Sprintf("Correct! Please say: %q", next),
	}, nil
}

// CreateSignature verifies a free-form sample against the principal's
// enrollment baseline and, on a positive vote, stores it as the voice
// signature. First-time principals with no baseline are allowed through
// (bootstrap).
func (m *Machine) CreateSignature(ctx context.Context, principal string, sample audio.Sample) (*SignatureResult, error) {
	principal, err := cleanPrincipal(principal)
	if err != nil {
		return nil, err
	}
	if sample.Empty() {
		return nil, ErrEmptyAudio
	}

	// Serialized with session operations for the same principal.
	h := m.deps.Sessions.Acquire(principal)
	defer h.Release()

	verdict, err := m.classify(ctx, sample)
	if err != nil {
		m.log.Warn("spoof gate unavailable", "principal", principal, "error", err)
		return &SignatureResult{
			Outcome: OutcomeInconclusive,
			Message: "Audio check unavailable. Please try again.",
		}, nil
	}
	switch verdict.Label {
	case spoof.LabelSynthetic:
		// The security invariant applies here too: synthetic voice
		// kills any in-flight session for the principal.
		h.Delete()
		m.log.Warn("synthetic voice on signature creation",
			"principal", principal, "confidence", verdict.Confidence)
		return &SignatureResult{
			Outcome: OutcomeSpoofDetected,
			Spoof:   verdict,
			Message: "Deepfake detected! Signature not created.",
		}, nil
	case spoof.LabelInconclusive:
		return &SignatureResult{
			Outcome: OutcomeInconclusive,
			Spoof:   verdict,
			Message: "Audio check inconclusive. Please try again.",
		}, nil
	}

	ok, err := m.deps.Matcher.Verify(ctx, principal, sample)
	if err != nil {
		return nil, fmt.Errorf("session: enrollment verification: %w", err)
	}
	if !ok {
		m.log.Info("voice mismatch on signature creation", "principal", principal)
		return &SignatureResult{
			Outcome: OutcomeVoiceMismatch,
			Spoof:   verdict,
			Message: "Voice signature mismatch. Access denied.",
		}, nil
	}

	ref, err := m.sealAndUpload(ctx, principal, sample, -1)
	if err != nil {
		m.log.Error("signature upload failed", "principal", principal, "error", err)
		return &SignatureResult{
			Outcome: OutcomeStorageFailure,
			Spoof:   verdict,
			Message: "Could not store the signature. Please try again.",
		}, nil
	}
	if _, err := m.deps.Registry.Add(ctx, enroll.Record{
		Principal:     principal,
		CipherLocator: ref.CipherLocator,
		CipherURL:     ref.CipherURL,
		KeyLocator:    ref.KeyLocator,
		KeyURL:        ref.KeyURL,
		SampleRate:    sample.SampleRate,
	}); err != nil {
		m.log.Error("signature record failed, rolling back artifact", "error", err)
		m.discard(ref)
		return &SignatureResult{
			Outcome: OutcomeStorageFailure,
			Spoof:   verdict,
			Message: "Could not store the signature. Please try again.",
		}, nil
	}

	m.log.Info("signature created", "principal", principal, "cipher", ref.CipherLocator)
	return &SignatureResult{
		Outcome:  OutcomeSuccess,
		Spoof:    verdict,
		Artifact: &ref,
		Message:  "Voice signature created successfully.",
	}, nil
}

// classify runs the spoof gate under the call timeout.
func (m *Machine) classify(ctx context.Context, sample audio.Sample) (spoof.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.CallTimeout)
	defer cancel()
	return m.deps.Gate.Classify(ctx, sample)
}

// transcribe runs the transcription collaborator under its retry policy
// and the call timeout.
func (m *Machine) transcribe(ctx context.Context, sample audio.Sample) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.CallTimeout)
	defer cancel()
	return m.deps.Retry.Transcribe(ctx, m.deps.Transcriber, sample)
}

// sealAndUpload encrypts the sample under a fresh key and uploads the
// ciphertext and the key under independent locators. Both uploads must
// confirm; a stranded ciphertext from a half-failed pair is deleted
// best-effort.
func (m *Machine) sealAndUpload(ctx context.Context, principal string, sample audio.Sample, attempt int) (ArtifactRef, error) {
	ciphertext, key, err := vault.Seal(sample.Data)
	if err != nil {
		return ArtifactRef{}, err
	}

	id := uuid.NewString()
	var cipherLoc, keyLoc string
	if attempt >= 0 {
		cipherLoc = fmt.Sprintf("%s/attempt-%d-%s.enc", principal, attempt, id)
		keyLoc = fmt.Sprintf("%s/attempt-%d-%s.key", principal, attempt, id)
	} else {
		cipherLoc = fmt.Sprintf("%s/signature-%s.enc", principal, id)
		keyLoc = fmt.Sprintf("%s/signature-%s.key", principal, id)
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.CallTimeout)
	defer cancel()

	cipherURL, err := m.deps.Artifacts.Put(ctx, cipherLoc, ciphertext)
	if err != nil {
		return ArtifactRef{}, fmt.Errorf("upload ciphertext: %w", err)
	}
	keyURL, err := m.deps.Keys.Put(ctx, keyLoc, key)
	if err != nil {
		ref := ArtifactRef{CipherLocator: cipherLoc}
		m.discard(ref)
		return ArtifactRef{}, fmt.Errorf("upload key: %w", err)
	}
	return ArtifactRef{
		CipherLocator: cipherLoc,
		CipherURL:     cipherURL,
		KeyLocator:    keyLoc,
		KeyURL:        keyURL,
	}, nil
}

// discard removes an uncommitted artifact best-effort. Uses a fresh
// context: the request context may already be cancelled.
func (m *Machine) discard(ref ArtifactRef) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.CallTimeout)
	defer cancel()
	if ref.CipherLocator != "" {
		if err := m.deps.Artifacts.Delete(ctx, ref.CipherLocator); err != nil {
			m.log.Warn("orphaned ciphertext", "locator", ref.CipherLocator, "error", err)
		}
	}
	if ref.KeyLocator != "" {
		if err := m.deps.Keys.Delete(ctx, ref.KeyLocator); err != nil {
			m.log.Warn("orphaned key", "locator", ref.KeyLocator, "error", err)
		}
	}
}
