// Package server exposes the verification machine over HTTP: JSON
// endpoints for session control and a websocket endpoint for streamed
// attempt audio.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/voicepay/voicegate/pkg/audio"
	"github.com/voicepay/voicegate/pkg/session"
	"github.com/voicepay/voicegate/pkg/transcript"
)

// MaxSampleBytes caps an uploaded audio sample.
const MaxSampleBytes = 16 << 20

// Server routes HTTP requests to a session machine.
type Server struct {
	machine  *session.Machine
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a Server. A nil logger falls back to slog.Default.
func New(machine *session.Machine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		machine: machine,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 << 10,
			WriteBufferSize: 32 << 10,
		},
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sessions", s.handleStartSession)
	mux.HandleFunc("POST /v1/attempts", s.handleSubmitAttempt)
	mux.HandleFunc("POST /v1/signatures", s.handleCreateSignature)
	mux.HandleFunc("GET /v1/attempts/stream", s.handleAttemptStream)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

type startSessionRequest struct {
	Principal string `json:"principal"`
}

type startSessionResponse struct {
	Principal string   `json:"principal"`
	Prompts   []string `json:"prompts"`
}

type spoofResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type attemptResponse struct {
	Outcome    string                `json:"outcome"`
	Retryable  bool                  `json:"retryable"`
	Message    string                `json:"message,omitempty"`
	NextPrompt string                `json:"next_prompt,omitempty"`
	Spoof      spoofResponse         `json:"spoof"`
	Artifacts  []session.ArtifactRef `json:"artifacts,omitempty"`
}

type signatureResponse struct {
	Outcome  string               `json:"outcome"`
	Message  string               `json:"message,omitempty"`
	Spoof    spoofResponse        `json:"spoof"`
	Artifact *session.ArtifactRef `json:"artifact,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	prompts, err := s.machine.StartSession(r.Context(), req.Principal)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, startSessionResponse{
		Principal: req.Principal,
		Prompts:   prompts,
	})
}

func (s *Server) handleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	principal, sample, ok := s.readSampleForm(w, r)
	if !ok {
		return
	}

	res, err := s.machine.SubmitAttempt(r.Context(), principal, sample)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, attemptStatus(res.Outcome), attemptResponse{
		Outcome:    res.Outcome.String(),
		Retryable:  res.Outcome.Retryable(),
		Message:    res.Message,
		NextPrompt: res.NextPrompt,
		Spoof:      spoofResponse{Label: res.Spoof.Label.String(), Confidence: res.Spoof.Confidence},
		Artifacts:  res.Artifacts,
	})
}

func (s *Server) handleCreateSignature(w http.ResponseWriter, r *http.Request) {
	principal, sample, ok := s.readSampleForm(w, r)
	if !ok {
		return
	}

	res, err := s.machine.CreateSignature(r.Context(), principal, sample)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, attemptStatus(res.Outcome), signatureResponse{
		Outcome:  res.Outcome.String(),
		Message:  res.Message,
		Spoof:    spoofResponse{Label: res.Spoof.Label.String(), Confidence: res.Spoof.Confidence},
		Artifact: res.Artifact,
	})
}

// readSampleForm extracts the principal and audio sample from a multipart
// form. On failure it writes the error response and returns ok=false.
func (s *Server) readSampleForm(w http.ResponseWriter, r *http.Request) (string, audio.Sample, bool) {
	if err := r.ParseMultipartForm(MaxSampleBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return "", audio.Sample{}, false
	}
	principal := r.FormValue("principal")

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing audio file"})
		return "", audio.Sample{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxSampleBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read audio"})
		return "", audio.Sample{}, false
	}
	if len(data) > MaxSampleBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "audio sample too large"})
		return "", audio.Sample{}, false
	}

	rate := 0
	if v := r.FormValue("sample_rate"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &rate); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid sample_rate"})
			return "", audio.Sample{}, false
		}
	}
	if rate == 0 {
		rate = audio.SniffSampleRate(data)
	}
	return principal, audio.New(data, rate), true
}

// attemptStatus maps an outcome to an HTTP status. Security rejections
// get distinct codes; retryable conditions stay 200 so clients read the
// outcome field rather than guessing from transport errors.
func attemptStatus(o session.Outcome) int {
	switch o {
	case session.OutcomeSpoofDetected:
		return http.StatusForbidden
	case session.OutcomeVoiceMismatch:
		return http.StatusUnauthorized
	default:
		return http.StatusOK
	}
}

// writeError maps machine errors to HTTP responses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidPrincipal),
		errors.Is(err, session.ErrEmptyAudio):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, session.ErrSessionExpired):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "session expired, start a new one",
		})
	case errors.Is(err, transcript.ErrUnauthorized):
		s.logger.Error("transcription credential rejected")
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error: "transcription backend rejected credentials",
		})
	default:
		s.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
