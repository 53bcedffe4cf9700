package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/voicepay/voicegate/pkg/audio"
	"github.com/voicepay/voicegate/pkg/session"
	"github.com/voicepay/voicegate/pkg/transcript"
)

// streamHello is the first message a streaming client must send.
type streamHello struct {
	Principal  string `json:"principal"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// streamControl is a text-frame control message during streaming.
// Supported events: "submit" flushes the buffered audio as one attempt,
// "reset" discards the buffer.
type streamControl struct {
	Event string `json:"event"`
}

// streamClose is sent before the server closes the connection.
type streamClose struct {
	Error string `json:"error"`
}

// handleAttemptStream accepts attempt audio over a websocket. The client
// sends a JSON hello, then binary audio frames, then {"event":"submit"};
// the server answers each submit with the attempt result. The connection
// stays open across attempts until the session reaches a terminal outcome.
func (s *Server) handleAttemptStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var hello streamHello
	if _, msg, err := conn.ReadMessage(); err != nil {
		return
	} else if err := json.Unmarshal(msg, &hello); err != nil || hello.Principal == "" {
		s.closeStream(conn, "expected hello message with principal")
		return
	}

	log := s.logger.With("principal", hello.Principal, "transport", "websocket")
	var buf bytes.Buffer

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("stream read ended", "error", err)
			}
			return
		}

		if msgType == websocket.BinaryMessage {
			if buf.Len()+len(msg) > MaxSampleBytes {
				s.closeStream(conn, "audio sample too large")
				return
			}
			buf.Write(msg)
			continue
		}

		var ctl streamControl
		if err := json.Unmarshal(msg, &ctl); err != nil {
			s.closeStream(conn, "invalid control message")
			return
		}
		switch ctl.Event {
		case "reset":
			buf.Reset()
		case "submit":
			sample := audio.New(bytes.Clone(buf.Bytes()), hello.SampleRate)
			buf.Reset()

			res, err := s.machine.SubmitAttempt(r.Context(), hello.Principal, sample)
			if err != nil {
				s.closeStream(conn, streamErrorText(err))
				return
			}
			resp := attemptResponse{
				Outcome:    res.Outcome.String(),
				Retryable:  res.Outcome.Retryable(),
				Message:    res.Message,
				NextPrompt: res.NextPrompt,
				Spoof:      spoofResponse{Label: res.Spoof.Label.String(), Confidence: res.Spoof.Confidence},
				Artifacts:  res.Artifacts,
			}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
			if res.Outcome == session.OutcomeSuccess || res.Outcome == session.OutcomeSpoofDetected {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, res.Outcome.String()))
				return
			}
		default:
			s.closeStream(conn, "unknown event: "+ctl.Event)
			return
		}
	}
}

// closeStream reports an error to the client and closes the connection.
func (s *Server) closeStream(conn *websocket.Conn, msg string) {
	_ = conn.WriteJSON(streamClose{Error: msg})
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, ""))
}

func streamErrorText(err error) string {
	switch {
	case errors.Is(err, session.ErrInvalidPrincipal),
		errors.Is(err, session.ErrEmptyAudio),
		errors.Is(err, session.ErrSessionExpired):
		return err.Error()
	case errors.Is(err, transcript.ErrUnauthorized):
		return "transcription backend rejected credentials"
	default:
		return "internal error"
	}
}
