package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/opencode-ai/editorbridge/internal/logging"
)

// sseHeartbeatInterval is the interval for SSE heartbeat comments.
const sseHeartbeatInterval = 30 * time.Second

// sseWriter wraps http.ResponseWriter for SSE.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

// newSSEWriter creates a new SSE writer.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	return &sseWriter{w: w, flusher: flusher, rc: http.NewResponseController(w)}, nil
}

// writeEvent writes a named SSE event with a raw data payload.
func (s *sseWriter) writeEvent(event, data string) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.flush()
	return nil
}

// writeData writes an unnamed SSE data frame.
func (s *sseWriter) writeData(data []byte) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flush()
	return nil
}

// writeHeartbeat writes an SSE heartbeat comment.
func (s *sseWriter) writeHeartbeat() {
	fmt.Fprintf(s.w, ": heartbeat\n\n")
	s.flush()
}

func (s *sseWriter) flush() {
	// ResponseController flushes through middleware wrappers; fall back to
	// the plain Flusher if it cannot.
	if err := s.rc.Flush(); err != nil {
		s.flusher.Flush()
	}
}

// handleStream handles GET /sse: it allocates a session, announces the
// session's message endpoint as the first event and then pushes JSON-RPC
// responses until the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable proxy buffering

	sse, err := newSSEWriter(w)
	if err != nil {
		writeClientError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sessionID := s.sessions.Create()
	responses, _ := s.sessions.Attach(sessionID)
	defer s.sessions.Remove(sessionID)

	w.WriteHeader(http.StatusOK)

	if err := sse.writeEvent("endpoint", "/message?sessionId="+sessionID); err != nil {
		return
	}

	logging.Info().Str("sessionId", sessionID).Msg("session connected")
	defer logging.Info().Str("sessionId", sessionID).Msg("session closed")

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case resp := <-responses:
			data, err := json.Marshal(resp)
			if err != nil {
				logging.Error().Str("sessionId", sessionID).Err(err).Msg("failed to marshal response")
				continue
			}
			if err := sse.writeData(data); err != nil {
				return
			}
		case <-ticker.C:
			sse.writeHeartbeat()
		}
	}
}
