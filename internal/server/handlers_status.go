package server

import (
	"net/http"
	"time"
)

// handleHealth handles GET /health. Companion tooling polls this to detect
// readiness before issuing calls; the body shape is part of the contract.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tools":  s.registry.Len(),
	})
}

// handleStatus handles GET /status with richer operator-facing detail.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":   "ok",
		"version":  s.config.Version,
		"port":     s.config.Port,
		"tools":    s.registry.Len(),
		"sessions": s.sessions.Len(),
		"uptime":   time.Since(s.startedAt).Round(time.Second).String(),
	}
	if s.config.Branch != nil {
		status["branch"] = s.config.Branch()
	}
	writeJSON(w, http.StatusOK, status)
}
