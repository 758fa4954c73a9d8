package server

import (
	"encoding/json"
	"net/http"
)

// Client error messages on the message endpoint. These are part of the wire
// contract with external automation clients.
const (
	errInvalidSession = "Invalid session"
	errInvalidJSON    = "Invalid JSON"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeClientError writes a flat {"error": ...} body with the given status.
func writeClientError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
