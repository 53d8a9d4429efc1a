package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/eventsync/eventsync/internal/staging"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"success": false, "error": message})
}

func respondView(w http.ResponseWriter, v staging.View) {
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "session": v})
}
