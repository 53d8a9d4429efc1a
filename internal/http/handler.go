package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/eventsync/eventsync/internal/event"
	"github.com/eventsync/eventsync/internal/extract"
	httperrors "github.com/eventsync/eventsync/internal/http/errors"
	"github.com/eventsync/eventsync/internal/metrics"
	"github.com/eventsync/eventsync/internal/staging"
	"github.com/eventsync/eventsync/internal/store"
)

// Screenshots arrive base64-encoded in a JSON body; a generous cap keeps
// runaway payloads off the model API.
const maxImageBytes = 15 << 20

// Handler serves the extension-facing API.
type Handler struct {
	extractor extract.Extractor
	sessions  *staging.Manager
	telemetry *store.Store // nil when no database is configured
}

func NewHandler(extractor extract.Extractor, sessions *staging.Manager, telemetry *store.Store) *Handler {
	return &Handler{
		extractor: extractor,
		sessions:  sessions,
		telemetry: telemetry,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Server is running",
	})
}

type processImageRequest struct {
	Image string `json:"image"`
}

type processImageResponse struct {
	Success bool           `json:"success"`
	Result  []event.Record `json:"result"`
}

// ProcessImage is the stateless extraction endpoint: one screenshot in,
// candidate event records out. Session-based clients use the staging API
// instead.
func (h *Handler) ProcessImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)

	var req processImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Image == "" {
		respondError(w, http.StatusBadRequest, "No image provided")
		return
	}

	img, err := extract.DecodeImage(req.Image)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid image encoding")
		return
	}

	records, err := h.extractor.Extract(r.Context(), img)
	if err != nil {
		httperrors.LogError(r, "event extraction failed", err)
		metrics.ObserveExtraction("error", 0)
		respondJSON(w, http.StatusInternalServerError, processImageResponse{Result: []event.Record{}})
		return
	}

	metrics.ObserveExtraction("success", len(records))
	h.recordProcessing(r, len(records))

	if records == nil {
		records = []event.Record{}
	}
	respondJSON(w, http.StatusOK, processImageResponse{Success: true, Result: records})
}

type addTimeRequest struct {
	Duration float64 `json:"duration"` // milliseconds
}

// AddTime records the round-trip time the extension reports saving for a
// processed screenshot.
func (h *Handler) AddTime(w http.ResponseWriter, r *http.Request) {
	var req addTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if h.telemetry != nil {
		d := time.Duration(req.Duration * float64(time.Millisecond))
		if err := h.telemetry.RecordSavedTime(r.Context(), d); err != nil {
			httperrors.LogError(r, "saved-time insert failed", err)
			respondError(w, http.StatusInternalServerError, "Failed to record time")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// recordProcessing is best-effort: telemetry loss never fails the request.
func (h *Handler) recordProcessing(r *http.Request, eventCount int) {
	if h.telemetry == nil {
		return
	}
	if err := h.telemetry.RecordProcessing(r.Context(), eventCount); err != nil {
		httperrors.LogWarn(r, "telemetry insert failed", err)
	}
}
