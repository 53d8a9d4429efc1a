package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eventsync/eventsync/internal/auth"
	"github.com/eventsync/eventsync/internal/event"
	"github.com/eventsync/eventsync/internal/extract"
	httperrors "github.com/eventsync/eventsync/internal/http/errors"
	"github.com/eventsync/eventsync/internal/metrics"
	"github.com/eventsync/eventsync/internal/staging"
)

// session resolves the caller's staging controller. RequireToken has already
// run on every staging route, so a missing identity means a wiring bug rather
// than an unauthenticated request.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*staging.Controller, *auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized: No valid authorization header")
		return nil, nil, false
	}
	return h.sessions.Session(id.Subject), id, true
}

func eventID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

type beginStagingRequest struct {
	Image    string `json:"image"`
	TimeZone string `json:"timeZone"`
}

// BeginStaging captures a screenshot into a fresh staging session. The
// optional timeZone is the viewer's IANA zone; drafts and committed events
// are rendered in it.
func (h *Handler) BeginStaging(w http.ResponseWriter, r *http.Request) {
	ctl, _, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)

	var req beginStagingRequest
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

	var loc *time.Location
	if req.TimeZone != "" {
		loc, err = time.LoadLocation(req.TimeZone)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Unknown timeZone")
			return
		}
	}

	v, err := ctl.BeginStaging(r.Context(), img, loc)
	if errors.Is(err, staging.ErrBusy) {
		respondError(w, http.StatusConflict, "A staging operation is already in progress")
		return
	}

	if v.Notice != nil && v.Notice.Kind == staging.NoticeError {
		httperrors.LogInfo(r, "staging extraction failed")
		metrics.ObserveExtraction("error", 0)
	} else {
		metrics.ObserveExtraction("success", len(v.Events))
		h.recordProcessing(r, len(v.Events))
	}

	respondView(w, v)
}

// GetStaging returns the current session snapshot. Reading consumes any
// pending notice.
func (h *Handler) GetStaging(w http.ResponseWriter, r *http.Request) {
	ctl, _, ok := h.session(w, r)
	if !ok {
		return
	}
	respondView(w, ctl.View())
}

// AddDraft appends a blank placeholder event to the session.
func (h *Handler) AddDraft(w http.ResponseWriter, r *http.Request) {
	ctl, _, ok := h.session(w, r)
	if !ok {
		return
	}
	respondView(w, ctl.AddDraft())
}

func (h *Handler) Expand(w http.ResponseWriter, r *http.Request) {
	ctl, _, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := eventID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid event id")
		return
	}
	v, err := ctl.Expand(id)
	h.respondStaging(w, v, err)
}

func (h *Handler) BeginEdit(w http.ResponseWriter, r *http.Request) {
	ctl, _, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := eventID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid event id")
		return
	}
	v, err := ctl.BeginEdit(id)
	h.respondStaging(w, v, err)
}

// EditDraft merges field changes into the draft buffer without touching the
// stored record.
func (h *Handler) EditDraft(w http.ResponseWriter, r *http.Request) {
	ctl, _, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := eventID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid event id")
		return
	}
	p, perr := decodePatch(r)
	if perr != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	v, err := ctl.EditDraft(id, p)
	h.respondStaging(w, v, err)
}

// SaveEdit commits the draft buffer. Clients may post a final patch with the
// save, or an empty body to commit the buffer as-is.
func (h *Handler) SaveEdit(w http.ResponseWriter, r *http.Request) {
	ctl, _, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := eventID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid event id")
		return
	}
	p, perr := decodePatch(r)
	if perr != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	v, err := ctl.SaveEdit(id, p)
	h.respondStaging(w, v, err)
}

func (h *Handler) CancelEdit(w http.ResponseWriter, r *http.Request) {
	ctl, _, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := eventID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid event id")
		return
	}
	v, err := ctl.CancelEdit(id)
	h.respondStaging(w, v, err)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	ctl, _, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := eventID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid event id")
		return
	}
	v, err := ctl.Delete(id)
	h.respondStaging(w, v, err)
}

type commitResponse struct {
	Success bool         `json:"success"`
	Session staging.View `json:"session"`
	Added   int          `json:"added"`
	Failed  int          `json:"failed"`
}

// Commit writes every staged event to the caller's calendar and resets the
// session. The response reports per-batch accounting; individual failures do
// not fail the request.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	ctl, id, ok := h.session(w, r)
	if !ok {
		return
	}
	if !id.HasScope(auth.CalendarScope) {
		respondError(w, http.StatusForbidden, "Forbidden: Token is missing the calendar scope")
		return
	}

	v, summary, err := ctl.Commit(r.Context(), id.Token)
	if errors.Is(err, staging.ErrBusy) {
		respondError(w, http.StatusConflict, "No staged events to commit")
		return
	}

	failed := len(summary.Failures)
	outcome := "success"
	switch {
	case summary.SuccessCount == 0:
		outcome = "failure"
	case failed > 0:
		outcome = "partial"
	}
	metrics.ObserveCommit(outcome, summary.SuccessCount, failed)
	for _, f := range summary.Failures {
		httperrors.LogWarn(r, "calendar insert failed for "+f.Record.Title, f.Err)
	}

	respondJSON(w, http.StatusOK, commitResponse{
		Success: true,
		Session: v,
		Added:   summary.SuccessCount,
		Failed:  failed,
	})
}

func (h *Handler) respondStaging(w http.ResponseWriter, v staging.View, err error) {
	switch {
	case errors.Is(err, staging.ErrNotFound):
		respondError(w, http.StatusNotFound, "Event not found")
	case errors.Is(err, staging.ErrNotEditing):
		respondError(w, http.StatusConflict, "Event is not being edited")
	case err != nil:
		respondError(w, http.StatusInternalServerError, "Internal server error")
	default:
		respondView(w, v)
	}
}

// decodePatch tolerates an empty body; every field is optional.
func decodePatch(r *http.Request) (event.Patch, error) {
	var p event.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return event.Patch{}, err
	}
	return p, nil
}
