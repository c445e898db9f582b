package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"reader-sync/internal/domain"
	"reader-sync/internal/service"
)

// HighlightHandler handles highlight HTTP requests for open sessions
type HighlightHandler struct {
	sessions *service.SessionManager
	logger   domain.Logger
}

// NewHighlightHandler creates a new highlight handler
func NewHighlightHandler(sessions *service.SessionManager, logger domain.Logger) *HighlightHandler {
	return &HighlightHandler{
		sessions: sessions,
		logger:   logger,
	}
}

type applyColorRequest struct {
	Color domain.HighlightColor `json:"color"`
}

type applyColorResponse struct {
	Removed   bool           `json:"removed"`
	Highlight *domain.Anchor `json:"highlight,omitempty"`
}

// ListHighlights returns the highlights of an open document
func (h *HighlightHandler) ListHighlights(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Highlights().List())
}

// CreateHighlight adds a highlight
func (h *HighlightHandler) CreateHighlight(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	var draft domain.AnchorDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	anchor, err := session.Highlights().Add(r.Context(), draft)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, anchor)
}

// ReloadHighlights replaces the highlights with the server copy
func (h *HighlightHandler) ReloadHighlights(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	anchors, err := session.Highlights().LoadAll(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, anchors)
}

// UpdateHighlight changes the color or note of a highlight
func (h *HighlightHandler) UpdateHighlight(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	var patch domain.AnchorPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	anchor, err := session.Highlights().Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, anchor)
}

// DeleteHighlight removes a highlight
func (h *HighlightHandler) DeleteHighlight(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	if err := session.Highlights().Remove(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyColor recolors a highlight, or removes it when the color is unchanged
func (h *HighlightHandler) ApplyColor(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	var req applyColorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	anchor, removed, err := session.Highlights().ApplyColor(r.Context(), mux.Vars(r)["id"], req.Color)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, applyColorResponse{Removed: removed, Highlight: anchor})
}
