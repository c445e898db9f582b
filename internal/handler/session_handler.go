package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"reader-sync/internal/domain"
	"reader-sync/internal/service"
)

// SessionHandler handles reader session HTTP requests
type SessionHandler struct {
	sessions *service.SessionManager
	logger   domain.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *service.SessionManager, logger domain.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

type openSessionRequest struct {
	Document    domain.Document    `json:"document"`
	DeviceClass domain.DeviceClass `json:"device_class"`
}

type sessionResponse struct {
	Document    domain.Document       `json:"document"`
	OpenedAt    time.Time             `json:"opened_at"`
	StartAction domain.SyncAction     `json:"start_action"`
	Viewport    service.ViewportState `json:"viewport"`
	Highlights  []*domain.Anchor      `json:"highlights"`
}

type navigationResponse struct {
	Moved    bool                  `json:"moved"`
	Viewport service.ViewportState `json:"viewport"`
}

type advanceRequest struct {
	Direction int `json:"direction"`
}

type layoutRequest struct {
	Pages []domain.PageExtent `json:"pages"`
}

type scrollRequest struct {
	Offset         float64 `json:"offset"`
	ViewportHeight float64 `json:"viewport_height"`
}

type viewModeRequest struct {
	ViewMode    domain.ViewMode    `json:"view_mode"`
	DeviceClass domain.DeviceClass `json:"device_class"`
}

func newSessionResponse(s *service.ReaderSession) sessionResponse {
	return sessionResponse{
		Document:    s.Document,
		OpenedAt:    s.OpenedAt,
		StartAction: s.StartAction,
		Viewport:    s.Viewport().State(),
		Highlights:  s.Highlights().List(),
	}
}

// OpenSession opens a document, reconciling its reading position
func (h *SessionHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	token, _ := GetTokenFromContext(r)

	var req openSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.sessions.Open(r.Context(), service.OpenRequest{
		Document:    req.Document,
		DeviceClass: req.DeviceClass,
		Token:       token,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, newSessionResponse(session))
}

// GetSession returns the current state of an open document
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(session))
}

// CloseSession closes an open document
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["documentId"]
	if err := h.sessions.Close(documentID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GoTo jumps to a position
func (h *SessionHandler) GoTo(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	var pos domain.Position
	if !decodeJSON(w, r, &pos) {
		return
	}
	_, moved, err := session.Viewport().GoTo(pos)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, navigationResponse{Moved: moved, Viewport: session.Viewport().State()})
}

// Advance steps one page or spread forward or back
func (h *SessionHandler) Advance(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	var req advanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	_, moved, err := session.Viewport().Advance(req.Direction)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, navigationResponse{Moved: moved, Viewport: session.Viewport().State()})
}

// SetLayout records page extents for continuous scrolling
func (h *SessionHandler) SetLayout(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	var req layoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := session.Viewport().SetLayout(req.Pages); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ObserveScroll reports a scroll offset in continuous mode
func (h *SessionHandler) ObserveScroll(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	var req scrollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	_, visible, err := session.Viewport().ObserveScroll(req.Offset, req.ViewportHeight)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, navigationResponse{Moved: visible, Viewport: session.Viewport().State()})
}

// SetViewMode switches the view mode
func (h *SessionHandler) SetViewMode(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	var req viewModeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := session.Viewport().SetViewMode(req.ViewMode, req.DeviceClass)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GetProgress reports local and remote progress for a document
func (h *SessionHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["documentId"]
	progress, err := h.sessions.Progress(documentID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// sessionFromRequest resolves the open session and refreshes its token.
func sessionFromRequest(w http.ResponseWriter, r *http.Request, sessions *service.SessionManager, logger domain.Logger) (*service.ReaderSession, bool) {
	documentID := mux.Vars(r)["documentId"]
	if documentID == "" {
		writeError(w, http.StatusBadRequest, "Document ID is required")
		return nil, false
	}
	session, err := sessions.Get(documentID)
	if err != nil {
		writeServiceError(w, logger, err)
		return nil, false
	}
	if token, ok := GetTokenFromContext(r); ok && token != session.Token() {
		session.SetToken(token)
	}
	return session, true
}
