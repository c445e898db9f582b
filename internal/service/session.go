package service

import (
	"context"
	"sync"
	"time"

	"reader-sync/internal/domain"
)

// OpenRequest describes a document being opened on a device.
type OpenRequest struct {
	Document    domain.Document
	DeviceClass domain.DeviceClass
	Token       string
}

// ReaderSession is one open document: its viewport, its highlights and the
// progress sync feeding off the viewport's position events.
type ReaderSession struct {
	Document    domain.Document
	OpenedAt    time.Time
	StartAction domain.SyncAction

	viewport   *Viewport
	highlights *HighlightStore

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	token string
}

// Viewport returns the session's viewport controller.
func (s *ReaderSession) Viewport() *Viewport { return s.viewport }

// Highlights returns the session's highlight store.
func (s *ReaderSession) Highlights() *HighlightStore { return s.highlights }

// Token returns the bearer token used for remote calls.
func (s *ReaderSession) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken swaps the bearer token, e.g. after a refresh.
func (s *ReaderSession) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *ReaderSession) close() {
	s.viewport.Flush()
	s.viewport.Close()
	s.highlights.Close()
	s.cancel()
}

// SessionManager keeps one ReaderSession per open document.
type SessionManager struct {
	progress        *ProgressSync
	highlightRemote domain.HighlightRemote
	logger          domain.Logger
	scrollDebounce  time.Duration
	maxNoteLength   int

	mu       sync.Mutex
	sessions map[string]*ReaderSession
}

// SessionOptions holds the tunables of a session manager.
type SessionOptions struct {
	ScrollDebounce time.Duration
	MaxNoteLength  int
}

// NewSessionManager creates a manager with no open sessions.
func NewSessionManager(progress *ProgressSync, highlightRemote domain.HighlightRemote, opts SessionOptions, logger domain.Logger) *SessionManager {
	return &SessionManager{
		progress:        progress,
		highlightRemote: highlightRemote,
		logger:          logger,
		scrollDebounce:  opts.ScrollDebounce,
		maxNoteLength:   opts.MaxNoteLength,
		sessions:        make(map[string]*ReaderSession),
	}
}

// Open reconciles the reading position, builds the viewport at the resolved
// position and loads highlights. Reopening a document replaces its session.
func (m *SessionManager) Open(ctx context.Context, req OpenRequest) (*ReaderSession, error) {
	doc := req.Document
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	device := req.DeviceClass
	if device == "" {
		device = domain.DeviceNarrow
	}
	if !device.IsValid() {
		return nil, &domain.ValidationError{Field: "device_class", Message: "unknown device class " + string(device)}
	}

	sessionCtx, cancel := context.WithCancel(context.Background())
	session := &ReaderSession{
		Document: doc,
		OpenedAt: time.Now(),
		ctx:      sessionCtx,
		cancel:   cancel,
		token:    req.Token,
	}

	start, action := m.progress.Open(ctx, &session.Document, req.Token)
	session.StartAction = action

	session.viewport = NewViewport(&session.Document, device, start, m.scrollDebounce, func(pos domain.Position) {
		m.progress.Record(session.ctx, session.Document.ID, pos, session.Token())
	})
	session.highlights = NewHighlightStore(&session.Document, m.highlightRemote, session.Token, m.maxNoteLength, m.logger)

	if action == domain.SyncActionPushLocalToRemote {
		m.progress.PushAsync(session.ctx, doc.ID, start, req.Token)
	}

	if _, err := session.highlights.LoadAll(ctx); err != nil {
		// reading works without highlights; a reload can fetch them later
		m.logger.Warn("Opening document without highlights", "document_id", doc.ID, "error", err)
	}

	m.mu.Lock()
	previous := m.sessions[doc.ID]
	m.sessions[doc.ID] = session
	m.mu.Unlock()
	if previous != nil {
		previous.close()
	}

	m.logger.Info("Document opened",
		"document_id", doc.ID,
		"format", string(doc.Format),
		"view_mode", string(session.viewport.State().Mode),
		"start_page", start.Page,
		"sync_action", string(action),
	)
	return session, nil
}

// Get returns the open session for a document.
func (m *SessionManager) Get(documentID string) (*ReaderSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[documentID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Close flushes the session's pending position and tears it down. Pushes still
// in flight are abandoned.
func (m *SessionManager) Close(documentID string) error {
	m.mu.Lock()
	s, ok := m.sessions[documentID]
	delete(m.sessions, documentID)
	m.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.close()
	m.logger.Info("Document closed", "document_id", documentID)
	return nil
}

// CloseAll closes every open session.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*ReaderSession)
	m.mu.Unlock()
	for _, s := range sessions {
		s.close()
	}
}

// Progress returns the reading progress record of a document.
func (m *SessionManager) Progress(documentID string) (domain.ReadingProgress, error) {
	if _, err := m.Get(documentID); err != nil {
		return domain.ReadingProgress{}, err
	}
	p, _ := m.progress.Progress(documentID)
	return p, nil
}
