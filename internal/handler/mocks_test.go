package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"reader-sync/internal/domain"
	"reader-sync/internal/service"
	apperrors "reader-sync/pkg/errors"
)

type memPositionStore struct {
	mu        sync.Mutex
	positions map[string]domain.Position
}

func (m *memPositionStore) Get(ctx context.Context, documentID string) (*domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[documentID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memPositionStore) Set(ctx context.Context, documentID string, pos domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[documentID] = pos
	return nil
}

type memProgressRemote struct {
	mu        sync.Mutex
	positions map[string]domain.Position
	tokens    []string
}

func (m *memProgressRemote) FetchPosition(ctx context.Context, documentID, token string) (*domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[documentID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memProgressRemote) PushPosition(ctx context.Context, documentID string, pos domain.Position, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[documentID] = pos
	m.tokens = append(m.tokens, token)
	return nil
}

func (m *memProgressRemote) lastToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tokens) == 0 {
		return ""
	}
	return m.tokens[len(m.tokens)-1]
}

type memHighlightRemote struct {
	mu        sync.Mutex
	anchors   map[string]*domain.Anchor
	nextID    int
	createErr error
}

func (m *memHighlightRemote) ListHighlights(ctx context.Context, documentID, token string) ([]*domain.Anchor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Anchor{}
	for _, a := range m.anchors {
		if a.DocumentID == documentID {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

func (m *memHighlightRemote) CreateHighlight(ctx context.Context, documentID string, draft domain.AnchorDraft, token string) (*domain.Anchor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextID++
	a := &domain.Anchor{
		ID:         fmt.Sprintf("srv-%d", m.nextID),
		DocumentID: documentID,
		Range:      draft.Range,
		Color:      draft.Color,
		Note:       draft.Note,
		Quote:      draft.Quote,
		CreatedAt:  time.Now(),
	}
	m.anchors[a.ID] = a
	return a.Clone(), nil
}

func (m *memHighlightRemote) UpdateHighlight(ctx context.Context, id string, patch domain.AnchorPatch, token string) (*domain.Anchor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.anchors[id]
	if !ok {
		return nil, apperrors.NewConflictError("highlight no longer exists", nil)
	}
	patch.Apply(a)
	return a.Clone(), nil
}

func (m *memHighlightRemote) DeleteHighlight(ctx context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.anchors[id]; !ok {
		return apperrors.NewConflictError("highlight no longer exists", nil)
	}
	delete(m.anchors, id)
	return nil
}

type testAPI struct {
	handler         http.Handler
	sessions        *service.SessionManager
	progress        *service.ProgressSync
	store           *memPositionStore
	progressRemote  *memProgressRemote
	highlightRemote *memHighlightRemote
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := NewMockHandlerLogger()
	api := &testAPI{
		store:           &memPositionStore{positions: make(map[string]domain.Position)},
		progressRemote:  &memProgressRemote{positions: make(map[string]domain.Position)},
		highlightRemote: &memHighlightRemote{anchors: make(map[string]*domain.Anchor)},
	}
	api.progress = service.NewProgressSync(api.store, api.progressRemote, nil, time.Second, logger)
	api.sessions = service.NewSessionManager(api.progress, api.highlightRemote, service.SessionOptions{ScrollDebounce: 10 * time.Millisecond}, logger)
	api.handler = NewRouter(
		NewSessionHandler(api.sessions, logger),
		NewHighlightHandler(api.sessions, logger),
		BearerTokenMiddleware(nil, logger),
		[]string{"http://localhost:5173"},
	)
	t.Cleanup(func() {
		api.sessions.CloseAll()
		api.progress.Wait()
	})
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	return a.doWithToken(t, method, path, "t1", body)
}

func (a *testAPI) doWithToken(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func (a *testAPI) openPaginated(t *testing.T, id string, pages int, device domain.DeviceClass) {
	t.Helper()
	rr := a.do(t, http.MethodPost, "/api/v1/sessions", map[string]interface{}{
		"document":     map[string]interface{}{"id": id, "format": "paginated", "total_units": pages},
		"device_class": device,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d opening session, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}
