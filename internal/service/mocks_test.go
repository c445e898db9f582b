package service

import (
	"context"
	"fmt"
	"sync"

	"reader-sync/internal/domain"
	apperrors "reader-sync/pkg/errors"
)

// MockLogger records messages for assertions.
type MockLogger struct {
	mu       sync.Mutex
	messages []string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{messages: []string{}}
}

func (l *MockLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, level+": "+msg)
}

func (l *MockLogger) Info(msg string, fields ...interface{})  { l.record("INFO", msg) }
func (l *MockLogger) Debug(msg string, fields ...interface{}) { l.record("DEBUG", msg) }
func (l *MockLogger) Warn(msg string, fields ...interface{})  { l.record("WARN", msg) }
func (l *MockLogger) Error(msg string, err error, fields ...interface{}) {
	l.record("ERROR", msg)
}

// MockPositionStore is an in-memory local position cache.
type MockPositionStore struct {
	mu        sync.Mutex
	positions map[string]domain.Position
	getErr    error
	setErr    error
	sets      int
}

func NewMockPositionStore() *MockPositionStore {
	return &MockPositionStore{positions: make(map[string]domain.Position)}
}

func (m *MockPositionStore) Get(ctx context.Context, documentID string) (*domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.positions[documentID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MockPositionStore) Set(ctx context.Context, documentID string, pos domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.positions[documentID] = pos
	return nil
}

func (m *MockPositionStore) get(documentID string) (domain.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[documentID]
	return p, ok
}

// MockProgressRemote is an in-memory progress endpoint.
type MockProgressRemote struct {
	mu        sync.Mutex
	positions map[string]domain.Position
	fetchErr  error
	pushErr   error
	pushes    []domain.Position
	tokens    []string
	// pushGate blocks PushPosition without honoring ctx, like postgrest-go
	pushGate chan struct{}
}

func NewMockProgressRemote() *MockProgressRemote {
	return &MockProgressRemote{positions: make(map[string]domain.Position)}
}

func (m *MockProgressRemote) FetchPosition(ctx context.Context, documentID, token string) (*domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	p, ok := m.positions[documentID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MockProgressRemote) PushPosition(ctx context.Context, documentID string, pos domain.Position, token string) error {
	if m.pushGate != nil {
		<-m.pushGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, token)
	if m.pushErr != nil {
		return m.pushErr
	}
	m.pushes = append(m.pushes, pos)
	m.positions[documentID] = pos
	return nil
}

func (m *MockProgressRemote) pushed() []domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Position(nil), m.pushes...)
}

func (m *MockProgressRemote) setPushErr(err error) {
	m.mu.Lock()
	m.pushErr = err
	m.mu.Unlock()
}

// MockHighlightRemote is an in-memory highlight endpoint. A non-nil gate
// blocks the matching call until the test sends on it.
type MockHighlightRemote struct {
	mu         sync.Mutex
	highlights map[string]*domain.Anchor
	order      []string
	nextID     int
	calls      []string

	listErr   error
	createErr error
	updateErr error
	deleteErr error

	createGate chan struct{}
	createSeen chan struct{}
	updateGate chan struct{}
	updateSeen chan struct{}
}

func NewMockHighlightRemote() *MockHighlightRemote {
	return &MockHighlightRemote{highlights: make(map[string]*domain.Anchor)}
}

func (m *MockHighlightRemote) seed(a *domain.Anchor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.highlights[a.ID] = a.Clone()
	m.order = append(m.order, a.ID)
}

func (m *MockHighlightRemote) ListHighlights(ctx context.Context, documentID, token string) ([]*domain.Anchor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "list")
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []*domain.Anchor{}
	for _, id := range m.order {
		if a, ok := m.highlights[id]; ok && a.DocumentID == documentID {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

func (m *MockHighlightRemote) CreateHighlight(ctx context.Context, documentID string, draft domain.AnchorDraft, token string) (*domain.Anchor, error) {
	if m.createSeen != nil {
		m.createSeen <- struct{}{}
	}
	if m.createGate != nil {
		select {
		case <-m.createGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "create")
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
	}
	m.highlights[a.ID] = a
	m.order = append(m.order, a.ID)
	return a.Clone(), nil
}

func (m *MockHighlightRemote) UpdateHighlight(ctx context.Context, id string, patch domain.AnchorPatch, token string) (*domain.Anchor, error) {
	if m.updateSeen != nil {
		m.updateSeen <- struct{}{}
	}
	if m.updateGate != nil {
		select {
		case <-m.updateGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "update:"+id)
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	a, ok := m.highlights[id]
	if !ok {
		return nil, apperrors.NewConflictError("highlight not found", nil)
	}
	patch.Apply(a)
	return a.Clone(), nil
}

func (m *MockHighlightRemote) DeleteHighlight(ctx context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "delete:"+id)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.highlights[id]; !ok {
		return apperrors.NewConflictError("highlight not found", nil)
	}
	delete(m.highlights, id)
	return nil
}

func (m *MockHighlightRemote) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.highlights)
}

func (m *MockHighlightRemote) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func paginatedDoc(pages int) *domain.Document {
	return &domain.Document{ID: "doc-1", Format: domain.FormatPaginated, TotalUnits: pages}
}

func reflowableDoc() *domain.Document {
	return &domain.Document{ID: "book-1", Format: domain.FormatReflowable}
}

func pageDraft(page int, color domain.HighlightColor) domain.AnchorDraft {
	return domain.AnchorDraft{
		Range: domain.AnchorRange{Page: page, Rects: []domain.Rect{{X: 1, Y: 1, Width: 10, Height: 2}}},
		Color: color,
	}
}
