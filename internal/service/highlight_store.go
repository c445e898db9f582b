package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"reader-sync/internal/domain"
	apperrors "reader-sync/pkg/errors"
)

const tempIDPrefix = "tmp-"

type opKind int

const (
	opNone opKind = iota
	opCreate
	opUpdate
	opRemove
)

// lane serializes remote mutations of one anchor. Blocked senders on a channel
// are woken in arrival order, so mutations reach the remote in the order they
// were issued.
type lane chan struct{}

func newLane() lane { return make(lane, 1) }

func (l lane) acquire(ctx context.Context) error {
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l lane) release() { <-l }

type anchorEntry struct {
	lane   lane
	anchor *domain.Anchor // nil once removed locally
	op     opKind
	// removing is the server id of an in-flight removal
	removing string
}

// HighlightStore owns the anchors of one open document. Mutations are applied
// locally first and rolled back when the remote call fails.
type HighlightStore struct {
	doc           *domain.Document
	remote        domain.HighlightRemote
	logger        domain.Logger
	token         func() string
	maxNoteLength int
	now           func() time.Time

	mu       sync.Mutex
	entries  map[string]*anchorEntry
	aliases  map[string]string // temporary id -> server id
	order    []string
	inflight map[*anchorEntry]struct{}
	closed   bool
}

// NewHighlightStore creates an empty store. token is consulted on every remote call.
func NewHighlightStore(doc *domain.Document, remote domain.HighlightRemote, token func() string, maxNoteLength int, logger domain.Logger) *HighlightStore {
	if maxNoteLength <= 0 {
		maxNoteLength = domain.DefaultMaxNoteLength
	}
	return &HighlightStore{
		doc:           doc,
		remote:        remote,
		logger:        logger,
		token:         token,
		maxNoteLength: maxNoteLength,
		now:           time.Now,
		entries:       make(map[string]*anchorEntry),
		aliases:       make(map[string]string),
		inflight:      make(map[*anchorEntry]struct{}),
	}
}

// List returns copies of the anchors in display order.
func (s *HighlightStore) List() []*domain.Anchor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Anchor, 0, len(s.order))
	for _, id := range s.order {
		if e := s.entries[id]; e != nil && e.anchor != nil {
			out = append(out, e.anchor.Clone())
		}
	}
	return out
}

// Get returns a copy of one anchor, resolving temporary ids.
func (s *HighlightStore) Get(id string) (*domain.Anchor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.resolveLocked(id)
	if e == nil || e.anchor == nil {
		return nil, domain.ErrAnchorNotFound
	}
	return e.anchor.Clone(), nil
}

// Add creates a highlight. The anchor is visible under a temporary id until the
// server assigns one; the temporary id keeps resolving afterwards.
func (s *HighlightStore) Add(ctx context.Context, draft domain.AnchorDraft) (*domain.Anchor, error) {
	if err := draft.Range.Validate(s.doc); err != nil {
		return nil, err
	}
	if err := domain.ValidateColor(draft.Color); err != nil {
		return nil, err
	}
	if err := domain.ValidateNote(draft.Note, s.maxNoteLength); err != nil {
		return nil, err
	}

	tempID := tempIDPrefix + uuid.NewString()
	e := &anchorEntry{lane: newLane()}
	// fresh lane, cannot block
	_ = e.lane.acquire(context.Background())
	defer e.lane.release()

	optimistic := &domain.Anchor{
		ID:         tempID,
		DocumentID: s.doc.ID,
		Range:      draft.Range,
		Color:      draft.Color,
		Note:       draft.Note,
		Quote:      draft.Quote,
		CreatedAt:  s.now(),
		Pending:    true,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, domain.ErrStoreClosed
	}
	s.mu.Unlock()

	created, err := Mutate(ctx,
		func() func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			e.anchor = optimistic
			e.op = opCreate
			s.entries[tempID] = e
			s.order = append(s.order, tempID)
			s.inflight[e] = struct{}{}
			return func() {
				s.mu.Lock()
				defer s.mu.Unlock()
				s.dropLocked(e, tempID)
			}
		},
		func(ctx context.Context) (*domain.Anchor, error) {
			return s.remote.CreateHighlight(ctx, s.doc.ID, draft, s.token())
		},
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	e.op = opNone
	delete(s.inflight, e)

	if err != nil {
		s.logger.Warn("Highlight not saved", "document_id", s.doc.ID, "error", err)
		return nil, err
	}
	if created == nil || created.ID == "" {
		if !s.closed {
			s.dropLocked(e, tempID)
		}
		return nil, apperrors.NewInternalError("remote returned no highlight id", nil)
	}
	result := created.Clone()
	result.Pending = false
	if result.DocumentID == "" {
		result.DocumentID = s.doc.ID
	}
	if s.closed {
		return result, nil
	}

	if other := s.entries[result.ID]; other != nil && other != e {
		// a reload already brought in the server copy
		s.dropLocked(other, result.ID)
	}
	e.anchor = result
	delete(s.entries, tempID)
	s.entries[result.ID] = e
	s.aliases[tempID] = result.ID
	for i, id := range s.order {
		if id == tempID {
			s.order[i] = result.ID
		}
	}
	s.logger.Debug("Highlight created", "document_id", s.doc.ID, "highlight_id", result.ID, "temp_id", tempID)
	return result.Clone(), nil
}

// Update changes color and/or note. A failed remote call restores the previous
// state; a remote "not found" drops the anchor locally and returns a conflict error.
func (s *HighlightStore) Update(ctx context.Context, id string, patch domain.AnchorPatch) (*domain.Anchor, error) {
	if err := s.validatePatch(patch); err != nil {
		return nil, err
	}
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := e.lane.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.lane.release()
	return s.update(ctx, e, patch)
}

// Remove deletes an anchor. A failed remote call re-inserts it at its previous
// index; an anchor already gone remotely counts as removed.
func (s *HighlightStore) Remove(ctx context.Context, id string) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	if err := e.lane.acquire(ctx); err != nil {
		return err
	}
	defer e.lane.release()
	return s.remove(ctx, e)
}

// ApplyColor implements the color picker: choosing the anchor's current color
// removes it, any other palette color recolors it. removed reports which happened.
func (s *HighlightStore) ApplyColor(ctx context.Context, id string, color domain.HighlightColor) (anchor *domain.Anchor, removed bool, err error) {
	if err := domain.ValidateColor(color); err != nil {
		return nil, false, err
	}
	e, err := s.lookup(id)
	if err != nil {
		return nil, false, err
	}
	if err := e.lane.acquire(ctx); err != nil {
		return nil, false, err
	}
	defer e.lane.release()

	s.mu.Lock()
	if e.anchor == nil {
		s.mu.Unlock()
		return nil, false, domain.ErrAnchorNotFound
	}
	same := e.anchor.Color == color
	s.mu.Unlock()

	if same {
		return nil, true, s.remove(ctx, e)
	}
	anchor, err = s.update(ctx, e, domain.AnchorPatch{Color: &color})
	return anchor, false, err
}

// LoadAll replaces the in-memory set with the server snapshot. Anchors with a
// mutation in flight keep their local state.
func (s *HighlightStore) LoadAll(ctx context.Context) ([]*domain.Anchor, error) {
	anchors, err := s.remote.ListHighlights(ctx, s.doc.ID, s.token())
	if err != nil {
		s.logger.Warn("Failed to load highlights", "document_id", s.doc.ID, "error", err)
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, domain.ErrStoreClosed
	}

	removing := make(map[string]bool)
	for e := range s.inflight {
		if e.op == opRemove {
			removing[e.removing] = true
		}
	}

	entries := make(map[string]*anchorEntry, len(anchors))
	order := make([]string, 0, len(anchors))
	placed := make(map[*anchorEntry]bool)
	for _, a := range anchors {
		if a == nil || a.ID == "" || removing[a.ID] {
			continue
		}
		if _, dup := entries[a.ID]; dup {
			continue
		}
		e := s.entries[a.ID]
		switch {
		case e == nil:
			e = &anchorEntry{lane: newLane(), anchor: a.Clone()}
		case e.op == opUpdate || e.op == opCreate:
			// keep the local version of an in-flight mutation
		default:
			e.anchor = a.Clone()
			e.anchor.Pending = false
		}
		entries[a.ID] = e
		order = append(order, a.ID)
		placed[e] = true
	}

	// in-flight creates and updates the server does not know yet
	for _, id := range s.order {
		e := s.entries[id]
		if e == nil || placed[e] || e.anchor == nil {
			continue
		}
		if e.op == opCreate || e.op == opUpdate {
			entries[id] = e
			order = append(order, id)
		}
	}

	// entries that disappeared are gone for anyone still waiting on their lane
	for id, e := range s.entries {
		if _, kept := entries[id]; !kept && !placed[e] && e.op == opNone {
			e.anchor = nil
		}
	}

	s.entries = entries
	s.order = order
	out := make([]*domain.Anchor, 0, len(order))
	for _, id := range order {
		out = append(out, entries[id].anchor.Clone())
	}
	s.mu.Unlock()

	s.logger.Debug("Highlights loaded", "document_id", s.doc.ID, "count", len(out))
	return out, nil
}

// Close tears the store down. In-flight mutations still reach the remote but
// their results are no longer applied.
func (s *HighlightStore) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *HighlightStore) update(ctx context.Context, e *anchorEntry, patch domain.AnchorPatch) (*domain.Anchor, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, domain.ErrStoreClosed
	}
	if e.anchor == nil {
		s.mu.Unlock()
		return nil, domain.ErrAnchorNotFound
	}
	snapshot := e.anchor.Clone()
	serverID := e.anchor.ID
	s.mu.Unlock()

	updated, err := Mutate(ctx,
		func() func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			patch.Apply(e.anchor)
			e.anchor.Pending = true
			e.op = opUpdate
			s.inflight[e] = struct{}{}
			return func() {
				s.mu.Lock()
				defer s.mu.Unlock()
				if !s.closed && e.anchor != nil {
					e.anchor = snapshot
				}
			}
		},
		func(ctx context.Context) (*domain.Anchor, error) {
			return s.remote.UpdateHighlight(ctx, serverID, patch, s.token())
		},
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	e.op = opNone
	delete(s.inflight, e)

	if err != nil {
		if apperrors.IsConflict(err) && !s.closed {
			s.logger.Info("Highlight no longer exists remotely", "document_id", s.doc.ID, "highlight_id", serverID)
			s.dropLocked(e, serverID)
		} else {
			s.logger.Warn("Highlight update not saved", "document_id", s.doc.ID, "highlight_id", serverID, "error", err)
		}
		return nil, err
	}

	result := updated.Clone()
	result.Pending = false
	if result.ID == "" {
		result.ID = serverID
	}
	if result.DocumentID == "" {
		result.DocumentID = s.doc.ID
	}
	if !s.closed && e.anchor != nil {
		e.anchor = result
	}
	return result.Clone(), nil
}

func (s *HighlightStore) remove(ctx context.Context, e *anchorEntry) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrStoreClosed
	}
	if e.anchor == nil {
		// already removed, e.g. its create failed while we waited
		s.mu.Unlock()
		return nil
	}
	snapshot := e.anchor.Clone()
	serverID := e.anchor.ID
	index := indexOf(s.order, serverID)
	s.mu.Unlock()

	_, err := Mutate(ctx,
		func() func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.dropLocked(e, serverID)
			e.op = opRemove
			e.removing = serverID
			s.inflight[e] = struct{}{}
			return func() {
				s.mu.Lock()
				defer s.mu.Unlock()
				if s.closed {
					return
				}
				e.anchor = snapshot
				s.entries[serverID] = e
				s.order = insertAt(s.order, index, serverID)
			}
		},
		func(ctx context.Context) (struct{}, error) {
			err := s.remote.DeleteHighlight(ctx, serverID, s.token())
			if apperrors.IsConflict(err) {
				s.logger.Debug("Highlight already deleted remotely", "highlight_id", serverID)
				return struct{}{}, nil
			}
			return struct{}{}, err
		},
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	e.op = opNone
	e.removing = ""
	delete(s.inflight, e)

	if err != nil {
		s.logger.Warn("Highlight delete not saved", "document_id", s.doc.ID, "highlight_id", serverID, "error", err)
		return err
	}
	return nil
}

func (s *HighlightStore) validatePatch(patch domain.AnchorPatch) error {
	if patch.IsEmpty() {
		return &domain.ValidationError{Message: "nothing to update"}
	}
	if patch.Color != nil {
		if err := domain.ValidateColor(*patch.Color); err != nil {
			return err
		}
	}
	if patch.Note != nil {
		if err := domain.ValidateNote(*patch.Note, s.maxNoteLength); err != nil {
			return err
		}
	}
	return nil
}

func (s *HighlightStore) lookup(id string) (*anchorEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}
	e := s.resolveLocked(id)
	if e == nil || e.anchor == nil {
		return nil, domain.ErrAnchorNotFound
	}
	return e, nil
}

func (s *HighlightStore) resolveLocked(id string) *anchorEntry {
	if serverID, ok := s.aliases[id]; ok {
		id = serverID
	}
	return s.entries[id]
}

// dropLocked removes the entry from the visible set.
func (s *HighlightStore) dropLocked(e *anchorEntry, id string) {
	if s.entries[id] == e {
		delete(s.entries, id)
	}
	if i := indexOf(s.order, id); i >= 0 {
		s.order = append(s.order[:i], s.order[i+1:]...)
	}
	e.anchor = nil
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func insertAt(ids []string, index int, id string) []string {
	if index < 0 || index > len(ids) {
		return append(ids, id)
	}
	ids = append(ids, "")
	copy(ids[index+1:], ids[index:])
	ids[index] = id
	return ids
}
