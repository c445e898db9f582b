package service

import (
	"context"
	"sync"
	"time"

	"reader-sync/internal/domain"
)

// DefaultRemoteTimeout bounds a single progress fetch or push.
const DefaultRemoteTimeout = 10 * time.Second

type progressEntry struct {
	progress domain.ReadingProgress
	seq      uint64
	// serializes pushes so an older position never lands after a newer one
	push sync.Mutex
}

// ProgressSync keeps the local position cache and the server copy of reading
// progress in step. Remote failures never block reading: they are logged and the
// position stays pending until the next natural trigger pushes it again.
type ProgressSync struct {
	store   domain.PositionStore
	remote  domain.ProgressRemote
	engine  *ReconciliationEngine
	logger  domain.Logger
	timeout time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*progressEntry
	wg      sync.WaitGroup
}

// NewProgressSync wires the local store, the remote and the reconciliation policy.
func NewProgressSync(store domain.PositionStore, remote domain.ProgressRemote, engine *ReconciliationEngine, timeout time.Duration, logger domain.Logger) *ProgressSync {
	if engine == nil {
		engine = NewReconciliationEngine()
	}
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &ProgressSync{
		store:   store,
		remote:  remote,
		engine:  engine,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
		entries: make(map[string]*progressEntry),
	}
}

// Open resolves the starting position for a document. A pull is applied to the
// local store here; a push is left to the caller via PushAsync so it can outlive ctx.
func (p *ProgressSync) Open(ctx context.Context, doc *domain.Document, token string) (domain.Position, domain.SyncAction) {
	local, err := p.store.Get(ctx, doc.ID)
	if err != nil {
		p.logger.Warn("Failed to read local position", "document_id", doc.ID, "error", err)
		local = nil
	}
	if local != nil {
		if err := local.Validate(doc); err != nil {
			p.logger.Warn("Discarding invalid local position", "document_id", doc.ID, "error", err)
			local = nil
		}
	}

	remote := p.fetch(ctx, doc, token)

	pos, action, err := p.engine.Reconcile(doc, local, remote)
	if err != nil {
		p.logger.Error("Failed to reconcile reading position", err, "document_id", doc.ID)
		pos, action = domain.StartOf(doc), domain.SyncActionNone
	}

	entry := p.entry(doc.ID)
	p.mu.Lock()
	entry.progress.Local = clonePosition(local)
	entry.progress.Remote = clonePosition(remote)
	entry.progress.UpdatedAt = p.now()
	switch action {
	case domain.SyncActionPullRemoteToLocal:
		entry.progress.Local = clonePosition(&pos)
		entry.progress.Pending = false
	case domain.SyncActionPushLocalToRemote:
		entry.progress.Pending = true
	default:
		entry.progress.Pending = false
	}
	p.mu.Unlock()

	if action == domain.SyncActionPullRemoteToLocal {
		if err := p.store.Set(ctx, doc.ID, pos); err != nil {
			p.logger.Warn("Failed to cache pulled position", "document_id", doc.ID, "error", err)
		}
	}

	p.logger.Info("Reading position reconciled",
		"document_id", doc.ID,
		"page", pos.Page,
		"percentage", pos.Percentage,
		"action", string(action),
	)
	return pos, action
}

// Record stores a settled position locally and pushes it in the background.
func (p *ProgressSync) Record(ctx context.Context, docID string, pos domain.Position, token string) {
	if err := p.store.Set(ctx, docID, pos); err != nil {
		p.logger.Warn("Failed to cache position", "document_id", docID, "error", err)
	}
	entry := p.entry(docID)
	p.mu.Lock()
	entry.progress.Local = clonePosition(&pos)
	entry.progress.Pending = true
	entry.progress.UpdatedAt = p.now()
	p.mu.Unlock()

	p.PushAsync(ctx, docID, pos, token)
}

// PushAsync sends pos to the remote without blocking. Pushes superseded by a
// newer one before they start are skipped.
func (p *ProgressSync) PushAsync(ctx context.Context, docID string, pos domain.Position, token string) {
	entry := p.entry(docID)
	p.mu.Lock()
	entry.seq++
	seq := entry.seq
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		entry.push.Lock()
		defer entry.push.Unlock()

		p.mu.Lock()
		stale := seq != entry.seq
		p.mu.Unlock()
		if stale {
			return
		}
		p.push(ctx, entry, docID, pos, token)
	}()
}

// Progress returns a snapshot of the record for a document.
func (p *ProgressSync) Progress(docID string) (domain.ReadingProgress, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.entries[docID]
	if !ok {
		return domain.ReadingProgress{}, false
	}
	out := entry.progress
	out.Local = clonePosition(entry.progress.Local)
	out.Remote = clonePosition(entry.progress.Remote)
	return out, true
}

// Wait blocks until background pushes have finished.
func (p *ProgressSync) Wait() {
	p.wg.Wait()
}

// WaitTimeout is Wait bounded by d. It reports whether every push finished.
func (p *ProgressSync) WaitTimeout(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

func (p *ProgressSync) fetch(ctx context.Context, doc *domain.Document, token string) *domain.Position {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	remote, err := p.remote.FetchPosition(ctx, doc.ID, token)
	if err != nil {
		p.logger.Warn("Failed to fetch remote position", "document_id", doc.ID, "error", err)
		return nil
	}
	if remote != nil {
		if err := remote.Validate(doc); err != nil {
			p.logger.Warn("Discarding invalid remote position", "document_id", doc.ID, "error", err)
			return nil
		}
	}
	return remote
}

func (p *ProgressSync) push(ctx context.Context, entry *progressEntry, docID string, pos domain.Position, token string) {
	pushCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.remote.PushPosition(pushCtx, docID, pos, token); err != nil {
		if ctx.Err() != nil {
			p.logger.Debug("Position push abandoned", "document_id", docID)
			return
		}
		p.logger.Warn("Failed to push position", "document_id", docID, "page", pos.Page, "error", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	entry.progress.Remote = clonePosition(&pos)
	if entry.progress.Local == nil || entry.progress.Local.Equal(pos) {
		entry.progress.Pending = false
	}
	entry.progress.UpdatedAt = p.now()
	p.logger.Debug("Position pushed", "document_id", docID, "page", pos.Page, "percentage", pos.Percentage)
}

func (p *ProgressSync) entry(docID string) *progressEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[docID]
	if !ok {
		e = &progressEntry{progress: domain.ReadingProgress{DocumentID: docID}}
		p.entries[docID] = e
	}
	return e
}

func clonePosition(p *domain.Position) *domain.Position {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}
