package service

import (
	"math"
	"sync"
	"time"

	"reader-sync/internal/domain"
)

// PositionListener receives every settled position change.
type PositionListener func(domain.Position)

// ViewportState is a snapshot of the viewport for the reader shell.
type ViewportState struct {
	Mode     domain.ViewMode    `json:"view_mode"`
	Device   domain.DeviceClass `json:"device_class"`
	Position domain.Position    `json:"position"`
	// Spread lists the pages visible in double mode.
	Spread []int `json:"spread,omitempty"`
}

// Viewport tracks the current position of one open document under a view mode
// and decides when a position-changed event fires. The current position is
// always the page the reader is on; spreads are derived from it for display.
type Viewport struct {
	doc      *domain.Document
	listener PositionListener
	scroll   *Debouncer[scrollReport]

	mu          sync.Mutex
	mode        domain.ViewMode
	device      domain.DeviceClass
	current     domain.Position
	layout      []domain.PageExtent
	lastEmitted *domain.Position
	// bumped by every explicit navigation; events carrying an older value are dropped
	navSeq uint64

	// serializes listener calls coming from navigation and from the scroll timer
	emitMu sync.Mutex
}

type scrollReport struct {
	pos domain.Position
	seq uint64
}

// NewViewport positions the viewport at start without emitting.
func NewViewport(doc *domain.Document, device domain.DeviceClass, start domain.Position, scrollDebounce time.Duration, listener PositionListener) *Viewport {
	v := &Viewport{
		doc:      doc,
		listener: listener,
		device:   device,
		mode:     domain.DefaultViewMode(device, doc.Format),
	}
	if doc.IsPaginated() {
		start = domain.PagePosition(doc, clampPage(start.Page, doc.TotalUnits))
	}
	v.current = start
	emitted := v.current
	v.lastEmitted = &emitted
	v.scroll = NewDebouncer(scrollDebounce, v.emitScroll)
	return v
}

// State returns a snapshot of the viewport.
func (v *Viewport) State() ViewportState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stateLocked()
}

func (v *Viewport) stateLocked() ViewportState {
	st := ViewportState{Mode: v.mode, Device: v.device, Position: v.current}
	if v.doc.IsPaginated() && v.mode == domain.ViewModeDouble {
		first := spreadStart(v.current.Page)
		st.Spread = []int{first}
		if first+1 <= v.doc.TotalUnits {
			st.Spread = append(st.Spread, first+1)
		}
	}
	return st
}

// GoTo moves to p and emits at once in every mode. Paginated pages are clamped
// into range; reflowable positions are validated. moved is false when p resolves
// to the current position.
func (v *Viewport) GoTo(p domain.Position) (pos domain.Position, moved bool, err error) {
	if v.doc.IsPaginated() {
		p = domain.PagePosition(v.doc, clampPage(p.Page, v.doc.TotalUnits))
	} else if err := p.Validate(v.doc); err != nil {
		return domain.Position{}, false, err
	}

	v.mu.Lock()
	moved = !v.current.Equal(p)
	v.current = p
	v.navSeq++
	seq := v.navSeq
	v.mu.Unlock()

	v.scroll.Cancel()
	v.emit(p, seq)
	return p, moved, nil
}

// Advance steps one page, or one spread in double mode. Moving past either end
// is a no-op and emits nothing.
func (v *Viewport) Advance(direction int) (domain.Position, bool, error) {
	if direction != 1 && direction != -1 {
		return domain.Position{}, false, &domain.ValidationError{Field: "direction", Message: "direction must be 1 or -1"}
	}
	if !v.doc.IsPaginated() {
		return domain.Position{}, false, domain.ErrUnsupportedForFormat
	}

	v.mu.Lock()
	candidate := v.current.Page + direction
	if v.mode == domain.ViewModeDouble {
		candidate = spreadStart(v.current.Page) + direction*2
	}
	if candidate < 1 || candidate > v.doc.TotalUnits {
		pos := v.current
		v.mu.Unlock()
		return pos, false, nil
	}
	v.current = domain.PagePosition(v.doc, candidate)
	v.navSeq++
	pos, seq := v.current, v.navSeq
	v.mu.Unlock()

	v.scroll.Cancel()
	v.emit(pos, seq)
	return pos, true, nil
}

// SetLayout records page extents for continuous-scroll mode, in page order.
func (v *Viewport) SetLayout(pages []domain.PageExtent) error {
	if !v.doc.IsPaginated() {
		return domain.ErrUnsupportedForFormat
	}
	if len(pages) > v.doc.TotalUnits {
		return &domain.ValidationError{Field: "pages", Message: "layout has more pages than the document"}
	}
	for _, p := range pages {
		if p.Height <= 0 {
			return &domain.ValidationError{Field: "pages", Message: "page heights must be positive"}
		}
	}
	v.mu.Lock()
	v.layout = append([]domain.PageExtent(nil), pages...)
	v.mu.Unlock()
	return nil
}

// ObserveScroll derives the current page from a scroll offset in continuous mode.
// The derived position is reported through the scroll debouncer. The boolean is
// false when no page intersects the viewport.
func (v *Viewport) ObserveScroll(offset, viewportHeight float64) (domain.Position, bool, error) {
	if !v.doc.IsPaginated() {
		return domain.Position{}, false, domain.ErrUnsupportedForFormat
	}
	if viewportHeight <= 0 {
		return domain.Position{}, false, &domain.ValidationError{Field: "viewport_height", Message: "viewport height must be positive"}
	}

	v.mu.Lock()
	if v.mode != domain.ViewModeContinuous {
		v.mu.Unlock()
		return domain.Position{}, false, &domain.ValidationError{Field: "view_mode", Message: "scroll observations require continuous mode"}
	}
	page := closestVisiblePage(v.layout, offset, viewportHeight)
	if page == 0 {
		pos := v.current
		v.mu.Unlock()
		return pos, false, nil
	}
	v.current = domain.PagePosition(v.doc, page)
	report := scrollReport{pos: v.current, seq: v.navSeq}
	v.mu.Unlock()

	v.scroll.Push(report)
	return report.pos, true, nil
}

// SetViewMode switches modes. The current page is kept; only the displayed
// spread changes, so switching modes never emits by itself.
func (v *Viewport) SetViewMode(mode domain.ViewMode, device domain.DeviceClass) (ViewportState, error) {
	if !mode.IsValid() {
		return ViewportState{}, &domain.ValidationError{Field: "view_mode", Message: "unknown view mode " + string(mode)}
	}
	if device == "" {
		device = v.device
	}

	// a pending scroll report is the settled position of the mode being left
	v.scroll.Flush()

	v.mu.Lock()
	v.device = device
	v.mode = domain.ConstrainViewMode(mode, device)
	st := v.stateLocked()
	v.mu.Unlock()
	return st, nil
}

// Flush reports any pending scroll-derived position now.
func (v *Viewport) Flush() {
	v.scroll.Flush()
}

// Close drops pending scroll reports.
func (v *Viewport) Close() {
	v.scroll.Stop()
}

func (v *Viewport) emitScroll(r scrollReport) {
	v.emit(r.pos, r.seq)
}

// emit hands pos to the listener unless a later navigation superseded it or it
// repeats the last emitted position.
func (v *Viewport) emit(pos domain.Position, seq uint64) {
	v.emitMu.Lock()
	defer v.emitMu.Unlock()

	v.mu.Lock()
	if seq != v.navSeq {
		v.mu.Unlock()
		return
	}
	if v.lastEmitted != nil && v.lastEmitted.Equal(pos) {
		v.mu.Unlock()
		return
	}
	emitted := pos
	v.lastEmitted = &emitted
	v.mu.Unlock()

	if v.listener != nil {
		v.listener(pos)
	}
}

// spreadStart returns the first page of the double-page spread holding page.
// Spreads are (1,2), (3,4), ...
func spreadStart(page int) int {
	if page%2 == 0 {
		return page - 1
	}
	return page
}

func clampPage(page, total int) int {
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

// closestVisiblePage returns the 1-based page whose visible center is closest to
// the viewport's vertical center, preferring the lower page on ties. Zero means
// no page is visible.
func closestVisiblePage(layout []domain.PageExtent, offset, viewportHeight float64) int {
	viewTop := offset
	viewBottom := offset + viewportHeight
	center := offset + viewportHeight/2

	best := 0
	bestDist := math.Inf(1)
	for i, p := range layout {
		visTop := math.Max(p.Top, viewTop)
		visBottom := math.Min(p.Top+p.Height, viewBottom)
		if visBottom <= visTop {
			continue
		}
		dist := math.Abs((visTop+visBottom)/2 - center)
		if dist < bestDist {
			best = i + 1
			bestDist = dist
		}
	}
	return best
}
