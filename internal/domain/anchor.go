package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultMaxNoteLength bounds highlight notes when no limit is configured.
const DefaultMaxNoteLength = 2000

// HighlightColor is one of the fixed palette colors a highlight can take.
type HighlightColor string

const (
	ColorYellow HighlightColor = "yellow"
	ColorGreen  HighlightColor = "green"
	ColorBlue   HighlightColor = "blue"
	ColorPink   HighlightColor = "pink"
	ColorPurple HighlightColor = "purple"
)

// Palette lists the supported highlight colors in picker order.
var Palette = []HighlightColor{ColorYellow, ColorGreen, ColorBlue, ColorPink, ColorPurple}

// IsValid reports whether the color belongs to the palette.
func (c HighlightColor) IsValid() bool {
	for _, p := range Palette {
		if c == p {
			return true
		}
	}
	return false
}

// Rect is a selection rectangle in page coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// AnchorRange locates a highlight inside a document.
// Paginated documents use Page + Rects, reflowable documents use CFI.
type AnchorRange struct {
	Page  int    `json:"page,omitempty"`
	Rects []Rect `json:"rects,omitempty"`
	CFI   string `json:"cfi,omitempty"`
}

// Validate checks the range against the document's addressing scheme.
func (r AnchorRange) Validate(doc *Document) error {
	if doc.IsPaginated() {
		if r.Page < 1 || r.Page > doc.TotalUnits {
			return &ValidationError{Field: "range.page", Message: fmt.Sprintf("page %d is outside 1..%d", r.Page, doc.TotalUnits)}
		}
		if len(r.Rects) == 0 {
			return &ValidationError{Field: "range.rects", Message: "at least one rectangle is required"}
		}
		for _, rect := range r.Rects {
			if rect.Width <= 0 || rect.Height <= 0 {
				return &ValidationError{Field: "range.rects", Message: "rectangles must have a positive size"}
			}
		}
		return nil
	}
	if strings.TrimSpace(r.CFI) == "" {
		return &ValidationError{Field: "range.cfi", Message: "cfi is required for reflowable documents"}
	}
	return nil
}

func (r AnchorRange) clone() AnchorRange {
	out := r
	if r.Rects != nil {
		out.Rects = append([]Rect(nil), r.Rects...)
	}
	return out
}

// Anchor is a highlight or note anchored to a range of a document.
type Anchor struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	Range      AnchorRange    `json:"range"`
	Color      HighlightColor `json:"color"`
	Note       string         `json:"note,omitempty"`
	Quote      string         `json:"quote,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`

	// Pending is true while a mutation for this anchor is in flight.
	Pending bool `json:"pending"`
}

// Clone returns a deep copy safe to hand out of a store.
func (a *Anchor) Clone() *Anchor {
	if a == nil {
		return nil
	}
	out := *a
	out.Range = a.Range.clone()
	return &out
}

// AnchorDraft is the payload for creating a highlight.
type AnchorDraft struct {
	Range AnchorRange    `json:"range"`
	Color HighlightColor `json:"color"`
	Note  string         `json:"note,omitempty"`
	Quote string         `json:"quote,omitempty"`
}

// AnchorPatch carries the optional fields of a highlight update.
type AnchorPatch struct {
	Color *HighlightColor `json:"color,omitempty"`
	Note  *string         `json:"note,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p AnchorPatch) IsEmpty() bool {
	return p.Color == nil && p.Note == nil
}

// Apply copies the patch onto the anchor.
func (p AnchorPatch) Apply(a *Anchor) {
	if p.Color != nil {
		a.Color = *p.Color
	}
	if p.Note != nil {
		a.Note = *p.Note
	}
}

// ValidateColor checks a palette color.
func ValidateColor(c HighlightColor) error {
	if !c.IsValid() {
		return &ValidationError{Field: "color", Message: fmt.Sprintf("unknown color %q", c)}
	}
	return nil
}

// ValidateNote checks the note length in runes.
func ValidateNote(note string, maxLen int) error {
	if maxLen <= 0 {
		maxLen = DefaultMaxNoteLength
	}
	if utf8.RuneCountInString(note) > maxLen {
		return &ValidationError{Field: "note", Message: fmt.Sprintf("note exceeds %d characters", maxLen)}
	}
	return nil
}
