package domain

import "fmt"

// Position is an opaque pointer into a document's content.
//
// For paginated documents Page is the 1-based page index and Percentage is derived
// from it. For reflowable documents Locator carries the content-fragment identifier
// and Percentage is the completion fraction reported by the renderer.
type Position struct {
	Page       int     `json:"page,omitempty"`
	Locator    string  `json:"locator,omitempty"`
	Percentage float64 `json:"percentage"`
}

// StartOf returns the start-of-document position for the given document.
func StartOf(doc *Document) Position {
	if doc.IsPaginated() {
		return PagePosition(doc, 1)
	}
	return Position{Percentage: 0}
}

// PagePosition builds a paginated position with its derived percentage.
func PagePosition(doc *Document, page int) Position {
	return Position{Page: page, Percentage: pagePercentage(page, doc.TotalUnits)}
}

func pagePercentage(page, total int) float64 {
	if total <= 1 {
		return 1
	}
	if page <= 1 {
		return 0
	}
	if page >= total {
		return 1
	}
	return float64(page-1) / float64(total-1)
}

// Validate checks the position against the document it points into.
func (p Position) Validate(doc *Document) error {
	if doc.IsPaginated() {
		if p.Page < 1 || p.Page > doc.TotalUnits {
			return &ValidationError{
				Field:   "page",
				Message: fmt.Sprintf("page %d is outside 1..%d", p.Page, doc.TotalUnits),
			}
		}
		return nil
	}
	if p.Locator == "" {
		return &ValidationError{Field: "locator", Message: "locator is required for reflowable documents"}
	}
	if p.Percentage < 0 || p.Percentage > 1 {
		return &ValidationError{Field: "percentage", Message: "percentage must be within [0,1]"}
	}
	return nil
}

// Equal compares two positions field by field.
func (p Position) Equal(other Position) bool {
	return p.Page == other.Page && p.Locator == other.Locator && p.Percentage == other.Percentage
}

// PositionComparator orders two positions of the same document format.
// Compare returns a negative number when a is behind b, zero when they are
// equally advanced and a positive number when a is further ahead.
type PositionComparator interface {
	Compare(a, b Position) int
}

// PositionComparatorFunc adapts a function to PositionComparator.
type PositionComparatorFunc func(a, b Position) int

func (f PositionComparatorFunc) Compare(a, b Position) int {
	return f(a, b)
}

// PageComparator orders paginated positions by page index.
var PageComparator = PositionComparatorFunc(func(a, b Position) int {
	return a.Page - b.Page
})

// PercentageComparator orders reflowable positions by completion percentage.
// Locators are opaque and never compared.
var PercentageComparator = PositionComparatorFunc(func(a, b Position) int {
	switch {
	case a.Percentage < b.Percentage:
		return -1
	case a.Percentage > b.Percentage:
		return 1
	default:
		return 0
	}
})
