package domain

// DocumentFormat selects the addressing scheme used inside a document.
type DocumentFormat string

const (
	// FormatPaginated covers fixed-layout documents addressed by page index (PDF).
	FormatPaginated DocumentFormat = "paginated"
	// FormatReflowable covers reflowable documents addressed by a content-fragment locator (EPUB CFI).
	FormatReflowable DocumentFormat = "reflowable"
)

// IsValid reports whether the format is one of the supported formats.
func (f DocumentFormat) IsValid() bool {
	return f == FormatPaginated || f == FormatReflowable
}

// Document identifies a readable work opened by a reader session.
// It is immutable for the lifetime of the session.
type Document struct {
	ID     string         `json:"id"`
	Format DocumentFormat `json:"format"`
	// TotalUnits is the page count for paginated documents.
	// Zero means unknown/continuous and is only allowed for reflowable documents.
	TotalUnits int `json:"total_units"`
}

// Validate checks that the document carries enough information to be opened.
func (d *Document) Validate() error {
	if d.ID == "" {
		return &ValidationError{Field: "id", Message: "document ID is required"}
	}
	if !d.Format.IsValid() {
		return &ValidationError{Field: "format", Message: "format must be paginated or reflowable"}
	}
	if d.TotalUnits < 0 {
		return &ValidationError{Field: "total_units", Message: "total units cannot be negative"}
	}
	if d.Format == FormatPaginated && d.TotalUnits < 1 {
		return &ValidationError{Field: "total_units", Message: "paginated documents need at least one page"}
	}
	return nil
}

// IsPaginated is a shorthand for Format == FormatPaginated.
func (d *Document) IsPaginated() bool {
	return d.Format == FormatPaginated
}
