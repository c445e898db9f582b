package domain

import "errors"

// Domain errors
var (
	ErrSessionNotFound      = errors.New("reader session not found")
	ErrAnchorNotFound       = errors.New("highlight not found")
	ErrUnsupportedForFormat = errors.New("operation not supported for this document format")
	ErrStoreClosed          = errors.New("highlight store closed")
	ErrInvalidToken         = errors.New("invalid token")
)

// ValidationError represents a validation error with field and message information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}
