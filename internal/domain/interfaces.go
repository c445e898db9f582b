package domain

import (
	"context"
	"time"
)

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the interface for configuration management
type Config interface {
	GetServerPort() string
	GetLogLevel() string
	GetRemoteBackend() string
	GetRemoteBaseURL() string
	GetRemoteTimeout() time.Duration
	GetSupabaseURL() string
	GetSupabaseKey() string
	GetPositionStore() string
	GetDatabasePath() string
	GetRedisURL() string
	GetScrollDebounce() time.Duration
	GetMaxNoteLength() int
	GetAllowedOrigins() []string
}

// PositionStore is the device-local durable cache of last read positions.
// Get returns (nil, nil) when nothing is stored for the document.
type PositionStore interface {
	Get(ctx context.Context, documentID string) (*Position, error)
	Set(ctx context.Context, documentID string, position Position) error
}

// ProgressRemote is the server side of reading progress.
// FetchPosition returns (nil, nil) when the server has no position for the document.
type ProgressRemote interface {
	FetchPosition(ctx context.Context, documentID string, token string) (*Position, error)
	PushPosition(ctx context.Context, documentID string, position Position, token string) error
}

// HighlightRemote is the server side of highlight annotations.
type HighlightRemote interface {
	ListHighlights(ctx context.Context, documentID string, token string) ([]*Anchor, error)
	CreateHighlight(ctx context.Context, documentID string, draft AnchorDraft, token string) (*Anchor, error)
	UpdateHighlight(ctx context.Context, highlightID string, patch AnchorPatch, token string) (*Anchor, error)
	DeleteHighlight(ctx context.Context, highlightID string, token string) error
}
