package domain

import "time"

// SyncAction tells the caller which side of a reading progress record must be updated.
type SyncAction string

const (
	SyncActionNone              SyncAction = "none"
	SyncActionPushLocalToRemote SyncAction = "push_local_to_remote"
	SyncActionPullRemoteToLocal SyncAction = "pull_remote_to_local"
)

// ReadingProgress associates a user's document with its two provenance copies:
// the device cache and the last value known to the server.
type ReadingProgress struct {
	DocumentID string    `json:"document_id"`
	Local      *Position `json:"local,omitempty"`
	Remote     *Position `json:"remote,omitempty"`
	// Pending is set while the local copy is ahead of what the server acknowledged.
	Pending   bool      `json:"pending"`
	UpdatedAt time.Time `json:"updated_at"`
}
