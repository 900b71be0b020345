package models

import "time"

// SyncState is the in-memory sync bookkeeping for one open card.
type SyncState struct {
	LastLocalSaveAt   time.Time
	LastSyncAttemptAt time.Time
	PendingRemoteSync bool
	InFlight          bool
	LastError         error
}
