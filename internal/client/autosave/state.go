package autosave

// State is where an open card is in the save/sync pipeline.
type State int

const (
	StateClean State = iota
	StateDirty
	StateLocalSavePending
	StateLocalSaved
	StateRemoteSyncPending
	StateSyncing
	StateSynced
	StateSyncFailed
)

var stateNames = [...]string{
	StateClean:             "clean",
	StateDirty:             "dirty",
	StateLocalSavePending:  "local_save_pending",
	StateLocalSaved:        "local_saved",
	StateRemoteSyncPending: "remote_sync_pending",
	StateSyncing:           "syncing",
	StateSynced:            "synced",
	StateSyncFailed:        "sync_failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
