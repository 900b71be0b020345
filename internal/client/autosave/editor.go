package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/cardsync/internal/client/auth"
	"github.com/dmitrijs2005/cardsync/internal/client/models"
	"github.com/dmitrijs2005/cardsync/internal/client/remote"
	"github.com/dmitrijs2005/cardsync/internal/common"
)

// Editor is the controller's handle on one open card. It is the only writer
// of that card's timers and in-flight flag.
type Editor struct {
	c         *Controller
	localKey  string
	remoteKey string
	onID      func(string)

	// saveMu serializes local saves so snapshots land in edit order.
	saveMu sync.Mutex

	mu         sync.Mutex
	card       models.CardRecord
	state      State
	sync       models.SyncState
	rev        uint64
	savedRev   uint64
	idNotified bool
	closing    bool
	closed     bool
}

// UpdateField applies one editor mutation and restarts the local-save
// timer. Unknown fields and invalid enum values are rejected without
// touching the card.
func (e *Editor) UpdateField(name string, value any) error {
	return e.Mutate(func(c *models.CardRecord) error {
		return c.SetField(name, value)
	})
}

// Mutate applies fn to a copy of the card and keeps the result when fn
// succeeds.
func (e *Editor) Mutate(fn func(*models.CardRecord) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closing || e.closed {
		return ErrEditorClosed
	}

	next := e.card.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	next.ID = e.card.ID
	e.card = next
	e.rev++

	// A new edit supersedes any pending remote sync; the next local save
	// re-arms it.
	e.c.timers.Cancel(e.remoteKey)
	e.sync.PendingRemoteSync = false
	e.state = StateDirty
	if e.c.timers.Schedule(e.localKey, e.c.cfg.LocalSaveDelay, e.onLocalTimer) {
		e.state = StateLocalSavePending
	}
	return nil
}

// Flush writes pending edits now instead of waiting for the timer.
func (e *Editor) Flush(ctx context.Context) error {
	e.c.timers.Cancel(e.localKey)
	return e.saveLocal(ctx)
}

// Close flushes pending edits and cancels the editor's timers. An in-flight
// sync is left to finish.
func (e *Editor) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closing || e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closing = true
	e.mu.Unlock()

	e.c.timers.Cancel(e.localKey)
	e.c.timers.Cancel(e.remoteKey)
	err := e.saveLocal(ctx)

	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.c.timers.Cancel(e.remoteKey)
	e.c.forget(e)
	return err
}

// discard closes without saving. Used when the card is deleted.
func (e *Editor) discard() {
	e.mu.Lock()
	e.closing = true
	e.closed = true
	e.mu.Unlock()
	e.c.timers.Cancel(e.localKey)
	e.c.timers.Cancel(e.remoteKey)
	e.c.forget(e)
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Editor) SyncState() models.SyncState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sync
}

// Card returns a copy of the in-memory card.
func (e *Editor) Card() models.CardRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.card.Clone()
}

func (e *Editor) ID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.card.ID
}

func (e *Editor) onLocalTimer() {
	_ = e.saveLocal(e.c.ctx)
}

func (e *Editor) onRemoteTimer() {
	e.syncRemote(e.c.ctx)
}

// saveLocal writes the current snapshot if it has unsaved edits and, when
// the user is signed in, arms the remote-sync timer.
func (e *Editor) saveLocal(ctx context.Context) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	e.mu.Lock()
	if e.closed || e.rev == e.savedRev {
		e.mu.Unlock()
		return nil
	}
	card := e.card.Clone()
	rev := e.rev
	e.mu.Unlock()

	userID, signedIn := e.c.remoteUser(ctx)
	if owner := card.CreatorAttribution.CreatorID; signedIn && (owner == "" || auth.IsAnonymous(owner)) {
		card.CreatorAttribution.CreatorID = userID
	} else if owner == "" && e.c.anonymous != nil {
		if anon, err := e.c.anonymous.Get(ctx); err == nil {
			card.CreatorAttribution.CreatorID = anon
		} else {
			e.c.logger.Warn(ctx, "anonymous creator unavailable", "error", err)
		}
	}

	id, ok := e.c.local.SaveCard(ctx, card)
	if !ok {
		err := fmt.Errorf("save card %q: %w", card.ID, common.ErrStorageFault)
		e.mu.Lock()
		e.sync.LastError = err
		if e.rev == rev {
			e.state = StateDirty
		}
		closing := e.closing
		e.mu.Unlock()

		// Keep retrying: the edit only exists in memory.
		if !closing {
			e.c.timers.Schedule(e.localKey, e.c.cfg.LocalSaveDelay, e.onLocalTimer)
		}
		e.c.notify(card.ID, err)
		return err
	}

	stored, found := e.c.local.GetCard(ctx, id)

	e.mu.Lock()
	var announce func(string)
	if e.card.ID == "" {
		e.card.ID = id
	}
	if !e.idNotified && card.ID == "" {
		e.idNotified = true
		announce = e.onID
	}
	e.card.CreatorAttribution.CreatorID = card.CreatorAttribution.CreatorID
	if found {
		e.card.CreatedAt = stored.CreatedAt
		e.card.UpdatedAt = stored.UpdatedAt
	}
	e.savedRev = rev
	e.sync.LastLocalSaveAt = e.c.now()
	e.sync.LastError = nil

	armRemote := false
	if rev == e.rev {
		e.state = StateLocalSaved
		if signedIn && !e.closing {
			if e.sync.InFlight {
				e.sync.PendingRemoteSync = true
			} else {
				armRemote = true
			}
		}
	}
	if armRemote && e.c.timers.Schedule(e.remoteKey, e.c.cfg.RemoteSyncDelay, e.onRemoteTimer) {
		e.state = StateRemoteSyncPending
	}
	e.mu.Unlock()

	if announce != nil {
		announce(id)
	}
	return nil
}

func (e *Editor) syncRemote(ctx context.Context) {
	e.mu.Lock()
	if e.closed || e.card.ID == "" {
		e.mu.Unlock()
		return
	}
	if e.sync.InFlight {
		e.sync.PendingRemoteSync = true
		e.mu.Unlock()
		return
	}
	id := e.card.ID

	userID, ok := e.c.remoteUser(ctx)
	if !ok {
		// Signed out since the timer was armed.
		if e.state == StateRemoteSyncPending {
			e.state = StateLocalSaved
		}
		e.mu.Unlock()
		return
	}
	if !e.c.beginSync(id) {
		// Someone else (AttachLocalCards) is pushing this id.
		e.c.timers.Schedule(e.remoteKey, e.c.cfg.RemoteSyncDelay, e.onRemoteTimer)
		e.mu.Unlock()
		return
	}
	e.sync.InFlight = true
	e.sync.PendingRemoteSync = false
	e.sync.LastSyncAttemptAt = e.c.now()
	if e.state == StateRemoteSyncPending || e.state == StateLocalSaved || e.state == StateSyncFailed {
		e.state = StateSyncing
	}
	e.mu.Unlock()

	err := e.c.push(ctx, id, userID)
	e.c.endSync(id)

	e.mu.Lock()
	e.sync.InFlight = false
	current := e.state == StateSyncing
	switch {
	case err == nil:
		e.sync.LastError = nil
		if current {
			e.state = StateSynced
		}
	case remote.IsTimeout(err):
		e.sync.LastError = err
		if current {
			e.state = StateLocalSaved
		}
	case errors.Is(err, context.Canceled):
		e.sync.LastError = err
		if current {
			e.state = StateLocalSaved
		}
	default:
		e.sync.LastError = err
		if current {
			e.state = StateSyncFailed
		}
	}
	followUp := e.sync.PendingRemoteSync && !e.closing && !e.closed
	if followUp {
		e.sync.PendingRemoteSync = false
		if e.c.timers.Schedule(e.remoteKey, 0, e.onRemoteTimer) && e.state != StateLocalSavePending {
			e.state = StateRemoteSyncPending
		}
	}
	e.mu.Unlock()

	if err != nil {
		e.c.logger.Warn(ctx, "remote sync failed", "card_id", id, "error", err)
		if !errors.Is(err, context.Canceled) {
			e.c.notify(id, err)
		}
	}
}

// retryFailedSync re-arms remote sync for an editor stuck in SyncFailed.
func (e *Editor) retryFailedSync() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closing || e.closed || e.state != StateSyncFailed || e.sync.InFlight {
		return
	}
	if e.c.timers.Pending(e.remoteKey) {
		return
	}
	if e.c.timers.Schedule(e.remoteKey, 0, e.onRemoteTimer) {
		e.state = StateRemoteSyncPending
	}
}
