package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	anonymousSessionKey = "anonymous_id"
	anonymousPrefix     = "anon-"
)

// SessionStore is the subset of the session store AnonymousID needs.
type SessionStore interface {
	SaveSession(ctx context.Context, key string, value any) error
	GetSession(ctx context.Context, key string) (json.RawMessage, bool, error)
}

// AnonymousID is the creator id stamped on cards made before sign-in. It is
// minted once and persisted, so it is stable across restarts.
type AnonymousID struct {
	mu       sync.Mutex
	sessions SessionStore
	id       string
}

func NewAnonymousID(sessions SessionStore) *AnonymousID {
	return &AnonymousID{sessions: sessions}
}

// Get returns the anonymous id, minting and saving one on first use.
func (a *AnonymousID) Get(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.id != "" {
		return a.id, nil
	}

	raw, ok, err := a.sessions.GetSession(ctx, anonymousSessionKey)
	if err != nil {
		return "", fmt.Errorf("load anonymous id: %w", err)
	}
	if ok {
		var id string
		if err := json.Unmarshal(raw, &id); err == nil && IsAnonymous(id) {
			a.id = id
			return id, nil
		}
	}

	id := anonymousPrefix + uuid.NewString()
	if err := a.sessions.SaveSession(ctx, anonymousSessionKey, id); err != nil {
		return "", fmt.Errorf("save anonymous id: %w", err)
	}
	a.id = id
	return id, nil
}

// IsAnonymous reports whether creatorID was minted by AnonymousID.
func IsAnonymous(creatorID string) bool {
	return strings.HasPrefix(creatorID, anonymousPrefix)
}
