// Package sessions keeps short-lived editor and UI blobs keyed by session
// key. There is no expiry; the last write wins.
package sessions

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/cardsync/internal/client/models"
	"github.com/dmitrijs2005/cardsync/internal/client/repositories/kv"
	"github.com/dmitrijs2005/cardsync/internal/common"
)

type Store struct {
	repo kv.Repository
}

func NewStore(repo kv.Repository) *Store {
	return &Store{repo: repo}
}

func (s *Store) SaveSession(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return common.StorageFault("encode session", err)
	}
	blob, err := json.Marshal(models.SessionRecord{Key: key, Value: raw})
	if err != nil {
		return common.StorageFault("encode session", err)
	}
	if err := s.repo.Set(ctx, common.NamespaceSessions, key, blob); err != nil {
		return common.StorageFault("write session", err)
	}
	return nil
}

// GetSession returns the stored JSON value, or found=false.
func (s *Store) GetSession(ctx context.Context, key string) (json.RawMessage, bool, error) {
	blob, err := s.repo.Get(ctx, common.NamespaceSessions, key)
	if err != nil {
		return nil, false, common.StorageFault("read session", err)
	}
	if blob == nil {
		return nil, false, nil
	}
	var rec models.SessionRecord
	if err := json.Unmarshal(blob, &rec); err != nil {
		return nil, false, common.StorageFault("decode session", err)
	}
	return rec.Value, true, nil
}

func (s *Store) DeleteSession(ctx context.Context, key string) error {
	if err := s.repo.Delete(ctx, common.NamespaceSessions, key); err != nil {
		return common.StorageFault("delete session", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.repo.Clear(ctx, common.NamespaceSessions); err != nil {
		return common.StorageFault("clear sessions", err)
	}
	return nil
}
