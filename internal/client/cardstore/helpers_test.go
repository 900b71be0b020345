package cardstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/cardsync/internal/client/localdb"
	"github.com/dmitrijs2005/cardsync/internal/client/models"
	"github.com/dmitrijs2005/cardsync/internal/client/repositories/kv"
	"github.com/dmitrijs2005/cardsync/internal/common"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) kv.Repository {
	t.Helper()
	db, err := localdb.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return kv.NewSQLiteRepository(db)
}

func seedLegacy(t *testing.T, repo kv.Repository, key string, cards ...models.CardRecord) {
	t.Helper()
	if cards == nil {
		cards = []models.CardRecord{}
	}
	b, err := json.Marshal(cards)
	require.NoError(t, err)
	require.NoError(t, repo.Set(context.Background(), common.NamespaceLegacy, key, b))
}

func seedCanonical(t *testing.T, repo kv.Repository, c models.CardRecord) {
	t.Helper()
	b, err := json.Marshal(c)
	require.NoError(t, err)
	require.NoError(t, repo.Set(context.Background(), common.NamespaceCards, c.ID, b))
}

func legacyExists(t *testing.T, repo kv.Repository, key string) bool {
	t.Helper()
	v, err := repo.Get(context.Background(), common.NamespaceLegacy, key)
	require.NoError(t, err)
	return v != nil
}

// fixedClock always returns the same instant.
func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

// faultyRepo fails writes of selected canonical ids and deletes of selected
// legacy keys.
type faultyRepo struct {
	kv.Repository
	mu         sync.Mutex
	failSet    map[string]bool
	failDelete map[string]bool
}

var errInjected = errors.New("disk full")

func (r *faultyRepo) Set(ctx context.Context, namespace, key string, value []byte) error {
	r.mu.Lock()
	fail := r.failSet[key]
	r.mu.Unlock()
	if fail {
		return errInjected
	}
	return r.Repository.Set(ctx, namespace, key, value)
}

func (r *faultyRepo) Delete(ctx context.Context, namespace, key string) error {
	r.mu.Lock()
	fail := r.failDelete[key]
	r.mu.Unlock()
	if fail {
		return errInjected
	}
	return r.Repository.Delete(ctx, namespace, key)
}

// batchingFaultyRepo runs batches in a real transaction while still failing
// the selected writes.
type batchingFaultyRepo struct {
	faultyRepo
}

func (r *batchingFaultyRepo) Batch(ctx context.Context, fn func(ctx context.Context, repo kv.Repository) error) error {
	b := r.Repository.(kv.Batcher)
	return b.Batch(ctx, func(ctx context.Context, tx kv.Repository) error {
		return fn(ctx, &faultyRepo{Repository: tx, failSet: r.failSet, failDelete: r.failDelete})
	})
}
