package cardstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/cardsync/internal/client/models"
	"github.com/dmitrijs2005/cardsync/internal/client/repositories/kv"
	"github.com/dmitrijs2005/cardsync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveCard_AssignsIDWhenEmpty(t *testing.T) {
	s := NewStore(newRepo(t))
	ctx := context.Background()

	id, err := s.SaveCard(ctx, models.CardRecord{Title: "Ace"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.GetCard(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ace", got.Title)
	assert.Equal(t, id, got.ID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSaveCard_IsIdempotentPerID(t *testing.T) {
	s := NewStore(newRepo(t))
	ctx := context.Background()

	card := models.CardRecord{ID: "c1", Title: "Ace", Tags: []string{"a"}}
	_, err := s.SaveCard(ctx, card)
	require.NoError(t, err)
	_, err = s.SaveCard(ctx, card)
	require.NoError(t, err)

	all, err := s.GetAllCards(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "c1", all[0].ID)
}

func TestSaveCard_UpdatedAtStrictlyIncreases(t *testing.T) {
	s := NewStore(newRepo(t), WithClock(fixedClock(t0)))
	ctx := context.Background()

	id, err := s.SaveCard(ctx, models.CardRecord{Title: "v1"})
	require.NoError(t, err)
	first, err := s.GetCard(ctx, id)
	require.NoError(t, err)

	_, err = s.SaveCard(ctx, models.CardRecord{ID: id, Title: "v1"})
	require.NoError(t, err)
	second, err := s.GetCard(ctx, id)
	require.NoError(t, err)

	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	assert.Equal(t, first.CreatedAt, second.CreatedAt, "createdAt survives a save without it")
}

func TestSaveCard_StorageFault(t *testing.T) {
	repo := &faultyRepo{Repository: newRepo(t), failSet: map[string]bool{"bad": true}}
	s := NewStore(repo)

	_, err := s.SaveCard(context.Background(), models.CardRecord{ID: "bad"})
	require.ErrorIs(t, err, common.ErrStorageFault)
	require.ErrorIs(t, err, errInjected)
}

func TestGetCard_NotFound(t *testing.T) {
	s := NewStore(newRepo(t))

	_, err := s.GetCard(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetAllCards_SkipsCorruptAndSorts(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	seedCanonical(t, repo, models.CardRecord{ID: "b", CreatedAt: t0.Add(time.Hour)})
	seedCanonical(t, repo, models.CardRecord{ID: "a", CreatedAt: t0})
	require.NoError(t, repo.Set(ctx, common.NamespaceCards, "broken", []byte("{")))

	all, err := NewStore(repo).GetAllCards(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
}

func TestImportCard_KeepsTimestamps(t *testing.T) {
	s := NewStore(newRepo(t))
	ctx := context.Background()

	card := models.CardRecord{ID: "x", CreatedAt: t0, UpdatedAt: t0.Add(time.Minute)}
	require.NoError(t, s.ImportCard(ctx, card))

	got, err := s.GetCard(ctx, "x")
	require.NoError(t, err)
	assert.True(t, got.Equal(card))
}

func TestRemoveCard(t *testing.T) {
	s := NewStore(newRepo(t))
	ctx := context.Background()

	id, err := s.SaveCard(ctx, models.CardRecord{Title: "gone"})
	require.NoError(t, err)

	require.NoError(t, s.RemoveCard(ctx, id))
	_, err = s.GetCard(ctx, id)
	require.ErrorIs(t, err, common.ErrNotFound)

	require.ErrorIs(t, s.RemoveCard(ctx, id), common.ErrNotFound)
}

func TestClearAll_OnlyCanonical(t *testing.T) {
	repo := newRepo(t)
	s := NewStore(repo)
	ctx := context.Background()

	_, err := s.SaveCard(ctx, models.CardRecord{Title: "x"})
	require.NoError(t, err)
	seedLegacy(t, repo, "cards", models.CardRecord{ID: "old"})

	require.NoError(t, s.ClearAll(ctx))

	all, err := s.GetAllCards(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.True(t, legacyExists(t, repo, "cards"))
}

func TestImportCard_KeepsNewerStoredCopy(t *testing.T) {
	repo := newRepo(t)
	s := NewStore(repo)
	ctx := context.Background()

	seedCanonical(t, repo, models.CardRecord{ID: "a", Title: "fresh", UpdatedAt: t0.Add(time.Minute)})
	require.NoError(t, s.ImportCard(ctx, models.CardRecord{ID: "a", Title: "stale", UpdatedAt: t0}))

	got, err := s.GetCard(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.Title)
}

func TestResave_KeepsTimestamps(t *testing.T) {
	repo := newRepo(t)
	s := NewStore(repo)
	ctx := context.Background()

	seedCanonical(t, repo, models.CardRecord{ID: "a", CreatedAt: t0, UpdatedAt: t0.Add(time.Minute)})
	seedCanonical(t, repo, models.CardRecord{ID: "b", CreatedAt: t0, UpdatedAt: t0})

	n, err := s.Resave(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.GetCard(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(t0.Add(time.Minute)))
}

func TestResave_FailureIsReported(t *testing.T) {
	repo := newRepo(t)
	seedCanonical(t, repo, models.CardRecord{ID: "a", UpdatedAt: t0})
	seedCanonical(t, repo, models.CardRecord{ID: "b", UpdatedAt: t0})
	s := NewStore(&batchingFaultyRepo{faultyRepo: faultyRepo{Repository: repo, failSet: map[string]bool{"b": true}}})

	n, err := s.Resave(context.Background())
	require.ErrorIs(t, err, common.ErrStorageFault)
	assert.Zero(t, n)
}

// listHookRepo runs onList after every canonical List. It does not implement
// kv.Batcher, so Resave reads through it.
type listHookRepo struct {
	kv.Repository
	onList func()
}

func (r *listHookRepo) List(ctx context.Context, namespace string) (map[string][]byte, error) {
	out, err := r.Repository.List(ctx, namespace)
	if namespace == common.NamespaceCards && r.onList != nil {
		r.onList()
	}
	return out, err
}

func TestResave_DoesNotRevertConcurrentSave(t *testing.T) {
	base := newRepo(t)
	seedCanonical(t, base, models.CardRecord{ID: "c1", Title: "old", CreatedAt: t0, UpdatedAt: t0})

	repo := &listHookRepo{Repository: base}
	s := NewStore(repo)
	ctx := context.Background()

	var once sync.Once
	saved := make(chan error, 1)
	repo.onList = func() {
		once.Do(func() {
			started := make(chan struct{})
			go func() {
				close(started)
				_, err := s.SaveCard(ctx, models.CardRecord{ID: "c1", Title: "edited"})
				saved <- err
			}()
			<-started
			time.Sleep(20 * time.Millisecond)
		})
	}

	_, err := s.Resave(ctx)
	require.NoError(t, err)
	require.NoError(t, <-saved)

	got, err := s.GetCard(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Title)
	assert.True(t, got.UpdatedAt.After(t0))
}
