package autosave

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/cardsync/internal/client/models"
	"github.com/dmitrijs2005/cardsync/internal/client/remote"
	"github.com/dmitrijs2005/cardsync/internal/common"
)

type memLocal struct {
	mu       sync.Mutex
	cards    map[string]models.CardRecord
	saves    int
	deletes  []string
	failSave atomic.Bool
	nextID   int
}

func newMemLocal() *memLocal {
	return &memLocal{cards: make(map[string]models.CardRecord)}
}

func (m *memLocal) SaveCard(ctx context.Context, card models.CardRecord) (string, bool) {
	if m.failSave.Load() {
		return "", false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if card.ID == "" {
		m.nextID++
		card.ID = fmt.Sprintf("gen-%d", m.nextID)
	}
	now := time.Now().UTC()
	if prev, ok := m.cards[card.ID]; ok {
		card.CreatedAt = prev.CreatedAt
	} else {
		card.CreatedAt = now
	}
	card.UpdatedAt = now
	m.cards[card.ID] = card.Clone()
	m.saves++
	return card.ID, true
}

func (m *memLocal) GetCard(ctx context.Context, id string) (models.CardRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	return c.Clone(), ok
}

func (m *memLocal) GetAllCards(ctx context.Context) []models.CardRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.CardRecord, 0, len(m.cards))
	for _, c := range m.cards {
		out = append(out, c.Clone())
	}
	return out
}

func (m *memLocal) DeleteCard(ctx context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.cards[id]
	delete(m.cards, id)
	m.deletes = append(m.deletes, id)
	return ok
}

func (m *memLocal) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *memLocal) Card(id string) models.CardRecord {
	c, _ := m.GetCard(context.Background(), id)
	return c
}

// fakeRemote records upserts. gate, when set, blocks Exists until closed or
// the context ends.
type fakeRemote struct {
	mu        sync.Mutex
	rows      map[string]remote.Card
	calls     int
	deleted   []string
	failNext  int
	failErr   error
	gate      chan struct{}
	active    int
	maxActive int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{rows: make(map[string]remote.Card)}
}

func (f *fakeRemote) Exists(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	f.calls++
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			f.done()
			return false, fmt.Errorf("exists: %w: %w", common.ErrRemoteUnavailable, ctx.Err())
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		f.active--
		return false, f.failErr
	}
	_, ok := f.rows[id]
	return ok, nil
}

func (f *fakeRemote) done() {
	f.mu.Lock()
	f.active--
	f.mu.Unlock()
}

func (f *fakeRemote) Insert(ctx context.Context, c remote.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active--
	f.rows[c.ID] = c
	return nil
}

func (f *fakeRemote) Update(ctx context.Context, c remote.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active--
	f.rows[c.ID] = c
	return nil
}

func (f *fakeRemote) Delete(ctx context.Context, id, creatorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id+"@"+creatorID)
	delete(f.rows, id)
	return nil
}

func (f *fakeRemote) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeRemote) Row(id string) (remote.Card, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	return c, ok
}

func (f *fakeRemote) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func (f *fakeRemote) MaxActive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxActive
}

func (f *fakeRemote) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

type fakeAuth struct {
	mu   sync.Mutex
	user string
}

func (a *fakeAuth) CurrentUserID(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == "" {
		return "", common.ErrNotAuthenticated
	}
	return a.user, nil
}

type notices struct {
	mu   sync.Mutex
	errs []error
}

func (n *notices) notify(cardID string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, err)
}

func (n *notices) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errs)
}

type staticCreator string

func (s staticCreator) Get(context.Context) (string, error) { return string(s), nil }
