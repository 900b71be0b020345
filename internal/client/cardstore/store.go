package cardstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/cardsync/internal/client/models"
	"github.com/dmitrijs2005/cardsync/internal/client/repositories/kv"
	"github.com/dmitrijs2005/cardsync/internal/common"
	"github.com/dmitrijs2005/cardsync/internal/logging"
	"github.com/google/uuid"
)

// Store is the canonical local card collection. Writes to the canonical
// namespace are serialized by mu.
type Store struct {
	mu      sync.Mutex
	repo    kv.Repository
	scanner *Scanner
	logger  logging.Logger
	now     func() time.Time
	newID   func() string
}

type Option func(*Store)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func NewStore(repo kv.Repository, opts ...Option) *Store {
	s := &Store{
		repo:    repo,
		scanner: NewScanner(repo),
		logger:  logging.NewDiscardLogger(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAllCards reads the canonical namespace only, oldest card first.
// Records that fail to decode are logged and skipped.
func (s *Store) GetAllCards(ctx context.Context) ([]models.CardRecord, error) {
	return s.listFrom(ctx, s.repo)
}

func (s *Store) listFrom(ctx context.Context, repo kv.Repository) ([]models.CardRecord, error) {
	blobs, err := repo.List(ctx, common.NamespaceCards)
	if err != nil {
		return nil, common.StorageFault("list cards", err)
	}

	cards := make([]models.CardRecord, 0, len(blobs))
	for id, blob := range blobs {
		var c models.CardRecord
		if err := json.Unmarshal(blob, &c); err != nil {
			s.logger.Warn(ctx, "skipping undecodable card", "card_id", id, "error", err)
			continue
		}
		cards = append(cards, c)
	}
	sort.Slice(cards, func(i, j int) bool {
		if !cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].CreatedAt.Before(cards[j].CreatedAt)
		}
		return cards[i].ID < cards[j].ID
	})
	return cards, nil
}

// GetCard returns common.ErrNotFound when id is not in the canonical namespace.
func (s *Store) GetCard(ctx context.Context, id string) (models.CardRecord, error) {
	c, found, err := s.get(ctx, id)
	if err != nil {
		return models.CardRecord{}, err
	}
	if !found {
		return models.CardRecord{}, fmt.Errorf("card %q: %w", id, common.ErrNotFound)
	}
	return c, nil
}

// SaveCard upserts card and returns its id, assigning one when empty.
// UpdatedAt is stamped on every call and always moves forward relative to
// the stored copy.
func (s *Store) SaveCard(ctx context.Context, card models.CardRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if card.ID == "" {
		card.ID = s.newID()
	}

	existing, found, err := s.get(ctx, card.ID)
	if err != nil {
		return "", err
	}

	now := s.now().UTC().Round(0)
	if found {
		if card.CreatedAt.IsZero() {
			card.CreatedAt = existing.CreatedAt
		}
		if !now.After(existing.UpdatedAt) {
			now = existing.UpdatedAt.Add(time.Nanosecond)
		}
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = now
	}
	card.UpdatedAt = now
	card.Tags = models.NormalizeTags(card.Tags)

	if err := s.put(ctx, card); err != nil {
		return "", err
	}
	return card.ID, nil
}

// ImportCard writes card as-is, keeping its timestamps, so moved records do
// not look freshly edited. A stored copy with a newer UpdatedAt is kept.
func (s *Store) ImportCard(ctx context.Context, card models.CardRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if card.ID == "" {
		card.ID = s.newID()
	} else {
		stored, found, err := s.get(ctx, card.ID)
		if err != nil {
			return err
		}
		if found && stored.UpdatedAt.After(card.UpdatedAt) {
			return nil
		}
	}
	return s.put(ctx, card)
}

// Resave re-encodes every canonical card in place, keeping its timestamps,
// and returns how many were written. The read and the write happen under mu,
// so a concurrent SaveCard lands either before or after the whole pass.
func (s *Store) Resave(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	resave := func(ctx context.Context, repo kv.Repository) error {
		cards, err := s.listFrom(ctx, repo)
		if err != nil {
			return err
		}
		for _, c := range cards {
			if err := putTo(ctx, repo, c); err != nil {
				return err
			}
		}
		n = len(cards)
		return nil
	}
	if b, ok := s.repo.(kv.Batcher); ok {
		if err := b.Batch(ctx, resave); err != nil {
			return 0, err
		}
		return n, nil
	}
	if err := resave(ctx, s.repo); err != nil {
		return 0, err
	}
	return n, nil
}

// RemoveCard deletes id from the canonical namespace.
func (s *Store) RemoveCard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, found, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("card %q: %w", id, common.ErrNotFound)
	}
	if err := s.repo.Delete(ctx, common.NamespaceCards, id); err != nil {
		return common.StorageFault("remove card", err)
	}
	return nil
}

// ClearAll empties the canonical namespace. Legacy locations are untouched.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Clear(ctx, common.NamespaceCards); err != nil {
		return common.StorageFault("clear cards", err)
	}
	return nil
}

// GetStorageReport scans every location without consolidating.
func (s *Store) GetStorageReport(ctx context.Context) models.StorageReport {
	return s.scanner.Scan(ctx)
}

func (s *Store) get(ctx context.Context, id string) (models.CardRecord, bool, error) {
	blob, err := s.repo.Get(ctx, common.NamespaceCards, id)
	if err != nil {
		return models.CardRecord{}, false, common.StorageFault("read card", err)
	}
	if blob == nil {
		return models.CardRecord{}, false, nil
	}
	var c models.CardRecord
	if err := json.Unmarshal(blob, &c); err != nil {
		return models.CardRecord{}, false, common.StorageFault("decode card", err)
	}
	return c, true, nil
}

// put must be called with mu held.
func (s *Store) put(ctx context.Context, card models.CardRecord) error {
	return putTo(ctx, s.repo, card)
}

func putTo(ctx context.Context, repo kv.Repository, card models.CardRecord) error {
	blob, err := json.Marshal(card)
	if err != nil {
		return common.StorageFault("encode card", err)
	}
	if err := repo.Set(ctx, common.NamespaceCards, card.ID, blob); err != nil {
		return common.StorageFault("write card", err)
	}
	return nil
}
