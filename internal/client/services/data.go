package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrijs2005/cardsync/internal/client/cache"
	"github.com/dmitrijs2005/cardsync/internal/client/cardstore"
	"github.com/dmitrijs2005/cardsync/internal/client/models"
	"github.com/dmitrijs2005/cardsync/internal/client/sessions"
	"github.com/dmitrijs2005/cardsync/internal/common"
	"github.com/dmitrijs2005/cardsync/internal/logging"
	"github.com/dmitrijs2005/cardsync/internal/metrics"
)

// Namespace selects what Clear empties.
type Namespace string

const (
	NamespaceCards    Namespace = common.NamespaceCards
	NamespaceCache    Namespace = common.NamespaceCache
	NamespaceSessions Namespace = common.NamespaceSessions
)

// DataService is the single entry point the rest of the product uses for
// on-device data. It never returns errors: failures are logged and come
// back as false, not-found or empty results.
type DataService interface {
	SaveCard(ctx context.Context, card models.CardRecord) (string, bool)
	GetCard(ctx context.Context, id string) (models.CardRecord, bool)
	GetAllCards(ctx context.Context) []models.CardRecord
	DeleteCard(ctx context.Context, id string) bool

	SaveSession(ctx context.Context, key string, value any) bool
	GetSession(ctx context.Context, key string) (json.RawMessage, bool)
	DeleteSession(ctx context.Context, key string) bool

	SetCached(ctx context.Context, key string, value any, ttl time.Duration) bool
	GetCached(ctx context.Context, key string) (json.RawMessage, bool)

	Clear(ctx context.Context, ns Namespace) bool
	MigrateFromOldStorage(ctx context.Context) models.MigrationResult
	StorageReport(ctx context.Context) models.StorageReport
}

type dataService struct {
	cards    *cardstore.Store
	cache    *cache.Cache
	sessions *sessions.Store
	logger   logging.Logger
}

func NewDataService(cards *cardstore.Store, c *cache.Cache, s *sessions.Store, logger logging.Logger) DataService {
	return &dataService{
		cards:    cards,
		cache:    c,
		sessions: s,
		logger:   logger.With("component", "data_service"),
	}
}

func (d *dataService) SaveCard(ctx context.Context, card models.CardRecord) (string, bool) {
	id, err := d.cards.SaveCard(ctx, card)
	metrics.LocalSave(err == nil)
	if err != nil {
		d.fault(ctx, "save_card", err, "card_id", card.ID)
		return "", false
	}
	return id, true
}

func (d *dataService) GetCard(ctx context.Context, id string) (models.CardRecord, bool) {
	card, err := d.cards.GetCard(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return models.CardRecord{}, false
	}
	if err != nil {
		d.fault(ctx, "get_card", err, "card_id", id)
		return models.CardRecord{}, false
	}
	return card, true
}

func (d *dataService) GetAllCards(ctx context.Context) []models.CardRecord {
	cards, err := d.cards.GetAllCards(ctx)
	if err != nil {
		d.fault(ctx, "get_all_cards", err)
		return []models.CardRecord{}
	}
	return cards
}

func (d *dataService) DeleteCard(ctx context.Context, id string) bool {
	err := d.cards.RemoveCard(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return false
	}
	if err != nil {
		d.fault(ctx, "delete_card", err, "card_id", id)
		return false
	}
	return true
}

func (d *dataService) SaveSession(ctx context.Context, key string, value any) bool {
	if err := d.sessions.SaveSession(ctx, key, value); err != nil {
		d.fault(ctx, "save_session", err, "key", key)
		return false
	}
	return true
}

func (d *dataService) GetSession(ctx context.Context, key string) (json.RawMessage, bool) {
	v, ok, err := d.sessions.GetSession(ctx, key)
	if err != nil {
		d.fault(ctx, "get_session", err, "key", key)
		return nil, false
	}
	return v, ok
}

func (d *dataService) DeleteSession(ctx context.Context, key string) bool {
	if err := d.sessions.DeleteSession(ctx, key); err != nil {
		d.fault(ctx, "delete_session", err, "key", key)
		return false
	}
	return true
}

func (d *dataService) SetCached(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if err := d.cache.SetCached(ctx, key, value, ttl); err != nil {
		d.fault(ctx, "set_cached", err, "key", key)
		return false
	}
	return true
}

func (d *dataService) GetCached(ctx context.Context, key string) (json.RawMessage, bool) {
	v, ok, err := d.cache.GetCached(ctx, key)
	if err != nil {
		d.fault(ctx, "get_cached", err, "key", key)
		return nil, false
	}
	return v, ok
}

func (d *dataService) Clear(ctx context.Context, ns Namespace) bool {
	var err error
	switch ns {
	case NamespaceCards:
		err = d.cards.ClearAll(ctx)
	case NamespaceCache:
		err = d.cache.Clear(ctx)
	case NamespaceSessions:
		err = d.sessions.Clear(ctx)
	default:
		d.logger.Warn(ctx, "unknown namespace", "namespace", string(ns))
		return false
	}
	if err != nil {
		d.fault(ctx, "clear", err, "namespace", string(ns))
		return false
	}
	return true
}

// MigrateFromOldStorage consolidates legacy locations and re-saves every
// canonical card so it carries the current encoding. Calling it again
// reports zero migrated records and leaves the cards as they were.
func (d *dataService) MigrateFromOldStorage(ctx context.Context) models.MigrationResult {
	result := models.MigrationResult{CleanedLocations: []string{}}

	res, err := d.cards.Consolidate(ctx)
	if err != nil {
		d.fault(ctx, "consolidate", err)
		return result
	}
	for _, e := range res.Errors {
		d.logger.Warn(ctx, "location not consolidated", "error", e)
	}

	if _, err := d.cards.Resave(ctx); err != nil {
		d.fault(ctx, "migrate_resave", err)
	}

	metrics.Consolidated(res.MovedCount)
	result.MigratedCount = res.MovedCount
	if res.Cleaned != nil {
		result.CleanedLocations = res.Cleaned
	}
	if res.MovedCount > 0 || len(res.Cleaned) > 0 {
		d.logger.Info(ctx, "legacy storage migrated",
			"migrated", res.MovedCount, "cleaned", res.Cleaned)
	}
	return result
}

func (d *dataService) StorageReport(ctx context.Context) models.StorageReport {
	return d.cards.GetStorageReport(ctx)
}

func (d *dataService) fault(ctx context.Context, op string, err error, args ...any) {
	metrics.StorageFault(op)
	d.logger.Warn(ctx, "storage operation failed", append([]any{"op", op, "error", err}, args...)...)
}
