package cardstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/cardsync/internal/client/models"
	"github.com/dmitrijs2005/cardsync/internal/client/repositories/kv"
	"github.com/dmitrijs2005/cardsync/internal/common"
)

// fixedLegacyKeys are the collection keys used before per-user storage.
var fixedLegacyKeys = map[string]struct{}{
	"cards":           {},
	"saved_cards":     {},
	"card_collection": {},
}

const (
	userKeyPrefix       = "cards_"
	conventionKeySuffix = "_cards"
)

// IsLegacyKey reports whether key names a legacy card location.
func IsLegacyKey(key string) bool {
	if _, ok := fixedLegacyKeys[key]; ok {
		return true
	}
	if strings.HasPrefix(key, userKeyPrefix) && len(key) > len(userKeyPrefix) {
		return true
	}
	return strings.HasSuffix(key, conventionKeySuffix) && len(key) > len(conventionKeySuffix)
}

// Scanner enumerates card locations. It never writes.
type Scanner struct {
	repo kv.Repository
}

func NewScanner(repo kv.Repository) *Scanner {
	return &Scanner{repo: repo}
}

// Scan builds a StorageReport. Substrate and parse failures end up in
// report.Errors; they never abort the scan.
func (s *Scanner) Scan(ctx context.Context) models.StorageReport {
	res := s.scan(ctx)
	report := res.report
	if res.fatal != nil {
		report.Errors = append(report.Errors, res.fatal.Error())
	}
	for _, err := range res.problems {
		report.Errors = append(report.Errors, err.Error())
	}
	return report
}

type scanResult struct {
	report models.StorageReport
	// problems are per-location failures, each a *common.LocationError.
	problems []error
	// fatal is set when a namespace could not even be listed.
	fatal error
}

func (s *Scanner) scan(ctx context.Context) scanResult {
	var res scanResult

	canonical, problems, err := s.scanCanonical(ctx)
	if err != nil {
		res.fatal = common.StorageFault("scan canonical cards", err)
		return res
	}
	res.problems = append(res.problems, problems...)
	res.report.Locations = append(res.report.Locations, canonical)

	keys, err := s.repo.Keys(ctx, common.NamespaceLegacy)
	if err != nil {
		res.fatal = common.StorageFault("list legacy locations", err)
	}
	for _, key := range keys {
		if !IsLegacyKey(key) {
			continue
		}
		loc, problems, ok := s.scanLegacy(ctx, key)
		res.problems = append(res.problems, problems...)
		if ok {
			res.report.Locations = append(res.report.Locations, loc)
		}
	}

	seenIn := make(map[string]int)
	for _, loc := range res.report.Locations {
		res.report.TotalCards += len(loc.Cards)
		ids := make(map[string]struct{}, len(loc.Cards))
		for _, c := range loc.Cards {
			if c.ID == "" {
				continue
			}
			ids[c.ID] = struct{}{}
		}
		for id := range ids {
			seenIn[id]++
		}
	}
	for _, n := range seenIn {
		if n >= 2 {
			res.report.DuplicateCount++
		}
	}
	return res
}

func (s *Scanner) scanCanonical(ctx context.Context) (models.StorageLocation, []error, error) {
	loc := models.StorageLocation{Key: common.NamespaceCards, Canonical: true}

	blobs, err := s.repo.List(ctx, common.NamespaceCards)
	if err != nil {
		return loc, nil, err
	}

	ids := make([]string, 0, len(blobs))
	for id := range blobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var problems []error
	for _, id := range ids {
		var c models.CardRecord
		if err := json.Unmarshal(blobs[id], &c); err != nil {
			loc.Invalid++
			problems = append(problems, &common.LocationError{
				Key: common.NamespaceCards,
				Err: fmt.Errorf("card %q: %w", id, err),
			})
			continue
		}
		loc.Cards = append(loc.Cards, c)
	}
	return loc, problems, nil
}

func (s *Scanner) scanLegacy(ctx context.Context, key string) (models.StorageLocation, []error, bool) {
	loc := models.StorageLocation{Key: key}

	blob, err := s.repo.Get(ctx, common.NamespaceLegacy, key)
	if err != nil {
		return loc, []error{&common.LocationError{Key: key, Err: common.StorageFault("read", err)}}, false
	}
	if blob == nil {
		return loc, nil, false
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(blob, &raw); err != nil {
		return loc, []error{&common.LocationError{Key: key, Err: fmt.Errorf("not a card list: %w", err)}}, false
	}

	var problems []error
	for i, item := range raw {
		var c models.CardRecord
		if err := json.Unmarshal(item, &c); err != nil {
			loc.Invalid++
			problems = append(problems, &common.LocationError{
				Key: key,
				Err: fmt.Errorf("record %d: %w", i, err),
			})
			continue
		}
		loc.Cards = append(loc.Cards, c)
	}
	return loc, problems, true
}
