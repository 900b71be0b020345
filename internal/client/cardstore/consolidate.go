package cardstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cardsync/internal/client/models"
	"github.com/dmitrijs2005/cardsync/internal/common"
)

type candidate struct {
	card models.CardRecord
	loc  int
}

// Consolidate merges every location into the canonical namespace and then
// deletes the legacy locations that merged cleanly. A location with
// undecodable records, or whose winning records could not be written, is
// left in place and reported as ErrConflictDuringConsolidation.
//
// MovedCount counts records written into the canonical namespace from a
// legacy location, so a second run over the same data reports zero.
func (s *Store) Consolidate(ctx context.Context) (models.ConsolidationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result models.ConsolidationResult

	scanned := s.scanner.scan(ctx)
	if scanned.fatal != nil {
		return result, scanned.fatal
	}
	for _, err := range scanned.problems {
		result.Errors = append(result.Errors, conflict(err))
	}

	locations := scanned.report.Locations
	failed := make([]bool, len(locations))
	for i, loc := range locations {
		if !loc.Canonical && loc.Invalid > 0 {
			failed[i] = true
		}
	}

	// Locations arrive canonical first, then legacy keys in lexicographic
	// order. Only a strictly newer UpdatedAt displaces the current winner.
	winners := make(map[string]candidate)
	var order []string
	holders := make(map[string][]int)
	for i, loc := range locations {
		for _, c := range loc.Cards {
			if c.ID == "" {
				c.ID = s.newID()
			}
			holders[c.ID] = append(holders[c.ID], i)
			cur, ok := winners[c.ID]
			if !ok {
				winners[c.ID] = candidate{card: c, loc: i}
				order = append(order, c.ID)
				continue
			}
			if c.UpdatedAt.After(cur.card.UpdatedAt) {
				winners[c.ID] = candidate{card: c, loc: i}
			}
		}
	}

	for _, id := range order {
		w := winners[id]
		if locations[w.loc].Canonical {
			continue
		}
		if err := s.put(ctx, w.card); err != nil {
			for _, i := range holders[id] {
				if !locations[i].Canonical {
					failed[i] = true
				}
			}
			result.Errors = append(result.Errors, &common.LocationError{
				Key: locations[w.loc].Key,
				Err: fmt.Errorf("%w: card %q: %w", common.ErrConflictDuringConsolidation, id, err),
			})
			continue
		}
		result.MovedCount++
	}

	for i, loc := range locations {
		if loc.Canonical || failed[i] {
			continue
		}
		if err := s.repo.Delete(ctx, common.NamespaceLegacy, loc.Key); err != nil {
			result.Errors = append(result.Errors, &common.LocationError{
				Key: loc.Key,
				Err: common.StorageFault("remove legacy location", err),
			})
			continue
		}
		result.Cleaned = append(result.Cleaned, loc.Key)
	}

	return result, nil
}

// conflict re-tags a scan problem as a consolidation conflict for the
// location it happened in.
func conflict(err error) error {
	var le *common.LocationError
	if errors.As(err, &le) {
		if errors.Is(le.Err, common.ErrConflictDuringConsolidation) {
			return le
		}
		return &common.LocationError{
			Key: le.Key,
			Err: fmt.Errorf("%w: %w", common.ErrConflictDuringConsolidation, le.Err),
		}
	}
	return fmt.Errorf("%w: %w", common.ErrConflictDuringConsolidation, err)
}
