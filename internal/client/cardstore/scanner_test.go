package cardstore

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/cardsync/internal/client/models"
	"github.com/dmitrijs2005/cardsync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsLegacyKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"cards", true},
		{"saved_cards", true},
		{"card_collection", true},
		{"cards_u1", true},
		{"user_42_cards", true},
		{"cards_", false},
		{"_cards", false},
		{"theme", false},
		{"cardsx", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLegacyKey(tt.key))
		})
	}
}

func TestScan_ReportsLocationsDuplicatesAndErrors(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	seedCanonical(t, repo, models.CardRecord{ID: "1", UpdatedAt: t0})
	seedLegacy(t, repo, "cards", models.CardRecord{ID: "1"}, models.CardRecord{ID: "2"})
	seedLegacy(t, repo, "cards_u1", models.CardRecord{ID: "2"}, models.CardRecord{ID: "2"})
	require.NoError(t, repo.Set(ctx, common.NamespaceLegacy, "saved_cards", []byte(`{"not":"a list"}`)))
	require.NoError(t, repo.Set(ctx, common.NamespaceLegacy, "user_9_cards", []byte(`[{"id":"3"}, 17]`)))
	require.NoError(t, repo.Set(ctx, common.NamespaceLegacy, "theme", []byte(`"dark"`)))

	report := NewScanner(repo).Scan(ctx)

	keys := make([]string, 0, len(report.Locations))
	for _, loc := range report.Locations {
		keys = append(keys, loc.Key)
	}
	assert.Equal(t, []string{common.NamespaceCards, "cards", "cards_u1", "user_9_cards"}, keys)
	assert.True(t, report.Locations[0].Canonical)
	assert.Equal(t, 6, report.TotalCards)
	assert.Equal(t, 2, report.DuplicateCount, "ids 1 and 2 appear in two locations each")
	assert.Equal(t, 1, report.Locations[3].Invalid)
	require.Len(t, report.Errors, 2)
	assert.Contains(t, report.Errors[0], "saved_cards")
	assert.Contains(t, report.Errors[1], "user_9_cards")
}

func TestScan_DoesNotMutate(t *testing.T) {
	repo := newRepo(t)
	seedLegacy(t, repo, "cards", models.CardRecord{ID: "1"})

	_ = NewScanner(repo).Scan(context.Background())

	assert.True(t, legacyExists(t, repo, "cards"))
}

func TestGetStorageReport_EmptyStore(t *testing.T) {
	report := NewStore(newRepo(t)).GetStorageReport(context.Background())

	require.Len(t, report.Locations, 1)
	assert.Zero(t, report.TotalCards)
	assert.Zero(t, report.DuplicateCount)
	assert.Empty(t, report.Errors)
}
