// Package remote is the client side of the remote cards table. The table is
// consumed through a small contract: existence check, insert, last-writer-wins
// update and delete, all keyed by card id.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cardsync/internal/client/models"
	"github.com/dmitrijs2005/cardsync/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

// VerificationPending is what a freshly inserted card carries until the
// server reviews it.
const VerificationPending = "pending"

type Remote interface {
	Exists(ctx context.Context, id string) (bool, error)
	Insert(ctx context.Context, card Card) error
	Update(ctx context.Context, card Card) error
	Delete(ctx context.Context, id, creatorID string) error
}

// Card is a CardRecord plus the server-owned columns.
type Card struct {
	models.CardRecord
	CreatorID          string
	VerificationStatus string
	IsPublic           bool
}

// FromRecord prepares c for upload on behalf of creatorID.
func FromRecord(c models.CardRecord, creatorID string) Card {
	c = c.Clone()
	if c.CreatorAttribution.CreatorID == "" {
		c.CreatorAttribution.CreatorID = creatorID
	}
	return Card{
		CardRecord:         c,
		CreatorID:          creatorID,
		VerificationStatus: VerificationPending,
		IsPublic:           c.IsPublic(),
	}
}

// Upsert checks whether card.ID exists remotely and then updates or inserts.
// Callers must make sure only one Upsert per id runs at a time.
func Upsert(ctx context.Context, r Remote, card Card) error {
	exists, err := r.Exists(ctx, card.ID)
	if err != nil {
		return err
	}
	if exists {
		return r.Update(ctx, card)
	}
	return r.Insert(ctx, card)
}

// classify maps driver errors onto ErrRemoteUnavailable or ErrRemoteRejected.
// Context errors stay in the chain so callers can tell a timeout apart.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrRemoteRejected) || errors.Is(err, common.ErrRemoteUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		switch pgErr.Code[:2] {
		// data exception, integrity violation, auth, syntax/access rule
		case "22", "23", "28", "42":
			return fmt.Errorf("%s: %w: %w", op, common.ErrRemoteRejected, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, common.ErrRemoteUnavailable, err)
}

// IsTimeout reports whether err came from a deadline rather than the server.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err)
}

type row struct {
	tags               string
	designMetadata     string
	creatorAttribution string
	publishingOptions  string
}

func encode(c Card) (row, error) {
	var r row
	fields := []struct {
		dst *string
		v   any
	}{
		{&r.tags, nonNilTags(c.Tags)},
		{&r.designMetadata, c.DesignMetadata},
		{&r.creatorAttribution, c.CreatorAttribution},
		{&r.publishingOptions, c.PublishingOptions},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.v)
		if err != nil {
			return r, fmt.Errorf("%w: encode card %q: %w", common.ErrRemoteRejected, c.ID, err)
		}
		*f.dst = string(b)
	}
	return r, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func utc(t time.Time) time.Time {
	return t.UTC()
}
